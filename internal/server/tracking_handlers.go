package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yarnscape/backend/internal/patterns"
	"github.com/yarnscape/backend/internal/tracking"
)

type projectPayload struct {
	ID            string             `json:"id"`
	PatternID     string             `json:"patternId"`
	Title         string             `json:"title"`
	Author        string             `json:"author,omitempty"`
	Craft         string             `json:"craft"`
	Skill         string             `json:"skillLevel"`
	Sections      []patterns.Section `json:"sections"`
	Tags          []string           `json:"tags"`
	Materials     []string           `json:"materials"`
	Goal          string             `json:"goal"`
	TimeSpent     float64            `json:"timeSpentHours"`
	LastRowIndex  int                `json:"lastRowIndex"`
	Notes         []string           `json:"notes"`
	PatternPhotos []string           `json:"patternPhotos"`
	Completed     bool               `json:"completed"`
	CreatedAt     int64              `json:"createdAt"`
	LastEdited    int64              `json:"lastEdited"`
}

func toProjectPayload(record tracking.Project) projectPayload {
	return projectPayload{
		ID:            record.ProjectID,
		PatternID:     record.PatternID,
		Title:         record.Title,
		Author:        record.Author,
		Craft:         string(record.Craft),
		Skill:         string(record.Skill),
		Sections:      record.Sections,
		Tags:          record.Tags,
		Materials:     record.Materials,
		Goal:          record.Goal,
		TimeSpent:     record.TimeSpentHours,
		LastRowIndex:  record.LastRowIndex,
		Notes:         record.Notes,
		PatternPhotos: record.PatternPhotos,
		Completed:     record.Completed,
		CreatedAt:     record.CreatedAtSeconds,
		LastEdited:    record.LastEditedSeconds,
	}
}

func (h *httpHandler) projectIDParam(c *gin.Context) (tracking.ProjectID, bool) {
	projectID, err := tracking.NewProjectID(c.Param("projectId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_project_id"})
		return "", false
	}
	return projectID, true
}

type startTrackingPayload struct {
	PatternID string `json:"patternId"`
}

// handleStartTracking begins or resumes a project. The pattern snapshot is
// taken from the public copy when one exists, falling back to the caller's
// own draft for patterns tracked before publishing.
func (h *httpHandler) handleStartTracking(c *gin.Context) {
	userID, ok := h.actingUser(c)
	if !ok {
		return
	}
	var request startTrackingPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	patternID, err := patterns.NewPatternID(request.PatternID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_pattern_id"})
		return
	}

	snapshot, err := h.patternSnapshot(c, userID, patternID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	outcome, err := h.tracking.Start(c.Request.Context(), userID, patternID, snapshot)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	status := http.StatusCreated
	if outcome.Resumed {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"project": toProjectPayload(outcome.Project), "resumed": outcome.Resumed})
}

func (h *httpHandler) patternSnapshot(c *gin.Context, userID patterns.UserID, patternID patterns.PatternID) (tracking.Snapshot, error) {
	published, err := h.patterns.GetPublished(c.Request.Context(), userID, patternID)
	if err == nil {
		return tracking.Snapshot{
			Title:     published.Title,
			Craft:     published.Craft,
			Skill:     published.Skill,
			Author:    published.Author,
			Sections:  published.Sections,
			Tags:      published.Tags,
			Materials: published.Materials,
		}, nil
	}
	if !errors.Is(err, patterns.ErrPatternNotFound) {
		return tracking.Snapshot{}, err
	}

	draft, err := h.patterns.GetPattern(c.Request.Context(), userID, patternID)
	if err != nil {
		return tracking.Snapshot{}, err
	}
	return tracking.Snapshot{
		Title:     draft.Title,
		Craft:     draft.Craft,
		Skill:     draft.Skill,
		Sections:  draft.Sections,
		Tags:      draft.Tags,
		Materials: draft.Materials,
	}, nil
}

func (h *httpHandler) handleListProjects(c *gin.Context) {
	userID, ok := h.actingUser(c)
	if !ok {
		return
	}
	records, err := h.tracking.List(c.Request.Context(), userID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	payload := make([]projectPayload, 0, len(records))
	for _, record := range records {
		payload = append(payload, toProjectPayload(record))
	}
	c.JSON(http.StatusOK, gin.H{"projects": payload})
}

func (h *httpHandler) handleGetProject(c *gin.Context) {
	userID, ok := h.actingUser(c)
	if !ok {
		return
	}
	projectID, ok := h.projectIDParam(c)
	if !ok {
		return
	}
	record, err := h.tracking.Get(c.Request.Context(), userID, projectID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProjectPayload(record))
}

type progressPayload struct {
	Goal          string   `json:"goal"`
	TimeSpent     float64  `json:"timeSpentHours"`
	LastRowIndex  int      `json:"lastRowIndex"`
	Notes         []string `json:"notes"`
	PatternPhotos []string `json:"patternPhotos"`
}

func (h *httpHandler) handleSaveProgress(c *gin.Context) {
	userID, ok := h.actingUser(c)
	if !ok {
		return
	}
	projectID, ok := h.projectIDParam(c)
	if !ok {
		return
	}
	var request progressPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	record, err := h.tracking.SaveProgress(c.Request.Context(), userID, projectID, tracking.Progress{
		Goal:           request.Goal,
		TimeSpentHours: request.TimeSpent,
		LastRowIndex:   request.LastRowIndex,
		Notes:          request.Notes,
		PatternPhotos:  request.PatternPhotos,
	})
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProjectPayload(record))
}

func (h *httpHandler) handleCompleteProject(c *gin.Context) {
	userID, ok := h.actingUser(c)
	if !ok {
		return
	}
	projectID, ok := h.projectIDParam(c)
	if !ok {
		return
	}
	record, err := h.tracking.Complete(c.Request.Context(), userID, projectID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProjectPayload(record))
}

// handleAppendTranscript accepts raw audio in the request body and appends
// the resulting transcript as a project note.
func (h *httpHandler) handleAppendTranscript(c *gin.Context) {
	userID, ok := h.actingUser(c)
	if !ok {
		return
	}
	projectID, ok := h.projectIDParam(c)
	if !ok {
		return
	}
	record, err := h.tracking.AppendTranscript(c.Request.Context(), userID, projectID, c.Request.Body)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProjectPayload(record))
}
