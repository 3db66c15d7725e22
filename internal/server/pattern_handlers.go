package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yarnscape/backend/internal/patterns"
)

type patternDraftPayload struct {
	Title     string             `json:"title"`
	Craft     string             `json:"craft"`
	Skill     string             `json:"skillLevel"`
	Sections  []patterns.Section `json:"sections"`
	Tags      string             `json:"tags"`
	Materials string             `json:"materials"`
}

func (p patternDraftPayload) toDraft() patterns.Draft {
	return patterns.Draft{
		Title:     p.Title,
		Craft:     patterns.CraftType(p.Craft),
		Skill:     patterns.SkillLevel(p.Skill),
		Sections:  p.Sections,
		Tags:      patterns.SplitList(p.Tags),
		Materials: patterns.SplitList(p.Materials),
	}
}

type patternPayload struct {
	ID        string             `json:"id"`
	Title     string             `json:"title"`
	Craft     string             `json:"craft"`
	Skill     string             `json:"skillLevel"`
	Sections  []patterns.Section `json:"sections"`
	Tags      []string           `json:"tags"`
	Materials []string           `json:"materials"`
	Published bool               `json:"published"`
	CreatedAt int64              `json:"createdAt"`
	UpdatedAt int64              `json:"updatedAt"`
}

func toPatternPayload(record patterns.Pattern) patternPayload {
	return patternPayload{
		ID:        record.PatternID,
		Title:     record.Title,
		Craft:     string(record.Craft),
		Skill:     string(record.Skill),
		Sections:  record.Sections,
		Tags:      record.Tags,
		Materials: record.Materials,
		Published: record.Published,
		CreatedAt: record.CreatedAtSeconds,
		UpdatedAt: record.UpdatedAtSeconds,
	}
}

type publishedPayload struct {
	ID          string             `json:"id"`
	SourceID    string             `json:"sourcePatternId"`
	Title       string             `json:"title"`
	Author      string             `json:"author"`
	Craft       string             `json:"craft"`
	Skill       string             `json:"skillLevel"`
	Sections    []patterns.Section `json:"sections"`
	Tags        []string           `json:"tags"`
	Materials   []string           `json:"materials"`
	CoverImage  string             `json:"coverImageUrl,omitempty"`
	PublishedAt int64              `json:"publishedAt"`
}

func toPublishedPayload(record patterns.PublishedPattern) publishedPayload {
	return publishedPayload{
		ID:          record.PublishedID,
		SourceID:    record.SourcePatternID,
		Title:       record.Title,
		Author:      record.Author,
		Craft:       string(record.Craft),
		Skill:       string(record.Skill),
		Sections:    record.Sections,
		Tags:        record.Tags,
		Materials:   record.Materials,
		CoverImage:  record.CoverImageURL,
		PublishedAt: record.PublishedAtSeconds,
	}
}

type savedPayload struct {
	ID         string             `json:"id"`
	PatternID  string             `json:"patternId"`
	Title      string             `json:"title"`
	Author     string             `json:"author"`
	Craft      string             `json:"craft"`
	Skill      string             `json:"skillLevel"`
	Sections   []patterns.Section `json:"sections"`
	Tags       []string           `json:"tags"`
	Materials  []string           `json:"materials"`
	CoverImage string             `json:"coverImageUrl,omitempty"`
	SavedAt    int64              `json:"savedAt"`
}

func toSavedPayload(record patterns.SaveRecord) savedPayload {
	return savedPayload{
		ID:         record.SaveID,
		PatternID:  record.PatternID,
		Title:      record.Title,
		Author:     record.Author,
		Craft:      string(record.Craft),
		Skill:      string(record.Skill),
		Sections:   record.Sections,
		Tags:       record.Tags,
		Materials:  record.Materials,
		CoverImage: record.CoverImageURL,
		SavedAt:    record.SavedAtSeconds,
	}
}

func (h *httpHandler) patternIDParam(c *gin.Context) (patterns.PatternID, bool) {
	patternID, err := patterns.NewPatternID(c.Param("patternId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_pattern_id"})
		return "", false
	}
	return patternID, true
}

func (h *httpHandler) handleListPatterns(c *gin.Context) {
	userID, ok := h.actingUser(c)
	if !ok {
		return
	}
	records, err := h.patterns.ListPatterns(c.Request.Context(), userID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	payload := make([]patternPayload, 0, len(records))
	for _, record := range records {
		payload = append(payload, toPatternPayload(record))
	}
	c.JSON(http.StatusOK, gin.H{"patterns": payload})
}

func (h *httpHandler) handleCreatePattern(c *gin.Context) {
	userID, ok := h.actingUser(c)
	if !ok {
		return
	}
	var request patternDraftPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	record, err := h.patterns.CreatePattern(c.Request.Context(), userID, request.toDraft())
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toPatternPayload(record))
}

func (h *httpHandler) handleGetPattern(c *gin.Context) {
	userID, ok := h.actingUser(c)
	if !ok {
		return
	}
	patternID, ok := h.patternIDParam(c)
	if !ok {
		return
	}
	record, err := h.patterns.GetPattern(c.Request.Context(), userID, patternID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPatternPayload(record))
}

func (h *httpHandler) handleUpdatePattern(c *gin.Context) {
	userID, ok := h.actingUser(c)
	if !ok {
		return
	}
	patternID, ok := h.patternIDParam(c)
	if !ok {
		return
	}
	var request patternDraftPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	record, err := h.patterns.UpdatePattern(c.Request.Context(), userID, patternID, request.toDraft())
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPatternPayload(record))
}

func (h *httpHandler) handleDeletePattern(c *gin.Context) {
	userID, ok := h.actingUser(c)
	if !ok {
		return
	}
	patternID, ok := h.patternIDParam(c)
	if !ok {
		return
	}
	if err := h.patterns.DeletePattern(c.Request.Context(), userID, patternID); err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type publishRequestPayload struct {
	Author        string `json:"author"`
	CoverImageURL string `json:"coverImageUrl"`
	Agreed        bool   `json:"agreed"`
}

func (h *httpHandler) handlePublishPattern(c *gin.Context) {
	userID, ok := h.actingUser(c)
	if !ok {
		return
	}
	patternID, ok := h.patternIDParam(c)
	if !ok {
		return
	}
	var request publishRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	record, err := h.patterns.PublishPattern(c.Request.Context(), userID, patternID, patterns.PublishRequest{
		Author:        request.Author,
		CoverImageURL: request.CoverImageURL,
		Agreed:        request.Agreed,
	})
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toPublishedPayload(record))
}

func (h *httpHandler) handleUnpublishPattern(c *gin.Context) {
	userID, ok := h.actingUser(c)
	if !ok {
		return
	}
	patternID, ok := h.patternIDParam(c)
	if !ok {
		return
	}
	if err := h.patterns.UnpublishPattern(c.Request.Context(), userID, patternID); err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// handleLibrary serves the public listing. The optional q, type and skill
// query parameters narrow the result in memory after the fetch.
func (h *httpHandler) handleLibrary(c *gin.Context) {
	if _, ok := h.actingUser(c); !ok {
		return
	}
	records, err := h.patterns.ListPublished(c.Request.Context())
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	filtered := patterns.FilterLibrary(records, patterns.LibraryFilter{
		Query: c.Query("q"),
		Craft: c.Query("type"),
		Skill: c.Query("skill"),
	})
	payload := make([]publishedPayload, 0, len(filtered))
	for _, record := range filtered {
		payload = append(payload, toPublishedPayload(record))
	}
	c.JSON(http.StatusOK, gin.H{"patterns": payload})
}

func (h *httpHandler) handleGetPublished(c *gin.Context) {
	userID, ok := h.actingUser(c)
	if !ok {
		return
	}
	patternID, ok := h.patternIDParam(c)
	if !ok {
		return
	}
	record, err := h.patterns.GetPublished(c.Request.Context(), userID, patternID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPublishedPayload(record))
}

func (h *httpHandler) handleIsSaved(c *gin.Context) {
	userID, ok := h.actingUser(c)
	if !ok {
		return
	}
	patternID, ok := h.patternIDParam(c)
	if !ok {
		return
	}
	saved, err := h.patterns.IsSaved(c.Request.Context(), userID, patternID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": saved})
}

func (h *httpHandler) handleSavePattern(c *gin.Context) {
	userID, ok := h.actingUser(c)
	if !ok {
		return
	}
	patternID, ok := h.patternIDParam(c)
	if !ok {
		return
	}
	record, err := h.patterns.SavePattern(c.Request.Context(), userID, patternID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toSavedPayload(record))
}

func (h *httpHandler) handleUnsavePattern(c *gin.Context) {
	userID, ok := h.actingUser(c)
	if !ok {
		return
	}
	patternID, ok := h.patternIDParam(c)
	if !ok {
		return
	}
	if err := h.patterns.UnsavePattern(c.Request.Context(), userID, patternID); err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleListSaved(c *gin.Context) {
	userID, ok := h.actingUser(c)
	if !ok {
		return
	}
	records, err := h.patterns.ListSaved(c.Request.Context(), userID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	payload := make([]savedPayload, 0, len(records))
	for _, record := range records {
		payload = append(payload, toSavedPayload(record))
	}
	c.JSON(http.StatusOK, gin.H{"saved": payload})
}
