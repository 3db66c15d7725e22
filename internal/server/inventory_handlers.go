package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yarnscape/backend/internal/inventory"
	"github.com/yarnscape/backend/internal/settings"
	"go.uber.org/zap"
)

type yarnRequestPayload struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Colour   string `json:"colour"`
	Quantity int    `json:"quantity"`
}

type toolRequestPayload struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Quantity int    `json:"quantity"`
}

type quantityRequestPayload struct {
	Delta int `json:"delta"`
}

func (h *httpHandler) handleListYarn(c *gin.Context) {
	userID, ok := h.actingUser(c)
	if !ok {
		return
	}
	records, err := h.inventory.ListYarn(c.Request.Context(), userID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"yarn": records})
}

func (h *httpHandler) handleAddYarn(c *gin.Context) {
	userID, ok := h.actingUser(c)
	if !ok {
		return
	}
	var request yarnRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	record, err := h.inventory.AddYarn(c.Request.Context(), inventory.YarnDraft{
		UserID:    userID,
		Name:      request.Name,
		FiberType: request.Type,
		Colour:    request.Colour,
		Quantity:  request.Quantity,
	})
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

func (h *httpHandler) handleAdjustYarn(c *gin.Context) {
	userID, ok := h.actingUser(c)
	if !ok {
		return
	}
	var request quantityRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	record, err := h.inventory.AdjustYarnQuantity(c.Request.Context(), userID, c.Param("itemId"), request.Delta)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (h *httpHandler) handleListTools(c *gin.Context) {
	userID, ok := h.actingUser(c)
	if !ok {
		return
	}
	records, err := h.inventory.ListTools(c.Request.Context(), userID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tools": records})
}

func (h *httpHandler) handleAddTool(c *gin.Context) {
	userID, ok := h.actingUser(c)
	if !ok {
		return
	}
	var request toolRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	record, err := h.inventory.AddTool(c.Request.Context(), inventory.ToolDraft{
		UserID:   userID,
		Name:     request.Name,
		ToolType: request.Type,
		Quantity: request.Quantity,
	})
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

func (h *httpHandler) handleAdjustTool(c *gin.Context) {
	userID, ok := h.actingUser(c)
	if !ok {
		return
	}
	var request quantityRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	record, err := h.inventory.AdjustToolQuantity(c.Request.Context(), userID, c.Param("itemId"), request.Delta)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

type settingsRequestPayload struct {
	Theme    string `json:"theme"`
	TextSize string `json:"textSize"`
}

func (h *httpHandler) handleGetSettings(c *gin.Context) {
	userID, ok := h.actingUser(c)
	if !ok {
		return
	}
	record, err := h.settings.Get(c.Request.Context(), userID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (h *httpHandler) handleUpdateSettings(c *gin.Context) {
	userID, ok := h.actingUser(c)
	if !ok {
		return
	}
	var request settingsRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	record, err := h.settings.UpdateSettings(c.Request.Context(), userID, settings.Update{
		Theme:    settings.Theme(request.Theme),
		TextSize: settings.TextSize(request.TextSize),
	})
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// handleUploadImage forwards a multipart image to the configured host and
// returns the public URL. Without a configured uploader the feature is off.
func (h *httpHandler) handleUploadImage(c *gin.Context) {
	if _, ok := h.actingUser(c); !ok {
		return
	}
	if h.uploader == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "uploads_unavailable"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	defer func() { _ = file.Close() }()

	url, err := h.uploader.Upload(c.Request.Context(), fileHeader.Filename, file)
	if err != nil {
		h.logger.Error("image upload failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "upload_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}
