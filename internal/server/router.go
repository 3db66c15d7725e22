package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/yarnscape/backend/internal/images"
	"github.com/yarnscape/backend/internal/inventory"
	"github.com/yarnscape/backend/internal/patterns"
	"github.com/yarnscape/backend/internal/settings"
	"github.com/yarnscape/backend/internal/tracking"
	"github.com/yarnscape/backend/internal/users"
	"go.uber.org/zap"
)

const userIDContextKey = "yarnscape_user_id"

var (
	errMissingTokenManager     = errors.New("token manager dependency required")
	errMissingUsersService     = errors.New("users service dependency required")
	errMissingPatternsService  = errors.New("patterns service dependency required")
	errMissingTrackingService  = errors.New("tracking service dependency required")
	errMissingInventoryService = errors.New("inventory service dependency required")
	errMissingSettingsService  = errors.New("settings service dependency required")
	errInvalidAuthorization    = errors.New("authorization header missing or invalid")
)

// SessionTokenManager issues and validates session JWTs.
type SessionTokenManager interface {
	IssueSessionToken(ctx context.Context, accountID string) (string, int64, error)
	ValidateToken(token string) (string, error)
}

// Dependencies collects everything the HTTP surface needs. Uploader is
// optional; without it the image route reports the feature unavailable.
type Dependencies struct {
	TokenManager     SessionTokenManager
	UsersService     *users.Service
	PatternsService  *patterns.Service
	TrackingService  *tracking.Service
	InventoryService *inventory.Service
	SettingsService  *settings.Service
	Uploader         images.Uploader
	Logger           *zap.Logger
}

// NewHTTPHandler assembles the router: public auth routes plus the
// bearer-token-protected API.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.TokenManager == nil {
		return nil, errMissingTokenManager
	}
	if deps.UsersService == nil {
		return nil, errMissingUsersService
	}
	if deps.PatternsService == nil {
		return nil, errMissingPatternsService
	}
	if deps.TrackingService == nil {
		return nil, errMissingTrackingService
	}
	if deps.InventoryService == nil {
		return nil, errMissingInventoryService
	}
	if deps.SettingsService == nil {
		return nil, errMissingSettingsService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		tokens:    deps.TokenManager,
		users:     deps.UsersService,
		patterns:  deps.PatternsService,
		tracking:  deps.TrackingService,
		inventory: deps.InventoryService,
		settings:  deps.SettingsService,
		uploader:  deps.Uploader,
		logger:    logger,
	}

	router.POST("/auth/signup", handler.handleSignUp)
	router.POST("/auth/signin", handler.handleSignIn)

	protected := router.Group("/")
	protected.Use(handler.authorizeRequest)

	protected.GET("/me", handler.handleCurrentUser)

	protected.GET("/patterns", handler.handleListPatterns)
	protected.POST("/patterns", handler.handleCreatePattern)
	protected.GET("/patterns/:patternId", handler.handleGetPattern)
	protected.PUT("/patterns/:patternId", handler.handleUpdatePattern)
	protected.DELETE("/patterns/:patternId", handler.handleDeletePattern)
	protected.POST("/patterns/:patternId/publish", handler.handlePublishPattern)
	protected.POST("/patterns/:patternId/unpublish", handler.handleUnpublishPattern)

	protected.GET("/library", handler.handleLibrary)
	protected.GET("/library/:patternId", handler.handleGetPublished)
	protected.GET("/library/:patternId/saved", handler.handleIsSaved)
	protected.POST("/library/:patternId/save", handler.handleSavePattern)
	protected.DELETE("/library/:patternId/save", handler.handleUnsavePattern)
	protected.GET("/saved", handler.handleListSaved)

	protected.POST("/tracking/start", handler.handleStartTracking)
	protected.GET("/tracking", handler.handleListProjects)
	protected.GET("/tracking/:projectId", handler.handleGetProject)
	protected.PUT("/tracking/:projectId/progress", handler.handleSaveProgress)
	protected.POST("/tracking/:projectId/complete", handler.handleCompleteProject)
	protected.POST("/tracking/:projectId/transcript", handler.handleAppendTranscript)

	protected.GET("/inventory/yarn", handler.handleListYarn)
	protected.POST("/inventory/yarn", handler.handleAddYarn)
	protected.POST("/inventory/yarn/:itemId/quantity", handler.handleAdjustYarn)
	protected.GET("/inventory/tools", handler.handleListTools)
	protected.POST("/inventory/tools", handler.handleAddTool)
	protected.POST("/inventory/tools/:itemId/quantity", handler.handleAdjustTool)

	protected.GET("/settings", handler.handleGetSettings)
	protected.PUT("/settings", handler.handleUpdateSettings)

	protected.POST("/images", handler.handleUploadImage)

	return router, nil
}

type httpHandler struct {
	tokens    SessionTokenManager
	users     *users.Service
	patterns  *patterns.Service
	tracking  *tracking.Service
	inventory *inventory.Service
	settings  *settings.Service
	uploader  images.Uploader
	logger    *zap.Logger
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	subject, err := h.tokens.ValidateToken(token)
	if err != nil {
		h.logger.Warn("token validation failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(userIDContextKey, subject)
	c.Next()
}

// actingUser reads the authenticated subject set by the middleware. An
// empty value is a programming error on a protected route; the request is
// rejected rather than trusted.
func (h *httpHandler) actingUser(c *gin.Context) (patterns.UserID, bool) {
	userID, err := patterns.NewUserID(c.GetString(userIDContextKey))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return "", false
	}
	return userID, true
}

// respondServiceError translates domain failures into HTTP statuses. Unknown
// errors are logged and hidden behind a 500.
func (h *httpHandler) respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, patterns.ErrPatternNotFound),
		errors.Is(err, tracking.ErrProjectNotFound),
		errors.Is(err, inventory.ErrItemNotFound),
		errors.Is(err, users.ErrAccountNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	case errors.Is(err, tracking.ErrAlreadyCompleted):
		c.JSON(http.StatusConflict, gin.H{"error": "already_completed", "message": tracking.ErrAlreadyCompleted.Error()})
	case errors.Is(err, inventory.ErrQuantityBelowZero):
		c.JSON(http.StatusConflict, gin.H{"error": "quantity_below_zero"})
	case errors.Is(err, patterns.ErrAuthorRequired),
		errors.Is(err, patterns.ErrAgreementRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
	case errors.Is(err, tracking.ErrTranscriptionUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "transcription_unavailable"})
	case isValidationFailure(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
	default:
		h.logger.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}

type codedError interface {
	Code() string
}

// isValidationFailure recognizes the invalid-input reason codes the services
// attach before touching storage.
func isValidationFailure(err error) bool {
	var coded codedError
	if !errors.As(err, &coded) {
		return false
	}
	code := coded.Code()
	return strings.HasSuffix(code, ".invalid_draft") ||
		strings.HasSuffix(code, ".invalid_progress") ||
		strings.HasSuffix(code, ".invalid_update")
}
