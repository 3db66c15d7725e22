package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yarnscape/backend/internal/users"
	"go.uber.org/zap"
)

type signUpRequestPayload struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	AcceptedTerms   bool   `json:"accepted_terms"`
}

type signInRequestPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponsePayload struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
	UserID      string `json:"user_id"`
}

type currentUserPayload struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// handleSignUp registers an account and signs the new user straight in.
func (h *httpHandler) handleSignUp(c *gin.Context) {
	var request signUpRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	account, err := h.users.SignUp(c.Request.Context(), users.SignUpRequest{
		Email:           request.Email,
		Password:        request.Password,
		ConfirmPassword: request.ConfirmPassword,
		AcceptedTerms:   request.AcceptedTerms,
	})
	if err != nil {
		if errors.Is(err, users.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "email_taken", "message": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	h.respondWithSession(c, account.AccountID)
}

// handleSignIn verifies credentials and returns a session token.
func (h *httpHandler) handleSignIn(c *gin.Context) {
	var request signInRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	account, err := h.users.SignIn(c.Request.Context(), request.Email, request.Password)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials", "message": err.Error()})
			return
		}
		h.logger.Error("sign in failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	h.respondWithSession(c, account.AccountID)
}

func (h *httpHandler) respondWithSession(c *gin.Context, accountID string) {
	token, expiresIn, err := h.tokens.IssueSessionToken(c.Request.Context(), accountID)
	if err != nil {
		h.logger.Error("failed to issue session token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token_issue_failed"})
		return
	}
	c.JSON(http.StatusOK, sessionResponsePayload{
		AccessToken: token,
		ExpiresIn:   expiresIn,
		TokenType:   "Bearer",
		UserID:      accountID,
	})
}

// handleCurrentUser returns the account behind the presented token.
func (h *httpHandler) handleCurrentUser(c *gin.Context) {
	userID, ok := h.actingUser(c)
	if !ok {
		return
	}

	account, err := h.users.GetByID(c.Request.Context(), userID.String())
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, currentUserPayload{UserID: account.AccountID, Email: account.Email})
}
