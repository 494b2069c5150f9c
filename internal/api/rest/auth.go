package rest

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/KevinKickass/HomeGateway/internal/auth"
	"github.com/KevinKickass/HomeGateway/internal/storage"
	"github.com/KevinKickass/HomeGateway/internal/types"
)

type TokenRequest struct {
	APIKey string `json:"api_key" binding:"required"`
	Client string `json:"client" binding:"required"`
	Role   string `json:"role" binding:"omitempty,oneof=viewer operator"`
}

type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int       `json:"expires_in"` // seconds
	ExpiresAt   time.Time `json:"expires_at"`
}

// POST /api/v1/auth/token
func (s *Server) issueToken(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("AUTH_400", "Invalid request body", err.Error()))
		return
	}

	token, expiresAt, err := s.authService.IssueToken(req.APIKey, req.Client, auth.Role(req.Role))
	if !errors.Is(err, auth.ErrAuthDisabled) {
		s.logAuthEvent(c, req, err)
	}
	switch {
	case errors.Is(err, auth.ErrAuthDisabled):
		c.JSON(http.StatusNotFound, types.NewErrorResponse("AUTH_404", "Authentication is disabled", nil))
		return
	case errors.Is(err, auth.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, types.NewErrorResponse("AUTH_401", "Invalid credentials", nil))
		return
	case err != nil:
		s.logger.Error("Failed to issue token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse("AUTH_500", "Failed to issue token", nil))
		return
	}

	c.JSON(http.StatusOK, TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(time.Until(expiresAt).Seconds()),
		ExpiresAt:   expiresAt,
	})
}

// logAuthEvent records a token request. Failures to record are logged only.
func (s *Server) logAuthEvent(c *gin.Context, req TokenRequest, err error) {
	ev := storage.AuthEvent{
		EventType: storage.AuthEventTokenIssued,
		Client:    req.Client,
		Role:      req.Role,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Success:   err == nil,
		CreatedAt: time.Now(),
	}
	if ev.Role == "" {
		ev.Role = string(auth.RoleOperator)
	}
	if err != nil {
		ev.EventType = storage.AuthEventTokenRejected
		ev.Reason = err.Error()
	}

	if err := s.lm.DeviceManager().Store().LogAuthEvent(c.Request.Context(), ev); err != nil {
		s.logger.Warn("Failed to log auth event", zap.String("client", req.Client), zap.Error(err))
	}
}

// GET /api/v1/system/auth-events
func (s *Server) getAuthEvents(c *gin.Context) {
	limit, err := queryLimit(c, 50)
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("AUTH_EVENTS_400", "invalid limit", err.Error()))
		return
	}

	events, err := s.lm.DeviceManager().Store().RecentAuthEvents(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse("AUTH_EVENTS_500", "failed to load auth events", err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"count":  len(events),
	})
}
