package auth

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/KevinKickass/HomeGateway/internal/config"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAuthDisabled       = errors.New("authentication disabled")
)

type Permission string

const (
	PermRead  Permission = "read"
	PermWrite Permission = "write"
)

type Role string

const (
	RoleViewer   Role = "viewer"
	RoleOperator Role = "operator"
)

// Service exchanges the configured API key for short lived access tokens.
// Without a configured key hash authentication is disabled and every request
// carries operator permissions.
type Service struct {
	apiKeyHash string
	hasher     *KeyHasher
	jwtHandler *JWTHandler
	logger     *zap.Logger
}

func NewService(cfg config.AuthConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.APIKeyHash == "" {
		logger.Warn("No API key configured, write access is unauthenticated")
	} else if !cfg.IsProductionReady() {
		logger.Warn("JWT secret is the development default or shorter than 32 characters",
			zap.String("env", cfg.JWTSecretEnv))
	}

	return &Service{
		apiKeyHash: cfg.APIKeyHash,
		hasher:     NewKeyHasher(),
		jwtHandler: NewJWTHandler(cfg.GetJWTSecret(), cfg.AccessTokenTTL),
		logger:     logger,
	}
}

func (s *Service) Enabled() bool {
	return s.apiKeyHash != ""
}

// IssueToken verifies apiKey and returns a signed token for client.
func (s *Service) IssueToken(apiKey, client string, role Role) (string, time.Time, error) {
	if !s.Enabled() {
		return "", time.Time{}, ErrAuthDisabled
	}
	if role == "" {
		role = RoleOperator
	}
	if role != RoleOperator && role != RoleViewer {
		return "", time.Time{}, fmt.Errorf("unknown role %q", role)
	}

	ok, err := s.hasher.VerifyKey(apiKey, s.apiKeyHash)
	if err != nil {
		s.logger.Error("Configured API key hash is unusable", zap.Error(err))
		return "", time.Time{}, ErrInvalidCredentials
	}
	if !ok {
		s.logger.Warn("Token request with invalid API key", zap.String("client", client))
		return "", time.Time{}, ErrInvalidCredentials
	}

	token, expiresAt, err := s.jwtHandler.GenerateAccessToken(client, role)
	if err != nil {
		return "", time.Time{}, err
	}

	s.logger.Info("Access token issued",
		zap.String("client", client),
		zap.String("role", string(role)),
		zap.Time("expires_at", expiresAt))
	return token, expiresAt, nil
}

// ValidateToken returns the permissions carried by token.
func (s *Service) ValidateToken(token string) ([]Permission, error) {
	if !s.Enabled() {
		return roleToPermissions(RoleOperator), nil
	}

	claims, err := s.jwtHandler.ValidateAccessToken(token)
	if err != nil {
		return nil, err
	}
	return roleToPermissions(claims.Role), nil
}

func roleToPermissions(role Role) []Permission {
	switch role {
	case RoleOperator:
		return []Permission{PermRead, PermWrite}
	default:
		return []Permission{PermRead}
	}
}
