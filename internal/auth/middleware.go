package auth

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/KevinKickass/HomeGateway/internal/types"
)

const permissionsKey = "permissions"

// AuthMiddleware validates bearer tokens and stores the granted permissions.
func (s *Service) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.Enabled() {
			c.Set(permissionsKey, roleToPermissions(RoleOperator))
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				types.NewErrorResponse("UNAUTHORIZED", "missing authorization header", nil))
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				types.NewErrorResponse("UNAUTHORIZED", "invalid authorization header format", nil))
			return
		}

		permissions, err := s.ValidateToken(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				types.NewErrorResponse("UNAUTHORIZED", "invalid or expired token", nil))
			return
		}

		c.Set(permissionsKey, permissions)
		c.Next()
	}
}

// RequirePermission checks if the caller has the required permission
func RequirePermission(required Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		perms, exists := c.Get(permissionsKey)
		if !exists {
			c.AbortWithStatusJSON(http.StatusForbidden,
				types.NewErrorResponse("FORBIDDEN", "no permissions found", nil))
			return
		}

		if !slices.Contains(perms.([]Permission), required) {
			c.AbortWithStatusJSON(http.StatusForbidden,
				types.NewErrorResponse("FORBIDDEN", "insufficient permissions", map[string]interface{}{
					"required": string(required),
				}))
			return
		}

		c.Next()
	}
}
