package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/payflow/backend/internal/domain/shared"
	"github.com/payflow/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// PermissionConfig holds configuration for role middleware
type PermissionConfig struct {
	// Logger for middleware logging
	Logger *zap.Logger
	// OnDenied is called when access is denied (optional)
	OnDenied func(c *gin.Context, requiredRoles []shared.Role)
}

// RequireRole creates middleware that requires one of the listed roles.
// The actor must already be authenticated by the JWT middleware.
func RequireRole(roles ...shared.Role) gin.HandlerFunc {
	return RequireRoleWithConfig(PermissionConfig{}, roles...)
}

// RequireRoleWithConfig creates role middleware with custom config
func RequireRoleWithConfig(cfg PermissionConfig, roles ...shared.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := GetActor(c)
		if !ok {
			handleRoleDenied(c, cfg, roles, "No authenticated actor found")
			return
		}

		for _, role := range roles {
			if actor.Role == role {
				if cfg.Logger != nil {
					cfg.Logger.Debug("Role check passed",
						zap.String("actor_id", actor.ID.String()),
						zap.String("role", string(actor.Role)),
					)
				}
				c.Next()
				return
			}
		}

		handleRoleDenied(c, cfg, roles, "Actor lacks required role")
	}
}

// RequireOperator is a shorthand for operator-only routes
func RequireOperator() gin.HandlerFunc {
	return RequireRole(shared.RoleOperator)
}

// handleRoleDenied handles role check failures
func handleRoleDenied(c *gin.Context, cfg PermissionConfig, roles []shared.Role, reason string) {
	if cfg.Logger != nil {
		names := make([]string, len(roles))
		for i, r := range roles {
			names[i] = string(r)
		}
		cfg.Logger.Warn("Role check failed",
			zap.String("reason", reason),
			zap.Strings("required_roles", names),
			zap.String("path", c.Request.URL.Path),
		)
	}

	if cfg.OnDenied != nil {
		cfg.OnDenied(c, roles)
		return
	}

	c.AbortWithStatusJSON(http.StatusForbidden,
		dto.NewErrorResponseWithRequestID(
			dto.ErrCodeForbidden,
			"Insufficient role for this operation",
			getRequestIDFromContext(c),
		))
}
