package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/campushq/timetable-api/internal/models"
	appErrors "github.com/campushq/timetable-api/pkg/errors"
	"github.com/campushq/timetable-api/pkg/response"
)

// RequireCapability gates a route on the caller's role granting the named
// capability. Roles form a closed set, so an unknown role in a stale token
// simply has no capabilities and is refused.
func RequireCapability(capability models.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)

		if !claims.Role.Can(capability) {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "role lacks required capability"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireMinRole gates a route on the role hierarchy rather than a single
// capability. Used for administrative surfaces.
func RequireMinRole(min models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)

		if !claims.Role.AtLeast(min) {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
