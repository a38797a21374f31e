package handler

import (
	"github.com/gin-gonic/gin"

	"sopbot/internal/app"
	"sopbot/internal/transport/http/middleware"
)

// identityFromContext reads the claims the auth middleware stashed, if any.
// Unauthenticated requests come back as an anonymous guest identity.
func identityFromContext(c *gin.Context) app.Identity {
	id := app.Identity{
		Username: c.GetString(middleware.ContextUsernameKey),
		Role:     c.GetString(middleware.ContextRoleKey),
	}
	id.Name = id.Username
	if userID := c.GetUint(middleware.ContextUserIDKey); userID != 0 {
		id.UserID = &userID
	}
	return id
}
