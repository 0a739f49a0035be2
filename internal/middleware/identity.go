package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	userIDHeader   = "X-User-ID"
	userRoleHeader = "X-User-Role"
	sessionHeader  = "X-Session-ID"
	sessionCookie  = "sessionId"
	adminRole      = "ADMIN"
	userIDKey      = "identity.user_id"
	sessionIDKey   = "identity.session_id"
	adminKey       = "identity.admin"
)

// Identity reads the caller identity forwarded by the authenticating edge.
// The session handle comes from the sessionId cookie, or the X-Session-ID header.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(userIDKey, strings.TrimSpace(c.GetHeader(userIDHeader)))
		c.Set(adminKey, strings.EqualFold(strings.TrimSpace(c.GetHeader(userRoleHeader)), adminRole))

		sessionID, err := c.Cookie(sessionCookie)
		if err != nil || sessionID == "" {
			sessionID = c.GetHeader(sessionHeader)
		}
		c.Set(sessionIDKey, strings.TrimSpace(sessionID))

		c.Next()
	}
}

// UserID returns the caller's user id, or "" if anonymous.
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

// SessionID returns the caller's session handle, or "" if none was sent.
func SessionID(c *gin.Context) string {
	return c.GetString(sessionIDKey)
}

// IsAdmin reports whether the caller has the admin role.
func IsAdmin(c *gin.Context) bool {
	return c.GetBool(adminKey)
}
