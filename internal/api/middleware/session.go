package middleware

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// sessionTokenKey is the cookie-session key holding the per-browser
// recognition session token.
const sessionTokenKey = "session_token"

// SessionStore returns the cookie-backed session middleware.
func SessionStore(secret string) gin.HandlerFunc {
	store := cookie.NewStore([]byte(secret))
	return sessions.Sessions("facetrack_session", store)
}

// EnsureSessionToken issues a session token for browsers that do not have
// one yet. The token serves as the default recognition session identifier
// when a request body carries no explicit sessionId.
func EnsureSessionToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := sessions.Default(c)
		if tok, ok := s.Get(sessionTokenKey).(string); !ok || tok == "" {
			token := uuid.NewString()
			s.Set(sessionTokenKey, token)
			if err := s.Save(); err != nil {
				log.Warnf("Failed to save session cookie: %v", err)
			}
		}
		c.Next()
	}
}

// TokenFromContext returns the browser's session token, or "" when the
// request carries no session cookie.
func TokenFromContext(c *gin.Context) string {
	s := sessions.Default(c)
	if tok, ok := s.Get(sessionTokenKey).(string); ok {
		return tok
	}
	return ""
}
