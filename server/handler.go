package server

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

var (
	errUnauthorized = errors.New("unauthorized")
)

func authenticate(c *gin.Context, expectedToken string) error {
	auth := c.GetHeader("Authorization")

	if expectedToken == "" {
		return nil
	}
	providedToken := ""
	if len(auth) > 7 && auth[:7] == "Bearer " {
		providedToken = auth[7:]
	}
	if subtle.ConstantTimeCompare([]byte(providedToken), []byte(expectedToken)) != 1 {
		return errUnauthorized
	}

	return nil
}

func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := authenticate(c, s.token); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}

// requestedSessionID returns the session id sent in the body or, failing that,
// the X-Session-ID header. ok is false when an id was sent but is not a uuid.
func (s *Server) requestedSessionID(c *gin.Context, fromBody string) (id string, ok bool) {
	id = fromBody
	if id == "" {
		id = c.GetHeader(SessionHeader)
	}
	if id == "" {
		return "", true
	}
	if s.validate.Var(id, "uuid") != nil {
		return "", false
	}
	return id, true
}

func HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}
