package server

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"
)

// CronAuth guards the scheduled-trigger endpoint with a shared-secret bearer
// token. Anything but an exact match is a hard 401.
func (s *Server) CronAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := s.cfg.CronSecret
		if secret == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		c.Next()
	}
}
