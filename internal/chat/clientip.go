package chat

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// ClientIP extracts the originating client address, preferring proxy
// headers. X-Forwarded-For may carry a chain; the first entry is the
// original client.
func ClientIP(c *gin.Context) string {
	if fwd := c.GetHeader("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	if real := strings.TrimSpace(c.GetHeader("X-Real-IP")); real != "" {
		return real
	}
	return c.ClientIP()
}
