package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
)

// NoStore marks responses as uncacheable. API payloads depend on the caller's token.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}

// CacheControl lets the browser keep a response for maxAgeSeconds. Shared
// caches are excluded.
func CacheControl(maxAgeSeconds int) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", fmt.Sprintf("private, max-age=%d", maxAgeSeconds))
		c.Next()
	}
}
