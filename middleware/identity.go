package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// OwnerKey is the context key under which the owner's identity is stored.
const OwnerKey = "owner_id"

// OwnerHeader carries the opaque owner identity, set by the fronting auth
// layer. Authentication itself happens upstream of this service.
const OwnerHeader = "X-Owner-ID"

// OwnerID requires the owner identity header on every request and exposes it
// to handlers via the request context.
func OwnerID() gin.HandlerFunc {
	return func(c *gin.Context) {
		owner := strings.TrimSpace(c.GetHeader(OwnerHeader))
		if owner == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": OwnerHeader + " header required"})
			return
		}
		c.Set(OwnerKey, owner)
		c.Next()
	}
}
