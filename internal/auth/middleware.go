package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ContextKey is where RequireSeat stores the verified claims.
const ContextKey = "seat_claims"

// BearerOrQuery extracts a seat token from the Authorization header or the "st" query parameter.
// Browsers cannot set headers on websocket upgrades, hence the query fallback.
func BearerOrQuery(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return c.Query("st")
}

// RequireSeat rejects requests without a valid seat token for the match named by the :token path parameter.
func RequireSeat(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := BearerOrQuery(c)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing seat token"})
			return
		}
		claims, err := ParseSeatTokenFor(secret, raw, c.Param("token"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Set(ContextKey, claims)
		c.Next()
	}
}

// ClaimsFrom returns the claims set by RequireSeat.
func ClaimsFrom(c *gin.Context) (*SeatClaims, bool) {
	v, ok := c.Get(ContextKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*SeatClaims)
	return claims, ok
}
