package middleware

import (
	"net/http"
	"strings"

	"campuspark/models"
	"campuspark/utils"

	"github.com/gin-gonic/gin"
)

// IdentityMiddleware reads the caller's identity from a bearer token (or the
// "token" query parameter, for websocket upgrades). With optional set a
// missing token is allowed and the handler runs without an identity.
func IdentityMiddleware(optional bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			if optional {
				c.Next()
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}

		identity, err := utils.IdentityFromToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set(utils.IdentityKey, *identity)
		c.Set(utils.UserIDKey, identity.ID)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	if authHeader := c.GetHeader("Authorization"); strings.HasPrefix(authHeader, utils.BearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, utils.BearerPrefix))
	}
	return c.Query("token")
}

// CurrentIdentity returns the identity set by IdentityMiddleware.
func CurrentIdentity(c *gin.Context) (models.Identity, bool) {
	v, ok := c.Get(utils.IdentityKey)
	if !ok {
		return models.Identity{}, false
	}
	identity, ok := v.(models.Identity)
	return identity, ok
}
