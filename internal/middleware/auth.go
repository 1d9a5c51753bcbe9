package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"contentgate/api/internal/apperr"
	"contentgate/api/internal/models"
	"contentgate/api/internal/security"
)

const (
	principalKey    = "principal"
	accessClaimsKey = "access_claims"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.Principal, *security.AccessClaims, error)
}

// Auth requires a valid bearer token.
func Auth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			abort(c, apperr.KindUnauthorized, "missing_token", "bearer token required")
			return
		}
		if !authenticate(c, auth, token) {
			return
		}
		c.Next()
	}
}

// OptionalAuth lets anonymous requests through but still rejects a bad token.
func OptionalAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if ok && !authenticate(c, auth, token) {
			return
		}
		c.Next()
	}
}

func authenticate(c *gin.Context, auth Authenticator, token string) bool {
	principal, claims, err := auth.Authenticate(c.Request.Context(), token)
	if err != nil {
		AbortWithError(c, err)
		return false
	}
	c.Set(principalKey, principal)
	c.Set(accessClaimsKey, claims)
	return true
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return token, token != ""
}

// PrincipalFrom returns the authenticated caller, or nil for anonymous requests.
func PrincipalFrom(c *gin.Context) *models.Principal {
	val, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	principal, _ := val.(*models.Principal)
	return principal
}

func AccessClaimsFrom(c *gin.Context) *security.AccessClaims {
	val, ok := c.Get(accessClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := val.(*security.AccessClaims)
	return claims
}
