package middleware

import (
	"github.com/gin-gonic/gin"

	"contentgate/api/internal/apperr"
	"contentgate/api/internal/models"
)

func RequireRoles(roles ...models.AccountRole) gin.HandlerFunc {
	roleSet := make(map[models.AccountRole]struct{}, len(roles))
	for _, role := range roles {
		roleSet[role] = struct{}{}
	}

	return func(c *gin.Context) {
		principal := PrincipalFrom(c)
		if principal == nil {
			abort(c, apperr.KindUnauthorized, "unauthorized", "authentication required")
			return
		}

		if _, ok := roleSet[principal.Role]; !ok {
			abort(c, apperr.KindForbidden, "forbidden", "operation not permitted")
			return
		}

		c.Next()
	}
}
