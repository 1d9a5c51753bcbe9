package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"contentgate/api/internal/apperr"
)

// Recovery turns a handler panic into the standard internal_error envelope.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			log.Error().
				Str("panic", fmt.Sprint(r)).
				Str("request_id", RequestIDFrom(c)).
				Str("route", c.FullPath()).
				Msg("panic recovered")
			if c.Writer.Written() {
				c.Abort()
				return
			}
			AbortWithError(c, apperr.Wrap(apperr.KindInternal, "internal_error", "panic", fmt.Errorf("%v", r)))
		}()
		c.Next()
	}
}
