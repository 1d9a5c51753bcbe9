package middleware

import (
	"github.com/gin-gonic/gin"

	"contentgate/api/internal/apperr"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// AbortWithError writes the error envelope. Unclassified errors are reported as
// internal_error and kept on the context for the request logger.
func AbortWithError(c *gin.Context, err error) {
	appErr, ok := apperr.As(err)
	if !ok || appErr.Kind == apperr.KindInternal {
		_ = c.Error(err)
		c.AbortWithStatusJSON(apperr.HTTPStatus(apperr.KindInternal), gin.H{
			"error": errorBody{Code: "internal_error", Message: "internal server error"},
		})
		return
	}
	if appErr.Err != nil {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(apperr.HTTPStatus(appErr.Kind), gin.H{
		"error": errorBody{Code: appErr.Code, Message: appErr.Message},
	})
}

func abort(c *gin.Context, kind apperr.Kind, code, message string) {
	AbortWithError(c, apperr.New(kind, code, message))
}
