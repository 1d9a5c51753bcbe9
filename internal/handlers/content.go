package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"contentgate/api/internal/middleware"
)

func (h HandlerSet) GetContent(c *gin.Context) {
	view, err := h.content.Get(c.Request.Context(), middleware.PrincipalFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, newContentResponse(view))
}

func (h HandlerSet) DownloadContent(c *gin.Context) {
	url, expiresAt, err := h.content.DownloadURL(c.Request.Context(), middleware.PrincipalFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"url":       url,
		"expiresAt": expiresAt,
	})
}
