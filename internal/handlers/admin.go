package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"contentgate/api/internal/middleware"
)

func (h HandlerSet) BanAccount(c *gin.Context) {
	h.setBanned(c, true)
}

func (h HandlerSet) UnbanAccount(c *gin.Context) {
	h.setBanned(c, false)
}

func (h HandlerSet) setBanned(c *gin.Context, banned bool) {
	account, err := h.identity.SetBanned(c.Request.Context(), middleware.PrincipalFrom(c), c.Param("id"), banned)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"account": newAccountResponse(account)})
}
