package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

type healthResponse struct {
	Status       string            `json:"status"`
	Dependencies map[string]string `json:"dependencies"`
	Environment  string            `json:"environment"`
}

func (h HandlerSet) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := "ok"
	code := http.StatusOK
	deps := make(map[string]string, len(names))
	for _, name := range names {
		deps[name] = "ok"
		if err := h.checks[name](ctx); err != nil {
			deps[name] = "error"
			status = "degraded"
			code = http.StatusServiceUnavailable
			h.log.Error().Err(err).Str("dependency", name).Msg("health check failed")
		}
	}

	c.JSON(code, healthResponse{
		Status:       status,
		Dependencies: deps,
		Environment:  h.environment,
	})
}
