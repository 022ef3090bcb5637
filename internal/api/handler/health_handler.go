package handler

import (
	"log/slog"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
)

// HealthHandler reports readiness of the services the API depends on
type HealthHandler struct {
	logger *slog.Logger
	checks map[string]HealthChecker
}

// NewHealthHandler creates a new HealthHandler instance
func NewHealthHandler(deps *Dependencies) *HealthHandler {
	return &HealthHandler{
		logger: deps.Logger,
		checks: deps.Checks,
	}
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	results := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name].HealthCheck(c.Request.Context()); err != nil {
			h.logger.Warn("Dependency health check failed",
				slog.String("dependency", name),
				slog.Any("error", err),
			)
			results[name] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	c.JSON(status, gin.H{
		"ready":        status == http.StatusOK,
		"dependencies": results,
	})
}
