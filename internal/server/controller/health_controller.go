package controller

import (
	"context"
	"sort"
	"time"

	pkgerrors "solvebox/pkg/errors"
	"solvebox/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// HealthController reports liveness and dependency health.
type HealthController struct {
	checks map[string]HealthCheck
}

// NewHealthController creates a controller running checks on every probe.
func NewHealthController(checks map[string]HealthCheck) *HealthController {
	return &HealthController{checks: checks}
}

// Check answers ok when every dependency responds.
func (h *HealthController) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			response.Error(c, pkgerrors.Wrapf(err, pkgerrors.ServiceUnavailable, "%s unavailable", name).
				WithDetail("dependency", name))
			return
		}
	}
	response.Success(c, gin.H{"status": "ok"})
}
