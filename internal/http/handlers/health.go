package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

type Pinger func(ctx context.Context) error

type HealthHandler struct {
	checks map[string]Pinger
}

// NewHealthHandler takes the dependencies readiness depends on, by name.
func NewHealthHandler(checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{checks: checks}
}

func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz pings every dependency in parallel under one deadline.
func (h *HealthHandler) Readyz(ctx *gin.Context) {
	c, cancel := context.WithTimeout(ctx.Request.Context(), time.Second)
	defer cancel()

	var (
		mu      sync.Mutex
		failing = gin.H{}
		g       errgroup.Group
	)

	for name, ping := range h.checks {
		name, ping := name, ping
		g.Go(func() error {
			if err := ping(c); err != nil {
				mu.Lock()
				failing[name] = err.Error()
				mu.Unlock()
			}
			return nil
		})
	}

	_ = g.Wait()

	if len(failing) > 0 {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "checks": failing})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ready"})
}
