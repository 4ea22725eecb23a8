package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is satisfied by *sql.DB. Redis and mongo go through PingerFunc.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingerFunc adapts a plain function to Pinger.
type PingerFunc func(ctx context.Context) error

func (f PingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

type IHealthHandler interface {
	Healthz(ctx *gin.Context)
}

type HealthHandler struct {
	deps map[string]Pinger
}

// NewHealthHandler checks each named dependency on every request. Nil entries
// are skipped.
func NewHealthHandler(deps map[string]Pinger) IHealthHandler {
	return &HealthHandler{deps: deps}
}

func (h *HealthHandler) Healthz(ctx *gin.Context) {
	rc, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	checks := make(map[string]string, len(h.deps))
	healthy := true
	for name, dep := range h.deps {
		if dep == nil {
			continue
		}
		if err := dep.PingContext(rc); err != nil {
			checks[name] = "unavailable"
			healthy = false
			continue
		}
		checks[name] = "ok"
	}
	if !healthy {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "checks": checks})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "ok", "checks": checks})
}
