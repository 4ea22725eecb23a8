package http

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestHealthz(t *testing.T) {
	ok := PingerFunc(func(context.Context) error { return nil })
	down := PingerFunc(func(context.Context) error { return errors.New("dial tcp: refused") })

	tests := []struct {
		name   string
		deps   map[string]Pinger
		status int
		body   string
	}{
		{
			name:   "no dependencies",
			deps:   nil,
			status: http.StatusOK,
			body:   `{"status":"ok","checks":{}}`,
		},
		{
			name:   "all reachable",
			deps:   map[string]Pinger{"postgres": ok, "redis": ok},
			status: http.StatusOK,
			body:   `{"status":"ok","checks":{"postgres":"ok","redis":"ok"}}`,
		},
		{
			name:   "one down",
			deps:   map[string]Pinger{"postgres": ok, "mongo": down},
			status: http.StatusServiceUnavailable,
			body:   `{"status":"degraded","checks":{"postgres":"ok","mongo":"unavailable"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gin.SetMode(gin.TestMode)
			r := gin.New()
			r.GET("/healthz", NewHealthHandler(tt.deps).Healthz)

			w := serve(r, http.MethodGet, "/healthz")

			assert.Equal(t, tt.status, w.Code)
			assert.JSONEq(t, tt.body, w.Body.String())
		})
	}
}
