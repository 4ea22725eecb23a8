package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"social-publisher/infrastructure/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const routerSecret = "router-secret"

type stubHandler struct{}

func (stubHandler) ok(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"route": c.FullPath(), "userId": c.GetString("user_id")})
}

func (s stubHandler) ListPlatforms(c *gin.Context)     { s.ok(c) }
func (s stubHandler) Authorize(c *gin.Context)         { s.ok(c) }
func (s stubHandler) Callback(c *gin.Context)          { s.ok(c) }
func (s stubHandler) RefreshConnection(c *gin.Context) { s.ok(c) }
func (s stubHandler) ListConnections(c *gin.Context)   { s.ok(c) }
func (s stubHandler) CreatePost(c *gin.Context)        { s.ok(c) }
func (s stubHandler) SchedulePost(c *gin.Context)      { s.ok(c) }
func (s stubHandler) RetryPost(c *gin.Context)         { s.ok(c) }
func (s stubHandler) ListAttempts(c *gin.Context)      { s.ok(c) }
func (s stubHandler) Publish(c *gin.Context)           { s.ok(c) }
func (s stubHandler) PublishStatus(c *gin.Context)     { s.ok(c) }
func (s stubHandler) QueueStats(c *gin.Context)        { s.ok(c) }
func (s stubHandler) Healthz(c *gin.Context)           { s.ok(c) }

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := stubHandler{}
	metricsHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# metrics"))
	})
	return InitiateRouter(h, h, h, h, h.ok, Options{
		SecretKey:      routerSecret,
		AllowedOrigins: []string{"https://app.example.com"},
		Metrics:        metricsHandler,
	})
}

func bearer(t *testing.T) string {
	t.Helper()
	tok, err := utils.GenerateToken(map[string]interface{}{
		"sub": "user-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	}, routerSecret)
	require.NoError(t, err)
	return "Bearer " + tok
}

func TestRouter(t *testing.T) {
	router := newRouter()

	tests := []struct {
		name   string
		method string
		path   string
		auth   bool
		status int
		route  string
	}{
		{name: "health is public", method: http.MethodGet, path: "/healthz", status: http.StatusOK, route: "/healthz"},
		{name: "callback is public", method: http.MethodGet, path: "/auth/x/callback?code=c&state=s", status: http.StatusOK, route: "/auth/:platform/callback"},
		{name: "metrics", method: http.MethodGet, path: "/metrics", status: http.StatusOK},
		{name: "api requires a token", method: http.MethodPost, path: "/api/publish", status: http.StatusUnauthorized},
		{name: "publish", method: http.MethodPost, path: "/api/publish", auth: true, status: http.StatusOK, route: "/api/publish"},
		{name: "publish rejects other methods", method: http.MethodGet, path: "/api/publish", auth: true, status: http.StatusMethodNotAllowed},
		{name: "publish status", method: http.MethodGet, path: "/api/publish-status?stats=true", auth: true, status: http.StatusOK, route: "/api/publish-status"},
		{name: "stream", method: http.MethodGet, path: "/api/publish/stream", auth: true, status: http.StatusOK, route: "/api/publish/stream"},
		{name: "queue stats", method: http.MethodGet, path: "/api/queue/stats", auth: true, status: http.StatusOK, route: "/api/queue/stats"},
		{name: "authorize", method: http.MethodGet, path: "/api/oauth/mastodon/authorize", auth: true, status: http.StatusOK, route: "/api/oauth/:platform/authorize"},
		{name: "refresh", method: http.MethodPost, path: "/api/oauth/connections/c1/refresh", auth: true, status: http.StatusOK, route: "/api/oauth/connections/:connectionId/refresh"},
		{name: "create post", method: http.MethodPost, path: "/api/posts", auth: true, status: http.StatusOK, route: "/api/posts"},
		{name: "retry post", method: http.MethodPost, path: "/api/posts/p1/retry", auth: true, status: http.StatusOK, route: "/api/posts/:postId/retry"},
		{name: "attempts", method: http.MethodGet, path: "/api/posts/p1/attempts", auth: true, status: http.StatusOK, route: "/api/posts/:postId/attempts"},
		{name: "unknown route", method: http.MethodGet, path: "/nope", status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.auth {
				req.Header.Set("Authorization", bearer(t))
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.route != "" {
				assert.Contains(t, w.Body.String(), `"route":"`+tt.route+`"`)
			}
		})
	}
}

func TestRouter_AuthenticatedUserReachesHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/connections", nil)
	req.Header.Set("Authorization", bearer(t))
	w := httptest.NewRecorder()
	newRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"userId":"user-1"`)
}

func TestRouter_CORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/publish", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	newRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}
