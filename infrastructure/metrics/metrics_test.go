package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservePublish(t *testing.T) {
	before := testutil.ToFloat64(publishAttemptsTotal.WithLabelValues("x", "OK"))
	ObservePublish("x", "", 150*time.Millisecond)
	ObservePublish("x", "RATE_LIMITED", time.Second)

	assert.Equal(t, before+1, testutil.ToFloat64(publishAttemptsTotal.WithLabelValues("x", "OK")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(publishAttemptsTotal.WithLabelValues("x", "RATE_LIMITED")), 1.0)
}

func TestSetQueueDepth_Replaces(t *testing.T) {
	SetQueueDepth(map[string]int64{"ready": 3, "dead": 1})
	SetQueueDepth(map[string]int64{"ready": 2})

	assert.Equal(t, 2.0, testutil.ToFloat64(queueDepth.WithLabelValues("ready")))
	assert.Equal(t, 1, testutil.CollectAndCount(queueDepth))
}

func TestRegister_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	handler, err := Register(reg)
	require.NoError(t, err)

	ObserveRefresh("linkedin", false)
	ObserveJobCompleted("done")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "social_publisher_token_refresh_total"))
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/healthz", "204"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, before+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/healthz", "204")))
}
