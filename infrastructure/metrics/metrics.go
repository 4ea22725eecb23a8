package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "social_publisher"

var (
	registerOnce sync.Once
	registerErr  error

	publishAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "publish_attempts_total",
		Help:      "Platform publish attempts by outcome code",
	}, []string{"platform", "code"})

	publishDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "publish_duration_seconds",
		Help:      "Latency of a single platform publish call",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
	}, []string{"platform"})

	tokenRefreshTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_refresh_total",
		Help:      "OAuth token refreshes by result",
	}, []string{"platform", "result"})

	jobsCompletedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_completed_total",
		Help:      "Publish jobs completed by resulting state",
	}, []string{"state"})

	queueDepth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_jobs",
		Help:      "Publish jobs by state as of the last sweep",
	}, []string{"state"})

	httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests handled",
	}, []string{"method", "path", "status"})

	httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})
)

// Register adds every collector to registry (the default registerer when nil)
// and returns the /metrics handler. Calling it more than once is safe.
func Register(registry prometheus.Registerer) (http.Handler, error) {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	registerOnce.Do(func() {
		for _, c := range []prometheus.Collector{
			publishAttemptsTotal,
			publishDuration,
			tokenRefreshTotal,
			jobsCompletedTotal,
			queueDepth,
			httpRequestsTotal,
			httpRequestDuration,
		} {
			if err := registerCollector(registry, c); err != nil {
				registerErr = err
				return
			}
		}
	})
	if registerErr != nil {
		return nil, registerErr
	}
	if g, ok := registry.(prometheus.Gatherer); ok {
		return promhttp.HandlerFor(g, promhttp.HandlerOpts{}), nil
	}
	return promhttp.Handler(), nil
}

func registerCollector(registry prometheus.Registerer, c prometheus.Collector) error {
	if err := registry.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			return nil
		}
		return err
	}
	return nil
}

// ObservePublish records one platform attempt. An empty code means success.
func ObservePublish(platform, code string, elapsed time.Duration) {
	if code == "" {
		code = "OK"
	}
	publishAttemptsTotal.WithLabelValues(platform, code).Inc()
	publishDuration.WithLabelValues(platform).Observe(elapsed.Seconds())
}

func ObserveRefresh(platform string, ok bool) {
	result := "success"
	if !ok {
		result = "failure"
	}
	tokenRefreshTotal.WithLabelValues(platform, result).Inc()
}

func ObserveJobCompleted(state string) {
	jobsCompletedTotal.WithLabelValues(state).Inc()
}

// SetQueueDepth replaces the per-state gauges.
func SetQueueDepth(counts map[string]int64) {
	queueDepth.Reset()
	for state, n := range counts {
		queueDepth.WithLabelValues(state).Set(float64(n))
	}
}

// GinMiddleware records request counts and latency keyed by route template.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
