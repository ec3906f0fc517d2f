package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/harisabid200/ChatFlowUI/internal/common/config"
)

// Metrics holds the prometheus collectors for the relay server.
type Metrics struct {
	registry *prometheus.Registry

	httpReqCnt *prometheus.CounterVec
	httpDur    *prometheus.HistogramVec

	forwardCnt *prometheus.CounterVec
	forwardDur *prometheus.HistogramVec
	deliverCnt *prometheus.CounterVec
	wsConns    prometheus.Gauge
	originRej  prometheus.Counter
	rateLimCnt *prometheus.CounterVec
}

func New(cfg config.MetricsConfig) *Metrics {
	ns := cfg.Namespace
	r := prometheus.NewRegistry()
	// Register standard process and Go collectors
	r.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	r.MustRegister(collectors.NewGoCollector())

	httpReqCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "http_requests_total"}, []string{"method", "route", "status"})
	httpDur := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: ns, Name: "http_request_duration_seconds", Buckets: cfg.Buckets}, []string{"method", "route", "status"})
	r.MustRegister(httpReqCnt, httpDur)

	forwardCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "webhook_forward_total"}, []string{"status"})
	forwardDur := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: ns, Name: "webhook_forward_duration_seconds", Buckets: cfg.Buckets}, []string{"status"})
	r.MustRegister(forwardCnt, forwardDur)

	deliverCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "relay_deliveries_total"}, []string{"outcome"})
	wsConns := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: ns, Name: "websocket_connections"})
	originRej := prometheus.NewCounter(prometheus.CounterOpts{Namespace: ns, Name: "origin_rejections_total"})
	rateLimCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "rate_limit_exceeded_total"}, []string{"bucket"})
	r.MustRegister(deliverCnt, wsConns, originRej, rateLimCnt)

	return &Metrics{
		registry:   r,
		httpReqCnt: httpReqCnt,
		httpDur:    httpDur,
		forwardCnt: forwardCnt,
		forwardDur: forwardDur,
		deliverCnt: deliverCnt,
		wsConns:    wsConns,
		originRej:  originRej,
		rateLimCnt: rateLimCnt,
	}
}

// ForwardDone records a completed outbound webhook call with its HTTP-level
// outcome (200, 429, 502, 504).
func (m *Metrics) ForwardDone(status int, since time.Time) {
	s := strconv.Itoa(status)
	m.forwardCnt.WithLabelValues(s).Inc()
	m.forwardDur.WithLabelValues(s).Observe(time.Since(since).Seconds())
}

// Delivered records a room broadcast reaching n connections; n == 0 counts
// as a drop.
func (m *Metrics) Delivered(n int) {
	if n == 0 {
		m.deliverCnt.WithLabelValues("dropped").Inc()
		return
	}
	m.deliverCnt.WithLabelValues("delivered").Add(float64(n))
}

func (m *Metrics) ConnOpened() { m.wsConns.Inc() }
func (m *Metrics) ConnClosed() { m.wsConns.Dec() }

func (m *Metrics) OriginRejected() { m.originRej.Inc() }

func (m *Metrics) RateLimited(bucket string) {
	m.rateLimCnt.WithLabelValues(bucket).Inc()
}

// Middleware records request counts and latency per route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		start := time.Now()
		c.Next()
		status := strconv.Itoa(c.Writer.Status())
		m.httpReqCnt.WithLabelValues(c.Request.Method, route, status).Inc()
		m.httpDur.WithLabelValues(c.Request.Method, route, status).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
