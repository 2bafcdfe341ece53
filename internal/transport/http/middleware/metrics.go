package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	resp "go-gin-gorm-rbac/internal/transport/http/response"
)

// 未匹配路由统一打这个标签，避免扫描器把 label 撑爆
const unmatchedRoute = "unmatched"

var (
	httpReqTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "HTTP requests by engine, route and envelope code"},
		[]string{"engine", "route", "method", "code"},
	)
	httpLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latency of HTTP requests",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"engine", "route", "method"},
	)
	httpInFlight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "http_requests_in_flight", Help: "Requests currently being served"},
		[]string{"engine"},
	)
)

func init() { prometheus.MustRegister(httpReqTotal, httpLatency, httpInFlight) }

// Metrics 按引擎（api / admin）统计；/metrics 和 /health 不计
func Metrics(engine string) gin.HandlerFunc {
	inflight := httpInFlight.WithLabelValues(engine)
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "/metrics" || route == "/health" {
			c.Next()
			return
		}
		if route == "" {
			route = unmatchedRoute
		}

		inflight.Inc()
		defer inflight.Dec()
		start := time.Now()
		c.Next()

		httpReqTotal.WithLabelValues(engine, route, c.Request.Method, strconv.Itoa(envelopeCode(c))).Inc()
		httpLatency.WithLabelValues(engine, route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

// envelopeCode HTTP 恒 200，取信封里的业务码；没走信封（404、重定向）用 HTTP 状态
func envelopeCode(c *gin.Context) int {
	if code, ok := c.Get(resp.KeyCode); ok {
		if n, ok := code.(int); ok {
			return n
		}
	}
	return c.Writer.Status()
}
