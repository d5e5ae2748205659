package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// 判题结果 outcome: correct / incorrect / unavailable / error
	ScoringEvaluations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scoring_evaluations_total",
			Help: "Number of answer evaluations by question type and outcome",
		},
		[]string{"type", "outcome"},
	)

	GradingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scoring_evaluation_duration_seconds",
			Help:    "Duration of answer evaluations",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 15, 30},
		},
		[]string{"type"},
	)

	LLMRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_requests_total",
			Help: "Number of LLM provider requests",
		},
		[]string{"model", "status"},
	)

	LLMTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Tokens consumed by LLM requests",
		},
		[]string{"model", "direction"},
	)

	LLMLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_request_duration_seconds",
			Help:    "Latency of LLM provider requests",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"model"},
	)
)

var initOnce sync.Once

// Init 注册全部指标，可重复调用
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			ScoringEvaluations,
			GradingDuration,
			LLMRequests,
			LLMTokens,
			LLMLatency,
		)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		RequestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(duration)
	}
}

// ObserveEvaluation 记录一次判题
func ObserveEvaluation(kind, outcome string, elapsed time.Duration) {
	ScoringEvaluations.WithLabelValues(kind, outcome).Inc()
	GradingDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// ObserveLLM 记录一次模型调用
func ObserveLLM(model string, ok bool, inputTokens, outputTokens int, elapsed time.Duration) {
	status := "ok"
	if !ok {
		status = "error"
	}
	LLMRequests.WithLabelValues(model, status).Inc()
	LLMLatency.WithLabelValues(model).Observe(elapsed.Seconds())
	if inputTokens > 0 {
		LLMTokens.WithLabelValues(model, "input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		LLMTokens.WithLabelValues(model, "output").Add(float64(outputTokens))
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
