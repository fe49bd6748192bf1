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

	EnrollmentCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lms_enrollments_total",
			Help: "Enrollment state changes",
		},
		[]string{"event"},
	)

	LessonCompletionCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lms_lesson_completions_total",
			Help: "Lessons newly marked as completed",
		},
	)

	QuizAttemptCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lms_quiz_attempts_total",
			Help: "Quiz attempts by outcome",
		},
		[]string{"outcome"},
	)

	StatsCacheCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lms_course_stats_cache_total",
			Help: "Course statistics cache lookups",
		},
		[]string{"result"},
	)

	registerOnce sync.Once
)

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			EnrollmentCounter,
			LessonCompletionCounter,
			QuizAttemptCounter,
			StatsCacheCounter,
		)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
