package monitoring

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type HTTPMetrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

type DBMetrics struct {
	QueryDuration *prometheus.HistogramVec
}

type BusinessMetrics struct {
	LoanLifecycleTotal *prometheus.CounterVec
	OverdueLoans       prometheus.Gauge
}

var (
	HTTP = HTTPMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lending_engine_http_requests_total",
				Help: "Total number of HTTP requests by method, route pattern and status code.",
			},
			[]string{"method", "path", "status_code"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lending_engine_http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status_code"},
		),
	}

	DB = DBMetrics{
		QueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lending_engine_db_query_duration_seconds",
				Help:    "Histogram of database query latencies.",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"query_name", "status"},
		),
	}

	Business = BusinessMetrics{
		LoanLifecycleTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lending_engine_loan_lifecycle_total",
				Help: "Total number of loan lifecycle operations by operation and outcome.",
			},
			[]string{"operation", "status"},
		),
		OverdueLoans: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "lending_engine_overdue_loans",
				Help: "Number of approved loans past their due date, as of the last sweep.",
			},
		),
	}
)

func RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	code := strconv.Itoa(statusCode)
	HTTP.RequestsTotal.WithLabelValues(method, path, code).Inc()
	HTTP.RequestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
}

func RecordDBQuery(queryName, status string, duration time.Duration) {
	DB.QueryDuration.WithLabelValues(queryName, status).Observe(duration.Seconds())
}

func RecordLoanOperation(operation, status string) {
	Business.LoanLifecycleTotal.WithLabelValues(operation, status).Inc()
}

func SetOverdueLoans(count int) {
	Business.OverdueLoans.Set(float64(count))
}
