// Package metrics provides the Prometheus metrics exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics track request patterns and latency by route template
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cafe_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cafe_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route", "status"},
	)
)

// Content metrics track article activity
var (
	ArticleWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cafe_article_writes_total",
			Help: "Successful article writes by operation",
		},
		[]string{"operation"},
	)

	ArticleViewsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cafe_article_views_total",
			Help: "Article detail views served",
		},
	)

	ArticlesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cafe_articles_total",
			Help: "Total number of articles in the store",
		},
	)
)

// Write operations
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// RecordArticleWrite counts one successful write
func RecordArticleWrite(op string) {
	ArticleWritesTotal.WithLabelValues(op).Inc()
}

// RecordArticleView counts one detail view
func RecordArticleView() {
	ArticleViewsTotal.Inc()
}

// UpdateArticlesTotal sets the article count gauge
func UpdateArticlesTotal(count int64) {
	ArticlesTotal.Set(float64(count))
}
