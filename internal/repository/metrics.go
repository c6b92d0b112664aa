// metrics.go — Prometheus метрики запросов к БД.
// Регистрирует метрики: cu_db_queries_total, cu_db_query_duration_seconds.
package repository

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// dbQueriesTotal — количество запросов по таблице, операции и исходу.
	dbQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cu_db_queries_total",
			Help: "Общее количество запросов к PostgreSQL",
		},
		[]string{"table", "operation", "status"},
	)

	// dbQueryDuration — гистограмма длительности запросов.
	dbQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cu_db_query_duration_seconds",
			Help:    "Длительность запросов к PostgreSQL в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"table", "operation"},
	)
)

// observe записывает метрики выполненного запроса.
func observe(table, operation string, start time.Time, err error) {
	status := "ok"
	switch {
	case errors.Is(err, ErrNotFound):
		status = "not_found"
	case err != nil:
		status = "error"
	}
	dbQueriesTotal.WithLabelValues(table, operation, status).Inc()
	dbQueryDuration.WithLabelValues(table, operation).Observe(time.Since(start).Seconds())
}
