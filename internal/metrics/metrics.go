// Package metrics содержит метрики Prometheus для чтения экспорта, кэша и фоновых задач.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "chat_analyzer"

var (
	// recordsScanned считает прочитанные записи массива messages.
	// Labels: outcome (ok, skipped)
	recordsScanned = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "stream",
		Name:      "records_total",
		Help:      "Records read from the chat export by outcome",
	}, []string{"outcome"})

	// cacheLookups считает обращения к кэшу результатов.
	// Labels: result (hit, miss, error)
	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Result cache lookups by result",
	}, []string{"result"})

	// cacheWrites считает записи в кэш.
	// Labels: status (success, error)
	cacheWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "writes_total",
		Help:      "Result cache writes by status",
	}, []string{"status"})

	// aggregationDuration измеряет длительность полных проходов по файлу.
	// Labels: kind (chat_analytics, user_profile, user_list)
	aggregationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "aggregation",
		Name:      "duration_seconds",
		Help:      "Duration of aggregation passes over the chat export",
		Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
	}, []string{"kind"})

	// aggregationFailures считает агрегации, завершившиеся нулевым результатом.
	// Labels: kind
	aggregationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "aggregation",
		Name:      "failures_total",
		Help:      "Aggregations that failed and returned an empty result",
	}, []string{"kind"})

	// tasksTotal считает переходы фоновых задач по статусам.
	// Labels: kind (analytics, profile), status (pending, processing, completed, failed)
	tasksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "tasks",
		Name:      "transitions_total",
		Help:      "Background task status transitions",
	}, []string{"kind", "status"})
)

// RecordScanned учитывает успешно разобранную запись.
func RecordScanned() {
	recordsScanned.WithLabelValues("ok").Inc()
}

// RecordSkipped учитывает пропущенную (битую) запись.
func RecordSkipped() {
	recordsScanned.WithLabelValues("skipped").Inc()
}

// CacheHit учитывает попадание в кэш.
func CacheHit() {
	cacheLookups.WithLabelValues("hit").Inc()
}

// CacheMiss учитывает промах кэша.
func CacheMiss() {
	cacheLookups.WithLabelValues("miss").Inc()
}

// CacheError учитывает ошибку чтения кэша. Для вызывающего это тоже промах.
func CacheError() {
	cacheLookups.WithLabelValues("error").Inc()
}

// CacheWrite учитывает запись в кэш.
func CacheWrite(success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	cacheWrites.WithLabelValues(status).Inc()
}

// ObserveAggregation фиксирует длительность агрегации, начатой в момент start.
func ObserveAggregation(kind string, start time.Time) {
	aggregationDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

// AggregationFailed учитывает агрегацию, завершившуюся ошибкой.
func AggregationFailed(kind string) {
	aggregationFailures.WithLabelValues(kind).Inc()
}

// TaskTransition учитывает смену статуса фоновой задачи.
func TaskTransition(kind, status string) {
	tasksTotal.WithLabelValues(kind, status).Inc()
}
