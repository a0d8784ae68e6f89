package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	t.Run("записи потока", func(t *testing.T) {
		okBefore := testutil.ToFloat64(recordsScanned.WithLabelValues("ok"))
		skippedBefore := testutil.ToFloat64(recordsScanned.WithLabelValues("skipped"))

		RecordScanned()
		RecordScanned()
		RecordSkipped()

		assert.Equal(t, okBefore+2, testutil.ToFloat64(recordsScanned.WithLabelValues("ok")))
		assert.Equal(t, skippedBefore+1, testutil.ToFloat64(recordsScanned.WithLabelValues("skipped")))
	})

	t.Run("кэш", func(t *testing.T) {
		hit := testutil.ToFloat64(cacheLookups.WithLabelValues("hit"))
		miss := testutil.ToFloat64(cacheLookups.WithLabelValues("miss"))
		failed := testutil.ToFloat64(cacheWrites.WithLabelValues("error"))

		CacheHit()
		CacheMiss()
		CacheWrite(false)

		assert.Equal(t, hit+1, testutil.ToFloat64(cacheLookups.WithLabelValues("hit")))
		assert.Equal(t, miss+1, testutil.ToFloat64(cacheLookups.WithLabelValues("miss")))
		assert.Equal(t, failed+1, testutil.ToFloat64(cacheWrites.WithLabelValues("error")))
	})

	t.Run("задачи", func(t *testing.T) {
		before := testutil.ToFloat64(tasksTotal.WithLabelValues("profile", "completed"))
		TaskTransition("profile", "completed")
		assert.Equal(t, before+1, testutil.ToFloat64(tasksTotal.WithLabelValues("profile", "completed")))
	})

	t.Run("агрегации", func(t *testing.T) {
		before := testutil.ToFloat64(aggregationFailures.WithLabelValues("user_list"))
		AggregationFailed("user_list")
		ObserveAggregation("user_list", time.Now().Add(-time.Second))
		assert.Equal(t, before+1, testutil.ToFloat64(aggregationFailures.WithLabelValues("user_list")))
	})
}
