package sliding

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowStats(t *testing.T) {
	w, err := NewWindow(&WindowConfig{WindowSize: 10 * time.Second, BucketCount: 10})
	require.NoError(t, err)
	defer w.Stop()

	w.Record(0.010, true)
	w.Record(0.030, true)
	w.Record(0.020, false)

	stats := w.GetStats()
	assert.Equal(t, int64(3), stats.TotalCount)
	assert.Equal(t, int64(2), stats.SuccessCount)
	assert.Equal(t, int64(1), stats.FailureCount)
	assert.InDelta(t, 0.3, stats.QPS, 1e-9)
	assert.InDelta(t, 0.020, stats.AvgLatency, 1e-9)
	assert.InDelta(t, 0.010, stats.MinLatency, 1e-9)
	assert.InDelta(t, 0.030, stats.MaxLatency, 1e-9)
	assert.InDelta(t, 66.666, stats.SuccessRate, 0.01)
}

func TestWindowExpiresOldBuckets(t *testing.T) {
	w, err := NewWindow(&WindowConfig{WindowSize: 10 * time.Second, BucketCount: 1})
	require.NoError(t, err)
	defer w.Stop()

	base := time.Now()
	w.now = func() time.Time { return base }
	w.Record(0.010, true)

	// 窗口滑过之后旧数据不再计入
	w.now = func() time.Time { return base.Add(11 * time.Second) }
	stats := w.GetStats()
	assert.Zero(t, stats.TotalCount)
	assert.Zero(t, stats.SuccessRate)
}

func TestWindowRotate(t *testing.T) {
	w, err := NewWindow(&WindowConfig{WindowSize: time.Hour, BucketCount: 2})
	require.NoError(t, err)
	defer w.Stop()

	w.Record(0.1, true)
	w.rotate()
	w.Record(0.2, true)
	w.rotate()

	// 两个桶都轮转过一次，第一个桶的数据被清空
	stats := w.GetStats()
	assert.Equal(t, int64(1), stats.TotalCount)
	assert.InDelta(t, 0.2, stats.MaxLatency, 1e-9)
}

func TestWindowStopIdempotent(t *testing.T) {
	w, err := NewWindow(nil)
	require.NoError(t, err)
	w.Stop()
	w.Stop()
}
