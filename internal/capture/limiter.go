package capture

import (
	"context"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sentryhub/capturectl/internal/apperrors"
)

var limiterGauges = prometheus.NewGaugeVec(prometheus.GaugeOpts{
	Name: "capture_snapshot_limiter",
	Help: "SnapshotLimiter occupancy, tagged by field (active|available|max).",
}, []string{"field"})

var limiterCounters = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "capture_snapshot_limiter_total",
	Help: "Cumulative SnapshotLimiter events, tagged by field (total|wait).",
}, []string{"field"})

func init() {
	prometheus.MustRegister(limiterGauges, limiterCounters)
}

// SnapshotLimiter is a semaphore bounding the number of concurrent
// blocking snapshot operations, grounded on DefaultBoundedWorkerPool's
// channel-as-semaphore pattern: every acquire is matched by exactly one
// release on all exit paths, tracked with atomic counters.
type SnapshotLimiter struct {
	permits   chan struct{}
	max       int64
	active    int64
	total     int64
	waitCount int64
}

// NewSnapshotLimiter builds a SnapshotLimiter with the given permit count,
// defaulting to 10 when permits <= 0.
func NewSnapshotLimiter(permits int) *SnapshotLimiter {
	if permits <= 0 {
		permits = 10
	}
	l := &SnapshotLimiter{
		permits: make(chan struct{}, permits),
		max:     int64(permits),
	}
	limiterGauges.WithLabelValues("max").Set(float64(permits))
	return l
}

// Release is returned by Acquire; callers must call it exactly once.
type Release func()

// Acquire blocks until a permit is available or ctx is done. It reports a
// wait event whenever the permit channel was not immediately available.
func (l *SnapshotLimiter) Acquire(ctx context.Context) (Release, error) {
	select {
	case l.permits <- struct{}{}:
		return l.acquired(), nil
	default:
	}

	atomic.AddInt64(&l.waitCount, 1)
	limiterCounters.WithLabelValues("wait").Inc()

	select {
	case l.permits <- struct{}{}:
		return l.acquired(), nil
	case <-ctx.Done():
		return nil, apperrors.External("capture.SnapshotLimiter.Acquire", "context cancelled while waiting for snapshot permit", ctx.Err())
	}
}

func (l *SnapshotLimiter) acquired() Release {
	atomic.AddInt64(&l.active, 1)
	atomic.AddInt64(&l.total, 1)
	limiterGauges.WithLabelValues("active").Set(float64(atomic.LoadInt64(&l.active)))
	limiterGauges.WithLabelValues("available").Set(float64(l.max - atomic.LoadInt64(&l.active)))
	limiterCounters.WithLabelValues("total").Inc()

	var released int32
	return func() {
		if !atomic.CompareAndSwapInt32(&released, 0, 1) {
			return
		}
		<-l.permits
		atomic.AddInt64(&l.active, -1)
		limiterGauges.WithLabelValues("active").Set(float64(atomic.LoadInt64(&l.active)))
		limiterGauges.WithLabelValues("available").Set(float64(l.max - atomic.LoadInt64(&l.active)))
	}
}

// Stats is a point-in-time snapshot of limiter occupancy.
type Stats struct {
	Active    int64
	Total     int64
	Available int64
	Wait      int64
	Max       int64
}

// Snapshot returns the limiter's current stats.
func (l *SnapshotLimiter) Snapshot() Stats {
	active := atomic.LoadInt64(&l.active)
	return Stats{
		Active:    active,
		Total:     atomic.LoadInt64(&l.total),
		Available: l.max - active,
		Wait:      atomic.LoadInt64(&l.waitCount),
		Max:       l.max,
	}
}
