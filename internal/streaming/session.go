// Package streaming implements the live MJPEG fan-out: one StreamSession
// per source with a single producer goroutine publishing frames to any
// number of subscribers, each served as an independent multipart/
// x-mixed-replace HTTP response.
package streaming

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/sentryhub/capturectl/internal/apperrors"
	"github.com/sentryhub/capturectl/internal/capture"
	"github.com/sentryhub/capturectl/internal/logging"
)

var framesDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "streaming_frames_dropped_total",
	Help: "Frames dropped for a lagging subscriber, tagged by source_id.",
}, []string{"source_id"})

func init() {
	prometheus.MustRegister(framesDropped)
}

const defaultSubscriberBuffer = 4

// subscriber pairs a subscriber's channel with the lag state used to log
// at Warn once per lag episode instead of once per dropped frame.
type subscriber struct {
	ch      chan []byte
	lagging bool
}

// StreamSession wraps a capture handle and broadcasts the frames it
// produces to any number of subscribers. A single producer goroutine owns
// the capture handle; subscribers never block each other or the producer.
type StreamSession struct {
	sourceID string
	handle   capture.Handle
	logger   *logging.Logger

	subBuffer int

	mu          sync.Mutex
	subscribers map[int64]*subscriber
	nextSubID   int64

	group    *errgroup.Group
	groupCtx context.Context
	cancel   context.CancelFunc

	closed int32
}

// NewStreamSession constructs a StreamSession around handle. Call Start
// to launch the producer goroutine that polls handle at pollInterval and
// fans each frame out to subscribers, supervised by an errgroup.Group so
// a terminal producer error tears the session down.
func NewStreamSession(sourceID string, handle capture.Handle, subBuffer int, logger *logging.Logger) *StreamSession {
	if subBuffer <= 0 {
		subBuffer = defaultSubscriberBuffer
	}
	ctx, cancel := context.WithCancel(context.Background())
	group, gctx := errgroup.WithContext(ctx)
	return &StreamSession{
		sourceID:    sourceID,
		handle:      handle,
		logger:      logger,
		subBuffer:   subBuffer,
		subscribers: make(map[int64]*subscriber),
		group:       group,
		groupCtx:    gctx,
		cancel:      cancel,
	}
}

// Subscribe registers a new subscriber and returns its channel and an
// unsubscribe func. The channel has capacity subBuffer; a slow consumer
// that falls behind has its oldest buffered frame dropped rather than
// blocking the producer, per spec §4.3's lag semantics.
func (s *StreamSession) Subscribe() (<-chan []byte, func(), error) {
	if atomic.LoadInt32(&s.closed) == 1 {
		return nil, nil, apperrors.Validation("streaming.StreamSession.Subscribe", "session is closed")
	}
	ch := make(chan []byte, s.subBuffer)

	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = &subscriber{ch: ch}
	s.mu.Unlock()

	unsubscribe := func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		remaining := len(s.subscribers)
		s.mu.Unlock()
		if remaining == 0 {
			s.Close()
		}
	}
	return ch, unsubscribe, nil
}

// SubscriberCount returns the number of currently registered subscribers.
func (s *StreamSession) SubscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}

// Publish fans frame out to every subscriber. A subscriber whose channel
// is full has its oldest frame dropped and frames_dropped_total
// incremented, then frame is enqueued; subscribers are never blocked on
// each other. A Warn is logged once per lag episode (when a subscriber
// first starts dropping frames), not once per dropped frame, to avoid log
// flooding while a subscriber stays behind.
func (s *StreamSession) Publish(frame []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subscribers {
		select {
		case sub.ch <- frame:
			sub.lagging = false
		default:
			select {
			case <-sub.ch:
				framesDropped.WithLabelValues(s.sourceID).Inc()
				if !sub.lagging {
					sub.lagging = true
					s.logger.WithField("source_id", s.sourceID).Warn("subscriber lagging, dropping buffered frames")
				}
			default:
			}
			select {
			case sub.ch <- frame:
			default:
			}
		}
	}
}

// Close stops the session: the underlying capture handle is stopped and
// every subscriber channel is closed. Close is idempotent.
func (s *StreamSession) Close() {
	if !atomic.CompareAndSwapInt32(&s.closed, 0, 1) {
		return
	}
	s.cancel()
	_ = s.handle.Stop(context.Background())

	s.mu.Lock()
	for id, sub := range s.subscribers {
		close(sub.ch)
		delete(s.subscribers, id)
	}
	s.mu.Unlock()
}
