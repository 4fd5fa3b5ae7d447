package streaming

import (
	"time"

	"github.com/sentryhub/capturectl/internal/capture"
)

// Start launches the single producer goroutine (supervised by the
// session's errgroup.Group) that polls the capture handle every
// pollInterval and publishes each frame to subscribers. The producer
// exits, and the session closes, on the first terminal Snapshot error or
// when the session's context is cancelled.
func (s *StreamSession) Start(pollInterval time.Duration, opts capture.SnapshotOptions) {
	s.group.Go(func() error {
		defer s.Close()
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-s.groupCtx.Done():
				return nil
			case <-ticker.C:
				frame, err := s.handle.Snapshot(s.groupCtx, opts)
				if err != nil {
					s.logger.WithError(err).WithField("source_id", s.sourceID).Warn("capture source errored, ending stream session")
					return err
				}
				s.Publish(frame)
			}
		}
	})
}

// Wait blocks until the producer goroutine exits, returning its error (if
// any). Callers that don't need to observe producer errors can ignore it.
func (s *StreamSession) Wait() error {
	return s.group.Wait()
}
