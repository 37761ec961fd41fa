package playback

import (
	"sync"

	"github.com/vytor/lessonplay/internal/errors"
	"github.com/vytor/lessonplay/internal/jobs"
	"github.com/vytor/lessonplay/internal/logger"
	"github.com/vytor/lessonplay/internal/models"
)

// progressSync keeps at most one progress submission in flight for a video.
// Snapshots pushed meanwhile collapse into a single pending slot, so only
// the newest is sent once the in-flight call returns. The create flag is
// read at dispatch, after any earlier acknowledgment has been applied.
type progressSync struct {
	mu       sync.Mutex
	queue    jobs.SyncQueue
	log      *logger.Logger
	first    bool
	inFlight bool
	pending  *models.ProgressSnapshot
	closed   bool
	drained  chan struct{}
}

func newProgressSync(queue jobs.SyncQueue, first bool, log *logger.Logger) *progressSync {
	return &progressSync{queue: queue, first: first, log: log, drained: make(chan struct{})}
}

// Push submits snap, or parks it if a submission is already in flight.
// Pushes after close are ignored.
func (s *progressSync) Push(snap models.ProgressSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.enqueueLocked(snap)
}

// Close sends final as the last snapshot and refuses further pushes. A
// pending final snapshot is still dispatched once the in-flight call ends.
func (s *progressSync) Close(final *models.ProgressSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if final != nil {
		s.enqueueLocked(*final)
	}
	s.closed = true
	s.checkDrainedLocked()
}

// Drained is closed once the serializer is closed and nothing is in flight
// or pending.
func (s *progressSync) Drained() <-chan struct{} {
	return s.drained
}

// RemoteKnown reports whether the service has acknowledged a record for
// this video, either before the session or during it.
func (s *progressSync) RemoteKnown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.first
}

func (s *progressSync) enqueueLocked(snap models.ProgressSnapshot) {
	if s.inFlight {
		if s.pending != nil {
			s.log.Debug("coalescing progress at %.1fs over %.1fs", snap.CurrentTime, s.pending.CurrentTime)
		}
		s.pending = &snap
		return
	}
	s.dispatchLocked(snap)
}

func (s *progressSync) dispatchLocked(snap models.ProgressSnapshot) {
	s.inFlight = true
	if err := s.queue.EnqueueProgress(snap, s.first, s.done); err != nil {
		s.inFlight = false
		s.log.WithError(errors.ProgressSubmit(snap.VideoID, err)).Warn("progress submission not queued, retrying on next tick")
	}
}

func (s *progressSync) done(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false

	if err != nil {
		s.log.WithError(err).Warn("progress submission failed")
	} else if s.first {
		s.first = false
		s.log.Debug("first progress submission acknowledged, switching to update")
	}

	if s.pending != nil {
		next := *s.pending
		s.pending = nil
		s.dispatchLocked(next)
	}
	s.checkDrainedLocked()
}

func (s *progressSync) checkDrainedLocked() {
	if !s.closed || s.inFlight || s.pending != nil {
		return
	}
	select {
	case <-s.drained:
	default:
		close(s.drained)
	}
}
