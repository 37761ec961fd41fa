package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vytor/lessonplay/internal/errors"
	"github.com/vytor/lessonplay/internal/grading"
	"github.com/vytor/lessonplay/internal/jobs"
	"github.com/vytor/lessonplay/internal/logger"
	"github.com/vytor/lessonplay/internal/media"
	"github.com/vytor/lessonplay/internal/metrics"
	"github.com/vytor/lessonplay/internal/models"
	"github.com/vytor/lessonplay/internal/playback"
	"github.com/vytor/lessonplay/internal/repository"
)

// SessionService owns the live playback sessions of the process.
type SessionService interface {
	Start(ctx context.Context, video models.VideoContent) (string, playback.View, error)
	Get(ctx context.Context, id string) (playback.View, error)
	TimeUpdate(ctx context.Context, id string, position, duration float64) (playback.View, error)
	Answer(ctx context.Context, id string, answer models.Answer) (playback.AnswerOutcome, playback.View, error)
	CloseQuestion(ctx context.Context, id string) (playback.View, error)
	TogglePlayPause(ctx context.Context, id string) (playback.View, error)
	Seek(ctx context.Context, id string, t float64) (playback.View, error)
	Subscribe(ctx context.Context, id string, fn func(playback.Event)) (func(), error)
	Commands(ctx context.Context, id string) (<-chan media.Command, func(), error)
	End(ctx context.Context, id string) error
	SweepIdle(ctx context.Context, olderThan time.Duration) int
	Shutdown(ctx context.Context) error
	Len() int
}

// SessionDeps are shared by every session the service creates.
type SessionDeps struct {
	Remote       playback.ProgressFetcher
	Queue        jobs.SyncQueue
	Snapshots    repository.SnapshotRepository
	Evaluator    grading.Evaluator
	Clock        playback.Clock
	SyncInterval time.Duration
	RelayBuffer  int
	Logger       *logger.Logger
}

type session struct {
	id    string
	ctrl  *playback.Controller
	relay *media.Relay
}

type sessionService struct {
	mu       sync.RWMutex
	sessions map[string]*session
	flushing map[*playback.Controller]struct{}
	deps     SessionDeps
	log      *logger.Logger
	now      func() time.Time
	newID    func() string
}

// NewSessionService creates a SessionService
func NewSessionService(deps SessionDeps) SessionService {
	if deps.Logger == nil {
		deps.Logger = logger.Default()
	}
	if deps.Evaluator == nil {
		deps.Evaluator = grading.NewEvaluator()
	}
	now := time.Now
	if deps.Clock != nil {
		now = deps.Clock.Now
	}
	return &sessionService{
		sessions: make(map[string]*session),
		flushing: make(map[*playback.Controller]struct{}),
		deps:     deps,
		log:      deps.Logger.WithPrefix("sessions"),
		now:      now,
		newID:    uuid.NewString,
	}
}

func (s *sessionService) Start(ctx context.Context, video models.VideoContent) (string, playback.View, error) {
	log := logger.FromContext(ctx)
	log.Debug("starting session: video_id=%s, type=%s", video.ID, video.Type)

	id := s.newID()
	sessionLog := s.log.WithField("session_id", id)
	relay := media.NewRelay(s.deps.RelayBuffer, sessionLog)

	ctrl, err := playback.NewController(video, playback.Deps{
		Remote:       s.deps.Remote,
		Queue:        s.deps.Queue,
		Snapshots:    s.deps.Snapshots,
		Media:        relay,
		Evaluator:    s.deps.Evaluator,
		Clock:        s.deps.Clock,
		SyncInterval: s.deps.SyncInterval,
		Logger:       sessionLog,
	})
	if err != nil {
		if errors.IsKind(err, errors.KindContentLoad) {
			log.Warn("rejecting video %q: %v", video.ID, err)
			return "", playback.View{}, errors.NewUnprocessableError(err)
		}
		log.Error("failed to create controller: %v", err)
		return "", playback.View{}, errors.NewInternalError(err)
	}

	if err := ctrl.Initialize(ctx); err != nil {
		log.Error("failed to initialize session: %v", err)
		return "", playback.View{}, errors.NewInternalError(err)
	}

	s.mu.Lock()
	s.sessions[id] = &session{id: id, ctrl: ctrl, relay: relay}
	s.mu.Unlock()
	metrics.SessionStarted()

	log.Info("session %s started for video %s", id, video.ID)
	return id, ctrl.View(), nil
}

func (s *sessionService) Get(ctx context.Context, id string) (playback.View, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return playback.View{}, err
	}
	return sess.ctrl.View(), nil
}

func (s *sessionService) TimeUpdate(ctx context.Context, id string, position, duration float64) (playback.View, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return playback.View{}, err
	}
	if err := sess.ctrl.OnTimeUpdate(ctx, position, duration); err != nil {
		return playback.View{}, s.mapErr(ctx, id, err)
	}
	return sess.ctrl.View(), nil
}

func (s *sessionService) Answer(ctx context.Context, id string, answer models.Answer) (playback.AnswerOutcome, playback.View, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return playback.AnswerOutcome{}, playback.View{}, err
	}
	out, err := sess.ctrl.OnAnswer(ctx, answer)
	if err != nil {
		return playback.AnswerOutcome{}, playback.View{}, s.mapErr(ctx, id, err)
	}
	return out, sess.ctrl.View(), nil
}

func (s *sessionService) CloseQuestion(ctx context.Context, id string) (playback.View, error) {
	return s.apply(ctx, id, func(c *playback.Controller) error { return c.CloseQuestion(ctx) })
}

func (s *sessionService) TogglePlayPause(ctx context.Context, id string) (playback.View, error) {
	return s.apply(ctx, id, func(c *playback.Controller) error { return c.TogglePlayPause(ctx) })
}

func (s *sessionService) Seek(ctx context.Context, id string, t float64) (playback.View, error) {
	if t < 0 {
		return playback.View{}, errors.NewValidationError("time", "must be >= 0")
	}
	return s.apply(ctx, id, func(c *playback.Controller) error { return c.Seek(ctx, t) })
}

func (s *sessionService) Subscribe(ctx context.Context, id string, fn func(playback.Event)) (func(), error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return sess.ctrl.Subscribe(fn), nil
}

func (s *sessionService) Commands(ctx context.Context, id string) (<-chan media.Command, func(), error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := sess.relay.Subscribe()
	return ch, cancel, nil
}

// End releases the session and forgets it. Unknown ids are NotFound.
func (s *sessionService) End(ctx context.Context, id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
		s.flushing[sess.ctrl] = struct{}{}
	}
	s.mu.Unlock()
	if !ok {
		return errors.NewNotFoundError("session", id)
	}
	s.release(ctx, sess)
	return nil
}

// SweepIdle ends every session without activity for olderThan and returns
// how many were ended.
func (s *sessionService) SweepIdle(ctx context.Context, olderThan time.Duration) int {
	cutoff := s.now().Add(-olderThan)

	s.mu.Lock()
	var idle []*session
	for id, sess := range s.sessions {
		if sess.ctrl.LastActivity().Before(cutoff) {
			idle = append(idle, sess)
			delete(s.sessions, id)
			s.flushing[sess.ctrl] = struct{}{}
		}
	}
	s.mu.Unlock()

	for _, sess := range idle {
		s.log.WithField("session_id", sess.id).Info("ending idle session")
		s.release(ctx, sess)
	}
	return len(idle)
}

// Shutdown releases every live session and waits until the final snapshot
// of every released session has left the sync queue. Call it before
// stopping the pool behind the queue.
func (s *sessionService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	all := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		all = append(all, sess)
		s.flushing[sess.ctrl] = struct{}{}
	}
	s.sessions = make(map[string]*session)
	s.mu.Unlock()

	s.log.Info("releasing %d sessions", len(all))
	for _, sess := range all {
		s.release(ctx, sess)
	}

	s.mu.Lock()
	waiting := make([]*playback.Controller, 0, len(s.flushing))
	for ctrl := range s.flushing {
		waiting = append(waiting, ctrl)
	}
	s.mu.Unlock()

	s.log.Debug("waiting for %d final snapshots", len(waiting))
	for _, ctrl := range waiting {
		select {
		case <-ctrl.Drained():
		case <-ctx.Done():
			return ctx.Err()
		}
		s.mu.Lock()
		delete(s.flushing, ctrl)
		s.mu.Unlock()
	}
	return nil
}

func (s *sessionService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// release ends sess. The caller has already moved it into flushing, where
// it stays until Shutdown sees its final snapshot drained.
func (s *sessionService) release(ctx context.Context, sess *session) {
	if err := sess.ctrl.Release(ctx); err != nil {
		s.log.WithField("session_id", sess.id).Warn("release failed: %v", err)
	}
	metrics.SessionEnded()
	s.pruneFlushed()
}

// pruneFlushed forgets released sessions whose final snapshot is gone.
func (s *sessionService) pruneFlushed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ctrl := range s.flushing {
		select {
		case <-ctrl.Drained():
			delete(s.flushing, ctrl)
		default:
		}
	}
}

func (s *sessionService) apply(ctx context.Context, id string, op func(*playback.Controller) error) (playback.View, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return playback.View{}, err
	}
	if err := op(sess.ctrl); err != nil {
		return playback.View{}, s.mapErr(ctx, id, err)
	}
	return sess.ctrl.View(), nil
}

func (s *sessionService) lookup(id string) (*session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, errors.NewNotFoundError("session", id)
	}
	return sess, nil
}

// mapErr turns controller errors into AppErrors.
func (s *sessionService) mapErr(ctx context.Context, id string, err error) error {
	switch {
	case errors.Is(err, playback.ErrSessionReleased):
		return errors.NewNotFoundError("session", id)
	case errors.Is(err, playback.ErrInvalidPosition):
		return errors.NewValidationError("position", "must be a finite number")
	case errors.Is(err, playback.ErrSeekNotAllowed),
		errors.Is(err, playback.ErrNoPendingQuestion),
		errors.Is(err, playback.ErrQuestionMismatch),
		errors.Is(err, playback.ErrNotCloseable),
		errors.Is(err, playback.ErrAwaitingAnswer),
		errors.Is(err, playback.ErrNotInitialized):
		return errors.NewConflictError(err)
	}
	logger.FromContext(ctx).Error("session %s operation failed: %v", id, err)
	return errors.NewInternalError(err)
}
