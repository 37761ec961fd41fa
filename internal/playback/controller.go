package playback

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/vytor/lessonplay/internal/errors"
	"github.com/vytor/lessonplay/internal/grading"
	"github.com/vytor/lessonplay/internal/jobs"
	"github.com/vytor/lessonplay/internal/logger"
	"github.com/vytor/lessonplay/internal/media"
	"github.com/vytor/lessonplay/internal/metrics"
	"github.com/vytor/lessonplay/internal/models"
	"github.com/vytor/lessonplay/internal/progressclient"
	"github.com/vytor/lessonplay/internal/repository"
)

const defaultSyncInterval = 10 * time.Second

// ProgressFetcher is the read half of the progress service client.
type ProgressFetcher interface {
	FetchProgress(ctx context.Context, videoID string) (*models.RemoteProgress, error)
}

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Deps are the collaborators of a Controller. Remote and Queue are
// required; the rest default to no-op or standard implementations.
type Deps struct {
	Remote       ProgressFetcher
	Queue        jobs.SyncQueue
	Snapshots    repository.SnapshotRepository
	Media        media.Player
	Evaluator    grading.Evaluator
	Clock        Clock
	SyncInterval time.Duration
	Logger       *logger.Logger
}

// AnswerOutcome tells the host what an answer did to the session.
type AnswerOutcome struct {
	Correct    bool                          `json:"correct"`
	Points     float64                       `json:"points"`
	RolledBack bool                          `json:"rolledBack"`
	RollbackTo float64                       `json:"rollbackTo"`
	Record     models.AnsweredQuestionRecord `json:"record"`
}

// Controller drives one playback session of one video. It is the only
// mutator of the session's state; every method is safe for concurrent use.
type Controller struct {
	mu sync.Mutex

	video   models.VideoContent
	deps    Deps
	log     *logger.Logger
	store   *ProgressStore
	trigger *Trigger
	sync    *progressSync
	limiter *rate.Limiter
	obs     observers

	state     State
	isPlaying bool
	canSeek   bool
	pending   *models.Question
	dismissed map[string]struct{}
	attempts  map[string]int
	released  bool
	lastSeen  time.Time
}

// NewController validates the video and prepares a session in Loading.
func NewController(video models.VideoContent, deps Deps) (*Controller, error) {
	if err := video.Validate(); err != nil {
		return nil, err
	}
	if deps.Remote == nil || deps.Queue == nil {
		return nil, fmt.Errorf("playback: remote and queue are required")
	}
	if deps.Media == nil {
		deps.Media = media.Nop{}
	}
	if deps.Evaluator == nil {
		deps.Evaluator = grading.NewEvaluator()
	}
	if deps.Clock == nil {
		deps.Clock = systemClock{}
	}
	if deps.SyncInterval <= 0 {
		deps.SyncInterval = defaultSyncInterval
	}
	if deps.Logger == nil {
		deps.Logger = logger.Default()
	}

	c := &Controller{
		video:     video,
		deps:      deps,
		log:       deps.Logger.WithPrefix("playback").WithField("video_id", video.ID),
		limiter:   rate.NewLimiter(rate.Every(deps.SyncInterval), 1),
		state:     StateLoading,
		dismissed: make(map[string]struct{}),
		attempts:  make(map[string]int),
		lastSeen:  deps.Clock.Now(),
	}
	c.store = NewProgressStore(&c.video)
	c.trigger = NewTrigger(&c.video)
	return c, nil
}

func (c *Controller) VideoID() string { return c.video.ID }

// Initialize resumes from prior progress and starts playback. The remote
// snapshot wins over the local one; the local one is only used when the
// service cannot be reached.
func (c *Controller) Initialize(ctx context.Context) error {
	var events []Event
	defer func() { c.obs.notify(events) }()

	c.mu.Lock()
	if c.released {
		c.mu.Unlock()
		return ErrSessionReleased
	}
	if c.state != StateLoading {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	var (
		remote    *models.RemoteProgress
		remoteErr error
		local     *models.LocalSnapshot
		localErr  error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		remote, remoteErr = c.deps.Remote.FetchProgress(gctx, c.video.ID)
		return nil
	})
	if c.deps.Snapshots != nil {
		g.Go(func() error {
			local, localErr = c.deps.Snapshots.Get(gctx, c.video.ID)
			return nil
		})
	}
	_ = g.Wait()

	if localErr != nil {
		c.log.Warn("failed to read local snapshot: %v", localErr)
	}

	prior, first := c.resolvePrior(remote, remoteErr, local)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return ErrSessionReleased
	}
	if c.state != StateLoading {
		return nil
	}

	resume := 0.0
	if prior != nil {
		resume = ResumePosition(c.video.Type, prior.IsCompleted, prior.CurrentDuration, prior.LastCorrectCheckpoint)
		c.store.Restore(resume, *prior)
		resume = c.store.CurrentTime()
	}
	c.sync = newProgressSync(c.deps.Queue, first, c.log)
	c.canSeek = CanSeek(c.video.Type, c.store.Completed())
	c.state = StatePlaying
	if c.store.Completed() {
		c.state = StateCompleted
	}
	c.isPlaying = true
	c.touch()

	c.mediaCall("seek", c.deps.Media.Seek(resume))
	c.mediaCall("play", c.deps.Media.Play())

	c.log.WithFields(map[string]any{
		"resume":    resume,
		"first":     first,
		"completed": c.store.Completed(),
	}).Info("session initialized")
	events = append(events, c.eventLocked(EventState))
	return nil
}

// resolvePrior picks the progress to resume from and whether the next
// submission must create the remote record.
func (c *Controller) resolvePrior(remote *models.RemoteProgress, remoteErr error, local *models.LocalSnapshot) (*models.RemoteProgress, bool) {
	switch {
	case remoteErr == nil && remote != nil:
		metrics.ObserveSync(metrics.SyncFetch, nil)
		return remote, false
	case remoteErr == nil || errors.Is(remoteErr, progressclient.ErrNotFound):
		metrics.ObserveSync(metrics.SyncFetch, nil)
		c.log.Debug("no prior progress, starting fresh")
		return nil, true
	}

	metrics.ObserveSync(metrics.SyncFetch, remoteErr)
	c.log.WithError(errors.ProgressFetch(c.video.ID, remoteErr)).Warn("progress fetch failed")
	if local != nil && local.VideoID == c.video.ID {
		c.log.Info("resuming from local snapshot captured at %s", local.CapturedAt.Format(time.RFC3339))
		p := local.Remote()
		return &p, !local.RemoteKnown
	}
	return nil, true
}

// OnTimeUpdate records a playback tick from the media primitive.
func (c *Controller) OnTimeUpdate(ctx context.Context, position, duration float64) error {
	var events []Event
	defer func() { c.obs.notify(events) }()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkActiveLocked(); err != nil {
		return err
	}
	if !finite(position) || !finite(duration) {
		return ErrInvalidPosition
	}
	c.touch()

	completedNow := c.store.SetPosition(position, duration)
	at := c.store.CurrentTime()

	for id := range c.dismissed {
		if q, ok := c.video.Question(id); !ok || !InWindow(q, at) {
			delete(c.dismissed, id)
		}
	}

	if c.state == StatePlaying {
		if q, ok := c.trigger.Due(at, c.skipLocked); ok {
			c.pending = q
			c.state = StateAwaitingAnswer
			c.isPlaying = false
			c.mediaCall("pause", c.deps.Media.Pause())
			metrics.IncQuestionTriggered(string(c.video.Type))
			c.log.WithField("question_id", q.ID).Info("question triggered at %.1fs", at)
			events = append(events, c.eventLocked(EventQuestion))
		}
	}

	significant := false
	if completedNow {
		c.canSeek = true
		if c.state == StatePlaying || c.state == StatePaused {
			c.state = StateCompleted
		}
		metrics.IncCompleted(string(c.video.Type))
		c.log.Info("video completed at %.1fs", at)
		events = append(events, c.eventLocked(EventCompleted))
		significant = true
	}

	c.persistLocked(ctx, significant)
	return nil
}

// OnAnswer grades the answer to the pending question, updates checkpoints,
// applies any rollback and resumes playback. Completed videos never roll back.
func (c *Controller) OnAnswer(ctx context.Context, answer models.Answer) (AnswerOutcome, error) {
	var events []Event
	defer func() { c.obs.notify(events) }()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkActiveLocked(); err != nil {
		return AnswerOutcome{}, err
	}
	if c.state != StateAwaitingAnswer || c.pending == nil {
		return AnswerOutcome{}, ErrNoPendingQuestion
	}
	q := *c.pending
	if answer.QuestionID != "" && answer.QuestionID != q.ID {
		return AnswerOutcome{}, ErrQuestionMismatch
	}
	answer.QuestionID = q.ID

	res, err := c.deps.Evaluator.Evaluate(q, answer)
	if err != nil {
		return AnswerOutcome{}, fmt.Errorf("grade %s: %w", q.ID, err)
	}
	c.touch()

	at := c.store.CurrentTime()
	c.attempts[q.ID]++
	rec := models.AnsweredQuestionRecord{QuestionID: q.ID, Timestamp: at, Correct: res.Correct}
	c.store.MarkAnswered(rec)
	out := AnswerOutcome{Correct: res.Correct, Points: res.Points, Record: rec}

	log := c.log.WithFields(map[string]any{"question_id": q.ID, "correct": res.Correct})
	if res.Correct {
		c.store.Checkpoints().RecordCorrect(q.ID, at, c.video.Type)
	} else if target, ok := RollbackTarget(c.video.Type, c.store.Checkpoints().Last()); ok && !c.store.Completed() {
		out.RolledBack = true
		out.RollbackTo = c.store.Seek(target)
		metrics.IncRollback(string(c.video.Type))
	}
	metrics.IncAnswer(string(c.video.Type), res.Correct)
	log.Info("answer recorded at %.1fs (rolled back: %t)", at, out.RolledBack)

	c.submitAnswerLocked(q, answer, res, at)

	c.pending = nil
	c.state = c.resumeStateLocked()
	c.isPlaying = true
	if out.RolledBack {
		c.mediaCall("seek", c.deps.Media.Seek(out.RollbackTo))
	}
	c.mediaCall("play", c.deps.Media.Play())

	c.persistLocked(ctx, true)
	events = append(events, c.eventLocked(EventState))
	return out, nil
}

func (c *Controller) submitAnswerLocked(q models.Question, answer models.Answer, res grading.Result, at float64) {
	sub := models.AnswerSubmission{
		VideoID:    c.video.ID,
		CourseID:   c.video.CourseID,
		QuestionID: q.ID,
		Answer:     answer,
		Meta: models.AnswerMeta{
			VideoType:    c.video.Type,
			QuestionType: q.Type,
			Correct:      res.Correct,
			Points:       res.Points,
			Timestamp:    at,
			Attempt:      c.attempts[q.ID],
		},
	}
	log := c.log.WithField("question_id", q.ID)
	err := c.deps.Queue.EnqueueAnswer(sub, func(rec *models.SubmissionRecord, err error) {
		if err != nil {
			log.WithError(err).Warn("answer submission failed")
			return
		}
		log.Debug("answer acknowledged as %s", rec.ID)
	})
	if err != nil {
		log.WithError(errors.AnswerSubmit(c.video.ID, err)).Warn("answer submission not queued")
	}
}

// TogglePlayPause flips between playing and paused.
func (c *Controller) TogglePlayPause(ctx context.Context) error {
	var events []Event
	defer func() { c.obs.notify(events) }()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkActiveLocked(); err != nil {
		return err
	}
	if c.state == StateAwaitingAnswer {
		return ErrAwaitingAnswer
	}
	c.touch()

	c.isPlaying = !c.isPlaying
	if c.isPlaying {
		c.mediaCall("play", c.deps.Media.Play())
	} else {
		c.mediaCall("pause", c.deps.Media.Pause())
	}
	if c.state != StateCompleted || c.video.Type == models.VideoBasic {
		c.state = c.runningStateLocked()
	}

	c.persistLocked(ctx, false)
	events = append(events, c.eventLocked(EventState))
	return nil
}

// Seek moves playback to t. It is rejected while seeking is not allowed or
// a question is pending.
func (c *Controller) Seek(ctx context.Context, t float64) error {
	var events []Event
	defer func() { c.obs.notify(events) }()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkActiveLocked(); err != nil {
		return err
	}
	if !finite(t) {
		return ErrInvalidPosition
	}
	if !c.canSeek || c.state == StateAwaitingAnswer {
		c.log.Debug("seek to %.1fs rejected", t)
		return ErrSeekNotAllowed
	}
	c.touch()

	to := c.store.Seek(t)
	c.mediaCall("seek", c.deps.Media.Seek(to))
	if c.state == StateCompleted && c.video.Type == models.VideoBasic {
		c.state = c.runningStateLocked()
	}

	c.persistLocked(ctx, false)
	events = append(events, c.eventLocked(EventState))
	return nil
}

// CloseQuestion dismisses a closeable pending question without recording an
// answer. The question can trigger again on a later pass through its window.
func (c *Controller) CloseQuestion(ctx context.Context) error {
	var events []Event
	defer func() { c.obs.notify(events) }()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkActiveLocked(); err != nil {
		return err
	}
	if c.state != StateAwaitingAnswer || c.pending == nil {
		return ErrNoPendingQuestion
	}
	if !c.pending.Closeable {
		return ErrNotCloseable
	}
	c.touch()

	c.dismissed[c.pending.ID] = struct{}{}
	c.log.WithField("question_id", c.pending.ID).Info("question closed")
	c.pending = nil
	c.state = c.resumeStateLocked()
	c.isPlaying = true
	c.mediaCall("play", c.deps.Media.Play())

	c.persistLocked(ctx, true)
	events = append(events, c.eventLocked(EventState))
	return nil
}

// View returns the current projection.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// Progress returns the current playback progress and checkpoint state.
func (c *Controller) Progress() (models.PlaybackProgress, models.CheckpointState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Progress(), c.store.Checkpoints().State()
}

// Subscribe registers fn for every subsequent event and returns a func that
// removes it.
func (c *Controller) Subscribe(fn func(Event)) func() {
	return c.obs.add(fn)
}

// LastActivity is the time of the last accepted operation.
func (c *Controller) LastActivity() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeen
}

// Release flushes the final snapshot locally and remotely, releases the
// media handle and detaches observers. In-flight submissions finish but
// their results no longer affect the session. Calling it again is a no-op.
func (c *Controller) Release(ctx context.Context) error {
	var events []Event
	defer func() {
		c.obs.notify(events)
		if len(events) > 0 {
			c.obs.clear()
		}
	}()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return nil
	}

	if c.sync != nil {
		now := c.deps.Clock.Now()
		c.store.SaveLocal(ctx, c.deps.Snapshots, c.sync.RemoteKnown(), now, c.log)
		final := c.store.Snapshot(now)
		c.sync.Close(&final)
	}
	c.released = true
	c.pending = nil
	c.isPlaying = false
	c.mediaCall("release", c.deps.Media.Release())

	c.log.Info("session released at %.1fs", c.store.CurrentTime())
	events = append(events, c.eventLocked(EventReleased))
	return nil
}

// Drained is closed once the final snapshot queued by Release has left
// the sync queue, successfully or not. It never closes before Release.
func (c *Controller) Drained() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sync == nil {
		if c.released {
			return closedChan
		}
		return nil
	}
	return c.sync.Drained()
}

var closedChan = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

func (c *Controller) checkActiveLocked() error {
	if c.released {
		return ErrSessionReleased
	}
	if c.state == StateLoading {
		return ErrNotInitialized
	}
	return nil
}

func (c *Controller) skipLocked(id string) bool {
	if c.store.IsAnswered(id) {
		return true
	}
	_, ok := c.dismissed[id]
	return ok
}

// resumeStateLocked is the state after a question is answered or closed.
func (c *Controller) resumeStateLocked() State {
	if c.store.Completed() {
		return StateCompleted
	}
	return StatePlaying
}

func (c *Controller) runningStateLocked() State {
	if c.isPlaying {
		return StatePlaying
	}
	return StatePaused
}

// persistLocked saves locally on every call and pushes remotely when the
// throttle allows or the change is significant.
func (c *Controller) persistLocked(ctx context.Context, significant bool) {
	now := c.deps.Clock.Now()
	c.store.SaveLocal(ctx, c.deps.Snapshots, c.sync.RemoteKnown(), now, c.log)

	allowed := c.limiter.AllowN(now, 1)
	if !significant && !allowed {
		return
	}
	c.sync.Push(c.store.Snapshot(now))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func (c *Controller) touch() {
	c.lastSeen = c.deps.Clock.Now()
}

func (c *Controller) mediaCall(op string, err error) {
	if err != nil {
		c.log.Warn("media %s failed: %v", op, err)
	}
}

func (c *Controller) eventLocked(t EventType) Event {
	return Event{Type: t, View: c.viewLocked()}
}

func (c *Controller) viewLocked() View {
	v := View{
		VideoID:               c.video.ID,
		State:                 c.state,
		IsPlaying:             c.isPlaying,
		CurrentTime:           c.store.CurrentTime(),
		Duration:              c.store.Duration(),
		CanSeek:               c.canSeek,
		Completed:             c.store.Completed(),
		LastCorrectCheckpoint: c.store.Checkpoints().Last(),
	}
	if c.pending != nil {
		qv := c.pending.Public()
		v.ShowQuestion = true
		v.CurrentQuestion = &qv
	}
	return v
}
