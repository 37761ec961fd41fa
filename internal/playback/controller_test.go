package playback_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	lperrors "github.com/vytor/lessonplay/internal/errors"
	"github.com/vytor/lessonplay/internal/logger"
	"github.com/vytor/lessonplay/internal/models"
	"github.com/vytor/lessonplay/internal/playback"
	"github.com/vytor/lessonplay/internal/progressclient"
	"github.com/vytor/lessonplay/internal/repository/memory"
	"github.com/vytor/lessonplay/internal/testutil"
	"github.com/vytor/lessonplay/internal/testutil/mocks"
	"github.com/vytor/lessonplay/internal/worker"
)

type progressCall struct {
	snap  models.ProgressSnapshot
	first bool
}

// fakeRemote records submissions in arrival order.
type fakeRemote struct {
	mu        sync.Mutex
	prior     *models.RemoteProgress
	fetchErr  error
	submitErr error
	progress  []progressCall
	answers   []models.AnswerSubmission
}

func (f *fakeRemote) FetchProgress(_ context.Context, _ string) (*models.RemoteProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if f.prior == nil {
		return nil, progressclient.ErrNotFound
	}
	p := *f.prior
	return &p, nil
}

func (f *fakeRemote) SubmitProgress(_ context.Context, _ string, snap models.ProgressSnapshot, first bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return f.submitErr
	}
	f.progress = append(f.progress, progressCall{snap: snap, first: first})
	return nil
}

func (f *fakeRemote) SubmitAnswer(_ context.Context, sub models.AnswerSubmission) (*models.SubmissionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, sub)
	return &models.SubmissionRecord{
		ID:         fmt.Sprintf("sub-%d", len(f.answers)),
		QuestionID: sub.QuestionID,
		Correct:    sub.Meta.Correct,
	}, nil
}

func (f *fakeRemote) progressCalls() []progressCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]progressCall(nil), f.progress...)
}

type harness struct {
	t      *testing.T
	ctx    context.Context
	video  models.VideoContent
	remote *fakeRemote
	queue  *testutil.ManualQueue
	snaps  *memory.SnapshotRepository
	player *mocks.MockPlayer
	clock  *testutil.FakeClock
	ctrl   *playback.Controller
	events []playback.Event
}

func newHarness(t *testing.T, video models.VideoContent, remote *fakeRemote) *harness {
	t.Helper()
	if remote == nil {
		remote = &fakeRemote{}
	}
	player := new(mocks.MockPlayer)
	player.On("Play").Return(nil).Maybe()
	player.On("Pause").Return(nil).Maybe()
	player.On("Seek", mock.Anything).Return(nil).Maybe()
	player.On("Release").Return(nil).Maybe()

	h := &harness{
		t:      t,
		ctx:    logger.NewContext(context.Background(), logger.Nop()),
		video:  video,
		remote: remote,
		queue:  testutil.NewManualQueue(remote),
		snaps:  memory.NewSnapshotRepository(),
		player: player,
		clock:  testutil.NewFakeClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)),
	}
	ctrl, err := playback.NewController(video, playback.Deps{
		Remote:       remote,
		Queue:        h.queue,
		Snapshots:    h.snaps,
		Media:        player,
		Clock:        h.clock,
		SyncInterval: 10 * time.Second,
		Logger:       logger.Nop(),
	})
	require.NoError(t, err)
	h.ctrl = ctrl
	ctrl.Subscribe(func(e playback.Event) { h.events = append(h.events, e) })
	return h
}

func (h *harness) start() {
	h.t.Helper()
	require.NoError(h.t, h.ctrl.Initialize(h.ctx))
}

func (h *harness) tick(pos float64) {
	h.t.Helper()
	require.NoError(h.t, h.ctrl.OnTimeUpdate(h.ctx, pos, h.video.Duration))
}

func (h *harness) answer(optionID string) playback.AnswerOutcome {
	h.t.Helper()
	out, err := h.ctrl.OnAnswer(h.ctx, models.Answer{OptionID: optionID})
	require.NoError(h.t, err)
	return out
}

func (h *harness) flush() int {
	return h.queue.RunAll(h.ctx)
}

func (h *harness) count(t playback.EventType) int {
	n := 0
	for _, e := range h.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

func newVideo(vt models.VideoType, questions ...models.Question) models.VideoContent {
	return models.VideoContent{
		ID:        "vid-1",
		CourseID:  "course-1",
		ChapterID: "chapter-1",
		Title:     "Intro",
		Duration:  100,
		Type:      vt,
		Questions: questions,
	}
}

func closeable(q models.Question) models.Question {
	q.Closeable = true
	return q
}

func TestController_BasicWatchThrough(t *testing.T) {
	h := newHarness(t, newVideo(models.VideoBasic), nil)
	h.start()

	v := h.ctrl.View()
	assert.Equal(t, playback.StatePlaying, v.State)
	assert.True(t, v.IsPlaying)
	assert.True(t, v.CanSeek)

	h.tick(50)
	assert.False(t, h.ctrl.View().Completed)

	h.tick(96)
	v = h.ctrl.View()
	assert.True(t, v.Completed)
	assert.Equal(t, playback.StateCompleted, v.State)
	assert.True(t, v.CanSeek)

	h.tick(97)
	assert.Equal(t, 1, h.count(playback.EventCompleted), "completion fires once")

	h.flush()
	calls := h.remote.progressCalls()
	require.Len(t, calls, 2, "first tick and completion")
	assert.True(t, calls[0].first)
	assert.False(t, calls[1].first)
	assert.True(t, calls[1].snap.Completed)
}

func TestController_TrackableWrongAnswerRestarts(t *testing.T) {
	h := newHarness(t, newVideo(models.VideoTrackable, scq("q1", 30)), nil)
	h.start()
	assert.False(t, h.ctrl.View().CanSeek)

	h.tick(10)
	h.tick(20)
	h.tick(30)
	v := h.ctrl.View()
	assert.Equal(t, playback.StateAwaitingAnswer, v.State)
	assert.False(t, v.IsPlaying)
	require.True(t, v.ShowQuestion)
	require.NotNil(t, v.CurrentQuestion)
	assert.Equal(t, "q1", v.CurrentQuestion.ID)
	h.player.AssertCalled(t, "Pause")
	assert.Equal(t, 1, h.count(playback.EventQuestion))

	out := h.answer("b")
	assert.False(t, out.Correct)
	assert.True(t, out.RolledBack)
	assert.Zero(t, out.RollbackTo)
	assert.Zero(t, out.Points)

	v = h.ctrl.View()
	assert.Equal(t, playback.StatePlaying, v.State)
	assert.Zero(t, v.CurrentTime)
	assert.False(t, v.CanSeek)
	assert.False(t, v.ShowQuestion)
	h.player.AssertCalled(t, "Seek", 0.0)

	h.tick(30.2)
	assert.Equal(t, playback.StatePlaying, h.ctrl.View().State, "answered questions never trigger again")

	h.flush()
	calls := h.remote.progressCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, 10.0, calls[0].snap.CurrentTime)
	assert.True(t, calls[0].first)
	assert.Zero(t, calls[1].snap.CurrentTime)
	assert.False(t, calls[1].first)

	require.Len(t, h.remote.answers, 1)
	sub := h.remote.answers[0]
	assert.Equal(t, "q1", sub.QuestionID)
	assert.Equal(t, "course-1", sub.CourseID)
	assert.False(t, sub.Meta.Correct)
	assert.Equal(t, 1, sub.Meta.Attempt)
	assert.Equal(t, 30.0, sub.Meta.Timestamp)
	assert.Equal(t, models.VideoTrackable, sub.Meta.VideoType)
}

func TestController_InteractiveRollsBackToCheckpoint(t *testing.T) {
	h := newHarness(t, newVideo(models.VideoInteractive, scq("q1", 20), scq("q2", 45)), nil)
	h.start()

	h.tick(20)
	out := h.answer("a")
	assert.True(t, out.Correct)
	assert.Equal(t, 1.0, out.Points)
	assert.False(t, out.RolledBack)
	assert.Equal(t, 20.0, h.ctrl.View().LastCorrectCheckpoint)

	h.tick(45)
	require.Equal(t, playback.StateAwaitingAnswer, h.ctrl.View().State)
	out = h.answer("b")
	assert.True(t, out.RolledBack)
	assert.Equal(t, 20.0, out.RollbackTo)

	v := h.ctrl.View()
	assert.Equal(t, 20.0, v.CurrentTime)
	assert.Equal(t, 20.0, v.LastCorrectCheckpoint)
	h.player.AssertCalled(t, "Seek", 20.0)

	_, cp := h.ctrl.Progress()
	assert.Equal(t, []string{"q1"}, cp.IDs())
}

func TestController_ResumesCompletedFromRemote(t *testing.T) {
	remote := &fakeRemote{prior: &models.RemoteProgress{CurrentDuration: 80, IsCompleted: true}}
	h := newHarness(t, newVideo(models.VideoTrackable, scq("q1", 50)), remote)
	h.start()

	v := h.ctrl.View()
	assert.Equal(t, 80.0, v.CurrentTime)
	assert.True(t, v.CanSeek)
	assert.True(t, v.Completed)
	assert.Equal(t, playback.StateCompleted, v.State)
	h.player.AssertCalled(t, "Seek", 80.0)

	h.tick(81)
	h.flush()
	calls := h.remote.progressCalls()
	require.Len(t, calls, 1)
	assert.False(t, calls[0].first, "existing record is updated")

	require.NoError(t, h.ctrl.Seek(h.ctx, 49.5))
	h.tick(50.2)
	assert.Equal(t, playback.StateCompleted, h.ctrl.View().State, "no questions after completion")
}

func TestController_NoRetriggerAfterSeekBack(t *testing.T) {
	h := newHarness(t, newVideo(models.VideoBasic, scq("q1", 10)), nil)
	h.start()

	h.tick(10)
	require.Equal(t, playback.StateAwaitingAnswer, h.ctrl.View().State)
	h.answer("a")

	require.NoError(t, h.ctrl.Seek(h.ctx, 5))
	for _, pos := range []float64{6, 7, 8, 9, 10, 10.5, 11} {
		h.tick(pos)
		assert.Equal(t, playback.StatePlaying, h.ctrl.View().State, "at %v", pos)
	}
	assert.Equal(t, 1, h.count(playback.EventQuestion))
}

func TestController_SeekRules(t *testing.T) {
	tests := []struct {
		name      string
		videoType models.VideoType
		locked    bool
	}{
		{"basic", models.VideoBasic, false},
		{"trackable", models.VideoTrackable, true},
		{"trackableRandom", models.VideoTrackableRandom, true},
		{"interactive", models.VideoInteractive, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, newVideo(tt.videoType), nil)
			h.start()

			err := h.ctrl.Seek(h.ctx, 50)
			if tt.locked {
				assert.ErrorIs(t, err, playback.ErrSeekNotAllowed)
				assert.False(t, h.ctrl.View().CanSeek)
				assert.Zero(t, h.ctrl.View().CurrentTime)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, 50.0, h.ctrl.View().CurrentTime)
			}

			h.tick(95)
			require.True(t, h.ctrl.View().CanSeek, "completion unlocks seeking")

			require.NoError(t, h.ctrl.Seek(h.ctx, 10))
			v := h.ctrl.View()
			assert.Equal(t, 10.0, v.CurrentTime)
			assert.True(t, v.Completed)
			if tt.locked {
				assert.Equal(t, playback.StateCompleted, v.State)
			}
		})
	}
}

func TestController_WrongAnswerRollbackByType(t *testing.T) {
	tests := []struct {
		name       string
		videoType  models.VideoType
		rolledBack bool
		resumeAt   float64
	}{
		{"basic keeps position", models.VideoBasic, false, 45},
		{"trackable restarts", models.VideoTrackable, true, 0},
		{"trackableRandom restarts", models.VideoTrackableRandom, true, 0},
		{"interactive returns to checkpoint", models.VideoInteractive, true, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, newVideo(tt.videoType, scq("q1", 20), scq("q2", 45)), nil)
			h.start()

			h.tick(20)
			assert.True(t, h.answer("a").Correct)
			h.tick(45)
			require.Equal(t, playback.StateAwaitingAnswer, h.ctrl.View().State)

			out := h.answer("b")
			assert.False(t, out.Correct)
			assert.Equal(t, tt.rolledBack, out.RolledBack)

			v := h.ctrl.View()
			assert.Equal(t, tt.resumeAt, v.CurrentTime)
			assert.Equal(t, playback.StatePlaying, v.State)
			assert.Equal(t, tt.videoType == models.VideoBasic, v.CanSeek, "seeking stays locked until completion")
		})
	}
}

func TestController_NoRollbackOnceCompleted(t *testing.T) {
	h := newHarness(t, newVideo(models.VideoTrackable, scq("q1", 95)), nil)
	h.start()

	h.tick(95)
	v := h.ctrl.View()
	require.Equal(t, playback.StateAwaitingAnswer, v.State)
	require.True(t, v.Completed, "question due on the completing tick")

	out := h.answer("b")
	assert.False(t, out.Correct)
	assert.False(t, out.RolledBack)

	v = h.ctrl.View()
	assert.Equal(t, 95.0, v.CurrentTime)
	assert.Equal(t, playback.StateCompleted, v.State)
	assert.True(t, v.CanSeek)
}

func TestController_RejectsNonFinitePositions(t *testing.T) {
	h := newHarness(t, newVideo(models.VideoBasic), nil)
	h.start()
	h.tick(12)

	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		assert.ErrorIs(t, h.ctrl.OnTimeUpdate(h.ctx, bad, 100), playback.ErrInvalidPosition)
		assert.ErrorIs(t, h.ctrl.OnTimeUpdate(h.ctx, 13, bad), playback.ErrInvalidPosition)
		assert.ErrorIs(t, h.ctrl.Seek(h.ctx, bad), playback.ErrInvalidPosition)
	}

	v := h.ctrl.View()
	assert.Equal(t, 12.0, v.CurrentTime)
	assert.Equal(t, 100.0, v.Duration)
	_, err := json.Marshal(v)
	assert.NoError(t, err, "view stays encodable")
}

func TestController_SeekRejectedWhileAwaitingAnswer(t *testing.T) {
	h := newHarness(t, newVideo(models.VideoBasic, scq("q1", 10)), nil)
	h.start()
	h.tick(10)

	assert.ErrorIs(t, h.ctrl.Seek(h.ctx, 50), playback.ErrSeekNotAllowed)
	assert.ErrorIs(t, h.ctrl.TogglePlayPause(h.ctx), playback.ErrAwaitingAnswer)
	assert.Equal(t, 10.0, h.ctrl.View().CurrentTime)
}

func TestController_TogglePlayPause(t *testing.T) {
	t.Run("pauses and resumes", func(t *testing.T) {
		h := newHarness(t, newVideo(models.VideoTrackable), nil)
		h.start()

		require.NoError(t, h.ctrl.TogglePlayPause(h.ctx))
		v := h.ctrl.View()
		assert.Equal(t, playback.StatePaused, v.State)
		assert.False(t, v.IsPlaying)

		require.NoError(t, h.ctrl.TogglePlayPause(h.ctx))
		assert.Equal(t, playback.StatePlaying, h.ctrl.View().State)
	})

	t.Run("completed non-basic stays completed", func(t *testing.T) {
		h := newHarness(t, newVideo(models.VideoInteractive), nil)
		h.start()
		h.tick(99)

		require.NoError(t, h.ctrl.TogglePlayPause(h.ctx))
		v := h.ctrl.View()
		assert.Equal(t, playback.StateCompleted, v.State)
		assert.False(t, v.IsPlaying)
	})

	t.Run("completed basic can pause", func(t *testing.T) {
		h := newHarness(t, newVideo(models.VideoBasic), nil)
		h.start()
		h.tick(99)

		require.NoError(t, h.ctrl.TogglePlayPause(h.ctx))
		v := h.ctrl.View()
		assert.Equal(t, playback.StatePaused, v.State)
		assert.True(t, v.Completed)
	})
}

func TestController_PausedTicksDoNotTrigger(t *testing.T) {
	h := newHarness(t, newVideo(models.VideoBasic, scq("q1", 10)), nil)
	h.start()
	require.NoError(t, h.ctrl.TogglePlayPause(h.ctx))

	h.tick(10.3)
	assert.Equal(t, playback.StatePaused, h.ctrl.View().State)
}

func TestController_CloseQuestion(t *testing.T) {
	h := newHarness(t, newVideo(models.VideoBasic, closeable(scq("q1", 30))), nil)
	h.start()

	assert.ErrorIs(t, h.ctrl.CloseQuestion(h.ctx), playback.ErrNoPendingQuestion)

	h.tick(30)
	require.NoError(t, h.ctrl.CloseQuestion(h.ctx))
	v := h.ctrl.View()
	assert.Equal(t, playback.StatePlaying, v.State)
	assert.False(t, v.ShowQuestion)

	h.tick(30.5)
	assert.Equal(t, playback.StatePlaying, h.ctrl.View().State, "closed question stays closed inside its window")

	progress, _ := h.ctrl.Progress()
	assert.Empty(t, progress.AnsweredQuestions, "closing records no answer")

	require.NoError(t, h.ctrl.Seek(h.ctx, 25))
	h.tick(26)
	h.tick(30.2)
	assert.Equal(t, playback.StateAwaitingAnswer, h.ctrl.View().State, "a later pass triggers it again")
}

func TestController_NonCloseableQuestion(t *testing.T) {
	h := newHarness(t, newVideo(models.VideoTrackable, scq("q1", 30)), nil)
	h.start()
	h.tick(30)

	assert.ErrorIs(t, h.ctrl.CloseQuestion(h.ctx), playback.ErrNotCloseable)
	assert.Equal(t, playback.StateAwaitingAnswer, h.ctrl.View().State)
}

func TestController_AnswerErrors(t *testing.T) {
	h := newHarness(t, newVideo(models.VideoTrackable, scq("q1", 30)), nil)
	h.start()

	_, err := h.ctrl.OnAnswer(h.ctx, models.Answer{OptionID: "a"})
	assert.ErrorIs(t, err, playback.ErrNoPendingQuestion)

	h.tick(30)
	_, err = h.ctrl.OnAnswer(h.ctx, models.Answer{QuestionID: "other", OptionID: "a"})
	assert.ErrorIs(t, err, playback.ErrQuestionMismatch)
	assert.Equal(t, playback.StateAwaitingAnswer, h.ctrl.View().State)
}

func TestController_OperationsBeforeInitialize(t *testing.T) {
	h := newHarness(t, newVideo(models.VideoBasic), nil)

	assert.Equal(t, playback.StateLoading, h.ctrl.View().State)
	assert.ErrorIs(t, h.ctrl.OnTimeUpdate(h.ctx, 1, 100), playback.ErrNotInitialized)
	assert.ErrorIs(t, h.ctrl.Seek(h.ctx, 1), playback.ErrNotInitialized)
	assert.ErrorIs(t, h.ctrl.TogglePlayPause(h.ctx), playback.ErrNotInitialized)
}

func TestController_InvalidContent(t *testing.T) {
	video := newVideo(models.VideoBasic)
	video.Duration = 0

	_, err := playback.NewController(video, playback.Deps{Remote: &fakeRemote{}, Queue: testutil.NewManualQueue(&fakeRemote{})})
	require.Error(t, err)
	assert.True(t, lperrors.IsKind(err, lperrors.KindContentLoad))
}

func TestController_OfflineResumesFromLocal(t *testing.T) {
	remote := &fakeRemote{fetchErr: errors.New("connection refused")}
	h := newHarness(t, newVideo(models.VideoInteractive, scq("q1", 40), scq("q2", 70)), remote)
	require.NoError(t, h.snaps.Save(h.ctx, models.LocalSnapshot{
		ProgressSnapshot: models.ProgressSnapshot{
			VideoID:                    "vid-1",
			VideoType:                  models.VideoInteractive,
			CurrentTime:                60,
			LastCorrectCheckpoint:      40,
			CorrectlyAnsweredQuestions: []string{"q1"},
		},
		RemoteKnown: true,
	}))
	h.start()

	v := h.ctrl.View()
	assert.Equal(t, 40.0, v.CurrentTime)
	assert.Equal(t, 40.0, v.LastCorrectCheckpoint)

	h.tick(40.5)
	assert.Equal(t, playback.StatePlaying, h.ctrl.View().State)

	h.flush()
	calls := h.remote.progressCalls()
	require.Len(t, calls, 1)
	assert.False(t, calls[0].first, "local snapshot knew about the remote record")
}

func TestController_OfflineWithoutLocalStartsFresh(t *testing.T) {
	remote := &fakeRemote{fetchErr: errors.New("connection refused")}
	h := newHarness(t, newVideo(models.VideoBasic), remote)
	h.start()

	assert.Zero(t, h.ctrl.View().CurrentTime)
	h.tick(1)
	h.flush()
	calls := h.remote.progressCalls()
	require.Len(t, calls, 1)
	assert.True(t, calls[0].first)
}

func TestController_RemoteWinsOverLocal(t *testing.T) {
	remote := &fakeRemote{prior: &models.RemoteProgress{CurrentDuration: 30}}
	h := newHarness(t, newVideo(models.VideoBasic), remote)
	require.NoError(t, h.snaps.Save(h.ctx, models.LocalSnapshot{
		ProgressSnapshot: models.ProgressSnapshot{VideoID: "vid-1", CurrentTime: 70},
	}))
	h.start()

	assert.Equal(t, 30.0, h.ctrl.View().CurrentTime)
}

func TestController_FailedCreateIsRetriedAsCreate(t *testing.T) {
	remote := &fakeRemote{submitErr: errors.New("503")}
	h := newHarness(t, newVideo(models.VideoBasic), remote)
	h.start()

	h.tick(5)
	h.flush()
	assert.Empty(t, h.remote.progressCalls())

	remote.mu.Lock()
	remote.submitErr = nil
	remote.mu.Unlock()

	h.tick(6)
	assert.Zero(t, h.queue.Len(), "throttled")

	h.clock.Advance(10 * time.Second)
	h.tick(16)
	h.flush()
	calls := h.remote.progressCalls()
	require.Len(t, calls, 1)
	assert.True(t, calls[0].first)
	assert.Equal(t, 16.0, calls[0].snap.CurrentTime)
}

func TestController_SubmissionsAreSerialized(t *testing.T) {
	h := newHarness(t, newVideo(models.VideoBasic, scq("q1", 10), scq("q2", 20)), nil)
	h.start()

	h.tick(5)
	h.tick(10)
	h.answer("a")
	h.tick(20)
	h.answer("a")

	assert.Equal(t, 3, h.queue.Len(), "one progress job in flight plus two answers")

	h.flush()
	calls := h.remote.progressCalls()
	require.Len(t, calls, 2)
	assert.True(t, calls[0].first)
	assert.Equal(t, 5.0, calls[0].snap.CurrentTime)
	assert.False(t, calls[1].first)
	assert.Equal(t, []string{"q1", "q2"}, calls[1].snap.CorrectlyAnsweredQuestions, "the latest snapshot wins")
	assert.Len(t, h.remote.answers, 2)
}

func TestController_SavesLocalOnEveryTick(t *testing.T) {
	h := newHarness(t, newVideo(models.VideoBasic), nil)
	h.start()

	h.tick(5)
	h.tick(6)

	local, err := h.snaps.Get(h.ctx, "vid-1")
	require.NoError(t, err)
	require.NotNil(t, local)
	assert.Equal(t, 6.0, local.CurrentTime)
	assert.False(t, local.RemoteKnown)

	h.flush()
	h.tick(7)
	local, err = h.snaps.Get(h.ctx, "vid-1")
	require.NoError(t, err)
	assert.True(t, local.RemoteKnown)
}

func TestController_Release(t *testing.T) {
	h := newHarness(t, newVideo(models.VideoBasic), nil)
	h.start()

	h.tick(10)
	h.tick(12)
	require.NoError(t, h.ctrl.Release(h.ctx))
	require.NoError(t, h.ctrl.Release(h.ctx))

	h.player.AssertNumberOfCalls(t, "Release", 1)
	assert.Equal(t, 1, h.count(playback.EventReleased))
	assert.False(t, h.ctrl.View().IsPlaying)

	h.flush()
	calls := h.remote.progressCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, 12.0, calls[1].snap.CurrentTime, "final snapshot is flushed")
	assert.False(t, calls[1].first)

	local, err := h.snaps.Get(h.ctx, "vid-1")
	require.NoError(t, err)
	assert.Equal(t, 12.0, local.CurrentTime)

	before := len(h.events)
	assert.ErrorIs(t, h.ctrl.OnTimeUpdate(h.ctx, 13, 100), playback.ErrSessionReleased)
	assert.ErrorIs(t, h.ctrl.Seek(h.ctx, 1), playback.ErrSessionReleased)
	assert.ErrorIs(t, h.ctrl.Initialize(h.ctx), playback.ErrSessionReleased)
	assert.Len(t, h.events, before, "observers are detached")
}

func TestController_Unsubscribe(t *testing.T) {
	h := newHarness(t, newVideo(models.VideoBasic), nil)
	var got []playback.EventType
	unsubscribe := h.ctrl.Subscribe(func(e playback.Event) { got = append(got, e.Type) })

	h.start()
	unsubscribe()
	require.NoError(t, h.ctrl.TogglePlayPause(h.ctx))

	assert.Equal(t, []playback.EventType{playback.EventState}, got)
}

func TestController_LastActivity(t *testing.T) {
	h := newHarness(t, newVideo(models.VideoBasic), nil)
	h.start()
	started := h.ctrl.LastActivity()

	h.clock.Advance(time.Minute)
	h.tick(3)
	assert.Equal(t, started.Add(time.Minute), h.ctrl.LastActivity())
}

func TestController_FullQueueNeverBlocksPlayback(t *testing.T) {
	queue := new(mocks.MockSyncQueue)
	queue.On("EnqueueProgress", mock.Anything, true, mock.Anything).Return(worker.ErrQueueFull)
	queue.On("EnqueueAnswer", mock.Anything, mock.Anything).Return(worker.ErrQueueFull).Once()

	ctx := context.Background()
	ctrl, err := playback.NewController(newVideo(models.VideoTrackable, scq("q1", 30)), playback.Deps{
		Remote: &fakeRemote{},
		Queue:  queue,
		Logger: logger.Nop(),
	})
	require.NoError(t, err)
	require.NoError(t, ctrl.Initialize(ctx))

	require.NoError(t, ctrl.OnTimeUpdate(ctx, 30, 100))
	out, err := ctrl.OnAnswer(ctx, models.Answer{OptionID: "a"})
	require.NoError(t, err)
	assert.True(t, out.Correct)
	assert.Equal(t, playback.StatePlaying, ctrl.View().State)

	require.NoError(t, ctrl.Release(ctx))
	queue.AssertExpectations(t)
}
