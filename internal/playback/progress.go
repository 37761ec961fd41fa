package playback

import (
	"context"
	"math"
	"time"

	"github.com/vytor/lessonplay/internal/logger"
	"github.com/vytor/lessonplay/internal/models"
	"github.com/vytor/lessonplay/internal/repository"
)

// ProgressStore owns the playback progress and checkpoint state of one
// video. It is not safe for concurrent use; the controller serializes access.
type ProgressStore struct {
	video       *models.VideoContent
	progress    models.PlaybackProgress
	checkpoints *Checkpoints
	answered    map[string]struct{}
}

func NewProgressStore(video *models.VideoContent) *ProgressStore {
	return &ProgressStore{
		video:       video,
		progress:    models.PlaybackProgress{Duration: video.Duration},
		checkpoints: NewCheckpoints(),
		answered:    make(map[string]struct{}),
	}
}

// Restore hydrates the store from prior progress. Correctly answered
// questions count as answered so they never trigger again.
func (s *ProgressStore) Restore(resume float64, prior models.RemoteProgress) {
	s.progress.Completed = prior.IsCompleted
	s.checkpoints.Hydrate(prior.LastCorrectCheckpoint, prior.CorrectlyAnsweredQuestions)
	for _, id := range prior.CorrectlyAnsweredQuestions {
		s.answered[id] = struct{}{}
	}
	s.progress.CurrentTime = s.clamp(resume)
}

// SetPosition records a playback tick and reports whether this tick made
// the video completed for the first time.
func (s *ProgressStore) SetPosition(position, duration float64) bool {
	if duration > 0 && !math.IsInf(duration, 1) {
		s.progress.Duration = duration
	}
	s.progress.CurrentTime = s.clamp(position)

	if s.progress.Completed || s.progress.Duration <= 0 {
		return false
	}
	if s.progress.CurrentTime/s.progress.Duration >= models.CompletionThreshold {
		s.progress.Completed = true
		return true
	}
	return false
}

// Seek moves the position without affecting completion.
func (s *ProgressStore) Seek(t float64) float64 {
	s.progress.CurrentTime = s.clamp(t)
	return s.progress.CurrentTime
}

func (s *ProgressStore) clamp(t float64) float64 {
	if t < 0 || math.IsNaN(t) {
		return 0
	}
	if s.progress.Duration > 0 && t > s.progress.Duration {
		return s.progress.Duration
	}
	return t
}

// MarkAnswered records an answer. A re-attempt replaces the earlier record;
// membership in the answered set is never revoked.
func (s *ProgressStore) MarkAnswered(rec models.AnsweredQuestionRecord) {
	s.answered[rec.QuestionID] = struct{}{}
	for i, r := range s.progress.AnsweredQuestions {
		if r.QuestionID == rec.QuestionID {
			s.progress.AnsweredQuestions[i] = rec
			return
		}
	}
	s.progress.AnsweredQuestions = append(s.progress.AnsweredQuestions, rec)
}

func (s *ProgressStore) IsAnswered(id string) bool {
	_, ok := s.answered[id]
	return ok
}

func (s *ProgressStore) Checkpoints() *Checkpoints { return s.checkpoints }

func (s *ProgressStore) CurrentTime() float64 { return s.progress.CurrentTime }
func (s *ProgressStore) Duration() float64    { return s.progress.Duration }
func (s *ProgressStore) Completed() bool      { return s.progress.Completed }

// Progress returns a copy of the playback progress.
func (s *ProgressStore) Progress() models.PlaybackProgress {
	p := s.progress
	p.AnsweredQuestions = append([]models.AnsweredQuestionRecord(nil), s.progress.AnsweredQuestions...)
	return p
}

// Snapshot builds the full state pushed to the progress service.
func (s *ProgressStore) Snapshot(now time.Time) models.ProgressSnapshot {
	return models.ProgressSnapshot{
		VideoID:                    s.video.ID,
		CourseID:                   s.video.CourseID,
		ChapterID:                  s.video.ChapterID,
		VideoType:                  s.video.Type,
		CurrentTime:                s.progress.CurrentTime,
		Duration:                   s.progress.Duration,
		Completed:                  s.progress.Completed,
		LastCorrectCheckpoint:      s.checkpoints.Last(),
		CorrectlyAnsweredQuestions: s.checkpoints.State().IDs(),
		AnsweredQuestions:          append([]models.AnsweredQuestionRecord(nil), s.progress.AnsweredQuestions...),
		CapturedAt:                 now,
	}
}

// SaveLocal writes the instant-resume snapshot. Failures are logged and
// never interrupt playback.
func (s *ProgressStore) SaveLocal(ctx context.Context, repo repository.SnapshotRepository, remoteKnown bool, now time.Time, log *logger.Logger) {
	if repo == nil {
		return
	}
	snap := models.LocalSnapshot{
		ProgressSnapshot: s.Snapshot(now),
		RemoteKnown:      remoteKnown,
		UpdatedAt:        now,
	}
	if err := repo.Save(ctx, snap); err != nil {
		log.Warn("failed to save local snapshot: %v", err)
	}
}
