package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/vytor/lessonplay/internal/logger"
	"github.com/vytor/lessonplay/internal/models"
	"github.com/vytor/lessonplay/internal/repository"
)

var sqlBuilder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)

var snapshotColumns = []string{
	"video_id", "course_id", "chapter_id", "video_type", "position_seconds", "duration_seconds",
	"completed", "last_correct_checkpoint", "correctly_answered", "answered_questions",
	"remote_known", "captured_at", "updated_at",
}

type snapshotRepository struct {
	db *sql.DB
}

// NewSnapshotRepository creates a new SnapshotRepository implementation
func NewSnapshotRepository(db *sql.DB) repository.SnapshotRepository {
	return &snapshotRepository{db: db}
}

func (r *snapshotRepository) Get(ctx context.Context, videoID string) (*models.LocalSnapshot, error) {
	log := logger.FromContext(ctx).WithPrefix("snapshot_repo")
	log.Debug("getting snapshot: video_id=%s", videoID)

	query, args, err := sqlBuilder.Select(snapshotColumns...).
		From("video_snapshots").
		Where(squirrel.Eq{"video_id": videoID}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var (
		s          models.LocalSnapshot
		correct    string
		answered   string
		capturedAt sql.NullTime
	)
	err = r.db.QueryRowContext(ctx, query, args...).Scan(
		&s.VideoID, &s.CourseID, &s.ChapterID, &s.VideoType, &s.CurrentTime, &s.Duration,
		&s.Completed, &s.LastCorrectCheckpoint, &correct, &answered,
		&s.RemoteKnown, &capturedAt, &s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug("no snapshot for video_id=%s", videoID)
		return nil, nil
	}
	if err != nil {
		log.Error("failed to get snapshot: %v", err)
		return nil, err
	}

	if err := json.Unmarshal([]byte(correct), &s.CorrectlyAnsweredQuestions); err != nil {
		return nil, fmt.Errorf("decode correctly_answered: %w", err)
	}
	if err := json.Unmarshal([]byte(answered), &s.AnsweredQuestions); err != nil {
		return nil, fmt.Errorf("decode answered_questions: %w", err)
	}
	if capturedAt.Valid {
		s.CapturedAt = capturedAt.Time
	}
	return &s, nil
}

func (r *snapshotRepository) Save(ctx context.Context, s models.LocalSnapshot) error {
	log := logger.FromContext(ctx).WithPrefix("snapshot_repo")
	log.Debug("saving snapshot: video_id=%s at=%.1f", s.VideoID, s.CurrentTime)

	correct, err := json.Marshal(nonNil(s.CorrectlyAnsweredQuestions))
	if err != nil {
		return err
	}
	answered, err := json.Marshal(nonNilRecords(s.AnsweredQuestions))
	if err != nil {
		return err
	}

	var capturedAt any
	if !s.CapturedAt.IsZero() {
		capturedAt = s.CapturedAt.UTC()
	}

	query, args, err := sqlBuilder.Insert("video_snapshots").
		Columns(snapshotColumns...).
		Values(
			s.VideoID, s.CourseID, s.ChapterID, string(s.VideoType), s.CurrentTime, s.Duration,
			s.Completed, s.LastCorrectCheckpoint, string(correct), string(answered),
			s.RemoteKnown, capturedAt, s.UpdatedAt.UTC(),
		).
		Suffix(`ON CONFLICT(video_id) DO UPDATE SET
course_id = excluded.course_id,
chapter_id = excluded.chapter_id,
video_type = excluded.video_type,
position_seconds = excluded.position_seconds,
duration_seconds = excluded.duration_seconds,
completed = excluded.completed,
last_correct_checkpoint = excluded.last_correct_checkpoint,
correctly_answered = excluded.correctly_answered,
answered_questions = excluded.answered_questions,
remote_known = excluded.remote_known,
captured_at = excluded.captured_at,
updated_at = excluded.updated_at`).
		ToSql()
	if err != nil {
		log.Error("failed to build upsert: %v", err)
		return err
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		log.Error("failed to save snapshot: %v", err)
		return err
	}
	return nil
}

func (r *snapshotRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

func nonNilRecords(recs []models.AnsweredQuestionRecord) []models.AnsweredQuestionRecord {
	if recs == nil {
		return []models.AnsweredQuestionRecord{}
	}
	return recs
}
