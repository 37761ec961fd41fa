package memory

import (
	"context"
	"sync"

	"github.com/vytor/lessonplay/internal/models"
	"github.com/vytor/lessonplay/internal/repository"
)

// SnapshotRepository keeps snapshots in process memory. Values are copied on
// the way in and out so callers never share slices with the store.
type SnapshotRepository struct {
	mu   sync.RWMutex
	rows map[string]models.LocalSnapshot
}

var _ repository.SnapshotRepository = (*SnapshotRepository)(nil)

func NewSnapshotRepository() *SnapshotRepository {
	return &SnapshotRepository{rows: make(map[string]models.LocalSnapshot)}
}

func (r *SnapshotRepository) Get(_ context.Context, videoID string) (*models.LocalSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.rows[videoID]
	if !ok {
		return nil, nil
	}
	out := clone(s)
	return &out, nil
}

func (r *SnapshotRepository) Save(_ context.Context, s models.LocalSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[s.VideoID] = clone(s)
	return nil
}

func (r *SnapshotRepository) Ping(context.Context) error { return nil }

// Len reports the number of stored snapshots.
func (r *SnapshotRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rows)
}

func clone(s models.LocalSnapshot) models.LocalSnapshot {
	s.CorrectlyAnsweredQuestions = append([]string(nil), s.CorrectlyAnsweredQuestions...)
	s.AnsweredQuestions = append([]models.AnsweredQuestionRecord(nil), s.AnsweredQuestions...)
	return s
}
