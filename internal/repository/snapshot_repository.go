package repository

import (
	"context"

	"github.com/vytor/lessonplay/internal/models"
)

// SnapshotRepository is the local instant-resume cache, one row per video.
// It is never authoritative over the progress service.
type SnapshotRepository interface {
	// Get returns nil, nil when no snapshot is stored.
	Get(ctx context.Context, videoID string) (*models.LocalSnapshot, error)
	Save(ctx context.Context, snapshot models.LocalSnapshot) error
	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error
}
