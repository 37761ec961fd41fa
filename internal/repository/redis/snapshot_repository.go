package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/vytor/lessonplay/internal/logger"
	"github.com/vytor/lessonplay/internal/models"
	"github.com/vytor/lessonplay/internal/repository"
)

const keyPrefix = "lessonplay:snapshot:"

// Config holds Redis connection configuration.
type Config struct {
	Addr     string
	Password string
	DB       int
}

type snapshotRepository struct {
	client *goredis.Client
	ttl    time.Duration
}

// NewClient connects to Redis and verifies the connection.
func NewClient(ctx context.Context, cfg Config) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.FromContext(ctx).WithPrefix("redis").WithFields(map[string]any{
		"addr": cfg.Addr,
		"db":   cfg.DB,
	}).Info("connected to redis")
	return client, nil
}

// NewSnapshotRepository creates a Redis-backed SnapshotRepository. Each
// snapshot is a JSON value under lessonplay:snapshot:{videoID}. A positive
// ttl expires snapshots not written for that long; zero keeps them.
func NewSnapshotRepository(client *goredis.Client, ttl time.Duration) repository.SnapshotRepository {
	return &snapshotRepository{client: client, ttl: ttl}
}

func key(videoID string) string {
	return keyPrefix + videoID
}

func (r *snapshotRepository) Get(ctx context.Context, videoID string) (*models.LocalSnapshot, error) {
	log := logger.FromContext(ctx).WithPrefix("snapshot_repo")

	val, err := r.client.Get(ctx, key(videoID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		log.Debug("no snapshot for video_id=%s", videoID)
		return nil, nil
	}
	if err != nil {
		log.Warn("redis get failed: %v", err)
		return nil, err
	}

	var s models.LocalSnapshot
	if err := json.Unmarshal(val, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", videoID, err)
	}
	return &s, nil
}

func (r *snapshotRepository) Save(ctx context.Context, s models.LocalSnapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, key(s.VideoID), data, r.ttl).Err(); err != nil {
		logger.FromContext(ctx).WithPrefix("snapshot_repo").Warn("redis set failed: %v", err)
		return err
	}
	return nil
}

func (r *snapshotRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
