package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/vytor/lessonplay/internal/logger"
)

// Snapshot backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

type Config struct {
	Addr     string
	LogLevel string

	SnapshotBackend  string
	DBPath           string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	SnapshotTTLHours int

	ProgressAPIURL            string
	ProgressAPIToken          string
	ProgressAPITimeoutSeconds int

	SyncIntervalSeconds int
	SyncWorkerCount     int
	SyncQueueSize       int

	SessionIdleMinutes int
	CORSOrigins        []string

	// BlankEditDistance is the typo allowance for fill-in-the-blanks answers.
	BlankEditDistance int
}

// Load reads configuration from a .env file (if present) and environment variables,
// applying defaults when values are missing or invalid.
func Load() Config {
	// Ignore error so the app still starts when .env is absent in production.
	_ = godotenv.Load()

	return Config{
		Addr:                      envOr("ADDR", ":8080"),
		LogLevel:                  envOr("LOG_LEVEL", "INFO"),
		SnapshotBackend:           strings.ToLower(envOr("SNAPSHOT_BACKEND", BackendSQLite)),
		DBPath:                    envOr("DB_PATH", "file:lessonplay.db"),
		RedisAddr:                 envOr("REDIS_ADDR", "localhost:6379"),
		RedisPassword:             os.Getenv("REDIS_PASSWORD"),
		RedisDB:                   envIntOr("REDIS_DB", 0),
		SnapshotTTLHours:          envIntOr("SNAPSHOT_TTL_HOURS", 720),
		ProgressAPIURL:            os.Getenv("PROGRESS_API_URL"),
		ProgressAPIToken:          os.Getenv("PROGRESS_API_TOKEN"),
		ProgressAPITimeoutSeconds: envIntOr("PROGRESS_API_TIMEOUT_SECONDS", 10),
		SyncIntervalSeconds:       envIntOr("SYNC_INTERVAL_SECONDS", 10),
		SyncWorkerCount:           envIntOr("SYNC_WORKER_COUNT", 2),
		SyncQueueSize:             envIntOr("SYNC_QUEUE_SIZE", 128),
		SessionIdleMinutes:        envIntOr("SESSION_IDLE_MINUTES", 30),
		CORSOrigins:               csvOr("CORS_ORIGINS", "http://localhost:3000"),
		BlankEditDistance:         envIntOr("GRADING_BLANK_EDIT_DISTANCE", 0),
	}
}

// Validate checks every field and reports all problems at once.
func (c Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Addr) == "" {
		problems = append(problems, "ADDR cannot be empty")
	}
	if _, ok := logger.LevelFromString(c.LogLevel); !ok {
		problems = append(problems, fmt.Sprintf("LOG_LEVEL %q is not one of DEBUG, INFO, WARN, ERROR", c.LogLevel))
	}

	switch c.SnapshotBackend {
	case BackendSQLite:
		if strings.TrimSpace(c.DBPath) == "" {
			problems = append(problems, "DB_PATH cannot be empty when SNAPSHOT_BACKEND=sqlite")
		}
	case BackendRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			problems = append(problems, "REDIS_ADDR cannot be empty when SNAPSHOT_BACKEND=redis")
		}
		if c.RedisDB < 0 {
			problems = append(problems, "REDIS_DB must be >= 0")
		}
	case BackendMemory:
	default:
		problems = append(problems, fmt.Sprintf("SNAPSHOT_BACKEND %q is not one of sqlite, redis, memory", c.SnapshotBackend))
	}
	if c.SnapshotTTLHours < 0 {
		problems = append(problems, "SNAPSHOT_TTL_HOURS must be >= 0")
	}

	if strings.TrimSpace(c.ProgressAPIURL) == "" {
		problems = append(problems, "PROGRESS_API_URL cannot be empty")
	} else if u, err := url.Parse(c.ProgressAPIURL); err != nil || u.Scheme == "" || u.Host == "" {
		problems = append(problems, fmt.Sprintf("PROGRESS_API_URL %q is not an absolute URL", c.ProgressAPIURL))
	}
	if c.ProgressAPITimeoutSeconds < 1 {
		problems = append(problems, "PROGRESS_API_TIMEOUT_SECONDS must be at least 1")
	}

	if c.SyncIntervalSeconds < 1 {
		problems = append(problems, "SYNC_INTERVAL_SECONDS must be at least 1")
	}
	if c.SyncWorkerCount < 1 {
		problems = append(problems, "SYNC_WORKER_COUNT must be at least 1")
	}
	if c.SyncQueueSize < 1 {
		problems = append(problems, "SYNC_QUEUE_SIZE must be at least 1")
	}
	if c.SessionIdleMinutes < 1 {
		problems = append(problems, "SESSION_IDLE_MINUTES must be at least 1")
	}
	if c.BlankEditDistance < 0 {
		problems = append(problems, "GRADING_BLANK_EDIT_DISTANCE must be >= 0")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

func (c Config) SyncInterval() time.Duration {
	return time.Duration(c.SyncIntervalSeconds) * time.Second
}

func (c Config) ProgressAPITimeout() time.Duration {
	return time.Duration(c.ProgressAPITimeoutSeconds) * time.Second
}

func (c Config) SessionIdle() time.Duration {
	return time.Duration(c.SessionIdleMinutes) * time.Minute
}

func (c Config) SnapshotTTL() time.Duration {
	return time.Duration(c.SnapshotTTLHours) * time.Hour
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
		log.Printf("invalid value for %s=%q, using default %d", key, v, def)
	}
	return def
}

func csvOr(key, def string) []string {
	raw := envOr(key, def)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
