package api

import (
	"time"

	"github.com/vytor/lessonplay/internal/repository"
	"github.com/vytor/lessonplay/internal/services"
)

const (
	defaultRequestTimeout = 15 * time.Second
	defaultHeartbeat      = 15 * time.Second
)

type Server struct {
	Sessions services.SessionService
	// Snapshots backs the readiness probe; nil skips the check.
	Snapshots      repository.SnapshotRepository
	CORSOrigins    []string
	RequestTimeout time.Duration
	Heartbeat      time.Duration
}

func (s *Server) requestTimeout() time.Duration {
	if s.RequestTimeout > 0 {
		return s.RequestTimeout
	}
	return defaultRequestTimeout
}

func (s *Server) heartbeat() time.Duration {
	if s.Heartbeat > 0 {
		return s.Heartbeat
	}
	return defaultHeartbeat
}
