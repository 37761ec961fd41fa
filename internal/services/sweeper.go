package services

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/vytor/lessonplay/internal/logger"
)

// DefaultSweepSchedule runs the idle sweep every minute.
const DefaultSweepSchedule = "* * * * *"

// Sweeper periodically ends sessions that have gone idle.
type Sweeper struct {
	cron *cron.Cron
	svc  SessionService
	idle time.Duration
	log  *logger.Logger
}

// NewSweeper schedules SweepIdle on schedule, a standard five-field cron
// expression.
func NewSweeper(svc SessionService, idle time.Duration, schedule string, log *logger.Logger) (*Sweeper, error) {
	if log == nil {
		log = logger.Default()
	}
	s := &Sweeper{
		cron: cron.New(),
		svc:  svc,
		idle: idle,
		log:  log.WithPrefix("sweeper"),
	}
	if _, err := s.cron.AddFunc(schedule, s.Run); err != nil {
		return nil, err
	}
	return s, nil
}

// Run performs one sweep.
func (s *Sweeper) Run() {
	ctx := logger.NewContext(context.Background(), s.log)
	if n := s.svc.SweepIdle(ctx, s.idle); n > 0 {
		s.log.Info("ended %d idle sessions", n)
	}
}

func (s *Sweeper) Start() {
	s.cron.Start()
	s.log.Info("idle sweeper started (idle after %s)", s.idle)
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}
