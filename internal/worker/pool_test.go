package worker_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/lessonplay/internal/worker"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type funcJob struct {
	name string
	run  func(context.Context) error
}

func (j funcJob) Name() string { return j.name }

func (j funcJob) Run(ctx context.Context) error {
	return j.run(ctx)
}

func TestPool_RunsSubmittedJobs(t *testing.T) {
	p := worker.NewPool(3, 16)
	p.Start(context.Background())

	var ran atomic.Int32
	for i := 0; i < 10; i++ {
		require.NoError(t, p.Submit(funcJob{name: "count", run: func(context.Context) error {
			ran.Add(1)
			return nil
		}}))
	}
	p.Stop()

	assert.Equal(t, int32(10), ran.Load(), "stop drains queued jobs")
}

func TestPool_SubmitAfterStop(t *testing.T) {
	p := worker.NewPool(1, 4)
	p.Start(context.Background())
	p.Stop()
	p.Stop()

	err := p.Submit(funcJob{name: "late", run: func(context.Context) error { return nil }})
	assert.ErrorIs(t, err, worker.ErrPoolStopped)
}

func TestPool_QueueFull(t *testing.T) {
	p := worker.NewPool(1, 1)
	p.Start(context.Background())

	started := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, p.Submit(funcJob{name: "block", run: func(context.Context) error {
		close(started)
		<-release
		return nil
	}}))
	<-started

	noop := funcJob{name: "noop", run: func(context.Context) error { return nil }}
	require.NoError(t, p.Submit(noop), "one slot in the queue")
	assert.ErrorIs(t, p.Submit(noop), worker.ErrQueueFull)
	assert.Equal(t, 1, p.QueueSize())

	close(release)
	p.Stop()
}

func TestPool_JobErrorsDoNotStopWorkers(t *testing.T) {
	p := worker.NewPool(1, 8)
	p.Start(context.Background())

	var mu sync.Mutex
	var order []string
	record := func(name string, err error) worker.Job {
		return funcJob{name: name, run: func(context.Context) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return err
		}}
	}
	require.NoError(t, p.Submit(record("first", errors.New("boom"))))
	require.NoError(t, p.Submit(record("second", nil)))
	p.Stop()

	assert.Equal(t, []string{"first", "second"}, order)
}

func TestPool_DrainedJobsSeeLiveContext(t *testing.T) {
	p := worker.NewPool(1, 1)
	p.Start(context.Background())

	var hadDeadline, cancelled bool
	require.NoError(t, p.Submit(funcJob{name: "ctx", run: func(ctx context.Context) error {
		_, hadDeadline = ctx.Deadline()
		cancelled = ctx.Err() != nil
		return nil
	}}))
	p.Stop()

	assert.False(t, hadDeadline)
	assert.False(t, cancelled, "jobs drained on stop still see a live context")
}
