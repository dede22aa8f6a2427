package scheduler

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	runs atomic.Int32
}

func (j *countingJob) Run(context.Context) {
	j.runs.Add(1)
}

type blockingJob struct {
	started atomic.Int32
	release chan struct{}
}

func (j *blockingJob) Run(context.Context) {
	j.started.Add(1)
	<-j.release
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestScheduler_AddRejectsInvalidSpec(t *testing.T) {
	s := New(testLogger())

	err := s.Add("bad", "not a cron spec", &countingJob{})
	assert.Error(t, err)
}

func TestScheduler_StartStopIdempotent(t *testing.T) {
	s := New(testLogger())
	require.NoError(t, s.Add("noop", "@every 1h", &countingJob{}))

	s.Start()
	s.Start()
	assert.True(t, s.IsRunning())

	s.Stop()
	s.Stop()
	assert.False(t, s.IsRunning())
}

func TestScheduler_RunsJobOnSchedule(t *testing.T) {
	s := New(testLogger())
	job := &countingJob{}
	require.NoError(t, s.Add("tick", "@every 100ms", job))

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return job.runs.Load() >= 1
	}, 2*time.Second, 20*time.Millisecond)
}

func TestScheduler_SkipsOverlappingRuns(t *testing.T) {
	s := New(testLogger())
	job := &blockingJob{release: make(chan struct{})}
	require.NoError(t, s.Add("slow", "@every 100ms", job))

	s.Start()

	// Let several triggers fire while the first run is still blocked
	assert.Eventually(t, func() bool {
		return job.started.Load() >= 1
	}, 2*time.Second, 20*time.Millisecond)
	time.Sleep(350 * time.Millisecond)
	assert.Equal(t, int32(1), job.started.Load())

	close(job.release)
	s.Stop()
}

func TestScheduler_IndependentJobsDoNotBlockEachOther(t *testing.T) {
	s := New(testLogger())
	slow := &blockingJob{release: make(chan struct{})}
	fast := &countingJob{}
	require.NoError(t, s.Add("slow", "@every 100ms", slow))
	require.NoError(t, s.Add("fast", "@every 100ms", fast))

	s.Start()

	assert.Eventually(t, func() bool {
		return fast.runs.Load() >= 2
	}, 2*time.Second, 20*time.Millisecond)

	close(slow.release)
	s.Stop()
}
