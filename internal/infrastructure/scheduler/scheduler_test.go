package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name string
	runs atomic.Int32
	err  error
}

func (j *countingJob) Name() string        { return j.name }
func (j *countingJob) Description() string { return "test job" }
func (j *countingJob) Run(context.Context) error {
	j.runs.Add(1)
	return j.err
}

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s, err := New(Config{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.NoError(t, err)
	return s
}

func TestRegisterRejectsDuplicatesAndEmpty(t *testing.T) {
	s := newTestScheduler(t)
	job := &countingJob{name: "a"}

	require.NoError(t, s.Register(job, Every(time.Hour)))
	assert.ErrorIs(t, s.Register(job, Every(time.Hour)), ErrJobAlreadyExists)
	assert.ErrorIs(t, s.Register(nil, Every(time.Hour)), ErrNilJob)
	assert.ErrorIs(t, s.Register(&countingJob{name: "b"}, Schedule{}), ErrNilSchedule)
}

func TestRegisterRejectsBadCrontab(t *testing.T) {
	s := newTestScheduler(t)
	assert.Error(t, s.Register(&countingJob{name: "bad"}, Cron("not a crontab")))
}

func TestRunNowRecordsHistory(t *testing.T) {
	s := newTestScheduler(t)
	ok := &countingJob{name: "ok"}
	boom := &countingJob{name: "boom", err: errors.New("boom")}
	require.NoError(t, s.Register(ok, Every(time.Hour)))
	require.NoError(t, s.Register(boom, Cron(EveryHour)))

	var failed string
	s.OnJobError(func(name string, _ error) { failed = name })

	res, err := s.RunNow(context.Background(), "ok")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.Manual)

	_, err = s.RunNow(context.Background(), "boom")
	assert.EqualError(t, err, "boom")
	assert.Equal(t, "boom", failed)

	_, err = s.RunNow(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)

	history := s.GetHistory(0)
	require.Len(t, history, 2)
	assert.Equal(t, "boom", history[1].JobName)

	infos := s.ListJobs()
	require.Len(t, infos, 2)
	assert.Equal(t, "boom", infos[0].Name)
	assert.Equal(t, EveryHour, infos[0].Schedule)
	assert.EqualValues(t, 1, infos[0].FailCount)
	assert.Equal(t, "@every 1h0m0s", infos[1].Schedule)

	snap := s.GetMetrics().Snapshot()
	assert.EqualValues(t, 2, snap.TotalExecutions)
	assert.InDelta(t, 0.5, snap.SuccessRate, 0.001)
}

func TestScheduledRunsAndStop(t *testing.T) {
	s := newTestScheduler(t)
	job := &countingJob{name: "tick"}
	require.NoError(t, s.Register(job, Every(20*time.Millisecond)))

	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrSchedulerAlreadyRunning)
	assert.True(t, s.IsRunning())

	require.Eventually(t, func() bool { return job.runs.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, s.Stop())
	assert.ErrorIs(t, s.Stop(), ErrSchedulerNotRunning)
}

func TestUnregister(t *testing.T) {
	s := newTestScheduler(t)
	require.NoError(t, s.Register(&countingJob{name: "x"}, Every(time.Hour)))
	require.NoError(t, s.Unregister("x"))
	assert.ErrorIs(t, s.Unregister("x"), ErrJobNotFound)
	assert.Empty(t, s.ListJobs())
}
