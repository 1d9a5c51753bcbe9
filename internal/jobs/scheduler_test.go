package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contentgate/api/internal/config"
)

type countingJob struct {
	calls atomic.Int32
	err   error
}

func (j *countingJob) ExpireSweep(context.Context) (int64, error) {
	j.calls.Add(1)
	return 1, j.err
}

func (j *countingJob) PurgeExpired(context.Context) (int64, error) {
	j.calls.Add(1)
	return 2, j.err
}

func TestSchedulerRunsJobs(t *testing.T) {
	sweeper := &countingJob{}
	purger := &countingJob{}
	s := NewScheduler(config.JobsConfig{
		Enabled:    true,
		ExpireSpec: "* * * * * *",
		PurgeSpec:  "* * * * * *",
	}, sweeper, purger, zerolog.Nop())

	require.NoError(t, s.Start())
	defer s.Stop(time.Second)

	assert.Eventually(t, func() bool {
		return sweeper.calls.Load() > 0 && purger.calls.Load() > 0
	}, 3*time.Second, 50*time.Millisecond)
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	s := NewScheduler(config.JobsConfig{Enabled: true, ExpireSpec: "every minute", PurgeSpec: "0 0 * * * *"}, &countingJob{}, &countingJob{}, zerolog.Nop())

	err := s.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expire sweep")
}

func TestSchedulerDisabled(t *testing.T) {
	sweeper := &countingJob{}
	s := NewScheduler(config.JobsConfig{Enabled: false, ExpireSpec: "* * * * * *"}, sweeper, nil, zerolog.Nop())

	require.NoError(t, s.Start())
	s.Stop(time.Second)
	assert.Zero(t, sweeper.calls.Load())
}

func TestJobFailuresAreContained(t *testing.T) {
	failing := &countingJob{err: errors.New("db down")}
	s := NewScheduler(config.JobsConfig{}, failing, failing, zerolog.Nop())

	assert.NotPanics(t, s.runExpireSweep)
	assert.NotPanics(t, s.runCredentialPurge)
	assert.Equal(t, int32(2), failing.calls.Load())
}
