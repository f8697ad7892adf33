package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSweeper struct {
	mu       sync.Mutex
	expired  int
	retried  int
	minAge   time.Duration
	failNext bool
}

func (f *fakeSweeper) SweepExpired(ctx context.Context, limit int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expired++
	if f.failNext {
		f.failNext = false
		return 0, errors.New("db down")
	}
	return 2, nil
}

func (f *fakeSweeper) SweepUnreconciled(ctx context.Context, minAge time.Duration, limit int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retried++
	f.minAge = minAge
	return 1, nil
}

type recLog struct {
	mu     sync.Mutex
	errors []string
}

func (l *recLog) Info(string, ...any) {}
func (l *recLog) Warn(string, ...any) {}
func (l *recLog) Error(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

func TestNewSchedulesConfiguredJobs(t *testing.T) {
	sw := &fakeSweeper{}
	s, err := New(sw, Config{ExpirySweepSpec: "@every 1m", ReconcileRetrySpec: "@every 5m"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Jobs())

	s, err = New(sw, Config{ExpirySweepSpec: "@every 1m"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Jobs())

	_, err = New(sw, Config{ReconcileRetrySpec: "not a spec"}, nil)
	assert.Error(t, err)
}

func TestRunsDelegateToSweeper(t *testing.T) {
	sw := &fakeSweeper{failNext: true}
	log := &recLog{}
	s, err := New(sw, Config{ReconcileRetryMinAge: 3 * time.Minute}, log)
	require.NoError(t, err)

	assert.Equal(t, 0, s.ExpirySweep(context.Background()))
	assert.Equal(t, []string{"expiry sweep failed"}, log.errors)
	assert.Equal(t, 2, s.ExpirySweep(context.Background()))
	assert.Equal(t, 1, s.ReconcileRetry(context.Background()))

	assert.Equal(t, 2, sw.expired)
	assert.Equal(t, 1, sw.retried)
	assert.Equal(t, 3*time.Minute, sw.minAge)
}

func TestStartStop(t *testing.T) {
	sw := &fakeSweeper{}
	s, err := New(sw, Config{ExpirySweepSpec: "@every 1h"}, nil)
	require.NoError(t, err)
	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
	assert.NoError(t, ctx.Err())
}
