package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"travel-booking/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingReconciler struct {
	calls int32
	err   error
}

func (c *countingReconciler) ReconcileTrips(ctx context.Context) (usecase.ReconcileReport, error) {
	n := atomic.AddInt32(&c.calls, 1)
	return usecase.ReconcileReport{Checked: int(n)}, c.err
}

func TestReconcileScheduler_RunNow(t *testing.T) {
	rec := &countingReconciler{}
	s := NewReconcileScheduler("@every 1h", rec, zap.NewNop())

	report, err := s.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Checked)

	at, last, lastErr := s.LastRun()
	assert.False(t, at.IsZero())
	assert.Equal(t, report, last)
	assert.NoError(t, lastErr)
}

func TestReconcileScheduler_RunNowError(t *testing.T) {
	boom := errors.New("db down")
	s := NewReconcileScheduler("", &countingReconciler{err: boom}, zap.NewNop())

	_, err := s.RunNow(context.Background())
	assert.ErrorIs(t, err, boom)

	_, _, lastErr := s.LastRun()
	assert.ErrorIs(t, lastErr, boom)
}

func TestReconcileScheduler_Schedules(t *testing.T) {
	rec := &countingReconciler{}
	s := NewReconcileScheduler("@every 1s", rec, zap.NewNop())

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&rec.calls) > 0
	}, 3*time.Second, 50*time.Millisecond)
}

func TestReconcileScheduler_InvalidSpec(t *testing.T) {
	s := NewReconcileScheduler("not a spec", &countingReconciler{}, zap.NewNop())
	assert.Error(t, s.Start(context.Background()))
}

func TestReconcileScheduler_DisabledWithEmptySpec(t *testing.T) {
	rec := &countingReconciler{}
	s := NewReconcileScheduler("", rec, zap.NewNop())

	require.NoError(t, s.Start(context.Background()))
	s.Stop()
	assert.Zero(t, atomic.LoadInt32(&rec.calls))
}
