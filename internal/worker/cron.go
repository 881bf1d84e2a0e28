package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"travel-booking/internal/usecase"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ReconcileScheduler runs the trip reconciler on a cron spec.
type ReconcileScheduler struct {
	cron       *cron.Cron
	spec       string
	reconciler usecase.ReconcileService
	log        *zap.Logger

	mu      sync.Mutex
	ctx     context.Context
	lastRun time.Time
	last    usecase.ReconcileReport
	lastErr error
}

func NewReconcileScheduler(spec string, reconciler usecase.ReconcileService, log *zap.Logger) *ReconcileScheduler {
	log = log.With(zap.String("worker", "reconcile"))

	c := cron.New(cron.WithChain(
		cron.Recover(cron.PrintfLogger(zap.NewStdLog(log))),
		cron.SkipIfStillRunning(cron.PrintfLogger(zap.NewStdLog(log))),
	))

	return &ReconcileScheduler{
		cron:       c,
		spec:       spec,
		reconciler: reconciler,
		log:        log,
		ctx:        context.Background(),
	}
}

// Start schedules the job. An empty spec disables it.
func (s *ReconcileScheduler) Start(ctx context.Context) error {
	if s.spec == "" {
		s.log.Info("Trip reconciliation disabled")
		return nil
	}

	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	if _, err := s.cron.AddFunc(s.spec, s.run); err != nil {
		return fmt.Errorf("schedule trip reconciliation %q: %w", s.spec, err)
	}

	s.cron.Start()
	s.log.Info("Trip reconciliation scheduled", zap.String("spec", s.spec))
	return nil
}

// Stop waits for a running job to finish.
func (s *ReconcileScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("Trip reconciliation stopped")
}

// RunNow runs one reconciliation synchronously.
func (s *ReconcileScheduler) RunNow(ctx context.Context) (usecase.ReconcileReport, error) {
	start := time.Now()
	report, err := s.reconciler.ReconcileTrips(ctx)

	s.mu.Lock()
	s.lastRun, s.last, s.lastErr = start, report, err
	s.mu.Unlock()

	if err != nil {
		s.log.Error("Trip reconciliation failed", zap.Error(err), zap.Duration("took", time.Since(start)))
		return report, err
	}
	s.log.Debug("Trip reconciliation done", zap.Duration("took", time.Since(start)))
	return report, nil
}

// LastRun returns the outcome of the most recent run; the time is zero before the first.
func (s *ReconcileScheduler) LastRun() (time.Time, usecase.ReconcileReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun, s.last, s.lastErr
}

func (s *ReconcileScheduler) run() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	if ctx.Err() != nil {
		return
	}
	_, _ = s.RunNow(ctx)
}
