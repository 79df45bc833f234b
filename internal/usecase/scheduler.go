package usecase

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"TrendTracker/internal/domain/models"
	drepo "TrendTracker/internal/domain/repository"
	"TrendTracker/pkg/logger"

	"github.com/go-co-op/gocron"
)

type SchedulerConfig struct {
	RefreshEnabled  bool
	RefreshInterval time.Duration
	RefreshCron     string // overrides RefreshInterval when set
	AlertsEnabled   bool
	AlertInterval   time.Duration
}

// Gate reports whether a refresh should run now.
type Gate interface {
	IsOpen(ctx context.Context) bool
}

// RefreshScheduler owns the two timers: the gated price refresh chained into
// an alert pass, and the standalone alert pass.
type RefreshScheduler struct {
	cron      *gocron.Scheduler
	cfg       SchedulerConfig
	guard     RefreshGuard
	gate      Gate
	symbols   drepo.PriceStore
	refresher *PriceRefresher
	evaluator *AlertEvaluator
	metrics   drepo.Metrics
	log       *logger.Logger

	cycles  atomic.Int64
	dropped atomic.Int64

	mu       sync.RWMutex
	lastRef  *models.RefreshReport
	lastEval *models.EvaluationReport
	baseCtx  context.Context
	stopped  bool

	wg sync.WaitGroup
}

func NewRefreshScheduler(
	cfg SchedulerConfig,
	gate Gate,
	symbols drepo.PriceStore,
	refresher *PriceRefresher,
	evaluator *AlertEvaluator,
	metrics drepo.Metrics,
	log *logger.Logger,
) *RefreshScheduler {
	cron := gocron.NewScheduler(time.UTC)
	// Jobs fire on their first tick, never at registration.
	cron.WaitForScheduleAll()
	return &RefreshScheduler{
		cron:      cron,
		cfg:       cfg,
		gate:      gate,
		symbols:   symbols,
		refresher: refresher,
		evaluator: evaluator,
		metrics:   metrics,
		log:       log.Named("scheduler"),
		baseCtx:   context.Background(),
	}
}

// Start registers the jobs and runs them in the background. ctx is the
// root context handed to every job and to manual checks.
func (s *RefreshScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()

	if s.cfg.RefreshEnabled {
		var job *gocron.Scheduler
		if s.cfg.RefreshCron != "" {
			job = s.cron.Cron(s.cfg.RefreshCron)
		} else {
			job = s.cron.Every(s.cfg.RefreshInterval)
		}
		if _, err := job.Tag("refresh").Do(func() { s.RunRefreshCycle(ctx) }); err != nil {
			return fmt.Errorf("schedule refresh: %w", err)
		}
	}

	if s.cfg.AlertsEnabled {
		if _, err := s.cron.Every(s.cfg.AlertInterval).Tag("alerts").Do(func() { s.RunAlertCheck(ctx) }); err != nil {
			return fmt.Errorf("schedule alert check: %w", err)
		}
	}

	s.cron.StartAsync()
	s.log.Info("scheduler started",
		logger.Bool("refresh", s.cfg.RefreshEnabled),
		logger.String("refresh_cron", s.cfg.RefreshCron),
		logger.Duration("refresh_interval_ms", s.cfg.RefreshInterval),
		logger.Bool("alerts", s.cfg.AlertsEnabled),
		logger.Duration("alert_interval_ms", s.cfg.AlertInterval),
	)
	return nil
}

// Stop halts the timers and waits for manual checks to finish.
func (s *RefreshScheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	s.cron.Stop()
	s.wg.Wait()
	s.log.Info("scheduler stopped")
}

// RunRefreshCycle is one firing of the refresh timer. It is a no-op while
// another cycle is still running.
func (s *RefreshScheduler) RunRefreshCycle(ctx context.Context) {
	if !s.guard.TryStart() {
		s.dropped.Add(1)
		s.metrics.RecordCycle("refresh", "dropped")
		s.log.Info("refresh already in progress, skipping")
		return
	}
	s.metrics.SetRefreshing(true)
	defer func() {
		s.metrics.SetRefreshing(false)
		s.guard.Finish()
	}()
	defer s.recoverCycle("refresh")

	s.cycles.Add(1)
	start := time.Now()

	if !s.gate.IsOpen(ctx) {
		s.metrics.RecordCycle("refresh", "market_closed")
		s.log.Info("market closed, skipping refresh")
		return
	}

	symbols, err := s.symbols.RefreshSymbols(ctx)
	if err != nil {
		s.metrics.RecordCycle("refresh", "error")
		s.log.Error("load refresh symbols failed", logger.Error(err))
		return
	}

	if len(symbols) > 0 {
		rep := s.refresher.Refresh(ctx, symbols)
		s.setLastRefresh(rep)
		s.log.Info("refresh complete",
			logger.Bool("complete", rep.Complete()),
			logger.Int("total", rep.Total),
			logger.Int("updated", len(rep.Updated)),
			logger.Int("not_found", len(rep.NotFound)),
			logger.Int("failed", len(rep.Failed)),
			logger.Int("pending", len(rep.Pending)),
			logger.Int("rate_limit_hits", rep.RateLimitHits),
			logger.Duration("duration_ms", time.Since(start)),
		)
	} else {
		s.log.Info("no symbols to refresh")
	}

	s.evaluate(ctx, "refresh")
	s.metrics.RecordCycle("refresh", "ok")
	s.metrics.RecordLatency("refresh_cycle", time.Since(start).Seconds())
}

// RunAlertCheck is one firing of the alert timer.
func (s *RefreshScheduler) RunAlertCheck(ctx context.Context) {
	defer s.recoverCycle("alerts")
	s.evaluate(ctx, "alerts")
}

// CheckNow starts an alert pass detached from the caller and returns
// immediately. It does not take the refresh guard and is ignored once Stop
// has been called.
func (s *RefreshScheduler) CheckNow() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		s.log.Warn("scheduler stopped, ignoring manual alert check")
		return
	}
	ctx := s.baseCtx
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer s.recoverCycle("manual")
		s.evaluate(ctx, "manual")
	}()
}

func (s *RefreshScheduler) evaluate(ctx context.Context, kind string) {
	start := time.Now()
	rep, err := s.evaluator.Evaluate(ctx)
	if err != nil {
		s.metrics.RecordCycle("alerts_"+kind, "error")
		s.log.Error("alert check failed", logger.String("trigger", kind), logger.Error(err))
		return
	}
	s.setLastEvaluation(rep)
	s.metrics.RecordCycle("alerts_"+kind, "ok")
	s.metrics.RecordLatency("alert_check", time.Since(start).Seconds())
}

func (s *RefreshScheduler) recoverCycle(kind string) {
	if r := recover(); r != nil {
		s.metrics.RecordCycle(kind, "panic")
		s.log.Error("cycle panicked",
			logger.String("kind", kind),
			logger.Any("panic", r),
			logger.String("stack", string(debug.Stack())),
		)
	}
}

func (s *RefreshScheduler) setLastRefresh(rep *models.RefreshReport) {
	s.mu.Lock()
	s.lastRef = rep
	s.mu.Unlock()
}

func (s *RefreshScheduler) setLastEvaluation(rep *models.EvaluationReport) {
	s.mu.Lock()
	s.lastEval = rep
	s.mu.Unlock()
}

func (s *RefreshScheduler) Status() models.SchedulerStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.SchedulerStatus{
		Refreshing:     s.guard.Running(),
		Cycles:         s.cycles.Load(),
		Dropped:        s.dropped.Load(),
		LastRefresh:    s.lastRef,
		LastEvaluation: s.lastEval,
	}
}
