package usecase

import (
	"context"
	"errors"
	"time"

	"TrendTracker/internal/domain/models"
	drepo "TrendTracker/internal/domain/repository"
	"TrendTracker/pkg/logger"

	"golang.org/x/time/rate"
)

type RefreshConfig struct {
	BatchSize           int
	CallDelay           time.Duration
	BatchDelay          time.Duration
	RateLimitCooldown   time.Duration
	MaxRateLimitRetries int // 0 retries forever
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// PriceRefresher pulls quotes for a symbol list in fixed-size batches while
// staying under the provider's call budget.
type PriceRefresher struct {
	quotes   drepo.QuoteSource
	store    drepo.PriceStore
	recorder *QuoteRecorder
	metrics  drepo.Metrics
	log      *logger.Logger
	cfg      RefreshConfig
	limiter  *rate.Limiter
	sleep    SleepFunc
}

type RefresherOption func(*PriceRefresher)

// WithSleep replaces the cooldown and inter-batch sleeper.
func WithSleep(fn SleepFunc) RefresherOption {
	return func(r *PriceRefresher) { r.sleep = fn }
}

func NewPriceRefresher(
	quotes drepo.QuoteSource,
	store drepo.PriceStore,
	recorder *QuoteRecorder,
	metrics drepo.Metrics,
	log *logger.Logger,
	cfg RefreshConfig,
	opts ...RefresherOption,
) *PriceRefresher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 25
	}
	limit := rate.Inf
	if cfg.CallDelay > 0 {
		limit = rate.Every(cfg.CallDelay)
	}
	r := &PriceRefresher{
		quotes:   quotes,
		store:    store,
		recorder: recorder,
		metrics:  metrics,
		log:      log.Named("refresher"),
		cfg:      cfg,
		limiter:  rate.NewLimiter(limit, 1),
		sleep:    sleepCtx,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Refresh updates every symbol once. Per-symbol failures are recorded in the
// report; symbols that could not be attempted end up in Pending.
func (r *PriceRefresher) Refresh(ctx context.Context, symbols []string) *models.RefreshReport {
	symbols = models.DedupSymbols(symbols)
	rep := &models.RefreshReport{Total: len(symbols), StartedAt: time.Now().UTC()}
	defer func() { rep.FinishedAt = time.Now().UTC() }()

	size := r.cfg.BatchSize
	batch := make([]*models.Quote, 0, size)

	for i := 0; i < len(symbols); i++ {
		if i%size == 0 {
			if i > 0 {
				r.flushHistory(ctx, batch)
				batch = batch[:0]
				r.log.Info("batch complete, pausing",
					logger.Int("batch", rep.Batches),
					logger.Duration("pause_ms", r.cfg.BatchDelay),
				)
				if err := r.sleep(ctx, r.cfg.BatchDelay); err != nil {
					rep.Pending = append(rep.Pending, symbols[i:]...)
					r.log.Warn("refresh interrupted between batches", logger.Int("pending", len(rep.Pending)))
					return rep
				}
			}
			rep.Batches++
		}

		q, stop := r.refreshOne(ctx, symbols[i], rep)
		if stop {
			r.flushHistory(ctx, batch)
			rep.Pending = append(rep.Pending, symbols[i:]...)
			r.log.Warn("refresh cycle ended early",
				logger.String("symbol", symbols[i]),
				logger.Int("pending", len(rep.Pending)),
			)
			return rep
		}
		if q != nil {
			batch = append(batch, q)
		}
	}
	r.flushHistory(ctx, batch)
	return rep
}

// refreshOne fetches and persists one symbol. stop means the cycle must end
// with this symbol unprocessed.
func (r *PriceRefresher) refreshOne(ctx context.Context, symbol string, rep *models.RefreshReport) (*models.Quote, bool) {
	retries := 0
	for {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, true
		}

		start := time.Now()
		q, err := r.quotes.Quote(ctx, symbol)
		r.metrics.RecordLatency("quote_fetch", time.Since(start).Seconds())

		switch {
		case err == nil:
			r.metrics.RecordQuoteFetch("refresh", "ok")
			if err := r.store.UpdatePrice(ctx, q); err != nil {
				r.metrics.RecordError("persist")
				r.log.Error("price update failed", logger.String("symbol", symbol), logger.Error(err))
				rep.Failed = append(rep.Failed, symbol)
				return nil, false
			}
			r.metrics.RecordPriceUpdated(symbol, q.Price.InexactFloat64())
			r.log.Debug("price updated", logger.String("symbol", symbol), logger.Stringer("price", q.Price))
			rep.Updated = append(rep.Updated, symbol)
			return q, false

		case errors.Is(err, models.ErrRateLimited):
			r.metrics.RecordQuoteFetch("refresh", "rate_limited")
			rep.RateLimitHits++
			retries++
			if r.cfg.MaxRateLimitRetries > 0 && retries > r.cfg.MaxRateLimitRetries {
				r.log.Warn("rate limit retries exhausted",
					logger.String("symbol", symbol),
					logger.Int("retries", retries-1),
				)
				return nil, true
			}
			r.log.Warn("rate limited, cooling down",
				logger.String("symbol", symbol),
				logger.Duration("cooldown_ms", r.cfg.RateLimitCooldown),
			)
			if err := r.sleep(ctx, r.cfg.RateLimitCooldown); err != nil {
				return nil, true
			}

		case errors.Is(err, models.ErrSymbolNotFound):
			r.metrics.RecordQuoteFetch("refresh", "not_found")
			r.log.Warn("no quote data for symbol", logger.String("symbol", symbol))
			rep.NotFound = append(rep.NotFound, symbol)
			return nil, false

		default:
			if ctx.Err() != nil {
				return nil, true
			}
			r.metrics.RecordQuoteFetch("refresh", "error")
			r.log.Error("quote fetch failed", logger.String("symbol", symbol), logger.Error(err))
			rep.Failed = append(rep.Failed, symbol)
			return nil, false
		}
	}
}

func (r *PriceRefresher) flushHistory(ctx context.Context, quotes []*models.Quote) {
	if len(quotes) == 0 {
		return
	}
	_ = r.recorder.RecordBatch(ctx, quotes)
}
