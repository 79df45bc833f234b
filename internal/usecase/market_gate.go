package usecase

import (
	"context"
	"time"

	drepo "TrendTracker/internal/domain/repository"
	"TrendTracker/internal/service/cache"
	"TrendTracker/pkg/logger"
)

// MarketGate decides whether a refresh cycle should run. It fails closed:
// any provider error reads as "market closed".
type MarketGate struct {
	src      drepo.MarketStatusSource
	exchange string
	cache    cache.BytesCache
	ttl      time.Duration
	metrics  drepo.Metrics
	log      *logger.Logger
}

// NewMarketGate creates a gate. Answers are cached only when c is non-nil
// and ttl is positive.
func NewMarketGate(src drepo.MarketStatusSource, exchange string, c cache.BytesCache, ttl time.Duration, metrics drepo.Metrics, log *logger.Logger) *MarketGate {
	if exchange == "" {
		exchange = "US"
	}
	return &MarketGate{src: src, exchange: exchange, cache: c, ttl: ttl, metrics: metrics, log: log.Named("market_gate")}
}

func (g *MarketGate) cacheKey() string { return "market_status:" + g.exchange }

func (g *MarketGate) IsOpen(ctx context.Context) bool {
	if g.cache != nil && g.ttl > 0 {
		if b, ok, err := g.cache.GetBytes(ctx, g.cacheKey()); err == nil && ok && len(b) == 1 {
			return b[0] == '1'
		}
	}

	open, err := g.src.MarketOpen(ctx, g.exchange)
	if err != nil {
		g.metrics.RecordError("market_status")
		g.log.Error("market status check failed, treating market as closed",
			logger.String("exchange", g.exchange),
			logger.Error(err),
		)
		return false
	}

	if g.cache != nil && g.ttl > 0 {
		v := []byte{'0'}
		if open {
			v[0] = '1'
		}
		if err := g.cache.SetBytes(ctx, g.cacheKey(), v, g.ttl); err != nil {
			g.log.Warn("market status cache write failed", logger.Error(err))
		}
	}
	return open
}
