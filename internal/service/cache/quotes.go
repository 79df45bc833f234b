package cache

import (
	"context"
	"encoding/json"
	"time"

	"TrendTracker/internal/domain/models"
	drepo "TrendTracker/internal/domain/repository"
	"TrendTracker/pkg/logger"
)

// QuoteSource serves quotes from a BytesCache and falls through to the
// wrapped source on a miss. Only successful fetches are cached.
type QuoteSource struct {
	next drepo.QuoteSource
	c    BytesCache
	ttl  time.Duration
	log  *logger.Logger
}

func NewQuoteSource(next drepo.QuoteSource, c BytesCache, ttl time.Duration, log *logger.Logger) *QuoteSource {
	if log == nil {
		log = logger.Nop()
	}
	return &QuoteSource{next: next, c: c, ttl: ttl, log: log}
}

func quoteKey(symbol string) string { return "quote:" + symbol }

func (s *QuoteSource) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	symbol = models.NormalizeSymbol(symbol)
	key := quoteKey(symbol)

	if b, ok, err := s.c.GetBytes(ctx, key); err != nil {
		s.log.Warn("quote cache read failed", logger.String("symbol", symbol), logger.Error(err))
	} else if ok {
		var q models.Quote
		if err := json.Unmarshal(b, &q); err == nil {
			return &q, nil
		}
	}

	q, err := s.next.Quote(ctx, symbol)
	if err != nil {
		return nil, err
	}

	if b, err := json.Marshal(q); err == nil {
		if err := s.c.SetBytes(ctx, key, b, s.ttl); err != nil {
			s.log.Warn("quote cache write failed", logger.String("symbol", symbol), logger.Error(err))
		}
	}
	return q, nil
}
