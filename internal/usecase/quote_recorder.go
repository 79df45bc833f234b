package usecase

import (
	"context"
	"fmt"
	"time"

	"TrendTracker/internal/domain/models"
	drepo "TrendTracker/internal/domain/repository"
	"TrendTracker/pkg/logger"
)

const (
	HistoryNone       = "none"
	HistoryKafka      = "kafka"
	HistoryClickHouse = "clickhouse"
)

// QuoteRecorder forwards persisted quotes to the configured history backend.
// Failures are counted and logged; they never fail a refresh.
type QuoteRecorder struct {
	history drepo.QuoteHistory
	metrics drepo.Metrics
	backend string
	log     *logger.Logger
}

// NewQuoteRecorder creates a recorder. A nil history or backend "none"
// makes it a no-op.
func NewQuoteRecorder(history drepo.QuoteHistory, metrics drepo.Metrics, backend string, log *logger.Logger) *QuoteRecorder {
	if backend == "" {
		backend = HistoryNone
	}
	return &QuoteRecorder{history: history, metrics: metrics, backend: backend, log: log.Named("history")}
}

func (r *QuoteRecorder) Enabled() bool {
	return r != nil && r.history != nil && r.backend != HistoryNone
}

// RecordBatch stores a batch of quotes.
func (r *QuoteRecorder) RecordBatch(ctx context.Context, quotes []*models.Quote) error {
	if !r.Enabled() || len(quotes) == 0 {
		return nil
	}

	start := time.Now()
	if err := r.history.StoreBatch(ctx, quotes); err != nil {
		r.metrics.RecordError("history")
		r.log.Error("quote history write failed",
			logger.String("backend", r.backend),
			logger.Int("quotes", len(quotes)),
			logger.Error(err),
		)
		return fmt.Errorf("record history: %w", err)
	}

	r.metrics.RecordLatency("history_"+r.backend, time.Since(start).Seconds())
	return nil
}

// Close closes the backend if one is configured.
func (r *QuoteRecorder) Close() {
	if r.Enabled() {
		_ = r.history.Close()
	}
}
