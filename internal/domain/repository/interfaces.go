package repository

import (
	"context"

	"TrendTracker/internal/domain/models"
)

// QuoteSource fetches a single quote. Implementations return errors wrapping
// models.ErrSymbolNotFound, models.ErrRateLimited or models.ErrTransient.
type QuoteSource interface {
	Quote(ctx context.Context, symbol string) (*models.Quote, error)
}

// MarketStatusSource answers whether an exchange is currently open.
type MarketStatusSource interface {
	MarketOpen(ctx context.Context, exchange string) (bool, error)
}

// MarketData is the full provider surface used by the service.
type MarketData interface {
	QuoteSource
	MarketStatusSource
}

type PriceStore interface {
	// RefreshSymbols returns distinct symbols referenced by watchlists or by
	// un-triggered alerts.
	RefreshSymbols(ctx context.Context) ([]string, error)
	// UpdatePrice upserts the latest price for one symbol.
	UpdatePrice(ctx context.Context, q *models.Quote) error
}

type AlertStore interface {
	// PendingAlerts returns every alert with triggered = false.
	PendingAlerts(ctx context.Context) ([]*models.Alert, error)
	// MarkTriggered flips triggered to true. It reports false when the alert
	// was already triggered by someone else.
	MarkTriggered(ctx context.Context, id int64) (bool, error)
}

// EmailSender delivers one email.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// SMSSender delivers one text message.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// QuoteHistory receives persisted quotes, one batch at a time.
type QuoteHistory interface {
	StoreBatch(ctx context.Context, quotes []*models.Quote) error
	Close() error
}

// EventPublisher publishes alert lifecycle events.
type EventPublisher interface {
	PublishAlertTriggered(ctx context.Context, ev *models.AlertTriggered) error
}

type Metrics interface {
	RecordQuoteFetch(source, result string)
	RecordPriceUpdated(symbol string, price float64)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordAlertTriggered(direction string)
	RecordNotification(channel, result string)
	RecordCycle(kind, result string)
	SetRefreshing(running bool)
}
