package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"TrendTracker/internal/domain/models"
	drepo "TrendTracker/internal/domain/repository"
	pkgkafka "TrendTracker/pkg/kafka"
)

const historySource = "finnhub"

var (
	_ drepo.QuoteHistory = (*ClickHouseQuoteHistory)(nil)
	_ drepo.QuoteHistory = (*KafkaQuoteHistory)(nil)
)

// ClickHouseQuoteHistory appends quotes to a MergeTree table.
type ClickHouseQuoteHistory struct {
	db    *sql.DB
	table string
}

func NewClickHouseQuoteHistory(db *sql.DB, table string) *ClickHouseQuoteHistory {
	return &ClickHouseQuoteHistory{db: db, table: table}
}

func (s *ClickHouseQuoteHistory) StoreBatch(ctx context.Context, quotes []*models.Quote) error {
	const chunkSize = 2000
	for start := 0; start < len(quotes); start += chunkSize {
		end := start + chunkSize
		if end > len(quotes) {
			end = len(quotes)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*6)
		for _, q := range quotes[start:end] {
			if q == nil || q.Symbol == "" {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?)")
			args = append(args,
				q.FetchedAt.UTC(),
				q.Symbol,
				q.Price.String(),
				q.DayHigh.String(),
				q.DayLow.String(),
				historySource,
			)
		}
		if len(values) == 0 {
			continue
		}
		query := fmt.Sprintf("INSERT INTO %s (ts, symbol, price, day_high, day_low, source) VALUES %s",
			s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert quote history: %w", err)
		}
	}
	return nil
}

// Close is a no-op; the pool belongs to pkg/clickhouse.Client.
func (s *ClickHouseQuoteHistory) Close() error { return nil }

type quoteRecord struct {
	Symbol  string `json:"symbol"`
	TS      int64  `json:"t"`
	Price   string `json:"c"`
	DayHigh string `json:"h"`
	DayLow  string `json:"l"`
	Source  string `json:"source"`
}

func toRecord(q *models.Quote) quoteRecord {
	return quoteRecord{
		Symbol:  q.Symbol,
		TS:      q.FetchedAt.Unix(),
		Price:   q.Price.String(),
		DayHigh: q.DayHigh.String(),
		DayLow:  q.DayLow.String(),
		Source:  historySource,
	}
}

// KafkaQuoteHistory publishes quotes keyed by symbol so partitions keep
// per-symbol order.
type KafkaQuoteHistory struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaQuoteHistory(producer *pkgkafka.Producer, topic string) *KafkaQuoteHistory {
	return &KafkaQuoteHistory{producer: producer, topic: topic}
}

func (p *KafkaQuoteHistory) StoreBatch(ctx context.Context, quotes []*models.Quote) error {
	if len(quotes) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, 0, len(quotes))
	for _, q := range quotes {
		msgs = append(msgs, pkgkafka.Message{Key: []byte(q.Symbol), Value: toRecord(q)})
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

// Close is a no-op; the shared producer is closed by the app.
func (p *KafkaQuoteHistory) Close() error { return nil }
