package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"TrendTracker/internal/domain/models"
	"TrendTracker/pkg/logger"

	"github.com/shopspring/decimal"
)

var testLog = logger.Nop()

type nopMetrics struct{}

func (nopMetrics) RecordQuoteFetch(string, string)    {}
func (nopMetrics) RecordPriceUpdated(string, float64) {}
func (nopMetrics) RecordError(string)                 {}
func (nopMetrics) RecordLatency(string, float64)      {}
func (nopMetrics) RecordAlertTriggered(string)        {}
func (nopMetrics) RecordNotification(string, string)  {}
func (nopMetrics) RecordCycle(string, string)         {}
func (nopMetrics) SetRefreshing(bool)                 {}

// scriptedQuotes answers from a per-symbol script of errors; once the script
// is exhausted it returns the configured price.
type scriptedQuotes struct {
	mu     sync.Mutex
	prices map[string]string
	script map[string][]error
	always map[string]error
	calls  []string
	block  chan struct{}
}

func newScriptedQuotes(prices map[string]string) *scriptedQuotes {
	return &scriptedQuotes{
		prices: prices,
		script: map[string][]error{},
		always: map[string]error{},
	}
}

func (s *scriptedQuotes) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, symbol)

	if err, ok := s.always[symbol]; ok {
		return nil, err
	}
	if errs := s.script[symbol]; len(errs) > 0 {
		s.script[symbol] = errs[1:]
		return nil, errs[0]
	}
	p, ok := s.prices[symbol]
	if !ok {
		return nil, models.ErrSymbolNotFound
	}
	price := decimal.RequireFromString(p)
	return &models.Quote{Symbol: symbol, Price: price, DayHigh: price, DayLow: price}, nil
}

func (s *scriptedQuotes) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *scriptedQuotes) CallCount(symbol string) int {
	n := 0
	for _, c := range s.Calls() {
		if c == symbol {
			n++
		}
	}
	return n
}

// memStore is an in-memory PriceStore and AlertStore.
type memStore struct {
	mu        sync.Mutex
	symbols   []string
	symErr    error
	prices    map[string]decimal.Decimal
	failWrite map[string]bool
	alerts    []*models.Alert
	alertsErr error
}

func newMemStore() *memStore {
	return &memStore{prices: map[string]decimal.Decimal{}, failWrite: map[string]bool{}}
}

func (m *memStore) RefreshSymbols(context.Context) ([]string, error) {
	return m.symbols, m.symErr
}

func (m *memStore) UpdatePrice(_ context.Context, q *models.Quote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite[q.Symbol] {
		return errors.New("disk full")
	}
	m.prices[q.Symbol] = q.Price
	return nil
}

func (m *memStore) PendingAlerts(context.Context) ([]*models.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.alertsErr != nil {
		return nil, m.alertsErr
	}
	var out []*models.Alert
	for _, a := range m.alerts {
		if !a.Triggered {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) MarkTriggered(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.alerts {
		if a.ID == id {
			if a.Triggered {
				return false, nil
			}
			a.Triggered = true
			return true, nil
		}
	}
	return false, nil
}

type sentMessage struct {
	To, Subject, Body string
}

type fakeEmail struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (f *fakeEmail) SendEmail(_ context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMessage{To: to, Subject: subject, Body: body})
	return nil
}

func (f *fakeEmail) Sent() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

type fakeSMS struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (f *fakeSMS) SendSMS(_ context.Context, to, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMessage{To: to, Body: body})
	return nil
}

type fakeHistory struct {
	mu      sync.Mutex
	batches [][]string
	err     error
}

func (f *fakeHistory) StoreBatch(_ context.Context, quotes []*models.Quote) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var syms []string
	for _, q := range quotes {
		syms = append(syms, q.Symbol)
	}
	f.batches = append(f.batches, syms)
	return f.err
}

func (f *fakeHistory) Close() error { return nil }

type fakeEvents struct {
	mu     sync.Mutex
	events []*models.AlertTriggered
}

func (f *fakeEvents) PublishAlertTriggered(_ context.Context, ev *models.AlertTriggered) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

// sleepRecorder records requested sleeps without blocking.
type sleepRecorder struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (r *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.sleeps = append(r.sleeps, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *sleepRecorder) Sleeps() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.sleeps...)
}
