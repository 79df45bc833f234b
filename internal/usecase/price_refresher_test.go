package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"TrendTracker/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRefreshCfg = RefreshConfig{
	BatchSize:         2,
	BatchDelay:        time.Minute,
	RateLimitCooldown: 30 * time.Second,
}

func newTestRefresher(q *scriptedQuotes, store *memStore, cfg RefreshConfig, sleeper *sleepRecorder, hist *fakeHistory) *PriceRefresher {
	var rec *QuoteRecorder
	if hist != nil {
		rec = NewQuoteRecorder(hist, nopMetrics{}, HistoryKafka, testLog)
	}
	return NewPriceRefresher(q, store, rec, nopMetrics{}, testLog, cfg, WithSleep(sleeper.Sleep))
}

func TestRefreshBatchesWithPauseBetweenBatchesOnly(t *testing.T) {
	q := newScriptedQuotes(map[string]string{"AAPL": "1", "MSFT": "2", "TSLA": "3", "IBM": "4", "NVDA": "5"})
	store := newMemStore()
	sleeper := &sleepRecorder{}
	hist := &fakeHistory{}

	rep := newTestRefresher(q, store, testRefreshCfg, sleeper, hist).
		Refresh(context.Background(), []string{"AAPL", "msft", "aapl ", "TSLA", "IBM", "NVDA"})

	assert.Equal(t, 5, rep.Total)
	assert.Equal(t, 3, rep.Batches)
	assert.Equal(t, []string{"AAPL", "MSFT", "TSLA", "IBM", "NVDA"}, rep.Updated)
	assert.True(t, rep.Complete())
	assert.Equal(t, []string{"AAPL", "MSFT", "TSLA", "IBM", "NVDA"}, q.Calls())
	assert.Equal(t, []time.Duration{time.Minute, time.Minute}, sleeper.Sleeps())
	assert.Equal(t, [][]string{{"AAPL", "MSFT"}, {"TSLA", "IBM"}, {"NVDA"}}, hist.batches)
	assert.Len(t, store.prices, 5)
}

func TestRefreshSingleBatchDoesNotSleep(t *testing.T) {
	q := newScriptedQuotes(map[string]string{"AAPL": "1", "MSFT": "2"})
	sleeper := &sleepRecorder{}

	rep := newTestRefresher(q, newMemStore(), testRefreshCfg, sleeper, nil).
		Refresh(context.Background(), []string{"AAPL", "MSFT"})

	assert.Equal(t, 1, rep.Batches)
	assert.Empty(t, sleeper.Sleeps())
}

func TestRefreshRetriesRateLimitedSymbol(t *testing.T) {
	q := newScriptedQuotes(map[string]string{"AAPL": "1", "MSFT": "2", "TSLA": "3"})
	q.script["MSFT"] = []error{
		fmt.Errorf("quote MSFT: %w", models.ErrRateLimited),
		fmt.Errorf("quote MSFT: %w", models.ErrRateLimited),
	}
	sleeper := &sleepRecorder{}
	cfg := testRefreshCfg
	cfg.BatchSize = 25

	rep := newTestRefresher(q, newMemStore(), cfg, sleeper, nil).
		Refresh(context.Background(), []string{"AAPL", "MSFT", "TSLA"})

	assert.Equal(t, []string{"AAPL", "MSFT", "TSLA"}, rep.Updated)
	assert.Equal(t, 2, rep.RateLimitHits)
	assert.Equal(t, []string{"AAPL", "MSFT", "MSFT", "MSFT", "TSLA"}, q.Calls())
	assert.Equal(t, []time.Duration{30 * time.Second, 30 * time.Second}, sleeper.Sleeps())
}

func TestRefreshRetryCapLeavesRestPending(t *testing.T) {
	q := newScriptedQuotes(map[string]string{"AAPL": "1", "TSLA": "3", "IBM": "4"})
	q.always["MSFT"] = models.ErrRateLimited
	cfg := testRefreshCfg
	cfg.MaxRateLimitRetries = 1

	rep := newTestRefresher(q, newMemStore(), cfg, &sleepRecorder{}, nil).
		Refresh(context.Background(), []string{"AAPL", "MSFT", "TSLA", "IBM"})

	assert.Equal(t, []string{"AAPL"}, rep.Updated)
	assert.Equal(t, []string{"MSFT", "TSLA", "IBM"}, rep.Pending)
	assert.False(t, rep.Complete())
	assert.Equal(t, 2, q.CallCount("MSFT"))
	assert.Equal(t, 0, q.CallCount("TSLA"))
}

func TestRefreshContinuesPastNotFoundAndTransient(t *testing.T) {
	q := newScriptedQuotes(map[string]string{"AAPL": "1", "IBM": "4"})
	q.always["MSFT"] = fmt.Errorf("quote MSFT: %w: status 502", models.ErrTransient)
	store := newMemStore()
	store.failWrite["IBM"] = true
	cfg := testRefreshCfg
	cfg.BatchSize = 10

	rep := newTestRefresher(q, store, cfg, &sleepRecorder{}, nil).
		Refresh(context.Background(), []string{"AAPL", "ZZZZ", "MSFT", "IBM"})

	assert.Equal(t, []string{"AAPL"}, rep.Updated)
	assert.Equal(t, []string{"ZZZZ"}, rep.NotFound)
	assert.Equal(t, []string{"MSFT", "IBM"}, rep.Failed)
	assert.Empty(t, rep.Pending)
}

func TestRefreshCancelledDuringBatchPause(t *testing.T) {
	q := newScriptedQuotes(map[string]string{"AAPL": "1", "MSFT": "2", "TSLA": "3"})
	ctx, cancel := context.WithCancel(context.Background())

	sleep := func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}
	r := NewPriceRefresher(q, newMemStore(), nil, nopMetrics{}, testLog, testRefreshCfg, WithSleep(sleep))

	rep := r.Refresh(ctx, []string{"AAPL", "MSFT", "TSLA"})
	assert.Equal(t, []string{"AAPL", "MSFT"}, rep.Updated)
	assert.Equal(t, []string{"TSLA"}, rep.Pending)
}

func TestRefreshPacesCalls(t *testing.T) {
	q := newScriptedQuotes(map[string]string{"AAPL": "1", "MSFT": "2", "TSLA": "3"})
	cfg := testRefreshCfg
	cfg.BatchSize = 10
	cfg.CallDelay = 25 * time.Millisecond

	start := time.Now()
	rep := NewPriceRefresher(q, newMemStore(), nil, nopMetrics{}, testLog, cfg).
		Refresh(context.Background(), []string{"AAPL", "MSFT", "TSLA"})

	require.Len(t, rep.Updated, 3)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestRefreshEmptyInput(t *testing.T) {
	q := newScriptedQuotes(nil)
	rep := newTestRefresher(q, newMemStore(), testRefreshCfg, &sleepRecorder{}, nil).
		Refresh(context.Background(), nil)

	assert.Equal(t, 0, rep.Total)
	assert.Equal(t, 0, rep.Batches)
	assert.Empty(t, q.Calls())
}

func TestSleepCtx(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, sleepCtx(ctx, time.Hour))
	assert.NoError(t, sleepCtx(context.Background(), time.Millisecond))
}
