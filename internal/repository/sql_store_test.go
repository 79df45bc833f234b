package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"TrendTracker/internal/domain/models"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	ctx := context.Background()
	db, err := OpenDB(ctx, DBConfig{Driver: "sqlite3", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, InitSQLiteSchema(ctx, db))

	db.MustExec(`INSERT INTO users (id, email, phone) VALUES (1, 'a@example.com', '+15550001111'), (2, 'b@example.com', NULL)`)
	db.MustExec(`INSERT INTO stocks (stockid, symbol, currentprice) VALUES (10, 'AAPL', 140), (11, 'MSFT', 300), (12, 'TSLA', 200), (13, 'IBM', 100)`)
	db.MustExec(`INSERT INTO watchlist (user_id, stock_id) VALUES (1, 11), (2, 11)`)
	db.MustExec(`INSERT INTO alerts (id, user_id, stock_id, target_price, direction, triggered, alert_method) VALUES
		(1, 1, 10, 150, 'up', FALSE, 'both'),
		(2, 2, 10, 100, 'down', FALSE, NULL),
		(3, 1, 12, 250, 'up', TRUE, 'email')`)
	return db
}

func TestRefreshSymbols(t *testing.T) {
	store := NewSQLStore(newTestDB(t))

	symbols, err := store.RefreshSymbols(context.Background())
	require.NoError(t, err)
	// TSLA only has a triggered alert; IBM is referenced by nothing.
	assert.Equal(t, []string{"AAPL", "MSFT"}, symbols)
}

func TestRefreshSymbolsFollowsWatchlistStockID(t *testing.T) {
	db := newTestDB(t)
	store := NewSQLStore(db)
	db.MustExec(`INSERT INTO watchlist (user_id, stock_id) VALUES (2, 13)`)

	symbols, err := store.RefreshSymbols(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "IBM", "MSFT"}, symbols)
}

func TestPendingAlerts(t *testing.T) {
	store := NewSQLStore(newTestDB(t))

	alerts, err := store.PendingAlerts(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 2)

	a1 := alerts[0]
	assert.Equal(t, int64(1), a1.ID)
	assert.Equal(t, "AAPL", a1.Symbol)
	assert.True(t, a1.TargetPrice.Equal(decimal.NewFromInt(150)))
	assert.Equal(t, models.DirectionUp, a1.Direction)
	assert.Equal(t, models.ChannelBoth, a1.Channel)
	assert.Equal(t, "+15550001111", a1.Phone)
	assert.False(t, a1.Triggered)

	a2 := alerts[1]
	assert.Equal(t, models.DirectionDown, a2.Direction)
	assert.Equal(t, models.Channel(""), a2.Channel)
	assert.True(t, a2.WantsEmail())
	assert.Empty(t, a2.Phone)
}

func TestUpdatePrice(t *testing.T) {
	db := newTestDB(t)
	store := NewSQLStore(db)
	ctx := context.Background()

	err := store.UpdatePrice(ctx, &models.Quote{
		Symbol:  "AAPL",
		Price:   decimal.RequireFromString("151.25"),
		DayHigh: decimal.RequireFromString("152"),
		DayLow:  decimal.RequireFromString("149.5"),
	})
	require.NoError(t, err)

	var price decimal.Decimal
	require.NoError(t, db.Get(&price, `SELECT currentprice FROM stocks WHERE symbol = 'AAPL'`))
	assert.True(t, price.Equal(decimal.RequireFromString("151.25")))

	err = store.UpdatePrice(ctx, &models.Quote{Symbol: "NOPE", Price: decimal.NewFromInt(1)})
	assert.Error(t, err)
}

func TestMarkTriggeredIsOnce(t *testing.T) {
	store := NewSQLStore(newTestDB(t))
	ctx := context.Background()

	flipped, err := store.MarkTriggered(ctx, 1)
	require.NoError(t, err)
	assert.True(t, flipped)

	flipped, err = store.MarkTriggered(ctx, 1)
	require.NoError(t, err)
	assert.False(t, flipped)

	alerts, err := store.PendingAlerts(ctx)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, int64(2), alerts[0].ID)
}

func TestMarkTriggeredConcurrentSingleWinner(t *testing.T) {
	store := NewSQLStore(newTestDB(t))
	ctx := context.Background()

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, err := store.MarkTriggered(ctx, 2); err == nil && ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins)
}
