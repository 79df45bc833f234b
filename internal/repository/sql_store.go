package repository

import (
	"context"
	"fmt"

	"TrendTracker/internal/domain/models"
	drepo "TrendTracker/internal/domain/repository"

	"github.com/jmoiron/sqlx"
)

var (
	_ drepo.PriceStore = (*SQLStore)(nil)
	_ drepo.AlertStore = (*SQLStore)(nil)
)

// SQLStore reads and writes the stocks, watchlist and alerts tables.
// Queries use ? placeholders and are rebound for the driver.
type SQLStore struct {
	db *sqlx.DB
}

func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

const refreshSymbolsQuery = `
SELECT DISTINCT s.symbol
FROM stocks s
WHERE s.symbol IN (
	SELECT st.symbol FROM watchlist w JOIN stocks st ON w.stock_id = st.stockid
	UNION
	SELECT st.symbol FROM alerts a JOIN stocks st ON a.stock_id = st.stockid WHERE a.triggered = FALSE
)
ORDER BY s.symbol`

func (s *SQLStore) RefreshSymbols(ctx context.Context) ([]string, error) {
	var symbols []string
	if err := s.db.SelectContext(ctx, &symbols, refreshSymbolsQuery); err != nil {
		return nil, fmt.Errorf("select refresh symbols: %w", err)
	}
	return symbols, nil
}

func (s *SQLStore) UpdatePrice(ctx context.Context, q *models.Quote) error {
	query := s.db.Rebind(`UPDATE stocks
SET currentprice = ?, dayhigh = ?, daylow = ?, updatedat = CURRENT_TIMESTAMP
WHERE symbol = ?`)
	res, err := s.db.ExecContext(ctx, query, q.Price, q.DayHigh, q.DayLow, q.Symbol)
	if err != nil {
		return fmt.Errorf("update price %s: %w", q.Symbol, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update price %s: no stock row", q.Symbol)
	}
	return nil
}

const pendingAlertsQuery = `
SELECT a.id, a.user_id, s.symbol, a.target_price, a.direction,
	COALESCE(a.alert_method, '') AS alert_method, a.triggered,
	u.email, COALESCE(u.phone, '') AS phone
FROM alerts a
JOIN users u ON a.user_id = u.id
JOIN stocks s ON a.stock_id = s.stockid
WHERE a.triggered = FALSE
ORDER BY a.id`

func (s *SQLStore) PendingAlerts(ctx context.Context) ([]*models.Alert, error) {
	var alerts []*models.Alert
	if err := s.db.SelectContext(ctx, &alerts, pendingAlertsQuery); err != nil {
		return nil, fmt.Errorf("select pending alerts: %w", err)
	}
	for _, a := range alerts {
		a.Symbol = models.NormalizeSymbol(a.Symbol)
	}
	return alerts, nil
}

// MarkTriggered only flips rows that are still un-triggered, so concurrent
// evaluators agree on a single winner.
func (s *SQLStore) MarkTriggered(ctx context.Context, id int64) (bool, error) {
	query := s.db.Rebind(`UPDATE alerts SET triggered = TRUE WHERE id = ? AND triggered = FALSE`)
	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("mark alert %d triggered: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark alert %d triggered: %w", id, err)
	}
	return n == 1, nil
}
