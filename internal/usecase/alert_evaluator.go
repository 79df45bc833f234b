package usecase

import (
	"context"
	"fmt"
	"time"

	"TrendTracker/internal/domain/models"
	drepo "TrendTracker/internal/domain/repository"
	"TrendTracker/pkg/logger"
)

// AlertEvaluator checks every un-triggered alert against a fresh quote and
// notifies the owner of each alert it flips.
type AlertEvaluator struct {
	alerts     drepo.AlertStore
	quotes     drepo.QuoteSource
	dispatcher *Dispatcher
	events     drepo.EventPublisher
	metrics    drepo.Metrics
	log        *logger.Logger
}

// NewAlertEvaluator creates an evaluator. events may be nil.
func NewAlertEvaluator(
	alerts drepo.AlertStore,
	quotes drepo.QuoteSource,
	dispatcher *Dispatcher,
	events drepo.EventPublisher,
	metrics drepo.Metrics,
	log *logger.Logger,
) *AlertEvaluator {
	return &AlertEvaluator{
		alerts:     alerts,
		quotes:     quotes,
		dispatcher: dispatcher,
		events:     events,
		metrics:    metrics,
		log:        log.Named("evaluator"),
	}
}

type symbolGroup struct {
	symbol string
	alerts []*models.Alert
}

// groupBySymbol keeps first-seen symbol order.
func groupBySymbol(alerts []*models.Alert) []symbolGroup {
	idx := make(map[string]int)
	var groups []symbolGroup
	for _, a := range alerts {
		sym := models.NormalizeSymbol(a.Symbol)
		if sym == "" {
			continue
		}
		i, ok := idx[sym]
		if !ok {
			i = len(groups)
			idx[sym] = i
			groups = append(groups, symbolGroup{symbol: sym})
		}
		groups[i].alerts = append(groups[i].alerts, a)
	}
	return groups
}

// Evaluate runs one pass. Only a failure to read the alert list is returned.
func (e *AlertEvaluator) Evaluate(ctx context.Context) (*models.EvaluationReport, error) {
	rep := &models.EvaluationReport{StartedAt: time.Now().UTC()}
	defer func() { rep.FinishedAt = time.Now().UTC() }()

	alerts, err := e.alerts.PendingAlerts(ctx)
	if err != nil {
		e.metrics.RecordError("alerts_read")
		return rep, fmt.Errorf("load pending alerts: %w", err)
	}
	rep.Alerts = len(alerts)

	groups := groupBySymbol(alerts)
	rep.Symbols = len(groups)

	for _, g := range groups {
		if ctx.Err() != nil {
			e.log.Warn("alert evaluation interrupted", logger.String("symbol", g.symbol))
			break
		}

		q, err := e.quotes.Quote(ctx, g.symbol)
		rep.Fetched++
		if err != nil || !q.Price.IsPositive() {
			if err == nil {
				err = fmt.Errorf("non-positive price %s", q.Price)
			}
			e.metrics.RecordQuoteFetch("alerts", "error")
			e.log.Warn("skipping alerts for symbol, no usable quote",
				logger.String("symbol", g.symbol),
				logger.Int("alerts", len(g.alerts)),
				logger.Error(err),
			)
			rep.FetchFailed = append(rep.FetchFailed, g.symbol)
			continue
		}
		e.metrics.RecordQuoteFetch("alerts", "ok")

		for _, a := range g.alerts {
			if a.Triggered || !a.ShouldTrigger(q.Price) {
				continue
			}
			if e.trigger(ctx, a, q) {
				rep.Triggered = append(rep.Triggered, a.ID)
			}
		}
	}

	e.log.Info("alert evaluation complete",
		logger.Int("alerts", rep.Alerts),
		logger.Int("symbols", rep.Symbols),
		logger.Int("triggered", len(rep.Triggered)),
		logger.Int("fetch_failed", len(rep.FetchFailed)),
	)
	return rep, nil
}

// trigger marks the alert and, if this call won the flip, notifies.
func (e *AlertEvaluator) trigger(ctx context.Context, a *models.Alert, q *models.Quote) bool {
	flipped, err := e.alerts.MarkTriggered(ctx, a.ID)
	if err != nil {
		e.metrics.RecordError("alerts_mark")
		e.log.Error("mark alert triggered failed", logger.Int64("alert_id", a.ID), logger.Error(err))
		return false
	}
	if !flipped {
		e.log.Debug("alert already triggered elsewhere", logger.Int64("alert_id", a.ID))
		return false
	}
	a.Triggered = true
	e.metrics.RecordAlertTriggered(string(a.Direction))
	e.log.Info("alert triggered",
		logger.Int64("alert_id", a.ID),
		logger.String("symbol", a.Symbol),
		logger.String("direction", string(a.Direction)),
		logger.Stringer("target", a.TargetPrice),
		logger.Stringer("price", q.Price),
	)

	res := e.dispatcher.Dispatch(ctx, a, q.Price)

	if e.events != nil {
		ev := &models.AlertTriggered{
			AlertID:     a.ID,
			UserID:      a.UserID,
			Symbol:      a.Symbol,
			Direction:   a.Direction,
			TargetPrice: a.TargetPrice,
			Price:       q.Price,
			Channels:    res.Sent(),
			TriggeredAt: time.Now().Unix(),
		}
		if err := e.events.PublishAlertTriggered(ctx, ev); err != nil {
			e.metrics.RecordError("alert_event")
			e.log.Warn("alert event publish failed", logger.Int64("alert_id", a.ID), logger.Error(err))
		}
	}
	return true
}
