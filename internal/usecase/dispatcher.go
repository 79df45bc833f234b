package usecase

import (
	"context"

	"TrendTracker/internal/domain/models"
	drepo "TrendTracker/internal/domain/repository"
	"TrendTracker/pkg/logger"

	"github.com/shopspring/decimal"
)

type ChannelOutcome string

const (
	OutcomeNotRequested ChannelOutcome = "not_requested"
	OutcomeDisabled     ChannelOutcome = "disabled"
	OutcomeNoContact    ChannelOutcome = "no_contact"
	OutcomeSent         ChannelOutcome = "sent"
	OutcomeFailed       ChannelOutcome = "failed"
)

type DispatchResult struct {
	Email ChannelOutcome
	SMS   ChannelOutcome
}

// Sent lists the channels that delivered.
func (r DispatchResult) Sent() []string {
	var out []string
	if r.Email == OutcomeSent {
		out = append(out, string(models.ChannelEmail))
	}
	if r.SMS == OutcomeSent {
		out = append(out, string(models.ChannelSMS))
	}
	return out
}

// Dispatcher sends a triggered alert over the channels the user picked.
// Channels are independent; a failure on one never blocks the other and is
// never returned to the caller.
type Dispatcher struct {
	email   drepo.EmailSender
	sms     drepo.SMSSender
	metrics drepo.Metrics
	log     *logger.Logger
}

// NewDispatcher accepts nil senders for channels that are not configured.
func NewDispatcher(email drepo.EmailSender, sms drepo.SMSSender, metrics drepo.Metrics, log *logger.Logger) *Dispatcher {
	return &Dispatcher{email: email, sms: sms, metrics: metrics, log: log.Named("dispatcher")}
}

func (d *Dispatcher) Dispatch(ctx context.Context, a *models.Alert, price decimal.Decimal) DispatchResult {
	body := a.Message(price)
	res := DispatchResult{Email: OutcomeNotRequested, SMS: OutcomeNotRequested}

	if a.WantsEmail() {
		switch {
		case d.email == nil:
			res.Email = OutcomeDisabled
		case a.Email == "":
			res.Email = OutcomeNoContact
		default:
			if err := d.email.SendEmail(ctx, a.Email, a.Subject(), body); err != nil {
				res.Email = OutcomeFailed
				d.log.Error("alert email failed",
					logger.Int64("alert_id", a.ID),
					logger.String("symbol", a.Symbol),
					logger.Error(err),
				)
			} else {
				res.Email = OutcomeSent
			}
		}
		d.metrics.RecordNotification("email", string(res.Email))
	}

	if a.WantsSMS() {
		switch {
		case d.sms == nil:
			res.SMS = OutcomeDisabled
		case a.Phone == "":
			res.SMS = OutcomeNoContact
		default:
			if err := d.sms.SendSMS(ctx, a.Phone, body); err != nil {
				res.SMS = OutcomeFailed
				d.log.Error("alert sms failed",
					logger.Int64("alert_id", a.ID),
					logger.String("symbol", a.Symbol),
					logger.Error(err),
				)
			} else {
				res.SMS = OutcomeSent
			}
		}
		d.metrics.RecordNotification("sms", string(res.SMS))
	}

	d.log.Info("alert notification dispatched",
		logger.Int64("alert_id", a.ID),
		logger.String("symbol", a.Symbol),
		logger.String("email", string(res.Email)),
		logger.String("sms", string(res.SMS)),
	)
	return res
}
