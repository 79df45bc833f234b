package usecase

import (
	"context"
	"errors"
	"testing"

	"TrendTracker/internal/domain/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestDispatchChannels(t *testing.T) {
	price := decimal.RequireFromString("150")
	tests := []struct {
		name      string
		channel   models.Channel
		phone     string
		smsNil    bool
		wantEmail ChannelOutcome
		wantSMS   ChannelOutcome
	}{
		{"email only", models.ChannelEmail, "+1", false, OutcomeSent, OutcomeNotRequested},
		{"empty method means email", "", "+1", false, OutcomeSent, OutcomeNotRequested},
		{"sms only", models.ChannelSMS, "+1", false, OutcomeNotRequested, OutcomeSent},
		{"both", models.ChannelBoth, "+1", false, OutcomeSent, OutcomeSent},
		{"sms without phone", models.ChannelBoth, "", false, OutcomeSent, OutcomeNoContact},
		{"sms not configured", models.ChannelSMS, "+1", true, OutcomeNotRequested, OutcomeDisabled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			email := &fakeEmail{}
			var d *Dispatcher
			if tt.smsNil {
				d = NewDispatcher(email, nil, nopMetrics{}, testLog)
			} else {
				d = NewDispatcher(email, &fakeSMS{}, nopMetrics{}, testLog)
			}
			a := alert(1, "AAPL", "150", models.DirectionUp, tt.channel)
			a.Phone = tt.phone

			res := d.Dispatch(context.Background(), a, price)
			assert.Equal(t, tt.wantEmail, res.Email)
			assert.Equal(t, tt.wantSMS, res.SMS)
		})
	}
}

func TestDispatchEmailFailureStillSendsSMS(t *testing.T) {
	sms := &fakeSMS{}
	d := NewDispatcher(&fakeEmail{err: errors.New("smtp 535")}, sms, nopMetrics{}, testLog)

	res := d.Dispatch(context.Background(), alert(1, "AAPL", "150", models.DirectionUp, models.ChannelBoth), decimal.NewFromInt(151))
	assert.Equal(t, OutcomeFailed, res.Email)
	assert.Equal(t, OutcomeSent, res.SMS)
	assert.Equal(t, []string{"sms"}, res.Sent())
	assert.Equal(t, "TrendTracker Alert: AAPL has risen above your target of $150. Current: $151.00.", sms.sent[0].Body)
}

func TestDispatchWithoutEmailSender(t *testing.T) {
	d := NewDispatcher(nil, nil, nopMetrics{}, testLog)
	res := d.Dispatch(context.Background(), alert(1, "AAPL", "150", models.DirectionUp, models.ChannelBoth), decimal.NewFromInt(151))
	assert.Equal(t, OutcomeDisabled, res.Email)
	assert.Equal(t, OutcomeDisabled, res.SMS)
	assert.Empty(t, res.Sent())
}
