package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelBoth  Channel = "both"
)

// Alert is a user's price alert joined with the owner's contact details.
type Alert struct {
	ID          int64           `db:"id"`
	UserID      int64           `db:"user_id"`
	Symbol      string          `db:"symbol"`
	TargetPrice decimal.Decimal `db:"target_price"`
	Direction   Direction       `db:"direction"`
	Channel     Channel         `db:"alert_method"`
	Triggered   bool            `db:"triggered"`
	Email       string          `db:"email"`
	Phone       string          `db:"phone"`
}

// ShouldTrigger reports whether price satisfies the alert condition.
// Equality triggers in both directions.
func (a *Alert) ShouldTrigger(price decimal.Decimal) bool {
	switch a.Direction {
	case DirectionUp:
		return price.GreaterThanOrEqual(a.TargetPrice)
	case DirectionDown:
		return price.LessThanOrEqual(a.TargetPrice)
	default:
		return false
	}
}

// WantsEmail is true for email and both; alerts stored without a method
// default to email.
func (a *Alert) WantsEmail() bool {
	return a.Channel == "" || a.Channel == ChannelEmail || a.Channel == ChannelBoth
}

// WantsSMS is true for sms and both.
func (a *Alert) WantsSMS() bool {
	return a.Channel == ChannelSMS || a.Channel == ChannelBoth
}

// Subject is the email subject line for a triggered alert.
func (a *Alert) Subject() string {
	return fmt.Sprintf("Price Alert for %s", a.Symbol)
}

// Message renders the notification body for a triggered alert.
func (a *Alert) Message(current decimal.Decimal) string {
	verb := "risen above"
	if a.Direction == DirectionDown {
		verb = "fallen below"
	}
	return fmt.Sprintf("TrendTracker Alert: %s has %s your target of $%s. Current: $%s.",
		a.Symbol, verb, a.TargetPrice.String(), current.StringFixed(2))
}

// AlertTriggered is published when an alert transitions to triggered.
type AlertTriggered struct {
	AlertID     int64           `json:"alert_id"`
	UserID      int64           `json:"user_id"`
	Symbol      string          `json:"symbol"`
	Direction   Direction       `json:"direction"`
	TargetPrice decimal.Decimal `json:"target_price"`
	Price       decimal.Decimal `json:"price"`
	Channels    []string        `json:"channels"`
	TriggeredAt int64           `json:"triggered_at"`
}
