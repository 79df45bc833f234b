package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"TrendTracker/internal/domain/models"
	xhttp "TrendTracker/pkg/http"
)

const DefaultTwilioBaseURL = "https://api.twilio.com/2010-04-01"

type SMSConfig struct {
	AccountSID string
	AuthToken  string
	From       string
	BaseURL    string
	Timeout    time.Duration
}

// SMSSender posts messages to the Twilio Messages resource.
type SMSSender struct {
	cfg  SMSConfig
	http *xhttp.Client
}

// NewSMSSender returns models.ErrChannelNotConfigured when credentials
// are missing.
func NewSMSSender(cfg SMSConfig) (*SMSSender, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.From == "" {
		return nil, fmt.Errorf("sms: %w", models.ErrChannelNotConfigured)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultTwilioBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &SMSSender{
		cfg:  cfg,
		http: xhttp.NewClient(xhttp.WithTimeout(cfg.Timeout)),
	}, nil
}

type twilioMessage struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

func (s *SMSSender) SendSMS(ctx context.Context, to, body string) error {
	if to == "" {
		return fmt.Errorf("sms: empty recipient")
	}
	var resp twilioMessage
	err := s.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     fmt.Sprintf("%s/Accounts/%s/Messages.json", s.cfg.BaseURL, s.cfg.AccountSID),
		Headers: map[string]string{"Content-Type": xhttp.ContentTypeForm},
		Body: map[string]string{
			"To":   to,
			"From": s.cfg.From,
			"Body": body,
		},
		BasicAuth: &xhttp.BasicAuth{Username: s.cfg.AccountSID, Password: s.cfg.AuthToken},
	}, &resp)
	if err != nil {
		return fmt.Errorf("sms send: %w", err)
	}
	return nil
}
