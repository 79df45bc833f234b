// Package notify holds the outbound notification channels used for
// triggered price alerts.
package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/mail"
	"net/smtp"
	"strings"
	"time"

	"TrendTracker/internal/domain/models"
)

type EmailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// EmailSender delivers plain-text mail over SMTP. Port 465 uses implicit
// TLS; any other port upgrades with STARTTLS when the server offers it.
type EmailSender struct {
	cfg  EmailConfig
	auth smtp.Auth
	from string
}

// NewEmailSender returns models.ErrChannelNotConfigured when credentials
// are missing.
func NewEmailSender(cfg EmailConfig) (*EmailSender, error) {
	if cfg.Host == "" || cfg.User == "" || cfg.Password == "" {
		return nil, fmt.Errorf("email: %w", models.ErrChannelNotConfigured)
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.From == "" {
		cfg.From = cfg.User
	}
	from := cfg.From
	if addr, err := mail.ParseAddress(cfg.From); err == nil {
		from = addr.Address
	}
	return &EmailSender{
		cfg:  cfg,
		auth: smtp.PlainAuth("", cfg.User, cfg.Password, cfg.Host),
		from: from,
	}, nil
}

func (e *EmailSender) SendEmail(ctx context.Context, to, subject, body string) error {
	if to == "" {
		return fmt.Errorf("email: empty recipient")
	}
	rcpt, err := mail.ParseAddress(to)
	if err != nil {
		return fmt.Errorf("email: invalid recipient %q: %w", to, err)
	}
	msg := buildMessage(e.cfg.From, rcpt.Address, subject, body)

	conn, err := e.dial(ctx)
	if err != nil {
		return fmt.Errorf("email dial: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, e.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("email client: %w", err)
	}
	defer client.Close()

	if e.cfg.Port != 465 {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: e.cfg.Host}); err != nil {
				return fmt.Errorf("email starttls: %w", err)
			}
		}
	}
	if err := client.Auth(e.auth); err != nil {
		return fmt.Errorf("email auth: %w", err)
	}
	if err := client.Mail(e.from); err != nil {
		return fmt.Errorf("email MAIL: %w", err)
	}
	if err := client.Rcpt(rcpt.Address); err != nil {
		return fmt.Errorf("email RCPT: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("email DATA: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("email write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("email close: %w", err)
	}
	return client.Quit()
}

func (e *EmailSender) dial(ctx context.Context) (net.Conn, error) {
	addr := net.JoinHostPort(e.cfg.Host, fmt.Sprint(e.cfg.Port))
	d := &net.Dialer{Timeout: 10 * time.Second}
	if e.cfg.Port == 465 {
		td := &tls.Dialer{NetDialer: d, Config: &tls.Config{ServerName: e.cfg.Host}}
		return td.DialContext(ctx, "tcp", addr)
	}
	return d.DialContext(ctx, "tcp", addr)
}

// headerValue folds line breaks so a stored value cannot start a new header.
var headerValue = strings.NewReplacer("\r", "", "\n", " ")

func buildMessage(from, to, subject, body string) []byte {
	var sb strings.Builder
	sb.WriteString("From: " + headerValue.Replace(from) + "\r\n")
	sb.WriteString("To: " + headerValue.Replace(to) + "\r\n")
	sb.WriteString("Subject: " + headerValue.Replace(subject) + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(body)
	return []byte(sb.String())
}
