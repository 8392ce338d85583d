package notify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
)

// Email sends alerts through a plain SMTP relay.
type Email struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// NewEmail returns nil when no host is configured, which Multi skips.
func NewEmail(host, port, username, password, from string) *Email {
	if host == "" {
		return nil
	}
	if port == "" {
		port = "587"
	}
	if from == "" {
		from = username
	}
	return &Email{Host: host, Port: port, Username: username, Password: password, From: from}
}

// Send is a no-op on a nil receiver, like Webhook.Send.
func (e *Email) Send(ctx context.Context, to, subject, body string) error {
	if e == nil || e.Host == "" {
		return nil
	}
	if to == "" {
		return errors.New("no recipient")
	}

	msg := strings.Join([]string{
		"From: " + e.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"utf-8\"",
		"",
		body,
	}, "\r\n")

	var auth smtp.Auth
	if e.Username != "" {
		auth = smtp.PlainAuth("", e.Username, e.Password, e.Host)
	}
	addr := net.JoinHostPort(e.Host, e.Port)

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(addr, auth, e.From, []string{to}, []byte(msg))
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	}
}
