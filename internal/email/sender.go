// Package email delivers engine emails. Delivery is notify-and-forget: callers
// enqueue a Message and a worker hands it to a Sender.
package email

import (
	"context"

	"salesops_backend/platform/config"
)

// Message is a rendered email ready for delivery.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// NoopSender drops every message. It is used when email is disabled.
type NoopSender struct{}

func (NoopSender) Send(context.Context, Message) error { return nil }

// NewSender returns the SMTP sender, or a NoopSender when email is disabled.
func NewSender(cfg config.EmailConfig) Sender {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}
	}
	return NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	)
}
