// Package mail sends transactional email through SendGrid, or prints it to
// the log when no API key is configured.
package mail

import (
	"context"
	"net/mail"

	"github.com/preppro/backend/internal/config"
)

type Message struct {
	To      []mail.Address
	Subject string
	Text    string
	HTML    string
}

func (m Message) HasRecipients() bool { return len(m.To) > 0 }
func (m Message) HasContent() bool    { return m.Text != "" || m.HTML != "" }

// Service is anything that can deliver a Message.
type Service interface {
	Send(ctx context.Context, msg Message) error
}

// New picks SendGrid when an API key is configured, otherwise the console.
func New(cfg *config.Config) Service {
	from := mail.Address{Name: cfg.DefaultFromName, Address: cfg.DefaultFromEmail}
	prefix := "[" + cfg.AppName + "] "
	if cfg.SendgridAPIKey != "" {
		return NewSendgridService(cfg.SendgridAPIKey, from, prefix)
	}
	return NewConsoleService(from, prefix)
}
