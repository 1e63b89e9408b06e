// Package mail sends collaborator invitation emails over SMTP.
//
// Delivery is strictly best-effort: the invite flow treats a send failure as
// a degraded success — the grant has already happened, the response message
// just says the email didn't go out. Nothing here retries or queues.
package mail

import (
	"context"
	"fmt"
	"log/slog"

	gomail "github.com/wneessen/go-mail"
)

// Config holds the SMTP relay settings. When Host is empty the server runs
// without a mailer and every invite reports the email as not sent.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	BaseURL  string // public base URL used in invite links, e.g. "http://localhost:8080"
}

// Mailer sends invite notifications through a single SMTP relay.
type Mailer struct {
	cfg    Config
	client *gomail.Client
	logger *slog.Logger
}

// New creates a Mailer for the given relay. The connection is established
// per send — invite volume is tiny and the relay closes idle connections
// anyway.
func New(cfg Config, logger *slog.Logger) (*Mailer, error) {
	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(cfg.Username),
		gomail.WithPassword(cfg.Password),
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("mail: creating SMTP client: %w", err)
	}

	return &Mailer{cfg: cfg, client: client, logger: logger}, nil
}

// SendInvite emails a collaborator that they were granted a role on a form.
func (m *Mailer) SendInvite(ctx context.Context, to, formName, role, inviterName string) error {
	msg := gomail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return fmt.Errorf("mail: setting From: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("mail: setting To: %w", err)
	}

	msg.Subject(fmt.Sprintf("You've been invited to collaborate on %q", formName))
	msg.SetBodyString(gomail.TypeTextPlain, fmt.Sprintf(
		"%s invited you to collaborate on the form %q as %s.\n\n"+
			"Open it here: %s/form/%s\n",
		inviterName, formName, role, m.cfg.BaseURL, formName,
	))

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("mail: sending invite to %s: %w", to, err)
	}

	m.logger.Info("invite email sent",
		slog.String("to", to),
		slog.String("form", formName),
	)
	return nil
}
