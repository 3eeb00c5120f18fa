package email

import (
	"fmt"

	"complaints-service/config"

	"github.com/apex/log"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Sender is the outbound email transport.
type Sender interface {
	Send(to, subject, text, html string) error
}

// sendGridSender delivers through the SendGrid API.
type sendGridSender struct {
	client    *sendgrid.Client
	fromName  string
	fromEmail string
}

// NewSendGridSender creates the production transport. When cfg.EmailDryRun
// is set a logging no-op transport is returned instead.
func NewSendGridSender(cfg *config.Config) Sender {
	if cfg.EmailDryRun {
		return &dryRunSender{}
	}
	return &sendGridSender{
		client:    sendgrid.NewSendClient(cfg.SendGridAPIKey),
		fromName:  cfg.SendGridFromName,
		fromEmail: cfg.SendGridFromEmail,
	}
}

func (s *sendGridSender) Send(to, subject, text, html string) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	recipient := mail.NewEmail(to, to)

	message := mail.NewV3Mail()
	message.SetFrom(from)
	message.Subject = subject

	p := mail.NewPersonalization()
	p.AddTos(recipient)
	message.AddPersonalizations(p)

	message.AddContent(mail.NewContent("text/plain", text))
	message.AddContent(mail.NewContent("text/html", html))

	response, err := s.client.Send(message)
	if err != nil {
		return err
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d", response.StatusCode)
	}

	log.Infof("Email sent to %s! Status: %d", to, response.StatusCode)
	return nil
}

// dryRunSender logs instead of sending.
type dryRunSender struct{}

func (s *dryRunSender) Send(to, subject, text, html string) error {
	log.Infof("[dry-run] Email to %s: %s", to, subject)
	return nil
}
