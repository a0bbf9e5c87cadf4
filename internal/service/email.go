package service

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/MrAk1876/carRent-sub002/internal/config"
	"github.com/MrAk1876/carRent-sub002/internal/logger"
)

type sendGridSender struct {
	apiKey    string
	fromEmail string
	fromName  string
}

// NewSendGridSender builds the SendGrid-backed EmailSender. Returns nil when
// no API key is configured, which disables email delivery; notifications
// still land in the outbox.
func NewSendGridSender(cfg config.EmailConfig) EmailSender {
	if cfg.APIKey == "" {
		logger.Warn("sendgrid api key not configured, email delivery disabled")
		return nil
	}
	return &sendGridSender{
		apiKey:    cfg.APIKey,
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
	}
}

func (s *sendGridSender) Send(ctx context.Context, to, subject, plainText, htmlContent string) error {
	if htmlContent == "" {
		htmlContent = plainText
	}
	from := mail.NewEmail(s.fromName, s.fromEmail)
	recipient := mail.NewEmail("", to)
	message := mail.NewSingleEmail(from, subject, recipient, plainText, htmlContent)

	client := sendgrid.NewSendClient(s.apiKey)
	response, err := client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
	}
	return nil
}
