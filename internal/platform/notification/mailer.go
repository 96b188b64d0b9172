package notification

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Mailer renders a template and hands the result to an EmailSender.
type Mailer struct {
	sender    EmailSender
	templates *TemplateEngine
	logger    zerolog.Logger
}

func NewMailer(sender EmailSender, templates *TemplateEngine, logger zerolog.Logger) *Mailer {
	return &Mailer{sender: sender, templates: templates, logger: logger}
}

func (m *Mailer) SendTemplate(ctx context.Context, templateID, to string, data map[string]string) error {
	subject, body, err := m.templates.Render(templateID, data)
	if err != nil {
		return err
	}
	if err := m.sender.SendEmail(ctx, to, subject, body); err != nil {
		m.logger.Error().Err(err).Str("template", templateID).Str("to", to).Msg("email delivery failed")
		return fmt.Errorf("deliver %s: %w", templateID, err)
	}
	m.logger.Debug().Str("template", templateID).Str("to", to).Msg("email sent")
	return nil
}
