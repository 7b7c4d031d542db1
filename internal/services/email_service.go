package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"betaportal/internal/config"
	"betaportal/internal/models"
	"betaportal/internal/observability"
	"betaportal/internal/services/mailer"
	contextutils "betaportal/internal/utils"

	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/mail.v2"
)

// Email templates
const (
	TemplateApproval = "approval"

	ApprovalSubject = "Your Adaptensor Beta Access Has Been Approved"
)

var emailTemplates = template.Must(template.New(TemplateApproval).Parse(`<div style="font-family: system-ui, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2>Welcome to the Adaptensor Beta, {{.Name}}!</h2>
  <p>Your beta testing account has been approved. You now have full access to the beta portal.</p>
  <p><a href="{{.PortalURL}}" style="display: inline-block; padding: 12px 24px; background: #F4D225; color: #060505; text-decoration: none; border-radius: 8px; font-weight: 600;">Open Beta Portal</a></p>
  <p style="color: #666; font-size: 14px;">Submit bug reports, request features, and help shape the future of Adaptensor.</p>
  <p style="color: #999; font-size: 12px;">The Adaptensor Team</p>
</div>`))

// EmailService sends portal email over SMTP using gomail
type EmailService struct {
	cfg    *config.Config
	logger *observability.Logger
	dialer *mail.Dialer
}

var _ mailer.Mailer = (*EmailService)(nil)

// NewEmailService creates a new EmailService instance. Without an SMTP host the service is disabled.
func NewEmailService(cfg *config.Config, logger *observability.Logger) *EmailService {
	var dialer *mail.Dialer
	if cfg.Email.Enabled && cfg.Email.SMTP.Host != "" {
		dialer = mail.NewDialer(
			cfg.Email.SMTP.Host,
			cfg.Email.SMTP.Port,
			cfg.Email.SMTP.Username,
			cfg.Email.SMTP.Password,
		)
		dialer.Timeout = config.EmailSendTimeout
	}

	return &EmailService{
		cfg:    cfg,
		logger: logger,
		dialer: dialer,
	}
}

// IsEnabled reports whether email is configured
func (e *EmailService) IsEnabled() bool {
	return e.cfg.Email.Enabled && e.dialer != nil
}

// portalURL is where the approval email sends the tester
func portalURL(cfg *config.Config) string {
	return strings.TrimRight(cfg.Server.PortalBaseURL, "/") + "/portal"
}

// SendApprovalEmail sends the beta approval notice
func (e *EmailService) SendApprovalEmail(ctx context.Context, tester *models.Tester) (err error) {
	ctx, span := observability.TraceEmailFunction(ctx, "send_approval_email",
		observability.AttributeTesterID(tester.ID),
	)
	defer observability.FinishSpan(span, &err)

	return e.SendEmail(ctx, tester.Email, ApprovalSubject, TemplateApproval, map[string]interface{}{
		"Name":      tester.Name,
		"PortalURL": portalURL(e.cfg),
	})
}

// SendEmail sends a generic email with the given parameters
func (e *EmailService) SendEmail(ctx context.Context, to, subject, templateName string, data map[string]interface{}) (err error) {
	ctx, span := observability.TraceEmailFunction(ctx, "send_email",
		attribute.String("email.subject", subject),
		attribute.String("email.template", templateName),
	)
	defer observability.FinishSpan(span, &err)

	if !e.IsEnabled() {
		e.logger.Info(ctx, "Email disabled, skipping email send", map[string]interface{}{
			"template": templateName,
		})
		return nil
	}

	content, err := renderEmail(templateName, data)
	if err != nil {
		return contextutils.WrapError(err, "failed to generate email content")
	}

	m := mail.NewMessage()
	m.SetHeader("From", m.FormatAddress(e.cfg.Email.SMTP.FromAddress, e.cfg.Email.SMTP.FromName))
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", content)

	if err = e.dialer.DialAndSend(m); err != nil {
		e.logger.Error(ctx, "Failed to send email", err, map[string]interface{}{
			"template": templateName,
			"subject":  subject,
		})
		return contextutils.WrapError(err, "failed to send email")
	}

	e.logger.Info(ctx, "Email sent successfully", map[string]interface{}{
		"template": templateName,
		"subject":  subject,
	})
	return nil
}

func renderEmail(templateName string, data map[string]interface{}) (string, error) {
	tmpl := emailTemplates.Lookup(templateName)
	if tmpl == nil {
		return "", fmt.Errorf("unknown email template: %s", templateName)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
