package services

import (
	"context"
	"sync"

	"betaportal/internal/config"
	"betaportal/internal/models"
	"betaportal/internal/observability"
	"betaportal/internal/services/mailer"

	"go.opentelemetry.io/otel/attribute"
)

// SentEmail is a message captured by TestEmailService
type SentEmail struct {
	To       string
	Subject  string
	Template string
	Body     string
}

// TestEmailService logs and records email instead of sending it
type TestEmailService struct {
	cfg    *config.Config
	logger *observability.Logger

	mu   sync.Mutex
	sent []SentEmail
}

var _ mailer.Mailer = (*TestEmailService)(nil)

// NewTestEmailService creates a new TestEmailService instance
func NewTestEmailService(cfg *config.Config, logger *observability.Logger) *TestEmailService {
	return &TestEmailService{cfg: cfg, logger: logger}
}

// IsEnabled is always true so callers exercise their send path
func (e *TestEmailService) IsEnabled() bool {
	return true
}

// SendApprovalEmail records the approval notice
func (e *TestEmailService) SendApprovalEmail(ctx context.Context, tester *models.Tester) error {
	return e.SendEmail(ctx, tester.Email, ApprovalSubject, TemplateApproval, map[string]interface{}{
		"Name":      tester.Name,
		"PortalURL": portalURL(e.cfg),
	})
}

// SendEmail renders the template and records the result (test mode - just logs)
func (e *TestEmailService) SendEmail(ctx context.Context, to, subject, templateName string, data map[string]interface{}) (err error) {
	ctx, span := observability.TraceEmailFunction(ctx, "test_send_email",
		attribute.String("email.subject", subject),
		attribute.String("email.template", templateName),
	)
	defer observability.FinishSpan(span, &err)

	body, err := renderEmail(templateName, data)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.sent = append(e.sent, SentEmail{To: to, Subject: subject, Template: templateName, Body: body})
	e.mu.Unlock()

	e.logger.Info(ctx, "TEST MODE: Would send email", map[string]interface{}{
		"subject":   subject,
		"template":  templateName,
		"test_mode": true,
	})
	return nil
}

// Sent returns a copy of the recorded messages
func (e *TestEmailService) Sent() []SentEmail {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]SentEmail(nil), e.sent...)
}
