// Package services provides the business logic of the beta portal.
package services

import (
	"context"

	"betaportal/internal/config"
	"betaportal/internal/observability"
	"betaportal/internal/services/mailer"
)

// CreateEmailService creates an appropriate email service based on configuration.
// In test mode it returns a TestEmailService, otherwise the SMTP EmailService.
func CreateEmailService(cfg *config.Config, logger *observability.Logger) mailer.Mailer {
	if cfg.IsTest {
		logger.Info(context.Background(), "Using test email service", map[string]interface{}{
			"test_mode": true,
		})
		return NewTestEmailService(cfg, logger)
	}

	return NewEmailService(cfg, logger)
}
