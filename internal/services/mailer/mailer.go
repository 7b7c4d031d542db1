// Package mailer defines the outbound email interface of the beta portal.
package mailer

import (
	"context"

	"betaportal/internal/models"
)

// Mailer defines the interface for email sending functionality
type Mailer interface {
	// SendApprovalEmail tells a tester their beta access was approved
	SendApprovalEmail(ctx context.Context, tester *models.Tester) error

	// SendEmail sends a generic email rendered from a named template
	SendEmail(ctx context.Context, to, subject, templateName string, data map[string]interface{}) error

	// IsEnabled returns whether email functionality is enabled
	IsEnabled() bool
}
