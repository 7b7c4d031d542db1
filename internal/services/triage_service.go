package services

import (
	"context"
	"fmt"

	"betaportal/internal/models"
	"betaportal/internal/observability"
	"betaportal/internal/services/mailer"
	contextutils "betaportal/internal/utils"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/multierr"
)

// TriageService runs admin workflows that span several reports or trigger side effects
type TriageService struct {
	bugs     *BugService
	features *FeatureService
	testers  *TesterService
	mailer   mailer.Mailer
	logger   *observability.Logger
	metrics  *observability.PortalMetrics
}

// NewTriageService creates a new TriageService instance. mailer may be nil to disable notifications.
func NewTriageService(bugs *BugService, features *FeatureService, testers *TesterService, m mailer.Mailer, logger *observability.Logger, metrics *observability.PortalMetrics) *TriageService {
	if bugs == nil || features == nil || testers == nil {
		panic("NewTriageService: report and tester services are required")
	}
	if logger == nil {
		panic("NewTriageService: logger is nil")
	}
	return &TriageService{bugs: bugs, features: features, testers: testers, mailer: m, logger: logger, metrics: metrics}
}

// BulkUpdateStatus sets status on each item independently. There is no batch
// transaction: failed items do not undo the ones that succeeded. The returned
// error aggregates the per-item failures and is nil when all succeeded; the
// result is always populated.
func (s *TriageService) BulkUpdateStatus(ctx context.Context, items []models.ReportRef, status string) (result0 *models.BulkStatusResult, err error) {
	ctx, span := observability.TraceAdminFunction(ctx, "bulk_update_status",
		observability.AttributeStatus(status),
		attribute.Int("bulk.items", len(items)),
	)
	// partial failure is reported in the result, not as a span error
	defer observability.FinishSpan(span, nil)

	if len(items) == 0 || status == "" {
		return nil, contextutils.Validation(contextutils.ErrorCodeMissingRequired, "Items and status are required")
	}

	result := &models.BulkStatusResult{Results: make([]models.BulkStatusItemResult, 0, len(items))}
	var errs error
	for _, item := range items {
		itemErr := s.updateOne(ctx, item, status)
		r := models.BulkStatusItemResult{Type: item.Kind, ID: item.ID, OK: itemErr == nil}
		if itemErr != nil {
			r.Error = userMessage(itemErr)
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", item, itemErr))
			result.Failed++
		} else {
			result.Succeeded++
		}
		result.Results = append(result.Results, r)
	}

	span.SetAttributes(
		attribute.Int("bulk.succeeded", result.Succeeded),
		attribute.Int("bulk.failed", result.Failed),
	)
	if errs != nil {
		s.logger.Warn(ctx, "Bulk status update had failures", map[string]interface{}{
			"status":    status,
			"succeeded": result.Succeeded,
			"failed":    result.Failed,
			"errors":    len(multierr.Errors(errs)),
		})
	}
	return result, errs
}

func (s *TriageService) updateOne(ctx context.Context, item models.ReportRef, status string) error {
	switch item.Kind {
	case models.ReportKindBug:
		_, err := s.bugs.AdminUpdate(ctx, item.ID, models.BugAdminPatch{Status: &status})
		return err
	case models.ReportKindFeature:
		_, err := s.features.AdminUpdate(ctx, item.ID, models.FeatureAdminPatch{Status: &status})
		return err
	default:
		return contextutils.Validation(contextutils.ErrorCodeInvalidInput, "Type must be 'bug' or 'feature'")
	}
}

// UpdateTester applies an admin patch to a tester. When the patch approves
// the tester an approval email is sent; a send failure is logged and does
// not fail the update.
func (s *TriageService) UpdateTester(ctx context.Context, id int, patch models.TesterAdminPatch) (result0 *models.Tester, err error) {
	ctx, span := observability.TraceAdminFunction(ctx, "update_tester", observability.AttributeTesterID(id))
	defer observability.FinishSpan(span, &err)

	tester, _, err := s.testers.UpdateStatus(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	if patch.Status != nil && *patch.Status == models.TesterStatusApproved {
		s.notifyApproved(ctx, tester)
	}
	return tester, nil
}

// ApproveTester is UpdateTester with status approved
func (s *TriageService) ApproveTester(ctx context.Context, id int) (*models.Tester, error) {
	status := models.TesterStatusApproved
	return s.UpdateTester(ctx, id, models.TesterAdminPatch{Status: &status})
}

// SuspendTester is UpdateTester with status suspended
func (s *TriageService) SuspendTester(ctx context.Context, id int) (*models.Tester, error) {
	status := models.TesterStatusSuspended
	return s.UpdateTester(ctx, id, models.TesterAdminPatch{Status: &status})
}

func (s *TriageService) notifyApproved(ctx context.Context, tester *models.Tester) {
	if s.mailer == nil || !s.mailer.IsEnabled() {
		return
	}
	if err := s.mailer.SendApprovalEmail(ctx, tester); err != nil {
		s.metrics.ApprovalEmailFailed(ctx)
		s.logger.Error(ctx, "Failed to send approval email", err, map[string]interface{}{
			"tester_id": tester.ID,
		})
	}
}

// userMessage is the caller-facing text of err
func userMessage(err error) string {
	var appErr *contextutils.AppError
	if contextutils.AsError(err, &appErr) {
		switch contextutils.GetErrorSeverity(err) {
		case contextutils.SeverityInfo, contextutils.SeverityWarn:
			return appErr.Message
		}
	}
	return "Something went wrong. Please try again."
}
