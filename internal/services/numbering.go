package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"betaportal/internal/database"
	"betaportal/internal/models"
	"betaportal/internal/observability"
	contextutils "betaportal/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// Display number prefixes
const (
	BugNumberPrefix     = "BUG"
	FeatureNumberPrefix = "FR"
)

// NumberingService mints human-readable display numbers (BUG-001, FR-014).
//
// Counters live in display_counters, one row per report kind. The increment
// is a single upsert so two concurrent creates never read the same value, and
// it runs on the caller's transaction so a rolled-back create gives its
// number back.
type NumberingService struct {
	logger *observability.Logger
}

// NewNumberingService creates a NumberingService
func NewNumberingService(logger *observability.Logger) *NumberingService {
	if logger == nil {
		panic("NewNumberingService: logger is nil")
	}
	return &NumberingService{logger: logger}
}

// Next reserves the next display number for kind using q, which should be the creating transaction
func (s *NumberingService) Next(ctx context.Context, q database.Querier, kind models.ReportKind) (result0 string, err error) {
	ctx, span := observability.TraceReportFunction(ctx, "next_display_number",
		observability.AttributeReportKind(string(kind)),
	)
	defer observability.FinishSpan(span, &err)

	if _, ok := models.ParseReportKind(string(kind)); !ok {
		return "", contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown report kind %q", kind)
	}

	var value int
	err = q.QueryRowContext(ctx, `
		INSERT INTO display_counters (entity_type, value) VALUES ($1, 1)
		ON CONFLICT (entity_type) DO UPDATE SET value = display_counters.value + 1
		RETURNING value`, string(kind)).Scan(&value)
	if err != nil {
		return "", contextutils.WrapErrorf(err, "failed to advance %s counter", kind)
	}

	number := FormatDisplayNumber(kind, value)
	span.SetAttributes(attribute.String("display_number", number))
	return number, nil
}

// Current returns the last value minted for kind, or 0 when none has been
func (s *NumberingService) Current(ctx context.Context, q database.Querier, kind models.ReportKind) (result0 int, err error) {
	ctx, span := observability.TraceReportFunction(ctx, "current_display_number",
		observability.AttributeReportKind(string(kind)),
	)
	defer observability.FinishSpan(span, &err)

	var value int
	err = q.QueryRowContext(ctx, `SELECT COALESCE((SELECT value FROM display_counters WHERE entity_type = $1), 0)`, string(kind)).Scan(&value)
	if err != nil {
		return 0, contextutils.WrapErrorf(err, "failed to read %s counter", kind)
	}
	return value, nil
}

func numberPrefix(kind models.ReportKind) string {
	if kind == models.ReportKindFeature {
		return FeatureNumberPrefix
	}
	return BugNumberPrefix
}

// FormatDisplayNumber renders n as PREFIX-NNN, zero padded to three digits.
// Values past 999 keep all their digits.
func FormatDisplayNumber(kind models.ReportKind, n int) string {
	return fmt.Sprintf("%s-%03d", numberPrefix(kind), n)
}

// ParseDisplayNumber splits a display number back into its kind and sequence value
func ParseDisplayNumber(s string) (models.ReportKind, int, error) {
	prefix, digits, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok || digits == "" {
		return "", 0, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "malformed display number %q", s)
	}

	var kind models.ReportKind
	switch strings.ToUpper(prefix) {
	case BugNumberPrefix:
		kind = models.ReportKindBug
	case FeatureNumberPrefix:
		kind = models.ReportKindFeature
	default:
		return "", 0, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown display number prefix %q", prefix)
	}

	n, err := strconv.Atoi(digits)
	if err != nil || n <= 0 {
		return "", 0, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "malformed display number %q", s)
	}
	return kind, n, nil
}
