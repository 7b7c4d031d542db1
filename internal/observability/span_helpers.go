package observability

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	contextutils "betaportal/internal/utils"
)

// FinishSpan ends span and records the error errPtr points at, if any.
// Use with a named error return: `defer observability.FinishSpan(span, &err)`
//
// AppErrors are tagged with their code. Validation, not-found and permission
// outcomes (info or warn severity) leave the span status unset so expected
// caller mistakes do not show up as failed operations.
func FinishSpan(span trace.Span, errPtr *error) {
	if span == nil {
		return
	}
	defer span.End()

	if errPtr == nil || *errPtr == nil {
		return
	}
	err := *errPtr

	var appErr *contextutils.AppError
	if contextutils.AsError(err, &appErr) {
		span.SetAttributes(
			attribute.String("error.code", string(appErr.Code)),
			attribute.String("error.severity", string(appErr.Severity)),
		)
		if appErr.Severity == contextutils.SeverityInfo || appErr.Severity == contextutils.SeverityWarn {
			span.AddEvent("request rejected", trace.WithAttributes(attribute.String("error.message", appErr.Message)))
			return
		}
	}

	span.RecordError(err, trace.WithStackTrace(true))
	span.SetStatus(codes.Error, err.Error())
}
