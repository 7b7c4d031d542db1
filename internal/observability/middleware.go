package observability

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	contextutils "betaportal/internal/utils"
)

// Span attribute keys for the portal caller, set on every request span
const (
	AttrRequestID  = "portal.request_id"
	AttrExternalID = "portal.external_id"
	AttrTesterID   = "portal.tester_id"
)

// GinMiddleware returns the request tracing chain: the otelgin server span
// followed by a handler that tags it with the portal caller and outcome.
func GinMiddleware(serviceName string, opts ...otelgin.Option) []gin.HandlerFunc {
	return []gin.HandlerFunc{otelgin.Middleware(serviceName, opts...), annotateRequestSpan()}
}

// annotateRequestSpan must run inside the otelgin span. Caller identity is read
// after c.Next because the principal middleware binds it further down the chain.
func annotateRequestSpan() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		ctx := c.Request.Context()
		span := trace.SpanFromContext(ctx)
		if !span.IsRecording() {
			return
		}

		if id := contextutils.GetRequestIDFromContext(ctx); id != "" {
			span.SetAttributes(attribute.String(AttrRequestID, id))
		}
		if id := contextutils.GetExternalIDFromContext(ctx); id != "" {
			span.SetAttributes(attribute.String(AttrExternalID, id))
		}
		if id, ok := contextutils.GetTesterIDFromContext(ctx); ok {
			span.SetAttributes(attribute.Int(AttrTesterID, id))
		}

		status := c.Writer.Status()
		if status < 400 {
			return
		}

		appErr := firstAppError(c.Errors)
		span.SetAttributes(
			attribute.String("error.handler", c.HandlerName()),
			attribute.String("error.severity", errorSeverity(status, appErr)),
		)
		if appErr != nil {
			span.SetAttributes(
				attribute.String("error.code", string(appErr.Code)),
				attribute.Bool("error.retryable", contextutils.IsRetryable(appErr)),
			)
		}

		// Only server failures mark the span as errored; 4xx are caller mistakes
		if status >= 500 {
			msg := "server error"
			if appErr != nil {
				msg = appErr.Message
			} else if last := c.Errors.Last(); last != nil {
				msg = last.Error()
			}
			span.RecordError(errors.New(msg))
			span.SetStatus(codes.Error, msg)
		}
	}
}

func firstAppError(errs []*gin.Error) *contextutils.AppError {
	for _, e := range errs {
		var appErr *contextutils.AppError
		if contextutils.AsError(e.Err, &appErr) {
			return appErr
		}
	}
	return nil
}

// errorSeverity prefers the AppError's own severity, then falls back on status
func errorSeverity(status int, appErr *contextutils.AppError) string {
	if appErr != nil && appErr.Severity != "" {
		return string(appErr.Severity)
	}
	if status >= 500 {
		return string(contextutils.SeverityError)
	}
	return string(contextutils.SeverityWarn)
}
