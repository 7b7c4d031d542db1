package observability

import (
	"context"

	"betaportal/internal/config"
	contextutils "betaportal/internal/utils"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// InitMetrics initializes OpenTelemetry metrics
func InitMetrics(cfg *config.OpenTelemetryConfig) (result0 *metric.MeterProvider, err error) {
	ctx := context.Background()

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to create otel resource: %w", err)
	}

	var exporter metric.Exporter
	switch cfg.Protocol {
	case "grpc":
		opts := []otlpmetricgrpc.Option{
			otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
			otlpmetricgrpc.WithHeaders(cfg.Headers),
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		exp, err := otlpmetricgrpc.New(ctx, opts...)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to create otlp grpc metric exporter: %w", err)
		}
		exporter = exp
	case "http":
		opts := []otlpmetrichttp.Option{
			otlpmetrichttp.WithEndpoint(cfg.Endpoint),
			otlpmetrichttp.WithHeaders(cfg.Headers),
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		exp, err := otlpmetrichttp.New(ctx, opts...)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to create otlp http metric exporter: %w", err)
		}
		exporter = exp
	default:
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "unsupported otel protocol: %s", cfg.Protocol)
	}

	mp := metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(exporter)),
		metric.WithResource(res),
	)
	return mp, nil
}

// PortalMetrics holds the domain counters the services record into.
// A zero PortalMetrics is usable and records nothing.
type PortalMetrics struct {
	reportsCreated       otelmetric.Int64Counter
	votesToggled         otelmetric.Int64Counter
	testerStatusChanged  otelmetric.Int64Counter
	attachmentsUploaded  otelmetric.Int64Counter
	approvalEmailsFailed otelmetric.Int64Counter
}

// NewPortalMetrics creates the counters on the global meter provider.
func NewPortalMetrics() (*PortalMetrics, error) {
	return NewPortalMetricsWithMeter(otel.Meter("betaportal"))
}

// NewPortalMetricsWithMeter creates the counters on the given meter.
func NewPortalMetricsWithMeter(meter otelmetric.Meter) (result0 *PortalMetrics, err error) {
	m := &PortalMetrics{}
	if m.reportsCreated, err = meter.Int64Counter("betaportal.reports.created",
		otelmetric.WithDescription("Bug reports and feature requests created")); err != nil {
		return nil, err
	}
	if m.votesToggled, err = meter.Int64Counter("betaportal.votes.toggled",
		otelmetric.WithDescription("Feature request vote toggles")); err != nil {
		return nil, err
	}
	if m.testerStatusChanged, err = meter.Int64Counter("betaportal.testers.status_changed",
		otelmetric.WithDescription("Tester status transitions made by admins")); err != nil {
		return nil, err
	}
	if m.attachmentsUploaded, err = meter.Int64Counter("betaportal.attachments.uploaded",
		otelmetric.WithDescription("Files accepted by the upload endpoint"), otelmetric.WithUnit("By")); err != nil {
		return nil, err
	}
	if m.approvalEmailsFailed, err = meter.Int64Counter("betaportal.emails.failed",
		otelmetric.WithDescription("Approval emails that could not be sent")); err != nil {
		return nil, err
	}
	return m, nil
}

// ReportCreated counts a new report of the given kind ("bug" or "feature").
func (m *PortalMetrics) ReportCreated(ctx context.Context, kind string) {
	if m == nil || m.reportsCreated == nil {
		return
	}
	m.reportsCreated.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("kind", kind)))
}

// VoteToggled counts a vote toggle and its outcome.
func (m *PortalMetrics) VoteToggled(ctx context.Context, voted bool) {
	if m == nil || m.votesToggled == nil {
		return
	}
	m.votesToggled.Add(ctx, 1, otelmetric.WithAttributes(attribute.Bool("voted", voted)))
}

// TesterStatusChanged counts an admin status change.
func (m *PortalMetrics) TesterStatusChanged(ctx context.Context, status string) {
	if m == nil || m.testerStatusChanged == nil {
		return
	}
	m.testerStatusChanged.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("status", status)))
}

// AttachmentUploaded adds the stored size of an accepted upload.
func (m *PortalMetrics) AttachmentUploaded(ctx context.Context, contentType string, size int64) {
	if m == nil || m.attachmentsUploaded == nil {
		return
	}
	m.attachmentsUploaded.Add(ctx, size, otelmetric.WithAttributes(attribute.String("content_type", contentType)))
}

// ApprovalEmailFailed counts an approval email that was swallowed after failing.
func (m *PortalMetrics) ApprovalEmailFailed(ctx context.Context) {
	if m == nil || m.approvalEmailsFailed == nil {
		return
	}
	m.approvalEmailsFailed.Add(ctx, 1)
}
