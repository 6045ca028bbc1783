package observability

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope of the grid request metrics.
const MeterName = "mui-datatable"

// DatatableMetrics holds the metrics recorded for each grid request.
type DatatableMetrics struct {
	requestDuration metric.Float64Histogram
	requestCounter  metric.Int64Counter
	errorCounter    metric.Int64Counter
	activeRequests  metric.Int64UpDownCounter
	rowsReturned    metric.Int64Histogram
	rowsMatched     metric.Int64Histogram
}

// RequestOutcome describes one finished grid request.
type RequestOutcome struct {
	Table    string
	Method   string
	Status   int
	Duration time.Duration
	// ErrorKind classifies failures, e.g. "invalid_options" or "query". Empty on success.
	ErrorKind string
	// RowsReturned and RowsMatched are recorded only for successful requests.
	RowsReturned int64
	RowsMatched  int64
}

// NewDatatableMetrics creates the grid instruments on meter.
func NewDatatableMetrics(meter metric.Meter) (*DatatableMetrics, error) {
	requestDuration, err := meter.Float64Histogram(
		"datatable.request.duration",
		metric.WithDescription("Duration of grid requests in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request duration histogram: %w", err)
	}

	requestCounter, err := meter.Int64Counter(
		"datatable.requests.total",
		metric.WithDescription("Total number of grid requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request counter: %w", err)
	}

	errorCounter, err := meter.Int64Counter(
		"datatable.errors.total",
		metric.WithDescription("Total number of failed grid requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create error counter: %w", err)
	}

	activeRequests, err := meter.Int64UpDownCounter(
		"datatable.requests.active",
		metric.WithDescription("Number of grid requests in flight"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create active requests counter: %w", err)
	}

	rowsReturned, err := meter.Int64Histogram(
		"datatable.rows.returned",
		metric.WithDescription("Rows returned in one grid page"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rows returned histogram: %w", err)
	}

	rowsMatched, err := meter.Int64Histogram(
		"datatable.rows.matched",
		metric.WithDescription("Rows matching the grid filters before paging"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rows matched histogram: %w", err)
	}

	return &DatatableMetrics{
		requestDuration: requestDuration,
		requestCounter:  requestCounter,
		errorCounter:    errorCounter,
		activeRequests:  activeRequests,
		rowsReturned:    rowsReturned,
		rowsMatched:     rowsMatched,
	}, nil
}

// InitMetrics creates the grid metrics on the global meter provider.
func InitMetrics(logger *slog.Logger) (*DatatableMetrics, error) {
	metrics, err := NewDatatableMetrics(otel.Meter(MeterName))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize datatable metrics: %w", err)
	}

	logger.Info("datatable metrics initialized")
	return metrics, nil
}

// Record records a finished grid request.
func (m *DatatableMetrics) Record(ctx context.Context, outcome RequestOutcome) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("table", outcome.Table),
		attribute.String("http.request.method", outcome.Method),
		attribute.String("http.response.status_code", strconv.Itoa(outcome.Status)),
	)

	m.requestDuration.Record(ctx, float64(outcome.Duration)/float64(time.Millisecond), attrs)
	m.requestCounter.Add(ctx, 1, attrs)

	if outcome.ErrorKind != "" {
		m.errorCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("table", outcome.Table),
			attribute.String("error.kind", outcome.ErrorKind),
		))
		return
	}

	tableAttr := metric.WithAttributes(attribute.String("table", outcome.Table))
	m.rowsReturned.Record(ctx, outcome.RowsReturned, tableAttr)
	m.rowsMatched.Record(ctx, outcome.RowsMatched, tableAttr)
}

// IncrementActiveRequests increments the active requests counter
func (m *DatatableMetrics) IncrementActiveRequests(ctx context.Context) {
	if m == nil {
		return
	}
	m.activeRequests.Add(ctx, 1)
}

// DecrementActiveRequests decrements the active requests counter
func (m *DatatableMetrics) DecrementActiveRequests(ctx context.Context) {
	if m == nil {
		return
	}
	m.activeRequests.Add(ctx, -1)
}
