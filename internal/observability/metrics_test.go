package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumValue(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestDatatableMetrics_Record(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := NewDatatableMetrics(provider.Meter(MeterName))
	require.NoError(t, err)

	ctx := context.Background()
	metrics.IncrementActiveRequests(ctx)
	metrics.Record(ctx, RequestOutcome{Table: "users", Method: "POST", Status: 200, Duration: 12 * time.Millisecond, RowsReturned: 10, RowsMatched: 42})
	metrics.Record(ctx, RequestOutcome{Table: "users", Method: "GET", Status: 400, Duration: time.Millisecond, ErrorKind: "invalid_options"})
	metrics.DecrementActiveRequests(ctx)

	got := collect(t, reader)
	assert.Equal(t, int64(2), sumValue(t, got["datatable.requests.total"]))
	assert.Equal(t, int64(1), sumValue(t, got["datatable.errors.total"]))
	assert.Equal(t, int64(0), sumValue(t, got["datatable.requests.active"]))

	matched, ok := got["datatable.rows.matched"].Data.(metricdata.Histogram[int64])
	require.True(t, ok)
	require.Len(t, matched.DataPoints, 1)
	assert.Equal(t, uint64(1), matched.DataPoints[0].Count)
	assert.Equal(t, int64(42), matched.DataPoints[0].Sum)
}

func TestDatatableMetrics_NilSafe(t *testing.T) {
	var metrics *DatatableMetrics
	assert.NotPanics(t, func() {
		metrics.IncrementActiveRequests(context.Background())
		metrics.Record(context.Background(), RequestOutcome{Table: "users"})
		metrics.DecrementActiveRequests(context.Background())
	})
}

func TestSecurityMetrics_RoleDenied(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := NewSecurityMetrics(provider.Meter("security"))
	require.NoError(t, err)

	ctx := context.Background()
	metrics.RecordAuthAttempt(ctx, "/datatables/users")
	metrics.RecordAuthFailure(ctx, "/datatables/users", "invalid_token")
	metrics.RecordRoleDenied(ctx, "users")

	got := collect(t, reader)
	assert.Equal(t, int64(1), sumValue(t, got["security.auth.attempts.total"]))
	assert.Equal(t, int64(1), sumValue(t, got["security.auth.failures.total"]))
	assert.Equal(t, int64(1), sumValue(t, got["security.db_role.denials.total"]))
}
