package middleware

import (
	"context"
	"net/http"
	"time"

	"mui-datatable/internal/observability"
)

type outcomeContextKey struct{}

// AnnotateOutcome lets a grid handler fill in the table, row counts, and
// error kind recorded by DatatableMetricsMiddleware. It is a no-op outside it.
func AnnotateOutcome(ctx context.Context, annotate func(*observability.RequestOutcome)) {
	if outcome, ok := ctx.Value(outcomeContextKey{}).(*observability.RequestOutcome); ok {
		annotate(outcome)
	}
}

// DatatableMetricsMiddleware tracks in-flight grid requests and records one
// outcome per request once the handler returns.
func DatatableMetricsMiddleware(metrics *observability.DatatableMetrics) func(http.Handler) http.Handler {
	if metrics == nil {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			metrics.IncrementActiveRequests(ctx)
			defer metrics.DecrementActiveRequests(ctx)

			outcome := &observability.RequestOutcome{Method: r.Method}
			start := time.Now()
			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r.WithContext(context.WithValue(ctx, outcomeContextKey{}, outcome)))

			outcome.Duration = time.Since(start)
			outcome.Status = rec.status
			if outcome.ErrorKind == "" && rec.status >= 400 {
				outcome.ErrorKind = http.StatusText(rec.status)
			}
			metrics.Record(ctx, *outcome)
		})
	}
}
