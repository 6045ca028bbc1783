package serverapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"mui-datatable/internal/catalog"
	"mui-datatable/internal/config"
	"mui-datatable/internal/datatable"
	"mui-datatable/internal/dbexec"
	"mui-datatable/internal/logging"
	"mui-datatable/internal/middleware"
	"mui-datatable/internal/observability"

	"github.com/spf13/cast"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName          = "mui-datatable/serverapp"
	defaultMaxBodyBytes = 1 << 20
)

// gridRoutes are the authenticated datatable endpoints.
type gridRoutes struct {
	list  http.Handler
	query http.Handler
}

// gridHandler answers one grid request against a catalog table.
type gridHandler struct {
	catalog         *catalog.Catalog
	executor        datatable.Executor
	queryTimeout    time.Duration
	maxBodyBytes    int64
	securityMetrics *observability.SecurityMetrics
	tracer          trace.Tracer
}

func newGridHandler(cat *catalog.Catalog, executor datatable.Executor, server config.ServerConfig, securityMetrics *observability.SecurityMetrics) *gridHandler {
	maxBody := server.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	return &gridHandler{
		catalog:         cat,
		executor:        executor,
		queryTimeout:    server.QueryTimeout,
		maxBodyBytes:    maxBody,
		securityMetrics: securityMetrics,
		tracer:          otel.Tracer(tracerName),
	}
}

func buildGridHandler(cfg *config.Config, logger *logging.Logger, cat *catalog.Catalog, executor datatable.Executor, metrics *observability.DatatableMetrics, securityMetrics *observability.SecurityMetrics) (*gridRoutes, error) {
	var auth func(http.Handler) http.Handler
	if cfg.Server.Auth.OIDCEnabled {
		authMiddleware, err := middleware.OIDCAuthMiddleware(oidcAuthConfig(cfg), logger, securityMetrics)
		if err != nil {
			return nil, err
		}
		auth = authMiddleware
		logger.Info("OIDC auth middleware enabled")
	} else {
		logger.Warn("datatable endpoints are not authenticated - consider enabling OIDC authentication")
	}
	if cfg.Server.Auth.DBRoleEnabled {
		logger.Info("database role middleware enabled",
			slog.String("claim", cfg.Server.Auth.DBRoleClaimName),
			slog.Int("allowed_roles", len(cfg.Server.Auth.DBAllowedRoles)),
		)
	}

	grid := newGridHandler(cat, executor, cfg.Server, securityMetrics)
	var list http.Handler = tablesHandler(cat)
	if auth != nil {
		list = auth(list)
	}
	return &gridRoutes{list: list, query: protect(cfg, auth, metrics, grid)}, nil
}

func (h *gridHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("table")
	ctx := r.Context()
	reqLogger := logging.FromContext(ctx).WithTable(name)
	middleware.AnnotateOutcome(ctx, func(o *observability.RequestOutcome) { o.Table = name })

	table, err := h.catalog.Lookup(name)
	if err != nil {
		h.fail(ctx, w, reqLogger, name, err)
		return
	}

	opts, err := h.decodeOptions(w, r)
	if err != nil {
		middleware.AnnotateOutcome(ctx, func(o *observability.RequestOutcome) { o.ErrorKind = "invalid_options" })
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		reqLogger.Warn("rejected grid options", slog.String("error", err.Error()))
		middleware.WriteError(w, status, err.Error())
		return
	}

	builder, err := table.NewBuilder(middleware.ClaimsFromContext(ctx))
	if err != nil {
		h.fail(ctx, w, reqLogger, name, err)
		return
	}
	if err := builder.ApplyOptions(opts); err != nil {
		h.fail(ctx, w, reqLogger, name, err)
		return
	}
	state, err := builder.Build()
	if err != nil {
		h.fail(ctx, w, reqLogger, name, err)
		return
	}

	resp, err := h.query(ctx, table, state)
	if err != nil {
		h.fail(ctx, w, reqLogger, name, err)
		return
	}

	middleware.AnnotateOutcome(ctx, func(o *observability.RequestOutcome) {
		o.RowsReturned = int64(len(resp.Data))
		o.RowsMatched = resp.Options.Count
	})
	reqLogger.Debug("grid page served",
		slog.Int("page", state.Page()),
		slog.Int("rows_per_page", state.RowsPerPage()),
		slog.Int("rows", len(resp.Data)),
		slog.Int64("count", resp.Options.Count),
	)
	writeJSON(w, http.StatusOK, resp)
}

// query runs the count and page fetch under the configured timeout.
func (h *gridHandler) query(ctx context.Context, table *catalog.Table, state *datatable.QueryState) (*datatable.Response, error) {
	if h.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.queryTimeout)
		defer cancel()
	}

	ctx, span := h.tracer.Start(ctx, "datatable.query",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("datatable.table", table.Name()),
			attribute.String("datatable.source", table.Source()),
			attribute.Int("datatable.page", state.Page()),
			attribute.Int("datatable.rows_per_page", state.RowsPerPage()),
			attribute.Bool("datatable.search", state.SearchText() != ""),
		),
	)
	defer span.End()

	resp, err := state.Response(ctx, h.executor)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, err
	}
	span.SetAttributes(
		attribute.Int64("datatable.count", resp.Options.Count),
		attribute.Int("datatable.rows", len(resp.Data)),
	)
	return resp, nil
}

// decodeOptions reads the options document from a POST body, or from the
// query string of a GET. Discrete query parameters override the options param.
func (h *gridHandler) decodeOptions(w http.ResponseWriter, r *http.Request) (datatable.Options, error) {
	var opts datatable.Options

	if r.Method == http.MethodPost {
		body := http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
		if err := json.NewDecoder(body).Decode(&opts); err != nil && !errors.Is(err, io.EOF) {
			return datatable.Options{}, fmt.Errorf("invalid options: %w", err)
		}
		return opts, nil
	}

	query := r.URL.Query()
	if raw := query.Get("options"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &opts); err != nil {
			return datatable.Options{}, fmt.Errorf("invalid options: %w", err)
		}
	}
	if query.Has("page") {
		page, err := cast.ToIntE(query.Get("page"))
		if err != nil {
			return datatable.Options{}, fmt.Errorf("invalid page: %w", err)
		}
		opts.Page = &page
	}
	if query.Has("rowsPerPage") {
		rows, err := cast.ToIntE(query.Get("rowsPerPage"))
		if err != nil {
			return datatable.Options{}, fmt.Errorf("invalid rowsPerPage: %w", err)
		}
		opts.RowsPerPage = &rows
	}
	if query.Has("searchText") {
		search := query.Get("searchText")
		opts.SearchText = &search
	}
	return opts, nil
}

// fail maps err onto a status code and writes the error body. Internal
// failures are logged in full and answered with a generic message.
func (h *gridHandler) fail(ctx context.Context, w http.ResponseWriter, logger *logging.Logger, table string, err error) {
	status, message, kind := classifyError(err)
	middleware.AnnotateOutcome(ctx, func(o *observability.RequestOutcome) { o.ErrorKind = kind })

	if errors.Is(err, dbexec.ErrRoleNotAllowed) && h.securityMetrics != nil {
		h.securityMetrics.RecordRoleDenied(ctx, table)
	}

	if status >= http.StatusInternalServerError {
		logger.Error("grid request failed", slog.String("error", err.Error()), slog.String("kind", kind))
	} else {
		logger.Warn("grid request rejected", slog.String("error", err.Error()), slog.String("kind", kind))
	}
	middleware.WriteError(w, status, message)
}

func classifyError(err error) (status int, message string, kind string) {
	switch {
	case errors.Is(err, catalog.ErrUnknownTable):
		return http.StatusNotFound, "unknown table", "unknown_table"
	case errors.Is(err, catalog.ErrMissingClaim):
		return http.StatusForbidden, "required claim missing", "missing_claim"
	case errors.Is(err, dbexec.ErrRoleNotAllowed):
		return http.StatusForbidden, "database role not allowed", "role_denied"
	case errors.Is(err, datatable.ErrInvalidPageSize),
		errors.Is(err, datatable.ErrInvalidPage),
		errors.Is(err, datatable.ErrInvalidSortDirection),
		errors.Is(err, datatable.ErrInvalidColumn):
		return http.StatusBadRequest, err.Error(), "invalid_options"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "query timed out", "timeout"
	default:
		return http.StatusInternalServerError, "internal server error", "query"
	}
}

// tablesResponse lists the grids a client may query.
type tablesResponse struct {
	Tables []string `json:"tables"`
}

func tablesHandler(cat *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		names := cat.Names()
		if names == nil {
			names = []string{}
		}
		writeJSON(w, http.StatusOK, tablesResponse{Tables: names})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
