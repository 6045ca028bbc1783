package serverapp

import (
	"database/sql"
	"fmt"
	"net/http"
	"sync"

	"mui-datatable/internal/catalog"
	"mui-datatable/internal/config"
	"mui-datatable/internal/dbexec"
	"mui-datatable/internal/logging"
	"mui-datatable/internal/observability"
)

// App owns runtime resources for the mui-datatable server lifecycle.
type App struct {
	cfg    *config.Config
	logger *logging.Logger

	loggerProvider *observability.LoggerProvider

	driverName string
	dialect    dbexec.Dialect

	meterProvider    *observability.MeterProvider
	datatableMetrics *observability.DatatableMetrics
	securityMetrics  *observability.SecurityMetrics
	tracerProvider   *observability.TracerProvider

	db         *sql.DB
	dbStatsReg interface{ Unregister() error }

	catalog  *catalog.Catalog
	executor *dbexec.SQLExecutor

	mux     *http.ServeMux
	handler http.Handler

	serverAddr string
	srv        *http.Server

	cleanup cleanupStack

	stateMu      sync.Mutex
	initialized  bool
	started      bool
	serverErrors chan error

	shutdownOnce sync.Once
}

// New creates an App lifecycle wrapper.
func New(cfg *config.Config, logger *logging.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	driverName, err := cfg.Database.DriverName()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database driver: %w", err)
	}
	dialect, err := dbexec.DialectFor(driverName)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:        cfg,
		logger:     logger,
		driverName: driverName,
		dialect:    dialect,
	}, nil
}

// AttachLoggerProvider registers an optional logger provider for shutdown cleanup.
func (a *App) AttachLoggerProvider(provider *observability.LoggerProvider) {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	a.loggerProvider = provider
}

// Handler returns the fully wrapped HTTP handler. It is nil before Init.
func (a *App) Handler() http.Handler {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	return a.handler
}
