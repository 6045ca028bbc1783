package dbexec

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrRoleNotAllowed is returned when the requested role is outside the allowlist.
var ErrRoleNotAllowed = errors.New("role not allowed")

// RoleExecutor executes queries using SET ROLE on a dedicated connection.
type RoleExecutor struct {
	db           *sql.DB
	dialect      Dialect
	roleFromCtx  func(context.Context) (string, bool)
	allowedRoles map[string]struct{}
	validateRole bool
}

// RoleExecutorConfig controls role execution behavior.
type RoleExecutorConfig struct {
	DB           *sql.DB
	Dialect      Dialect
	RoleFromCtx  func(context.Context) (string, bool)
	AllowedRoles []string
	ValidateRole bool
}

// NewRoleExecutor creates an executor that applies SET ROLE before each query.
// The role comes from the request context, typically a token claim, so the
// database enforces row and column grants per caller.
func NewRoleExecutor(cfg RoleExecutorConfig) (*RoleExecutor, error) {
	if !cfg.Dialect.SupportsRoles() {
		return nil, fmt.Errorf("%s does not support SET ROLE", cfg.Dialect.Name)
	}
	if cfg.RoleFromCtx == nil {
		return nil, fmt.Errorf("role executor requires a role source")
	}
	allowed := make(map[string]struct{}, len(cfg.AllowedRoles))
	for _, role := range cfg.AllowedRoles {
		allowed[role] = struct{}{}
	}
	return &RoleExecutor{
		db:           cfg.DB,
		dialect:      cfg.Dialect,
		roleFromCtx:  cfg.RoleFromCtx,
		allowedRoles: allowed,
		validateRole: cfg.ValidateRole,
	}, nil
}

func (e *RoleExecutor) allowed(role string) bool {
	if !e.validateRole {
		return true
	}
	_, ok := e.allowedRoles[role]
	return ok
}

func (e *RoleExecutor) QueryContext(ctx context.Context, query string, args ...any) (Rows, error) {
	role, ok := e.roleFromCtx(ctx)
	if !ok || role == "" {
		if e.db == nil {
			return nil, sql.ErrConnDone
		}
		return e.db.QueryContext(ctx, query, args...)
	}
	if !e.allowed(role) {
		return nil, fmt.Errorf("%w: %s", ErrRoleNotAllowed, role)
	}
	if e.db == nil {
		return nil, sql.ErrConnDone
	}

	conn, err := e.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	cleanup := func() {
		_, _ = conn.ExecContext(context.Background(), e.dialect.resetRole)
		_ = conn.Close()
	}

	// SET ROLE is not parameterizable; the role is quoted as an identifier.
	if _, err := conn.ExecContext(ctx, e.dialect.setRole(role)); err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to set role %s: %w", role, err)
	}

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		cleanup()
		return nil, err
	}
	return &roleAwareRows{Rows: rows, cleanup: cleanup}, nil
}

type roleAwareRows struct {
	*sql.Rows
	cleanup func()
}

func (r *roleAwareRows) Close() error {
	defer r.cleanup()
	return r.Rows.Close()
}
