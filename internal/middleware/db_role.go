package middleware

import (
	"context"
	"fmt"
	"net/http"

	"mui-datatable/internal/catalog"
)

// DefaultDBRoleClaim is the claim read when no claim name is configured.
const DefaultDBRoleClaim = "db_role"

type dbRoleContextKey struct{}

// WithDBRole attaches the database role to the request context.
func WithDBRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, dbRoleContextKey{}, role)
}

// DBRoleFromContext returns the database role chosen for the request.
func DBRoleFromContext(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(dbRoleContextKey{}).(string)
	return role, ok && role != ""
}

// DBRoleMiddleware reads the database role from an authenticated token claim.
// claimName may be a dotted path into nested claims. When allowedRoles is
// non-empty, roles outside it are refused with 403.
func DBRoleMiddleware(claimName string, allowedRoles []string) func(http.Handler) http.Handler {
	if claimName == "" {
		claimName = DefaultDBRoleClaim
	}

	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, role := range allowedRoles {
		allowed[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx, authenticated := AuthFromContext(r.Context())
			if !authenticated {
				WriteError(w, http.StatusUnauthorized, "missing authentication")
				return
			}

			raw, ok := catalog.ClaimValue(authCtx.Claims, claimName)
			if !ok {
				WriteError(w, http.StatusForbidden, fmt.Sprintf("missing %s claim", claimName))
				return
			}

			role, ok := raw.(string)
			if !ok || role == "" {
				WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid %s claim type", claimName))
				return
			}

			if len(allowed) > 0 {
				if _, ok := allowed[role]; !ok {
					WriteError(w, http.StatusForbidden, fmt.Sprintf("invalid database role: %s", role))
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(WithDBRole(r.Context(), role)))
		})
	}
}
