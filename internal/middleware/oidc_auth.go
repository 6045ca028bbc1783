package middleware

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"mui-datatable/internal/logging"
	"mui-datatable/internal/observability"

	"github.com/coreos/go-oidc/v3/oidc"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"
)

const (
	defaultClockSkew   = 2 * time.Minute
	oidcRequestTimeout = 10 * time.Second
)

// OIDCAuthConfig controls OIDC/JWKS validation behavior.
type OIDCAuthConfig struct {
	Enabled   bool
	IssuerURL string
	Audience  string
	ClockSkew time.Duration
	// CAFile is a PEM bundle trusted in addition to the system roots when
	// fetching discovery documents and JWKS.
	CAFile string
}

type authContextKey struct{}

// AuthContext carries validated JWT claims.
type AuthContext struct {
	Subject  string
	Issuer   string
	Audience []string
	Claims   map[string]interface{}
}

// AuthFromContext returns the auth context from a request context.
func AuthFromContext(ctx context.Context) (AuthContext, bool) {
	auth, ok := ctx.Value(authContextKey{}).(AuthContext)
	return auth, ok
}

// WithAuth attaches an authenticated caller to ctx.
func WithAuth(ctx context.Context, auth AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey{}, auth)
}

// ClaimsFromContext returns the caller's token claims, or nil when unauthenticated.
func ClaimsFromContext(ctx context.Context) map[string]interface{} {
	if auth, ok := AuthFromContext(ctx); ok {
		return auth.Claims
	}
	return nil
}

// tokenVerifier is satisfied by *oidc.IDTokenVerifier.
type tokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*oidc.IDToken, error)
}

// OIDCAuthMiddleware validates Bearer tokens against the issuer's JWKS when enabled.
// Optional securityMetrics parameter enables security monitoring; pass nil to disable.
func OIDCAuthMiddleware(cfg OIDCAuthConfig, logger *logging.Logger, securityMetrics ...*observability.SecurityMetrics) (func(http.Handler) http.Handler, error) {
	if !cfg.Enabled {
		return func(next http.Handler) http.Handler { return next }, nil
	}

	var metrics *observability.SecurityMetrics
	if len(securityMetrics) > 0 {
		metrics = securityMetrics[0]
	}

	if cfg.IssuerURL == "" || cfg.Audience == "" {
		return nil, errors.New("oidc auth enabled but issuer/audience not configured")
	}
	issuerURL, err := url.Parse(cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid oidc issuer url: %w", err)
	}
	if issuerURL.Scheme != "https" {
		return nil, errors.New("oidc issuer url must use https")
	}

	httpClient, err := newOIDCHTTPClient(cfg)
	if err != nil {
		return nil, err
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)

	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize oidc provider: %w", err)
	}

	// Expiry is checked by validateTimeClaims so the configured skew applies.
	verifier := provider.Verifier(&oidc.Config{
		ClientID:        cfg.Audience,
		SkipExpiryCheck: true,
	})

	return bearerAuth(verifier, cfg, logger, metrics), nil
}

// newOIDCHTTPClient builds the client used for discovery and key fetches.
func newOIDCHTTPClient(cfg OIDCAuthConfig) (*http.Client, error) {
	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}

	if cfg.CAFile != "" {
		pem, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read oidc ca file %q: %w", cfg.CAFile, err)
		}
		pool, err := x509.SystemCertPool()
		if err != nil || pool == nil {
			pool = x509.NewCertPool()
		}
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("failed to parse oidc ca file %q", cfg.CAFile)
		}
		tlsConfig.RootCAs = pool
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsConfig
	return &http.Client{Transport: transport, Timeout: oidcRequestTimeout}, nil
}

func bearerAuth(verifier tokenVerifier, cfg OIDCAuthConfig, logger *logging.Logger, metrics *observability.SecurityMetrics) func(http.Handler) http.Handler {
	skew := cfg.ClockSkew
	if skew == 0 {
		skew = defaultClockSkew
	}

	reject := func(r *http.Request, w http.ResponseWriter, reason, message string, err error) {
		endpoint := r.URL.Path
		if metrics != nil {
			metrics.RecordAuthFailure(r.Context(), endpoint, reason)
			if reason == "missing_token" {
				metrics.RecordUnauthorizedAttempt(r.Context(), endpoint, reason)
			} else {
				metrics.RecordTokenValidationError(r.Context(), reason)
			}
		}
		if logger != nil {
			attrs := []any{
				slog.String("reason", reason),
				slog.String("endpoint", endpoint),
				slog.String("remote_addr", r.RemoteAddr),
			}
			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
			}
			logging.FromContext(r.Context()).Warn("authentication failed", attrs...)
		}
		writeUnauthorized(w, message)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if metrics != nil {
				metrics.RecordAuthAttempt(r.Context(), r.URL.Path)
			}

			tokenString := bearerToken(r.Header.Get("Authorization"))
			if tokenString == "" {
				reject(r, w, "missing_token", "missing bearer token", nil)
				return
			}

			idToken, err := verifier.Verify(r.Context(), tokenString)
			if err != nil {
				reject(r, w, "verification_failed", "invalid token", err)
				return
			}

			claims := map[string]interface{}{}
			if err := idToken.Claims(&claims); err != nil {
				reject(r, w, "claims_parse_failed", "invalid token claims", err)
				return
			}

			if err := validateTimeClaims(claims, skew, time.Now()); err != nil {
				reject(r, w, "time_validation_failed", "invalid token", err)
				return
			}

			subject, _ := claims["sub"].(string)
			aud := extractAudience(claims)

			if metrics != nil {
				metrics.RecordAuthSuccess(r.Context(), r.URL.Path, idToken.Issuer)
			}
			if logger != nil {
				logging.FromContext(r.Context()).Debug("authentication successful",
					slog.String("subject", subject),
					slog.String("issuer", idToken.Issuer),
				)
			}

			if span := trace.SpanFromContext(r.Context()); span.IsRecording() {
				span.SetAttributes(
					attribute.String("auth.subject", subject),
					attribute.String("auth.issuer", idToken.Issuer),
					attribute.Bool("auth.authenticated", true),
				)
				if len(aud) > 0 {
					span.SetAttributes(attribute.StringSlice("auth.audience", aud))
				}
			}

			ctx := WithAuth(r.Context(), AuthContext{
				Subject:  subject,
				Issuer:   idToken.Issuer,
				Audience: aud,
				Claims:   claims,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) string {
	scheme, token, ok := strings.Cut(value, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	WriteError(w, http.StatusUnauthorized, message)
}

// validateTimeClaims checks exp and nbf against now, allowing skew either way.
// Tokens without exp are rejected.
func validateTimeClaims(claims map[string]interface{}, skew time.Duration, now time.Time) error {
	exp, ok := numericDate(claims["exp"])
	if !ok {
		return errors.New("token has no expiry")
	}
	if now.After(exp.Add(skew)) {
		return errors.New("token expired")
	}
	if nbf, ok := numericDate(claims["nbf"]); ok {
		if now.Add(skew).Before(nbf) {
			return errors.New("token not valid yet")
		}
	}
	return nil
}

func numericDate(value interface{}) (time.Time, bool) {
	switch v := value.(type) {
	case float64:
		return time.Unix(int64(v), 0), true
	case int64:
		return time.Unix(v, 0), true
	case int:
		return time.Unix(int64(v), 0), true
	case json.Number:
		parsed, err := v.Int64()
		if err != nil {
			return time.Time{}, false
		}
		return time.Unix(parsed, 0), true
	case string:
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return time.Time{}, false
		}
		return time.Unix(parsed, 0), true
	default:
		return time.Time{}, false
	}
}

func extractAudience(claims map[string]interface{}) []string {
	switch val := claims["aud"].(type) {
	case string:
		return []string{val}
	case []string:
		return val
	case []interface{}:
		result := make([]string, 0, len(val))
		for _, item := range val {
			if str, ok := item.(string); ok {
				result = append(result, str)
			}
		}
		return result
	default:
		return nil
	}
}
