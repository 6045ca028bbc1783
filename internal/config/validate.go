package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"mui-datatable/internal/catalog"
)

// ValidationError represents a configuration validation error with context.
type ValidationError struct {
	Field   string
	Message string
	Hint    string
}

func (e ValidationError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s (hint: %s)", e.Field, e.Message, e.Hint)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Field   string
	Message string
	Hint    string
}

// ValidationResult contains the results of configuration validation.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// HasErrors returns true if there are any validation errors.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// Error returns a combined error message if there are validation errors.
func (r *ValidationResult) Error() string {
	if !r.HasErrors() {
		return ""
	}
	var msgs []string
	for _, e := range r.Errors {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

func (r *ValidationResult) addError(field, message, hint string) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Message: message, Hint: hint})
}

func (r *ValidationResult) addWarning(field, message, hint string) {
	r.Warnings = append(r.Warnings, ValidationWarning{Field: field, Message: message, Hint: hint})
}

// Validate checks the configuration for errors and returns validation results.
// It returns both errors (fatal) and warnings (non-fatal issues).
func (c *Config) Validate() *ValidationResult {
	result := &ValidationResult{}

	c.Database.validate(result)
	c.Server.validate(result, c.Database)
	c.Observability.validate(result)
	c.validateTables(result)

	return result
}

// Catalog builds the table catalog. Validate reports the same errors.
func (c *Config) Catalog() (*catalog.Catalog, error) {
	return catalog.New(c.Tables, c.Datatable)
}

func (c *Config) validateTables(result *ValidationResult) {
	for _, size := range c.Datatable.RowsPerPageOptions {
		if size <= 0 {
			result.addError("datatable.rows_per_page_options", fmt.Sprintf("page size %d must be greater than 0", size), "")
		}
	}
	if c.Datatable.RowsPerPage < 0 {
		result.addError("datatable.rows_per_page", "rows_per_page cannot be negative", "")
	}
	if c.Datatable.MaxRowsPerPage < 0 {
		result.addError("datatable.max_rows_per_page", "max_rows_per_page cannot be negative", "set 0 to leave page sizes unbounded")
	}

	if len(c.Tables) == 0 {
		result.addWarning("tables", "no tables configured", "every /datatables/{table} request will return 404")
		return
	}
	if _, err := c.Catalog(); err != nil {
		result.addError("tables", err.Error(), "")
	}
	if !c.Server.Auth.OIDCEnabled {
		for name, table := range c.Tables {
			if len(table.ClaimWhere) > 0 {
				result.addError(fmt.Sprintf("tables.%s.claim_where", name),
					"claim_where requires OIDC to be enabled",
					"set server.auth.oidc_enabled=true or remove claim_where")
			}
		}
	}
}

func (d *DatabaseConfig) validate(result *ValidationResult) {
	driver, err := d.DriverName()
	if err != nil {
		result.addError("database.driver", err.Error(), "valid values are: mysql, tidb, postgres, pgx, sqlite")
		return
	}

	if strings.TrimSpace(d.ConnectionString) == "" && driver != "sqlite" && (d.Port < 0 || d.Port > 65535) {
		result.addError("database.port", fmt.Sprintf("port %d is out of valid range (1-65535)", d.Port), "set 0 to use the driver default")
	}

	if driver != "sqlite" {
		d.TLS.validate(result)
	} else if d.TLS.Mode != "" {
		result.addWarning("database.tls.mode", "TLS settings are ignored for sqlite", "")
	}

	if _, err := d.DSN(); err != nil {
		field := "database.dsn"
		if driver == "sqlite" && strings.TrimSpace(d.ConnectionString) == "" {
			field = "database.database"
		}
		result.addError(field, err.Error(), "")
	}

	if d.Pool.MaxOpen < 0 {
		result.addError("database.pool.max_open", "max_open cannot be negative", "")
	}
	if d.Pool.MaxIdle < 0 {
		result.addError("database.pool.max_idle", "max_idle cannot be negative", "")
	}
	if d.Pool.MaxIdle > d.Pool.MaxOpen && d.Pool.MaxOpen > 0 {
		result.addWarning("database.pool.max_idle", "max_idle is greater than max_open", "idle connections will be limited to max_open")
	}

	if d.ConnectionTimeout > 0 && d.ConnectionRetryInterval > d.ConnectionTimeout {
		result.addWarning("database.connection_retry_interval",
			"connection_retry_interval is greater than connection_timeout",
			"only one connection attempt will be made")
	}
	if d.ConnectionRetryInterval < 0 {
		result.addError("database.connection_retry_interval", "connection_retry_interval cannot be negative", "")
	}
	if d.ConnectionTimeout > 0 && d.ConnectionRetryInterval == 0 {
		result.addError("database.connection_retry_interval",
			"connection_retry_interval must be greater than 0 when connection_timeout is set",
			"set a retry interval such as 2s, or set connection_timeout to 0 to disable retries")
	}
	if d.ConnectionTimeout < 0 {
		result.addError("database.connection_timeout", "connection_timeout cannot be negative", "")
	}
}

func (t *DatabaseTLSConfig) validate(result *ValidationResult) {
	validModes := map[string]bool{"": true, "off": true, "skip-verify": true, "verify-ca": true, "verify-full": true}
	if !validModes[t.Mode] {
		result.addError("database.tls.mode", fmt.Sprintf("invalid TLS mode %q", t.Mode), "valid values are: off, skip-verify, verify-ca, verify-full")
	}

	if (t.Mode == "verify-ca" || t.Mode == "verify-full") && t.resolveCAFile() == "" {
		result.addError("database.tls.ca_file", "CA file is required for verify-ca and verify-full modes", "set ca_file or ca_file_env to specify the CA certificate")
	}

	certFile := t.resolveCertFile()
	keyFile := t.resolveKeyFile()
	if (certFile != "") != (keyFile != "") {
		result.addError("database.tls.cert_file",
			"both cert_file and key_file must be specified for client certificate authentication",
			"provide both cert_file and key_file, or neither")
	}

	if t.Mode == "skip-verify" {
		result.addWarning("database.tls.mode", "skip-verify mode does not verify server certificates", "use verify-ca or verify-full in production")
	}
}

func (s *ServerConfig) validate(result *ValidationResult, db DatabaseConfig) {
	if s.Port < 1 || s.Port > 65535 {
		result.addError("server.port", fmt.Sprintf("port %d is out of valid range (1-65535)", s.Port), "")
	}

	if s.RateLimitEnabled {
		if s.RateLimitRPS <= 0 {
			result.addError("server.rate_limit_rps", "rate_limit_rps must be greater than 0 when rate limiting is enabled", "")
		}
		if s.RateLimitBurst <= 0 {
			result.addError("server.rate_limit_burst", "rate_limit_burst must be greater than 0 when rate limiting is enabled", "")
		}
	}
	if !s.RateLimitEnabled && (s.RateLimitRPS > 0 || s.RateLimitBurst > 0) {
		result.addWarning("server.rate_limit_enabled", "rate limit values are set but rate limiting is disabled", "enable server.rate_limit_enabled to apply rate limits")
	}

	if s.QueryTimeout < 0 {
		result.addError("server.query_timeout", "query_timeout cannot be negative", "")
	}
	if s.MaxBodyBytes <= 0 {
		result.addError("server.max_body_bytes", "max_body_bytes must be greater than 0", "")
	}

	if s.CORSEnabled {
		if len(s.CORSAllowedOrigins) == 0 {
			result.addError("server.cors_allowed_origins", "CORS enabled but no allowed origins configured", "set cors_allowed_origins or disable CORS")
		}

		hasWildcard := false
		for _, origin := range s.CORSAllowedOrigins {
			if strings.TrimSpace(origin) == "*" {
				hasWildcard = true
				break
			}
		}
		if hasWildcard && s.CORSAllowCredentials {
			result.addError("server.cors_allowed_origins", "wildcard origin (*) cannot be used with credentials", "use specific origins with credentials, or wildcard without credentials")
		}
		if hasWildcard {
			result.addWarning("server.cors_allowed_origins", "CORS wildcard origin enabled", "use specific origins in production for better security")
		}
	}

	if s.Auth.OIDCEnabled {
		if s.Auth.OIDCIssuerURL == "" {
			result.addError("server.auth.oidc_issuer_url", "issuer URL is required when OIDC is enabled", "")
		} else if u, err := url.Parse(s.Auth.OIDCIssuerURL); err != nil || u.Scheme != "https" {
			result.addError("server.auth.oidc_issuer_url", "issuer URL must be an https URL", "")
		}
		if s.Auth.OIDCAudience == "" {
			result.addError("server.auth.oidc_audience", "audience is required when OIDC is enabled", "")
		}
	}

	if s.Auth.DBRoleEnabled {
		if !s.Auth.OIDCEnabled {
			result.addError("server.auth.db_role_enabled", "db_role_enabled requires OIDC to be enabled", "set server.auth.oidc_enabled=true or disable db_role_enabled")
		}
		if driver, err := db.DriverName(); err == nil && driver == "sqlite" {
			result.addError("server.auth.db_role_enabled", "sqlite has no database roles", "disable db_role_enabled or use mysql/postgres")
		}
		if strings.TrimSpace(s.Auth.DBRoleClaimName) == "" {
			result.addError("server.auth.db_role_claim_name", "claim name is required when db_role_enabled is true", "")
		}
		if len(s.Auth.DBAllowedRoles) == 0 {
			result.addWarning("server.auth.db_allowed_roles", "any role named by a token will be assumed", "list the roles tokens may select")
		}
	}

	validTLSModes := map[string]bool{"": true, "off": true, "file": true}
	if !validTLSModes[s.TLSMode] {
		result.addError("server.tls_mode", fmt.Sprintf("invalid TLS mode %q", s.TLSMode), "valid values are: off, file")
	}
	if s.TLSMode == "file" {
		if s.TLSCertFile == "" {
			result.addError("server.tls_cert_file", "TLS cert file required when tls_mode is 'file'", "")
		}
		if s.TLSKeyFile == "" {
			result.addError("server.tls_key_file", "TLS key file required when tls_mode is 'file'", "")
		}
	}
}

func (o *ObservabilityConfig) validate(result *ValidationResult) {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[o.Logging.Level] {
		result.addError("observability.logging.level", fmt.Sprintf("invalid log level %q", o.Logging.Level), "valid values are: debug, info, warn, error")
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[o.Logging.Format] {
		result.addError("observability.logging.format", fmt.Sprintf("invalid log format %q", o.Logging.Format), "valid values are: json, text")
	}

	if o.TraceSampleRatio < 0 || o.TraceSampleRatio > 1 {
		result.addError("observability.trace_sample_ratio", fmt.Sprintf("trace_sample_ratio %v must be between 0 and 1", o.TraceSampleRatio), "")
	}

	o.OTLP.validate("observability.otlp", result)
	if o.Traces != nil {
		o.Traces.validate("observability.traces", result)
	}
	if o.Logs != nil {
		o.Logs.validate("observability.logs", result)
	}
}

func (o *OTLPConfig) validate(prefix string, result *ValidationResult) {
	validProtocols := map[string]bool{"": true, "grpc": true, "http/protobuf": true}
	if !validProtocols[o.Protocol] {
		result.addError(prefix+".protocol", fmt.Sprintf("invalid OTLP protocol %q", o.Protocol), "valid values are: grpc, http/protobuf")
	}

	if o.Protocol == "http/protobuf" && !validOTLPEndpoint(o.Endpoint) {
		result.addError(prefix+".endpoint", fmt.Sprintf("invalid OTLP endpoint %q for http/protobuf", o.Endpoint), "use host:port or a full URL")
	}

	validCompressions := map[string]bool{"": true, "none": true, "gzip": true}
	if !validCompressions[o.Compression] {
		result.addError(prefix+".compression", fmt.Sprintf("invalid OTLP compression %q", o.Compression), "valid values are: none, gzip")
	}

	if o.RetryMaxAttempts < 0 {
		result.addError(prefix+".retry_max_attempts", "retry_max_attempts cannot be negative", "")
	}
}

func validOTLPEndpoint(endpoint string) bool {
	if endpoint == "" {
		return false
	}
	if strings.Contains(endpoint, "://") {
		parsed, err := url.Parse(endpoint)
		if err != nil {
			return false
		}
		return parsed.Host != ""
	}
	_, _, err := net.SplitHostPort(endpoint)
	return err == nil
}
