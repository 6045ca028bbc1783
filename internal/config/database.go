package config

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
)

// tlsConfigName is the name used to register custom TLS configs with the MySQL driver.
const tlsConfigName = "mui-datatable-custom"

// Driver names accepted by database.driver, mapped to the database/sql driver they open.
var driverNames = map[string]string{
	"mysql":      "mysql",
	"tidb":       "mysql",
	"postgres":   "postgres",
	"postgresql": "postgres",
	"pgx":        "pgx",
	"sqlite":     "sqlite",
	"sqlite3":    "sqlite",
}

// DriverName returns the database/sql driver registered for the configured driver.
func (d *DatabaseConfig) DriverName() (string, error) {
	name, ok := driverNames[strings.ToLower(strings.TrimSpace(d.Driver))]
	if !ok {
		return "", fmt.Errorf("unsupported database driver %q", d.Driver)
	}
	return name, nil
}

// EffectivePort returns the configured port or the driver's standard port.
func (d *DatabaseConfig) EffectivePort() int {
	if d.Port != 0 {
		return d.Port
	}
	switch strings.ToLower(strings.TrimSpace(d.Driver)) {
	case "tidb":
		return 4000
	case "postgres", "postgresql", "pgx":
		return 5432
	default:
		return 3306
	}
}

// DSN returns the data source name for the configured driver.
// A configured ConnectionString wins over the discrete fields; TLS settings
// are added only where the connection string leaves them unset.
func (d *DatabaseConfig) DSN() (string, error) {
	driver, err := d.DriverName()
	if err != nil {
		return "", err
	}
	switch driver {
	case "mysql":
		return d.mysqlDSN()
	case "postgres", "pgx":
		return d.postgresDSN()
	default:
		return d.sqliteDSN()
	}
}

func (d *DatabaseConfig) mysqlDSN() (string, error) {
	var cfg *mysql.Config
	if dsn := strings.TrimSpace(d.ConnectionString); dsn != "" {
		parsed, err := mysql.ParseDSN(dsn)
		if err != nil {
			return "", fmt.Errorf("database.dsn is invalid: %w", err)
		}
		cfg = parsed
	} else {
		cfg = mysql.NewConfig()
		cfg.User = d.User
		cfg.Passwd = d.Password
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(d.Host, strconv.Itoa(d.EffectivePort()))
		cfg.DBName = d.Database
		cfg.Loc = time.UTC
	}
	cfg.ParseTime = true

	if cfg.TLSConfig == "" {
		cfg.TLSConfig = d.mysqlTLSParam()
	}
	return cfg.FormatDSN(), nil
}

// mysqlTLSParam returns the tls DSN parameter for the configured mode.
func (d *DatabaseConfig) mysqlTLSParam() string {
	switch d.TLS.Mode {
	case "":
		return ""
	case "off":
		return "false"
	case "skip-verify":
		return "skip-verify"
	case "verify-ca", "verify-full":
		return tlsConfigName
	default:
		return d.TLS.Mode
	}
}

func (d *DatabaseConfig) postgresDSN() (string, error) {
	if dsn := strings.TrimSpace(d.ConnectionString); dsn != "" {
		if _, err := pgx.ParseConfig(dsn); err != nil {
			return "", fmt.Errorf("database.dsn is invalid: %w", err)
		}
		if d.TLS.Mode == "" || strings.Contains(dsn, "sslmode") {
			return dsn, nil
		}
		if strings.Contains(dsn, "://") {
			return appendURLParams(dsn, d.postgresTLSParams())
		}
		// Keyword/value form.
		for _, kv := range d.postgresTLSParams() {
			dsn += fmt.Sprintf(" %s=%s", kv[0], kv[1])
		}
		return dsn, nil
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.EffectivePort())),
		Path:   "/" + d.Database,
	}
	if d.User != "" {
		if d.Password != "" {
			u.User = url.UserPassword(d.User, d.Password)
		} else {
			u.User = url.User(d.User)
		}
	}
	return appendURLParams(u.String(), d.postgresTLSParams())
}

// postgresTLSParams maps the TLS block onto libpq parameters, which lib/pq
// and pgx both understand.
func (d *DatabaseConfig) postgresTLSParams() [][2]string {
	var params [][2]string
	switch d.TLS.Mode {
	case "":
		return nil
	case "off":
		params = append(params, [2]string{"sslmode", "disable"})
	case "skip-verify":
		params = append(params, [2]string{"sslmode", "require"})
	default:
		params = append(params, [2]string{"sslmode", d.TLS.Mode})
	}
	if ca := d.TLS.resolveCAFile(); ca != "" {
		params = append(params, [2]string{"sslrootcert", ca})
	}
	if cert := d.TLS.resolveCertFile(); cert != "" {
		params = append(params, [2]string{"sslcert", cert})
	}
	if key := d.TLS.resolveKeyFile(); key != "" {
		params = append(params, [2]string{"sslkey", key})
	}
	return params
}

func appendURLParams(raw string, params [][2]string) (string, error) {
	if len(params) == 0 {
		return raw, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("database.dsn is invalid: %w", err)
	}
	q := u.Query()
	for _, kv := range params {
		if q.Get(kv[0]) == "" {
			q.Set(kv[0], kv[1])
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (d *DatabaseConfig) sqliteDSN() (string, error) {
	if dsn := strings.TrimSpace(d.ConnectionString); dsn != "" {
		return dsn, nil
	}
	if strings.TrimSpace(d.Database) == "" {
		return "", fmt.Errorf("database.database must name the sqlite file")
	}
	return d.Database, nil
}

// DatabaseName returns the schema the connection targets, for logging.
func (d *DatabaseConfig) DatabaseName() string {
	dsn := strings.TrimSpace(d.ConnectionString)
	if dsn == "" {
		return d.Database
	}
	driver, err := d.DriverName()
	if err != nil {
		return ""
	}
	switch driver {
	case "mysql":
		if parsed, err := mysql.ParseDSN(dsn); err == nil {
			return parsed.DBName
		}
	case "postgres", "pgx":
		if parsed, err := pgx.ParseConfig(dsn); err == nil {
			return parsed.Database
		}
	default:
		return dsn
	}
	return ""
}

// RegisterTLS registers a custom TLS configuration with the MySQL driver.
// It is a no-op for other drivers and for modes the DSN parameter covers.
func (d *DatabaseConfig) RegisterTLS() error {
	if driver, err := d.DriverName(); err != nil || driver != "mysql" {
		return nil
	}
	if d.TLS.Mode != "verify-ca" && d.TLS.Mode != "verify-full" {
		return nil
	}

	tlsCfg, err := d.buildTLSConfig()
	if err != nil {
		return fmt.Errorf("failed to build TLS config: %w", err)
	}
	if err := mysql.RegisterTLSConfig(tlsConfigName, tlsCfg); err != nil {
		return fmt.Errorf("failed to register TLS config: %w", err)
	}
	return nil
}

func (d *DatabaseConfig) buildTLSConfig() (*tls.Config, error) {
	tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12}

	caFile := d.TLS.resolveCAFile()
	certFile := d.TLS.resolveCertFile()
	keyFile := d.TLS.resolveKeyFile()

	if caFile != "" {
		caCert, err := os.ReadFile(caFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file %q: %w", caFile, err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to parse CA certificate from %q", caFile)
		}
		tlsCfg.RootCAs = pool
	}

	if certFile != "" && keyFile != "" {
		cert, err := tls.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	} else if certFile != "" || keyFile != "" {
		return nil, fmt.Errorf("both cert_file and key_file must be specified for client certificate authentication")
	}

	switch d.TLS.Mode {
	case "verify-ca":
		// Chain only; the hostname is not checked.
		tlsCfg.InsecureSkipVerify = true
		tlsCfg.VerifyConnection = verifyChainOnly(tlsCfg.RootCAs)
	case "verify-full":
		if d.TLS.ServerName != "" {
			tlsCfg.ServerName = d.TLS.ServerName
		}
	}
	return tlsCfg, nil
}

func verifyChainOnly(roots *x509.CertPool) func(tls.ConnectionState) error {
	return func(cs tls.ConnectionState) error {
		if len(cs.PeerCertificates) == 0 {
			return fmt.Errorf("server presented no certificates")
		}
		opts := x509.VerifyOptions{Roots: roots, Intermediates: x509.NewCertPool()}
		for _, cert := range cs.PeerCertificates[1:] {
			opts.Intermediates.AddCert(cert)
		}
		_, err := cs.PeerCertificates[0].Verify(opts)
		return err
	}
}

func (t *DatabaseTLSConfig) resolveCAFile() string {
	return resolveEnvPath(t.CAFileEnv, t.CAFile)
}

func (t *DatabaseTLSConfig) resolveCertFile() string {
	return resolveEnvPath(t.CertFileEnv, t.CertFile)
}

func (t *DatabaseTLSConfig) resolveKeyFile() string {
	return resolveEnvPath(t.KeyFileEnv, t.KeyFile)
}

// resolveEnvPath prefers the path held in envName when that variable is set.
func resolveEnvPath(envName, fallback string) string {
	if envName != "" {
		if path := os.Getenv(envName); path != "" {
			return path
		}
	}
	return fallback
}
