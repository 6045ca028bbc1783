// Command devtoken creates RSA signing keys and mints bearer tokens for local
// testing of claim-scoped tables and database roles.
//
//	devtoken keys --dir .auth
//	devtoken mint --claim tenant=acme --db-role grid_reader
package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cast"
	"github.com/spf13/pflag"
)

const (
	privateKeyFile = "jwt_private.pem"
	publicKeyFile  = "jwt_public.pem"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New("usage: devtoken <keys|mint> [flags]")
	}
	switch args[0] {
	case "keys":
		return runKeys(args[1:], out)
	case "mint":
		return runMint(args[1:], out)
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func runKeys(args []string, out io.Writer) error {
	flags := pflag.NewFlagSet("keys", pflag.ContinueOnError)
	dir := flags.String("dir", ".auth", "Output directory for keys")
	bits := flags.Int("bits", 2048, "RSA key size")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if err := os.MkdirAll(*dir, 0o700); err != nil {
		return fmt.Errorf("failed to create dir: %w", err)
	}
	key, err := rsa.GenerateKey(rand.Reader, *bits)
	if err != nil {
		return fmt.Errorf("failed to generate key: %w", err)
	}

	privatePath := filepath.Join(*dir, privateKeyFile)
	if err := writePEM(privatePath, "RSA PRIVATE KEY", x509.MarshalPKCS1PrivateKey(key), 0o600); err != nil {
		return err
	}
	public, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return fmt.Errorf("failed to marshal public key: %w", err)
	}
	publicPath := filepath.Join(*dir, publicKeyFile)
	if err := writePEM(publicPath, "PUBLIC KEY", public, 0o644); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(out, "wrote %s and %s\n", privatePath, publicPath)
	return nil
}

// mintOptions describes one token.
type mintOptions struct {
	Issuer   string
	Audience []string
	Subject  string
	KeyID    string
	DBRole   string
	// Claims are extra claims. Dotted names nest, so "org.id=acme" becomes {"org":{"id":"acme"}}.
	Claims  map[string]string
	TTL     time.Duration
	Now     time.Time
	Private *rsa.PrivateKey
}

func runMint(args []string, out io.Writer) error {
	flags := pflag.NewFlagSet("mint", pflag.ContinueOnError)
	keyPath := flags.String("key", filepath.Join(".auth", privateKeyFile), "Path to RSA private key (PEM)")
	issuer := flags.String("issuer", "https://localhost:9000", "Token issuer")
	audience := flags.StringSlice("audience", []string{"mui-datatable"}, "Token audience")
	subject := flags.String("subject", "dev-user", "Token subject")
	kid := flags.String("kid", "local-key", "Key ID header")
	dbRole := flags.String("db-role", "", "db_role claim (optional)")
	claims := flags.StringToString("claim", nil, "Extra claims as name=value; dotted names nest")
	ttl := flags.Duration("expires", time.Hour, "Token lifetime")
	if err := flags.Parse(args); err != nil {
		return err
	}

	key, err := loadPrivateKey(*keyPath)
	if err != nil {
		return err
	}
	token, err := mint(mintOptions{
		Issuer:   *issuer,
		Audience: *audience,
		Subject:  *subject,
		KeyID:    *kid,
		DBRole:   *dbRole,
		Claims:   *claims,
		TTL:      *ttl,
		Now:      time.Now(),
		Private:  key,
	})
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(out, token)
	return nil
}

func mint(opts mintOptions) (string, error) {
	if opts.Private == nil {
		return "", errors.New("private key is required")
	}
	if opts.TTL <= 0 {
		return "", errors.New("token lifetime must be positive")
	}

	claims := jwt.MapClaims{
		"iss": opts.Issuer,
		"sub": opts.Subject,
		"aud": opts.Audience,
		"iat": opts.Now.Unix(),
		"nbf": opts.Now.Add(-time.Minute).Unix(),
		"exp": opts.Now.Add(opts.TTL).Unix(),
	}
	if opts.DBRole != "" {
		claims["db_role"] = opts.DBRole
	}
	for name, value := range opts.Claims {
		if err := setClaim(claims, name, claimValue(value)); err != nil {
			return "", err
		}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = opts.KeyID
	return token.SignedString(opts.Private)
}

// claimValue keeps flag values typed where they parse as bool or integer.
func claimValue(raw string) any {
	switch raw {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := cast.ToInt64E(raw); err == nil {
		return n
	}
	return raw
}

func setClaim(claims jwt.MapClaims, name string, value any) error {
	parts := strings.Split(name, ".")
	current := map[string]any(claims)
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part]
		if !ok {
			child := map[string]any{}
			current[part] = child
			current = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("claim %q conflicts with an existing value", name)
		}
		current = child
	}
	current[parts[len(parts)-1]] = value
	return nil
}

func loadPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("failed to decode private key pem")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("unsupported private key type")
	}
	return key, nil
}

func writePEM(path, pemType string, der []byte, perm os.FileMode) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	if err := pem.Encode(file, &pem.Block{Type: pemType, Bytes: der}); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return file.Close()
}
