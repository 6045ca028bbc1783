package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeysThenMint(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	require.NoError(t, run([]string{"keys", "--dir", dir, "--bits", "1024"}, &out))
	assert.Contains(t, out.String(), privateKeyFile)

	out.Reset()
	require.NoError(t, run([]string{
		"mint",
		"--key", filepath.Join(dir, privateKeyFile),
		"--subject", "alice",
		"--db-role", "grid_reader",
		"--claim", "org.id=acme,org.seats=5,admin=true",
	}, &out))
	raw := strings.TrimSpace(out.String())

	key, err := loadPrivateKey(filepath.Join(dir, privateKeyFile))
	require.NoError(t, err)

	parsed, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		assert.Equal(t, "local-key", token.Header["kid"])
		return &key.PublicKey, nil
	}, jwt.WithValidMethods([]string{"RS256"}), jwt.WithAudience("mui-datatable"))
	require.NoError(t, err)

	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, "alice", claims["sub"])
	assert.Equal(t, "grid_reader", claims["db_role"])
	assert.Equal(t, true, claims["admin"])
	org, ok := claims["org"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "acme", org["id"])
	assert.Equal(t, float64(5), org["seats"])
}

func TestMint_Errors(t *testing.T) {
	_, err := mint(mintOptions{TTL: time.Hour})
	assert.Error(t, err, "missing key")

	_, err = runCapture([]string{"bogus"})
	assert.Error(t, err)
}

func TestSetClaim_Conflict(t *testing.T) {
	claims := jwt.MapClaims{"org": "flat"}
	assert.Error(t, setClaim(claims, "org.id", "acme"))

	claims = jwt.MapClaims{}
	require.NoError(t, setClaim(claims, "a.b.c", "x"))
	assert.Equal(t, "x", claims["a"].(map[string]any)["b"].(map[string]any)["c"])
}

func runCapture(args []string) (string, error) {
	var out bytes.Buffer
	err := run(args, &out)
	return out.String(), err
}
