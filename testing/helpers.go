// Package testing provides test utilities for protected.
package testing

import (
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync/atomic"
	"testing"

	"github.com/zoobzio/protected"
)

// TestKey returns a valid 32-byte AES key for testing.
func TestKey(tb testing.TB) []byte {
	tb.Helper()
	return []byte("32-byte-key-for-aes-256-encrypt!")
}

// TestProvider returns an AES provider bound to purpose.
func TestProvider(tb testing.TB, purpose string) protected.ProtectProvider {
	tb.Helper()
	p, err := protected.AES(TestKey(tb), purpose)
	if err != nil {
		tb.Fatalf("AES() error: %v", err)
	}
	return p
}

// TestConfig returns a default configuration over provider.
func TestConfig(tb testing.TB, provider protected.ProtectProvider, opts ...protected.Option) *protected.ProtectConfig {
	tb.Helper()
	cfg, err := protected.DefaultProtectConfig(provider, opts...)
	if err != nil {
		tb.Fatalf("DefaultProtectConfig() error: %v", err)
	}
	return cfg
}

// ProtectData returns a copy of data with every protect token protected.
func ProtectData(tb testing.TB, cfg *protected.ProtectConfig, data map[string]string) map[string]string {
	tb.Helper()
	out := maps.Clone(data)
	if err := protected.ProtectMap(cfg, out); err != nil {
		tb.Fatalf("ProtectMap() error: %v", err)
	}
	return out
}

// WriteFile writes content to name under dir and returns the path.
func WriteFile(tb testing.TB, dir, name, content string) string {
	tb.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		tb.Fatalf("MkdirAll() error: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		tb.Fatalf("WriteFile() error: %v", err)
	}
	return path
}

// ReadFile returns the content of path.
func ReadFile(tb testing.TB, path string) string {
	tb.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		tb.Fatalf("ReadFile() error: %v", err)
	}
	return string(data)
}

// reverseProvider reverses its input in both directions.
type reverseProvider struct{}

// ReverseProvider returns a provider whose Encrypt and Decrypt reverse the
// string. Chained after a real provider it changes the ciphertext without
// breaking the round trip.
func ReverseProvider() protected.ProtectProvider {
	return reverseProvider{}
}

func (reverseProvider) Encrypt(s string) (string, error) { return reverse(s), nil }
func (reverseProvider) Decrypt(s string) (string, error) { return reverse(s), nil }

func (r reverseProvider) DeriveSubProvider(string) (protected.ProtectProvider, error) {
	return r, nil
}

func reverse(s string) string {
	r := []rune(s)
	slices.Reverse(r)
	return string(r)
}

// tamperProvider corrupts ciphertext on the way back.
type tamperProvider struct{}

// TamperProvider returns a provider whose Encrypt is the identity and whose
// Decrypt flips the first character. Chained after an authenticated
// provider it simulates tampered ciphertext.
func TamperProvider() protected.ProtectProvider {
	return tamperProvider{}
}

func (tamperProvider) Encrypt(s string) (string, error) { return s, nil }

func (tamperProvider) Decrypt(s string) (string, error) {
	if s == "" {
		return s, nil
	}
	b := []byte(s)
	if b[0] == 'A' {
		b[0] = 'B'
	} else {
		b[0] = 'A'
	}
	return string(b), nil
}

func (t tamperProvider) DeriveSubProvider(string) (protected.ProtectProvider, error) {
	return t, nil
}

// CountingProvider wraps a provider and counts its calls.
type CountingProvider struct {
	protected.ProtectProvider
	encrypts atomic.Int64
	decrypts atomic.Int64
}

// NewCountingProvider wraps p.
func NewCountingProvider(p protected.ProtectProvider) *CountingProvider {
	return &CountingProvider{ProtectProvider: p}
}

// Encrypt counts and delegates.
func (c *CountingProvider) Encrypt(s string) (string, error) {
	c.encrypts.Add(1)
	return c.ProtectProvider.Encrypt(s)
}

// Decrypt counts and delegates.
func (c *CountingProvider) Decrypt(s string) (string, error) {
	c.decrypts.Add(1)
	return c.ProtectProvider.Decrypt(s)
}

// Encrypts returns the number of Encrypt calls.
func (c *CountingProvider) Encrypts() int64 { return c.encrypts.Load() }

// Decrypts returns the number of Decrypt calls.
func (c *CountingProvider) Decrypts() int64 { return c.decrypts.Load() }
