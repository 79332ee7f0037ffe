package testing

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/zoobzio/protected"
)

func TestTestKey(t *testing.T) {
	key := TestKey(t)
	if len(key) != 32 {
		t.Errorf("TestKey() length = %d, want 32", len(key))
	}
}

func TestTestProvider(t *testing.T) {
	p := TestProvider(t, "app")
	if p == nil {
		t.Fatal("TestProvider() should not return nil")
	}

	// Verify it works
	ciphertext, err := p.Encrypt("test")
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}

	decrypted, err := p.Decrypt(ciphertext)
	if err != nil {
		t.Fatalf("Decrypt() error: %v", err)
	}

	if decrypted != "test" {
		t.Errorf("round-trip failed")
	}
}

func TestReverseProvider_Chained(t *testing.T) {
	base := TestProvider(t, "app")
	chain := protected.Chain(base, ReverseProvider())

	c, _ := chain.Encrypt("secret")
	if _, err := base.Decrypt(c); err == nil {
		t.Error("reversed ciphertext should not decrypt with the base provider")
	}
	got, err := chain.Decrypt(c)
	if err != nil {
		t.Fatalf("Decrypt() error: %v", err)
	}
	if got != "secret" {
		t.Errorf("Decrypt() = %q, want %q", got, "secret")
	}
}

func TestTamperProvider_Chained(t *testing.T) {
	chain := protected.Chain(TestProvider(t, "app"), TamperProvider())

	c, _ := chain.Encrypt("secret")
	if _, err := chain.Decrypt(c); !errors.Is(err, protected.ErrDecryptionFailed) {
		t.Errorf("Decrypt() error = %v, want ErrDecryptionFailed", err)
	}
}

func TestCountingProvider(t *testing.T) {
	c := NewCountingProvider(protected.Passthrough())
	cfg := TestConfig(t, c)

	data := ProtectData(t, cfg, map[string]string{"a": "Protect:{1}", "b": "Protect:{2}", "c": "plain"})
	if c.Encrypts() != 2 {
		t.Errorf("Encrypts() = %d, want 2", c.Encrypts())
	}
	if _, err := cfg.Unprotect(data["a"]); err != nil {
		t.Fatalf("Unprotect() error: %v", err)
	}
	if c.Decrypts() != 1 {
		t.Errorf("Decrypts() = %d, want 1", c.Decrypts())
	}
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := WriteFile(t, dir, filepath.Join("nested", "a.json"), "{}")
	if ReadFile(t, path) != "{}" {
		t.Error("ReadFile() did not return written content")
	}
}
