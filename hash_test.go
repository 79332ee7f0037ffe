package protected

import (
	"bytes"
	"testing"
)

// fastParams keeps Argon2 cheap in tests.
var fastParams = Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

func TestKeyFromPassphrase_Deterministic(t *testing.T) {
	salt := []byte("0123456789abcdef")

	k1 := KeyFromPassphraseWithParams([]byte("hunter2"), salt, fastParams)
	k2 := KeyFromPassphraseWithParams([]byte("hunter2"), salt, fastParams)

	if !bytes.Equal(k1, k2) {
		t.Error("same passphrase and salt should produce the same key")
	}
	if len(k1) != 32 {
		t.Errorf("key length = %d, want 32", len(k1))
	}
}

func TestKeyFromPassphrase_SaltMatters(t *testing.T) {
	k1 := KeyFromPassphraseWithParams([]byte("hunter2"), []byte("salt-one-16bytes"), fastParams)
	k2 := KeyFromPassphraseWithParams([]byte("hunter2"), []byte("salt-two-16bytes"), fastParams)

	if bytes.Equal(k1, k2) {
		t.Error("different salts should produce different keys")
	}
}

func TestKeyFromPassphrase_UsableAsAESKey(t *testing.T) {
	key := KeyFromPassphrase([]byte("hunter2"), []byte("0123456789abcdef"))
	if _, err := AES(key, "app"); err != nil {
		t.Fatalf("AES() error: %v", err)
	}
}

func TestNewSalt(t *testing.T) {
	s1, err := NewSalt()
	if err != nil {
		t.Fatalf("NewSalt() error: %v", err)
	}
	s2, _ := NewSalt()

	if len(s1) != int(DefaultArgon2Params().SaltLen) {
		t.Errorf("salt length = %d, want %d", len(s1), DefaultArgon2Params().SaltLen)
	}
	if bytes.Equal(s1, s2) {
		t.Error("salts should be random")
	}
}

func TestDefaultArgon2Params(t *testing.T) {
	params := DefaultArgon2Params()

	if params.Time != 1 {
		t.Errorf("Time = %d, want 1", params.Time)
	}
	if params.Memory != 64*1024 {
		t.Errorf("Memory = %d, want %d", params.Memory, 64*1024)
	}
	if params.KeyLen != 32 {
		t.Errorf("KeyLen = %d, want 32", params.KeyLen)
	}
}

func TestDeriveKey_PurposeBound(t *testing.T) {
	k1, err := deriveKey(testKey, []string{"a"}, 32)
	if err != nil {
		t.Fatalf("deriveKey() error: %v", err)
	}
	k2, _ := deriveKey(testKey, []string{"a"}, 32)
	k3, _ := deriveKey(testKey, []string{"a", "b"}, 32)

	if !bytes.Equal(k1, k2) {
		t.Error("deriveKey() should be deterministic")
	}
	if bytes.Equal(k1, k3) {
		t.Error("extending the purpose path should change the key")
	}
}
