package protected

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
)

// Argon2Params configures Argon2id passphrase stretching.
type Argon2Params struct {
	Time    uint32 // Number of iterations
	Memory  uint32 // Memory usage in KiB
	Threads uint8  // Parallelism factor
	KeyLen  uint32 // Output key length
	SaltLen uint32 // Salt length
}

// DefaultArgon2Params returns recommended Argon2id parameters.
// Based on OWASP recommendations for password hashing.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Time:    1,
		Memory:  64 * 1024, // 64 MiB
		Threads: 4,
		KeyLen:  32,
		SaltLen: 16,
	}
}

// NewSalt returns a random salt of the default length.
func NewSalt() ([]byte, error) {
	salt := make([]byte, DefaultArgon2Params().SaltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// KeyFromPassphrase stretches a passphrase into a 32-byte master key with
// Argon2id and default parameters. The same passphrase and salt always
// produce the same key.
func KeyFromPassphrase(passphrase, salt []byte) []byte {
	return KeyFromPassphraseWithParams(passphrase, salt, DefaultArgon2Params())
}

// KeyFromPassphraseWithParams is KeyFromPassphrase with custom parameters.
func KeyFromPassphraseWithParams(passphrase, salt []byte, p Argon2Params) []byte {
	return argon2.IDKey(passphrase, salt, p.Time, p.Memory, p.Threads, p.KeyLen)
}

// purposeInfo encodes a purpose path unambiguously: each segment is
// length-prefixed so ("ab", "c") and ("a", "bc") differ.
func purposeInfo(purposes []string) []byte {
	info := []byte("protected/v1")
	for _, p := range purposes {
		info = binary.BigEndian.AppendUint32(info, uint32(len(p))) // #nosec G115 -- purpose strings are short
		info = append(info, p...)
	}
	return info
}

// deriveKey derives a purpose-bound key of size bytes from master.
func deriveKey(master []byte, purposes []string, size int) ([]byte, error) {
	key := make([]byte, size)
	r := hkdf.New(sha256.New, master, nil, purposeInfo(purposes))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}
