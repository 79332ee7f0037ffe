package protected

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"slices"
)

// Encryption errors.
var (
	ErrInvalidKeySize   = errors.New("invalid key size")
	ErrCiphertextShort  = errors.New("ciphertext too short")
	ErrDecryptionFailed = errors.New("decryption failed")
)

// encoding is used for every ciphertext produced here. Its alphabet holds
// none of the characters the token grammar treats as delimiters.
var encoding = base64.RawURLEncoding

// aesProvider implements AES-256-GCM with purpose-derived keys.
type aesProvider struct {
	master   []byte
	purposes []string
	gcm      cipher.AEAD
}

// AES returns an AES-GCM protect provider. The cipher key is derived from
// masterKey and the purpose with HKDF-SHA256, so providers with different
// purposes cannot read each other's ciphertext.
// masterKey must be 16, 24, or 32 bytes.
func AES(masterKey []byte, purpose string) (ProtectProvider, error) {
	if len(masterKey) != 16 && len(masterKey) != 24 && len(masterKey) != 32 {
		return nil, fmt.Errorf("%w: must be 16, 24, or 32 bytes, got %d", ErrInvalidKeySize, len(masterKey))
	}
	return newAESProvider(slices.Clone(masterKey), []string{purpose})
}

func newAESProvider(master []byte, purposes []string) (*aesProvider, error) {
	key, err := deriveKey(master, purposes, 32)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &aesProvider{master: master, purposes: purposes, gcm: gcm}, nil
}

func (p *aesProvider) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, p.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	// Prepend nonce to ciphertext
	return encoding.EncodeToString(p.gcm.Seal(nonce, nonce, []byte(plaintext), nil)), nil
}

func (p *aesProvider) Decrypt(ciphertext string) (string, error) {
	raw, err := encoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDecryptionFailed, err)
	}

	nonceSize := p.gcm.NonceSize()
	if len(raw) < nonceSize {
		return "", ErrCiphertextShort
	}

	nonce, sealed := raw[:nonceSize], raw[nonceSize:]
	plaintext, err := p.gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDecryptionFailed, err)
	}

	return string(plaintext), nil
}

func (p *aesProvider) DeriveSubProvider(subkey string) (ProtectProvider, error) {
	return newAESProvider(p.master, append(slices.Clone(p.purposes), subkey))
}

// rsaProvider implements RSA-OAEP with the purpose path as OAEP label.
type rsaProvider struct {
	pub      *rsa.PublicKey
	priv     *rsa.PrivateKey
	purposes []string
}

// RSA returns an RSA-OAEP protect provider.
// pub is required for encryption; priv is required for decryption.
// Either can be nil if only one operation is needed.
// Plaintext length is bounded by the key size.
func RSA(pub *rsa.PublicKey, priv *rsa.PrivateKey, purpose string) ProtectProvider {
	return &rsaProvider{pub: pub, priv: priv, purposes: []string{purpose}}
}

func (p *rsaProvider) Encrypt(plaintext string) (string, error) {
	if p.pub == nil {
		return "", errors.New("public key required for encryption")
	}

	out, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, p.pub, []byte(plaintext), purposeInfo(p.purposes))
	if err != nil {
		return "", err
	}
	return encoding.EncodeToString(out), nil
}

func (p *rsaProvider) Decrypt(ciphertext string) (string, error) {
	if p.priv == nil {
		return "", errors.New("private key required for decryption")
	}

	raw, err := encoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDecryptionFailed, err)
	}

	out, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, p.priv, raw, purposeInfo(p.purposes))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDecryptionFailed, err)
	}
	return string(out), nil
}

func (p *rsaProvider) DeriveSubProvider(subkey string) (ProtectProvider, error) {
	return &rsaProvider{pub: p.pub, priv: p.priv, purposes: append(slices.Clone(p.purposes), subkey)}, nil
}

// passthroughProvider returns its input unchanged.
type passthroughProvider struct{}

// Passthrough returns a provider whose Encrypt and Decrypt are the identity.
// It is meant for tests and for exercising the token grammar.
func Passthrough() ProtectProvider {
	return passthroughProvider{}
}

func (passthroughProvider) Encrypt(plaintext string) (string, error)  { return plaintext, nil }
func (passthroughProvider) Decrypt(ciphertext string) (string, error) { return ciphertext, nil }

func (p passthroughProvider) DeriveSubProvider(string) (ProtectProvider, error) {
	return p, nil
}

// chainProvider applies providers in sequence.
type chainProvider struct {
	providers []ProtectProvider
}

// Chain returns a provider that encrypts with each provider in order and
// decrypts in reverse order. DeriveSubProvider derives every member.
func Chain(providers ...ProtectProvider) ProtectProvider {
	return &chainProvider{providers: providers}
}

func (c *chainProvider) Encrypt(plaintext string) (string, error) {
	out := plaintext
	for _, p := range c.providers {
		var err error
		if out, err = p.Encrypt(out); err != nil {
			return "", err
		}
	}
	return out, nil
}

func (c *chainProvider) Decrypt(ciphertext string) (string, error) {
	out := ciphertext
	for i := len(c.providers) - 1; i >= 0; i-- {
		var err error
		if out, err = c.providers[i].Decrypt(out); err != nil {
			return "", err
		}
	}
	return out, nil
}

func (c *chainProvider) DeriveSubProvider(subkey string) (ProtectProvider, error) {
	derived := make([]ProtectProvider, len(c.providers))
	for i, p := range c.providers {
		d, err := p.DeriveSubProvider(subkey)
		if err != nil {
			return nil, err
		}
		derived[i] = d
	}
	return &chainProvider{providers: derived}, nil
}
