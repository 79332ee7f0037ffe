// Package kms provides a protect provider backed by AWS KMS.
//
// Every value is encrypted with the KMS key under an encryption context
// holding the provider's purpose path, so ciphertext produced for one
// purpose is rejected by KMS for any other.
package kms

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/kms"
	"github.com/aws/aws-sdk-go/service/kms/kmsiface"

	"github.com/zoobzio/protected"
)

// ContextKey is the encryption context entry carrying the purpose path.
const ContextKey = "purpose"

var encoding = base64.RawURLEncoding

// Provider encrypts values with a KMS key.
type Provider struct {
	client   kmsiface.KMSAPI
	keyID    string
	purposes []string
}

// New returns a KMS protect provider using keyID for encryption.
func New(client kmsiface.KMSAPI, keyID, purpose string) (*Provider, error) {
	if client == nil {
		return nil, errors.New("kms client required")
	}
	if keyID == "" {
		return nil, errors.New("kms key id required")
	}
	return &Provider{client: client, keyID: keyID, purposes: []string{purpose}}, nil
}

// NewFromRegion builds a KMS client for region from the default AWS
// credential chain.
func NewFromRegion(region, keyID, purpose string) (*Provider, error) {
	sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
	if err != nil {
		return nil, fmt.Errorf("aws session: %w", err)
	}
	return New(kms.New(sess), keyID, purpose)
}

// Path returns the purpose path bound into the encryption context.
// Segments are escaped so that distinct paths never collide.
func (p *Provider) Path() string {
	escaped := make([]string, len(p.purposes))
	for i, s := range p.purposes {
		escaped[i] = url.PathEscape(s)
	}
	return strings.Join(escaped, "/")
}

func (p *Provider) encryptionContext() map[string]*string {
	return map[string]*string{ContextKey: aws.String(p.Path())}
}

// Encrypt implements protected.ProtectProvider.
func (p *Provider) Encrypt(plaintext string) (string, error) {
	out, err := p.client.EncryptWithContext(context.Background(), &kms.EncryptInput{
		KeyId:             aws.String(p.keyID),
		Plaintext:         []byte(plaintext),
		EncryptionContext: p.encryptionContext(),
	})
	if err != nil {
		return "", fmt.Errorf("kms encrypt: %w", err)
	}
	return encoding.EncodeToString(out.CiphertextBlob), nil
}

// Decrypt implements protected.ProtectProvider.
func (p *Provider) Decrypt(ciphertext string) (string, error) {
	blob, err := encoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %w", protected.ErrDecryptionFailed, err)
	}

	out, err := p.client.DecryptWithContext(context.Background(), &kms.DecryptInput{
		KeyId:             aws.String(p.keyID),
		CiphertextBlob:    blob,
		EncryptionContext: p.encryptionContext(),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", protected.ErrDecryptionFailed, err)
	}
	return string(out.Plaintext), nil
}

// DeriveSubProvider implements protected.ProtectProvider.
func (p *Provider) DeriveSubProvider(subkey string) (protected.ProtectProvider, error) {
	return &Provider{client: p.client, keyID: p.keyID, purposes: append(slices.Clone(p.purposes), subkey)}, nil
}
