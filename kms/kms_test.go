package kms

import (
	"bytes"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/kms"
	"github.com/aws/aws-sdk-go/service/kms/kmsiface"

	"github.com/zoobzio/protected"
)

// fakeKMS binds the encryption context into the blob and rejects a
// mismatched context on decrypt, as KMS does.
type fakeKMS struct {
	kmsiface.KMSAPI
	calls int
}

func (f *fakeKMS) EncryptWithContext(_ aws.Context, in *kms.EncryptInput, _ ...request.Option) (*kms.EncryptOutput, error) {
	f.calls++
	blob := []byte(aws.StringValue(in.KeyId) + "\x00" + aws.StringValue(in.EncryptionContext[ContextKey]) + "\x00")
	return &kms.EncryptOutput{CiphertextBlob: append(blob, in.Plaintext...), KeyId: in.KeyId}, nil
}

func (f *fakeKMS) DecryptWithContext(_ aws.Context, in *kms.DecryptInput, _ ...request.Option) (*kms.DecryptOutput, error) {
	f.calls++
	parts := bytes.SplitN(in.CiphertextBlob, []byte{0}, 3)
	if len(parts) != 3 ||
		string(parts[0]) != aws.StringValue(in.KeyId) ||
		string(parts[1]) != aws.StringValue(in.EncryptionContext[ContextKey]) {
		return nil, awserr.New(kms.ErrCodeInvalidCiphertextException, "invalid ciphertext", nil)
	}
	return &kms.DecryptOutput{Plaintext: parts[2], KeyId: in.KeyId}, nil
}

func TestProvider_RoundTrip(t *testing.T) {
	client := &fakeKMS{}
	p, err := New(client, "alias/app", "app")
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	c, err := p.Encrypt("secret")
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}
	got, err := p.Decrypt(c)
	if err != nil {
		t.Fatalf("Decrypt() error: %v", err)
	}
	if got != "secret" {
		t.Errorf("Decrypt() = %q, want %q", got, "secret")
	}
	if client.calls != 2 {
		t.Errorf("client called %d times, want 2", client.calls)
	}
}

func TestProvider_DeriveSubProvider(t *testing.T) {
	p, _ := New(&fakeKMS{}, "alias/app", "app")
	sub, err := p.DeriveSubProvider("db")
	if err != nil {
		t.Fatalf("DeriveSubProvider() error: %v", err)
	}
	if got := sub.(*Provider).Path(); got != "app/db" {
		t.Errorf("Path() = %q, want %q", got, "app/db")
	}

	c, _ := sub.Encrypt("secret")
	_, err = p.Decrypt(c)
	if !errors.Is(err, protected.ErrDecryptionFailed) {
		t.Errorf("parent Decrypt() error = %v, want ErrDecryptionFailed", err)
	}
}

func TestProvider_PathEscaping(t *testing.T) {
	a, _ := New(&fakeKMS{}, "k", "a/b")
	b, _ := New(&fakeKMS{}, "k", "a")
	bsub, _ := b.DeriveSubProvider("b")

	if a.Path() == bsub.(*Provider).Path() {
		t.Errorf("paths collide: %q", a.Path())
	}
}

func TestProvider_WithProtectConfig(t *testing.T) {
	p, _ := New(&fakeKMS{}, "alias/app", "P")
	cfg, err := protected.DefaultProtectConfig(p)
	if err != nil {
		t.Fatalf("DefaultProtectConfig() error: %v", err)
	}

	out, err := cfg.Protect("Protect:{mySubPurpose}:{42}")
	if err != nil {
		t.Fatalf("Protect() error: %v", err)
	}
	got, err := cfg.Unprotect(out)
	if err != nil {
		t.Fatalf("Unprotect() error: %v", err)
	}
	if got != "42" {
		t.Errorf("Unprotect() = %q, want %q", got, "42")
	}
}

func TestProvider_BadCiphertext(t *testing.T) {
	p, _ := New(&fakeKMS{}, "alias/app", "app")
	if _, err := p.Decrypt("!!"); !errors.Is(err, protected.ErrDecryptionFailed) {
		t.Errorf("Decrypt() error = %v, want ErrDecryptionFailed", err)
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(nil, "k", "app"); err == nil {
		t.Error("expected error for nil client")
	}
	if _, err := New(&fakeKMS{}, "", "app"); err == nil {
		t.Error("expected error for empty key id")
	}
}
