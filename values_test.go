package protected

import (
	"errors"
	"maps"
	"slices"
	"testing"
)

func TestProtectValue(t *testing.T) {
	cfg, _ := DefaultProtectConfig(Passthrough())

	got, err := ProtectValue(cfg, "Protect:{a}")
	if err != nil {
		t.Fatalf("ProtectValue() error: %v", err)
	}
	if got != "Protected:{a}" {
		t.Errorf("ProtectValue() = %q", got)
	}
}

func TestProtectValues(t *testing.T) {
	cfg, _ := DefaultProtectConfig(Passthrough())
	in := []string{"Protect:{a}", "b", "x=Protect:{c}"}

	got, err := ProtectValues(cfg, in)
	if err != nil {
		t.Fatalf("ProtectValues() error: %v", err)
	}
	want := []string{"Protected:{a}", "b", "x=Protected:{c}"}
	if !slices.Equal(got, want) {
		t.Errorf("ProtectValues() = %v, want %v", got, want)
	}
	if in[0] != "Protect:{a}" {
		t.Error("ProtectValues() modified its input")
	}
}

func TestProtectSeq(t *testing.T) {
	cfg, _ := DefaultProtectConfig(Passthrough())

	got, err := ProtectSeq(cfg, slices.Values([]string{"Protect:{a}", "b"}))
	if err != nil {
		t.Fatalf("ProtectSeq() error: %v", err)
	}
	if !slices.Equal(got, []string{"Protected:{a}", "b"}) {
		t.Errorf("ProtectSeq() = %v", got)
	}
}

func TestProtectMap(t *testing.T) {
	cfg := aesConfig(t, "app")
	m := map[string]string{
		"Db:Password": "Protect:{pw}",
		"Db:Host":     "localhost",
	}

	if err := ProtectMap(cfg, m); err != nil {
		t.Fatalf("ProtectMap() error: %v", err)
	}
	if m["Db:Host"] != "localhost" {
		t.Errorf("unmarked value changed: %q", m["Db:Host"])
	}
	if !cfg.MatchesProtected(m["Db:Password"]) {
		t.Errorf("marked value not protected: %q", m["Db:Password"])
	}
	if plain, _ := cfg.Unprotect(m["Db:Password"]); plain != "pw" {
		t.Errorf("Unprotect() = %q, want %q", plain, "pw")
	}
}

func TestProtectMap_IntKeys(t *testing.T) {
	cfg, _ := DefaultProtectConfig(Passthrough())
	m := map[int]string{1: "Protect:{a}"}

	if err := ProtectMap(cfg, m); err != nil {
		t.Fatalf("ProtectMap() error: %v", err)
	}
	if m[1] != "Protected:{a}" {
		t.Errorf("ProtectMap() = %v", m)
	}
}

func TestProtectMap_InvalidConfig(t *testing.T) {
	if err := ProtectMap(nil, map[string]string{}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("ProtectMap() error = %v, want ErrInvalidConfig", err)
	}
}

func TestProtectEnvironment(t *testing.T) {
	cfg, _ := DefaultProtectConfig(Passthrough())
	env := MapEnvironment{
		"DB_PASSWORD": "Protect:{pw}",
		"API_KEY":     "Protect:{k}",
		"HOME":        "/root",
	}

	changed, err := ProtectEnvironment(cfg, env)
	if err != nil {
		t.Fatalf("ProtectEnvironment() error: %v", err)
	}
	if !slices.Equal(changed, []string{"API_KEY", "DB_PASSWORD"}) {
		t.Errorf("ProtectEnvironment() = %v", changed)
	}

	want := map[string]string{
		"DB_PASSWORD": "Protected:{pw}",
		"API_KEY":     "Protected:{k}",
		"HOME":        "/root",
	}
	if !maps.Equal(map[string]string(env), want) {
		t.Errorf("environment = %v, want %v", env, want)
	}
}

func TestProtectEnvironment_Process(t *testing.T) {
	cfg, _ := DefaultProtectConfig(Passthrough())
	t.Setenv("PROTECTED_TEST_VALUE", "Protect:{v}")

	changed, err := ProtectEnvironment(cfg, ProcessEnvironment())
	if err != nil {
		t.Fatalf("ProtectEnvironment() error: %v", err)
	}
	if !slices.Contains(changed, "PROTECTED_TEST_VALUE") {
		t.Errorf("ProtectEnvironment() = %v, missing PROTECTED_TEST_VALUE", changed)
	}
}

func TestProtectEnvironment_ErrorNamesVariable(t *testing.T) {
	cfg, _ := DefaultProtectConfig(failingEncrypt{})
	env := MapEnvironment{"SECRET": "Protect:{v}"}

	_, err := ProtectEnvironment(cfg, env)
	if !errors.Is(err, ErrEncrypt) {
		t.Fatalf("ProtectEnvironment() error = %v, want ErrEncrypt", err)
	}
	if got := err.Error(); got[:len("environment variable SECRET")] != "environment variable SECRET" {
		t.Errorf("error = %q, want variable name", got)
	}
}

type failingEncrypt struct{}

func (failingEncrypt) Encrypt(string) (string, error) { return "", errors.New("refused") }
func (failingEncrypt) Decrypt(s string) (string, error) {
	return s, nil
}
func (f failingEncrypt) DeriveSubProvider(string) (ProtectProvider, error) { return f, nil }
