package yaml

import (
	"regexp"
	"strings"
	"testing"

	"github.com/zoobzio/protected"
)

var protectPattern = regexp.MustCompile(protected.DefaultProtectPattern)

func mark(s string) (string, error) {
	return "[" + s + "]", nil
}

func TestProtectFile_Values(t *testing.T) {
	raw := `# database settings
db:
  password: "Protect:{pw}" # inline
  port: 5432
  Protect:{key}: plain
hosts:
  - Protect:{a}
  - b
`
	out, err := New().ProtectFile(raw, protectPattern, mark)
	if err != nil {
		t.Fatalf("ProtectFile() error: %v", err)
	}

	for _, want := range []string{
		"# database settings",
		`password: "[Protect:{pw}]" # inline`,
		"port: 5432",
		"Protect:{key}",
		"plain",
		"[Protect:{a}]",
		"- b",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestProtectFile_NonStringScalarsIgnored(t *testing.T) {
	raw := "a: !!int 1\nb: true\n"
	out, err := New().ProtectFile(raw, regexp.MustCompile(`.+`), mark)
	if err != nil {
		t.Fatalf("ProtectFile() error: %v", err)
	}
	if out != raw {
		t.Errorf("ProtectFile() = %q, want input unchanged", out)
	}
}

func TestProtectFile_MultiDocument(t *testing.T) {
	raw := "a: Protect:{x}\n---\nb: Protect:{y}\n"
	out, err := New().ProtectFile(raw, protectPattern, mark)
	if err != nil {
		t.Fatalf("ProtectFile() error: %v", err)
	}
	if !strings.Contains(out, "[Protect:{x}]") || !strings.Contains(out, "[Protect:{y}]") || !strings.Contains(out, "---") {
		t.Errorf("ProtectFile() = %q, want both documents protected", out)
	}
}

func TestProtectFile_NoMatchReturnsInput(t *testing.T) {
	raw := "a:    b   # spaced\n"
	out, err := New().ProtectFile(raw, protectPattern, mark)
	if err != nil {
		t.Fatalf("ProtectFile() error: %v", err)
	}
	if out != raw {
		t.Errorf("ProtectFile() = %q, want input unchanged", out)
	}
}

func TestParse(t *testing.T) {
	data := []byte(`
Db:
  Host: h
  Port: 5432
  Opt: ~
Servers:
  - Name: a
  - b
`)
	m, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	want := map[string]string{
		"Db:Host":        "h",
		"Db:Port":        "5432",
		"Db:Opt":         "",
		"Servers:0:Name": "a",
		"Servers:1":      "b",
	}
	if len(m) != len(want) {
		t.Errorf("Parse() = %v, want %v", m, want)
	}
	for k, v := range want {
		if m[k] != v {
			t.Errorf("Parse()[%s] = %q, want %q", k, m[k], v)
		}
	}
}

func TestParse_Empty(t *testing.T) {
	m, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(m) != 0 {
		t.Errorf("Parse() = %v, want empty", m)
	}
}

func TestParse_RootMustBeMapping(t *testing.T) {
	if _, err := Parse([]byte("- a\n- b\n")); err == nil {
		t.Error("expected error for sequence root")
	}
}

func TestRegistered(t *testing.T) {
	if _, ok := protected.LookupProcessor(Name); !ok {
		t.Error("yaml processor not registered")
	}
}
