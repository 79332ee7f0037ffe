package configuration

import (
	"errors"
	"slices"
	"testing"
)

func newTestProvider(data map[string]string) *DataProvider {
	p := NewDataProvider(func() (map[string]string, error) { return data, nil })
	if err := p.Load(); err != nil {
		panic(err)
	}
	return p
}

func TestDataProvider_CaseInsensitive(t *testing.T) {
	p := newTestProvider(map[string]string{"Db:Password": "secret"})

	v, ok := p.TryGet("db:PASSWORD")
	if !ok || v != "secret" {
		t.Errorf("TryGet() = %q, %v; want secret, true", v, ok)
	}

	p.Set("DB:password", "other")
	keys := p.Keys()
	if len(keys) != 1 || keys[0] != "Db:Password" {
		t.Errorf("Keys() = %v, want original casing kept", keys)
	}
}

func TestDataProvider_GetChildKeys(t *testing.T) {
	p := newTestProvider(map[string]string{
		"A":          "1",
		"A:B":        "2",
		"A:C:D":      "3",
		"A:C:E":      "4",
		"Servers:10": "x",
		"Servers:2":  "y",
		"AB":         "5",
	})

	got := p.GetChildKeys(nil, "A")
	want := []string{"B", "C", "C"}
	if !slices.Equal(got, want) {
		t.Errorf("GetChildKeys(A) = %v, want %v", got, want)
	}

	got = p.GetChildKeys(nil, "servers")
	want = []string{"2", "10"}
	if !slices.Equal(got, want) {
		t.Errorf("GetChildKeys(servers) = %v, want %v", got, want)
	}

	got = p.GetChildKeys([]string{"Z"}, "")
	want = []string{"A", "A", "A", "A", "AB", "Servers", "Servers", "Z"}
	if !slices.Equal(got, want) {
		t.Errorf("GetChildKeys() = %v, want %v", got, want)
	}
}

func TestDataProvider_ReloadToken(t *testing.T) {
	static := NewDataProvider(nil)
	if static.GetReloadToken() != nil {
		t.Error("non-reloading provider should have nil token")
	}

	p := NewDataProvider(nil, WithReload())
	first := p.GetReloadToken()
	p.OnReload()
	if !first.HasChanged() {
		t.Error("previous token should fire")
	}
	if p.GetReloadToken() == first {
		t.Error("token should be swapped before firing")
	}
}

func TestDataProvider_LoadErrorKeepsData(t *testing.T) {
	fail := false
	p := NewDataProvider(func() (map[string]string, error) {
		if fail {
			return nil, errors.New("boom")
		}
		return map[string]string{"k": "v"}, nil
	})
	if err := p.Load(); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	fail = true
	if err := p.Reload(); err == nil {
		t.Fatal("expected reload error")
	}
	if v, _ := p.TryGet("k"); v != "v" {
		t.Errorf("TryGet() = %q, want previous data", v)
	}
}

func TestCompareKeys(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"2", "10", -1},
		{"10", "a", -1},
		{"b", "A", 1},
		{"a", "A", 0},
		{"a:2", "a:10", -1},
		{"a", "a:b", -1},
	}
	for _, tt := range tests {
		got := CompareKeys(tt.a, tt.b)
		if (got < 0) != (tt.want < 0) || (got > 0) != (tt.want > 0) {
			t.Errorf("CompareKeys(%q, %q) = %d, want sign %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestKeyHelpers(t *testing.T) {
	if got := Combine("a", "b", "c"); got != "a:b:c" {
		t.Errorf("Combine() = %q", got)
	}
	if got := SectionKey("a:b:c"); got != "c" {
		t.Errorf("SectionKey() = %q", got)
	}
	if got := ParentPath("a:b:c"); got != "a:b" {
		t.Errorf("ParentPath() = %q", got)
	}
	if got := ParentPath("a"); got != "" {
		t.Errorf("ParentPath() = %q, want empty", got)
	}
}
