package protected

import (
	"fmt"
	"iter"
	"os"
	"slices"
	"strings"
)

// ProtectValue protects the tokens of a single value.
func ProtectValue(cfg *ProtectConfig, value string) (string, error) {
	return cfg.Protect(value)
}

// ProtectValues returns a new slice with the tokens of every element
// protected. The input is not modified.
func ProtectValues(cfg *ProtectConfig, values []string) ([]string, error) {
	out := make([]string, len(values))
	for i, v := range values {
		p, err := cfg.Protect(v)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

// ProtectSeq collects seq, protecting every element.
func ProtectSeq(cfg *ProtectConfig, seq iter.Seq[string]) ([]string, error) {
	return ProtectValues(cfg, slices.Collect(seq))
}

// ProtectMap protects the values of m in place. Keys are never altered.
// On error, entries processed so far stay protected.
func ProtectMap[K comparable](cfg *ProtectConfig, m map[K]string) error {
	if err := requireValid(cfg); err != nil {
		return err
	}
	for k, v := range m {
		if !cfg.MatchesProtect(v) {
			continue
		}
		p, err := cfg.Protect(v)
		if err != nil {
			return err
		}
		m[k] = p
	}
	return nil
}

// EnvironmentScope is a set of environment variables that can be rewritten.
type EnvironmentScope interface {
	Environ() []string
	Setenv(key, value string) error
}

type processEnvironment struct{}

// ProcessEnvironment returns the scope of the current process.
func ProcessEnvironment() EnvironmentScope {
	return processEnvironment{}
}

func (processEnvironment) Environ() []string { return os.Environ() }

func (processEnvironment) Setenv(key, value string) error { return os.Setenv(key, value) }

// MapEnvironment is an in-memory scope, for child process environments
// and tests.
type MapEnvironment map[string]string

// Environ returns the variables as NAME=value pairs.
func (m MapEnvironment) Environ() []string {
	out := make([]string, 0, len(m))
	for k, v := range m {
		out = append(out, k+"="+v)
	}
	return out
}

// Setenv sets a variable.
func (m MapEnvironment) Setenv(key, value string) error {
	m[key] = value
	return nil
}

// ProtectEnvironment protects every variable of scope holding a protect
// token and writes the result back to scope. It returns the names of the
// rewritten variables.
func ProtectEnvironment(cfg *ProtectConfig, scope EnvironmentScope) ([]string, error) {
	if err := requireValid(cfg); err != nil {
		return nil, err
	}
	var changed []string
	for _, kv := range scope.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !cfg.MatchesProtect(value) {
			continue
		}
		p, err := cfg.Protect(value)
		if err != nil {
			return changed, fmt.Errorf("environment variable %s: %w", name, err)
		}
		if err := scope.Setenv(name, p); err != nil {
			return changed, err
		}
		changed = append(changed, name)
	}
	slices.Sort(changed)
	return changed, nil
}
