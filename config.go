package protected

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// Token grammar defaults.
const (
	// DataGroup names the pattern group holding the text to transform.
	DataGroup = "data"

	// SubPurposeGroup names the optional pattern group holding a sub-purpose.
	SubPurposeGroup = "subPurpose"

	// SubPurposePatternGroup names the optional group spanning the whole
	// ":{subPurpose}" segment, echoed by the default template.
	SubPurposePatternGroup = "subPurposePattern"

	// DataPlaceholder marks where the ciphertext goes in a replace template.
	DataPlaceholder = "${" + DataGroup + "}"

	// DefaultProtectPattern matches Protect:{data} and Protect:{sub}:{data}.
	DefaultProtectPattern = `Protect(?P<subPurposePattern>(:\{(?P<subPurpose>[^:{}]+)\})?):\{(?P<data>.+?)\}`

	// DefaultProtectedPattern matches Protected:{data} and Protected:{sub}:{data}.
	DefaultProtectedPattern = `Protected(?P<subPurposePattern>(:\{(?P<subPurpose>[^:{}]+)\})?):\{(?P<data>.+?)\}`

	// DefaultReplaceTemplate renders a protect match as a protected token.
	DefaultReplaceTemplate = "Protected${subPurposePattern}:{${data}}"
)

// ProtectConfig holds the token grammar and the provider used to protect
// and unprotect values. It is immutable once built; any field may be unset
// so partial instances can act as per-source overrides (see Merge).
type ProtectConfig struct {
	provider  ProtectProvider
	protect   *regexp.Regexp
	protected *regexp.Regexp
	template  string
}

// Option configures a ProtectConfig.
type Option func(*ProtectConfig) error

// WithProvider sets the protect provider.
func WithProvider(p ProtectProvider) Option {
	return func(c *ProtectConfig) error {
		c.provider = p
		return nil
	}
}

// WithProtectPattern sets the pattern matching values to protect.
// It must define the named group "data".
func WithProtectPattern(pattern string) Option {
	return func(c *ProtectConfig) error {
		re, err := compileTokenPattern("protect pattern", pattern)
		if err != nil {
			return err
		}
		c.protect = re
		return nil
	}
}

// WithProtectedPattern sets the pattern matching protected values.
// It must define the named group "data".
func WithProtectedPattern(pattern string) Option {
	return func(c *ProtectConfig) error {
		re, err := compileTokenPattern("protected pattern", pattern)
		if err != nil {
			return err
		}
		c.protected = re
		return nil
	}
}

// WithReplaceTemplate sets the template rendering a protect match into a
// protected token. It must contain ${data}; other ${group} references are
// expanded from the protect match.
func WithReplaceTemplate(template string) Option {
	return func(c *ProtectConfig) error {
		if !strings.Contains(template, DataPlaceholder) {
			return newConfigError(ErrMissingPlaceholder, "replace template", template)
		}
		c.template = template
		return nil
	}
}

func compileTokenPattern(field, pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("%w: %w", ErrInvalidPattern, err), Field: field, Pattern: pattern}
	}
	if re.SubexpIndex(DataGroup) < 0 {
		return nil, newConfigError(ErrMissingGroup, field, pattern)
	}
	return re, nil
}

// NewProtectConfig builds a configuration from opts alone. Unset fields
// stay unset; use it for overrides merged onto a global configuration.
func NewProtectConfig(opts ...Option) (*ProtectConfig, error) {
	c := &ProtectConfig{}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// DefaultProtectConfig builds a configuration with the default grammar and
// provider, then applies opts.
func DefaultProtectConfig(provider ProtectProvider, opts ...Option) (*ProtectConfig, error) {
	defaults := []Option{
		WithProvider(provider),
		WithProtectPattern(DefaultProtectPattern),
		WithProtectedPattern(DefaultProtectedPattern),
		WithReplaceTemplate(DefaultReplaceTemplate),
	}
	return NewProtectConfig(append(defaults, opts...)...)
}

// Provider returns the configured provider, or nil.
func (c *ProtectConfig) Provider() ProtectProvider {
	if c == nil {
		return nil
	}
	return c.provider
}

// ProtectPattern returns the protect pattern, or nil.
func (c *ProtectConfig) ProtectPattern() *regexp.Regexp {
	if c == nil {
		return nil
	}
	return c.protect
}

// ProtectedPattern returns the protected pattern, or nil.
func (c *ProtectConfig) ProtectedPattern() *regexp.Regexp {
	if c == nil {
		return nil
	}
	return c.protected
}

// ReplaceTemplate returns the replace template, or "".
func (c *ProtectConfig) ReplaceTemplate() string {
	if c == nil {
		return ""
	}
	return c.template
}

// IsValid reports whether every field is set.
func (c *ProtectConfig) IsValid() bool {
	return c != nil && c.provider != nil && c.protect != nil && c.protected != nil && c.template != ""
}

// Validate reports every unset field.
func (c *ProtectConfig) Validate() error {
	if c == nil {
		return newConfigError(ErrInvalidConfig, "configuration", "")
	}

	var result *multierror.Error
	if c.provider == nil {
		result = multierror.Append(result, newConfigError(ErrMissingProvider, "provider", ""))
	}
	if c.protect == nil {
		result = multierror.Append(result, newConfigError(ErrMissingGroup, "protect pattern", ""))
	}
	if c.protected == nil {
		result = multierror.Append(result, newConfigError(ErrMissingGroup, "protected pattern", ""))
	}
	if c.template == "" {
		result = multierror.Append(result, newConfigError(ErrMissingPlaceholder, "replace template", ""))
	}
	return result.ErrorOrNil()
}

// Merge overlays local onto global field by field, local winning.
// Neither input is modified. A nil side yields the other.
func Merge(global, local *ProtectConfig) *ProtectConfig {
	if local == nil {
		return global
	}
	if global == nil {
		return local
	}

	merged := *global
	if local.provider != nil {
		merged.provider = local.provider
	}
	if local.protect != nil {
		merged.protect = local.protect
	}
	if local.protected != nil {
		merged.protected = local.protected
	}
	if local.template != "" {
		merged.template = local.template
	}
	return &merged
}
