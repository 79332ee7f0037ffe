package protected

import (
	"fmt"
	"regexp"
	"strings"
)

// Protect encrypts the data of every protect token in value and renders
// each with the replace template. Text outside tokens is copied unchanged.
func (c *ProtectConfig) Protect(value string) (string, error) {
	if err := requireValid(c); err != nil {
		return "", err
	}
	return c.rewrite(value, c.protect, func(p ProtectProvider, match []int, data string) (string, error) {
		ciphertext, err := p.Encrypt(data)
		if err != nil {
			return "", newTransformError(ErrEncrypt, "encrypt", "", err)
		}
		return c.render(value, match, ciphertext), nil
	})
}

// Unprotect replaces every protected token in value with its plaintext.
func (c *ProtectConfig) Unprotect(value string) (string, error) {
	if err := requireValid(c); err != nil {
		return "", err
	}
	return c.rewrite(value, c.protected, func(p ProtectProvider, _ []int, data string) (string, error) {
		plaintext, err := p.Decrypt(data)
		if err != nil {
			return "", newTransformError(ErrDecrypt, "decrypt", "", err)
		}
		return plaintext, nil
	})
}

// requireValid returns ErrInvalidConfig with the missing fields when c is
// incomplete.
func requireValid(c *ProtectConfig) error {
	if c.IsValid() {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, c.Validate())
}

// MatchesProtect reports whether value holds a protect token.
func (c *ProtectConfig) MatchesProtect(value string) bool {
	return c.ProtectPattern() != nil && c.protect.MatchString(value)
}

// MatchesProtected reports whether value holds a protected token.
func (c *ProtectConfig) MatchesProtected(value string) bool {
	return c.ProtectedPattern() != nil && c.protected.MatchString(value)
}

// tokenFunc produces the replacement for one match.
type tokenFunc func(p ProtectProvider, match []int, data string) (string, error)

// rewrite walks the non-overlapping matches of re left to right. Matches
// with a sub-purpose use a provider derived for that match only.
func (c *ProtectConfig) rewrite(s string, re *regexp.Regexp, fn tokenFunc) (string, error) {
	matches := re.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s, nil
	}

	dataIdx := re.SubexpIndex(DataGroup)
	subIdx := re.SubexpIndex(SubPurposeGroup)

	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(s[last:m[0]])

		provider := c.provider
		if sub := group(s, m, subIdx); sub != "" {
			derived, err := c.provider.DeriveSubProvider(sub)
			if err != nil {
				return "", newTransformError(ErrDeriveProvider, "derive", "", err)
			}
			provider = derived
		}

		out, err := fn(provider, m, group(s, m, dataIdx))
		if err != nil {
			return "", err
		}
		b.WriteString(out)
		last = m[1]
	}
	b.WriteString(s[last:])
	return b.String(), nil
}

// render expands the replace template for a protect match. The ciphertext
// is inserted verbatim; only the template's own text is expanded.
func (c *ProtectConfig) render(src string, match []int, ciphertext string) string {
	parts := strings.Split(c.template, DataPlaceholder)
	expanded := make([]string, len(parts))
	for i, part := range parts {
		expanded[i] = string(c.protect.ExpandString(nil, part, src, match))
	}
	return strings.Join(expanded, ciphertext)
}

// group returns the text of group idx in match, or "" when the group is
// absent or did not participate.
func group(s string, match []int, idx int) string {
	if idx < 0 || 2*idx+1 >= len(match) || match[2*idx] < 0 {
		return ""
	}
	return s[match[2*idx]:match[2*idx+1]]
}
