package cli

import (
	"errors"
	"fmt"
	"strings"
)

// MaskMode selects how show hides decrypted values.
type MaskMode string

const (
	MaskFull  MaskMode = "full"  // hunter2 -> <redacted>
	MaskLast4 MaskMode = "last4" // 4111111111111111 -> ************1111
	MaskEmail MaskMode = "email" // alice@example.com -> a***@example.com
)

var errUnknownMask = errors.New("unknown mask mode")

// masker hides a decrypted value for display.
type masker func(value string) string

func newMasker(mode MaskMode) (masker, error) {
	switch mode {
	case MaskFull, "":
		return func(string) string { return Redacted }, nil
	case MaskLast4:
		return maskLast4, nil
	case MaskEmail:
		return maskEmail, nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownMask, mode)
	}
}

// maskLast4 keeps the last four runes. Shorter values are masked entirely.
func maskLast4(value string) string {
	runes := []rune(value)
	if len(runes) <= 4 {
		return strings.Repeat("*", len(runes))
	}
	return strings.Repeat("*", len(runes)-4) + string(runes[len(runes)-4:])
}

// maskEmail keeps the first character of the local part and the domain.
// Values that are not addresses fall back to maskLast4.
func maskEmail(value string) string {
	at := strings.LastIndex(value, "@")
	if at < 1 {
		return maskLast4(value)
	}
	local, domain := []rune(value[:at]), value[at:]
	return string(local[0]) + "***" + domain
}
