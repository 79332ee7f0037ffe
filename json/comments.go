package json

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/zoobzio/protected"
)

// CommentsName is the registry name of the JSON-with-comments processor.
const CommentsName = "jsonc"

// commentsProcessor rewrites matches in the raw text of the document.
type commentsProcessor struct{}

// NewWithComments returns a processor for JSON files that may contain
// comments or trailing commas. The document is not parsed: each match of
// the protect pattern in the raw text is decoded as the body of a JSON
// string, protected, and re-encoded in place. Everything outside matches,
// comments included, is preserved byte for byte.
func NewWithComments() protected.FileProcessor {
	return &commentsProcessor{}
}

func (p *commentsProcessor) ProtectFile(raw string, protect *regexp.Regexp, protectFn protected.ProtectFunc) (string, error) {
	matches := protect.FindAllStringIndex(raw, -1)
	if len(matches) == 0 {
		return raw, nil
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(raw[last:m[0]])

		var value string
		if err := json.Unmarshal([]byte(`"`+raw[m[0]:m[1]]+`"`), &value); err != nil {
			return "", fmt.Errorf("invalid JSON string content %q: %w", raw[m[0]:m[1]], err)
		}

		out, err := protectFn(value)
		if err != nil {
			return "", err
		}

		encoded, err := encodeString(out)
		if err != nil {
			return "", err
		}
		b.WriteString(encoded[1 : len(encoded)-1])
		last = m[1]
	}
	b.WriteString(raw[last:])
	return b.String(), nil
}

// StripComments removes // and /* */ comments and trailing commas from a
// JSON document, leaving string literals intact.
func StripComments(data []byte) []byte {
	out := make([]byte, 0, len(data))
	inString := false
	for i := 0; i < len(data); i++ {
		c := data[i]
		if inString {
			out = append(out, c)
			switch c {
			case '\\':
				if i+1 < len(data) {
					i++
					out = append(out, data[i])
				}
			case '"':
				inString = false
			}
			continue
		}

		switch {
		case c == '"':
			inString = true
			out = append(out, c)
		case c == '/' && i+1 < len(data) && data[i+1] == '/':
			for i < len(data) && data[i] != '\n' {
				i++
			}
			if i < len(data) {
				out = append(out, '\n')
			}
		case c == '/' && i+1 < len(data) && data[i+1] == '*':
			i += 2
			for i+1 < len(data) && !(data[i] == '*' && data[i+1] == '/') {
				i++
			}
			i++
		case c == '}' || c == ']':
			out = trimTrailingComma(out)
			out = append(out, c)
		default:
			out = append(out, c)
		}
	}
	return out
}

// trimTrailingComma drops a comma separated from the end of out only by
// whitespace.
func trimTrailingComma(out []byte) []byte {
	j := len(out) - 1
	for j >= 0 && (out[j] == ' ' || out[j] == '\t' || out[j] == '\n' || out[j] == '\r') {
		j--
	}
	if j >= 0 && out[j] == ',' {
		return append(out[:j], out[j+1:]...)
	}
	return out
}
