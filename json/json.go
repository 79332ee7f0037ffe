// Package json protects tokens in JSON files and loads JSON files as
// configuration.
package json

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/zoobzio/protected"
)

// Name is the registry name of the JSON processor.
const Name = "json"

// bom is the UTF-8 byte order mark some editors write at the start of a file.
const bom = "\ufeff"

func init() {
	protected.RegisterProcessor(Name, New)
	protected.RegisterProcessor(CommentsName, NewWithComments)
}

// jsonProcessor implements protected.FileProcessor for JSON documents.
type jsonProcessor struct{}

// New returns a JSON file processor. Every string value of the document,
// in objects and arrays alike, is a candidate; object keys never are.
// Object key order and number literals are preserved, and the output keeps
// the indentation and line endings of the input, as well as a leading
// byte order mark. Comments and trailing commas are accepted but dropped
// from a rewritten file; use NewWithComments to keep them.
func New() protected.FileProcessor {
	return &jsonProcessor{}
}

func (p *jsonProcessor) ProtectFile(raw string, protect *regexp.Regexp, protectFn protected.ProtectFunc) (string, error) {
	text := string(StripComments([]byte(raw)))
	doc, err := parse(text)
	if err != nil {
		return "", err
	}

	// Snapshot the candidates before mutating any of them.
	var candidates []*node
	doc.walk(func(n *node) {
		if n.kind == kindString && protect.MatchString(n.str) {
			candidates = append(candidates, n)
		}
	})
	if len(candidates) == 0 {
		return raw, nil
	}

	for _, n := range candidates {
		out, err := protectFn(n.str)
		if err != nil {
			return "", err
		}
		n.str = out
	}

	newline := "\n"
	if strings.Contains(raw, "\r\n") {
		newline = "\r\n"
	}

	var b bytes.Buffer
	if strings.HasPrefix(raw, bom) {
		b.WriteString(bom)
	}
	w := writer{buf: &b, indent: detectIndent(text), newline: newline}
	if err := w.write(doc, 0); err != nil {
		return "", err
	}
	if strings.HasSuffix(raw, "\n") {
		b.WriteString(newline)
	}
	return b.String(), nil
}

type kind int

const (
	kindNull kind = iota
	kindBool
	kindNumber
	kindString
	kindObject
	kindArray
)

// node is an ordered JSON tree node.
type node struct {
	kind   kind
	str    string
	num    json.Number
	b      bool
	keys   []string
	values []*node
}

func (n *node) walk(fn func(*node)) {
	fn(n)
	for _, v := range n.values {
		v.walk(fn)
	}
}

// parse decodes a single JSON document into an ordered tree, skipping a
// leading byte order mark.
func parse(raw string) (*node, error) {
	dec := json.NewDecoder(strings.NewReader(strings.TrimPrefix(raw, bom)))
	dec.UseNumber()

	n, err := decodeValue(dec)
	if err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse json: unexpected data after document")
	}
	return n, nil
}

func decodeValue(dec *json.Decoder) (*node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			n := &node{kind: kindObject}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("unexpected object key %v", keyTok)
				}
				v, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				n.keys = append(n.keys, key)
				n.values = append(n.values, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return n, nil
		case '[':
			n := &node{kind: kindArray}
			for dec.More() {
				v, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				n.values = append(n.values, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return n, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %v", t)
	case string:
		return &node{kind: kindString, str: t}, nil
	case json.Number:
		return &node{kind: kindNumber, num: t}, nil
	case bool:
		return &node{kind: kindBool, b: t}, nil
	case nil:
		return &node{kind: kindNull}, nil
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}

// detectIndent returns the whitespace preceding the first member of the
// outermost container, or "" for compact documents.
func detectIndent(raw string) string {
	i := strings.IndexAny(raw, "{[")
	if i < 0 {
		return ""
	}
	rest := raw[i+1:]
	nl := strings.IndexByte(rest, '\n')
	if nl < 0 {
		return ""
	}
	if strings.TrimLeft(rest[:nl], " \t\r") != "" {
		return ""
	}
	line := rest[nl+1:]
	end := 0
	for end < len(line) && (line[end] == ' ' || line[end] == '\t') {
		end++
	}
	if end == 0 {
		return "  "
	}
	return line[:end]
}

// writer serializes a tree in the layout of json.MarshalIndent, without
// HTML escaping.
type writer struct {
	buf     *bytes.Buffer
	indent  string
	newline string
}

func (w writer) breakLine(depth int) {
	if w.indent == "" {
		return
	}
	w.buf.WriteString(w.newline)
	for range depth {
		w.buf.WriteString(w.indent)
	}
}

func (w writer) write(n *node, depth int) error {
	switch n.kind {
	case kindNull:
		w.buf.WriteString("null")
	case kindBool:
		if n.b {
			w.buf.WriteString("true")
		} else {
			w.buf.WriteString("false")
		}
	case kindNumber:
		w.buf.WriteString(n.num.String())
	case kindString:
		return w.writeString(n.str)
	case kindObject:
		if len(n.values) == 0 {
			w.buf.WriteString("{}")
			return nil
		}
		w.buf.WriteByte('{')
		for i, v := range n.values {
			if i > 0 {
				w.buf.WriteByte(',')
			}
			w.breakLine(depth + 1)
			if err := w.writeString(n.keys[i]); err != nil {
				return err
			}
			w.buf.WriteByte(':')
			if w.indent != "" {
				w.buf.WriteByte(' ')
			}
			if err := w.write(v, depth+1); err != nil {
				return err
			}
		}
		w.breakLine(depth)
		w.buf.WriteByte('}')
	case kindArray:
		if len(n.values) == 0 {
			w.buf.WriteString("[]")
			return nil
		}
		w.buf.WriteByte('[')
		for i, v := range n.values {
			if i > 0 {
				w.buf.WriteByte(',')
			}
			w.breakLine(depth + 1)
			if err := w.write(v, depth+1); err != nil {
				return err
			}
		}
		w.breakLine(depth)
		w.buf.WriteByte(']')
	}
	return nil
}

func (w writer) writeString(s string) error {
	out, err := encodeString(s)
	if err != nil {
		return err
	}
	w.buf.WriteString(out)
	return nil
}

// encodeString returns s as a quoted JSON string without HTML escaping.
func encodeString(s string) (string, error) {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return "", err
	}
	return strings.TrimSuffix(b.String(), "\n"), nil
}
