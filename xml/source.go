package xml

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"

	"github.com/zoobzio/protected/configuration"
)

// Source loads an XML file as configuration. The root element name is
// not part of any key; child elements and attributes become key segments.
// Repeated sibling elements are distinguished by an index segment.
type Source struct {
	Path           string
	Optional       bool
	ReloadOnChange bool
	ReloadDelay    time.Duration
}

// Build returns a file provider parsing the file with Parse.
func (s *Source) Build(b configuration.Builder) (configuration.Provider, error) {
	fs := &configuration.FileSource{
		Path:           s.Path,
		Optional:       s.Optional,
		ReloadOnChange: s.ReloadOnChange,
		ReloadDelay:    s.ReloadDelay,
		Parser:         Parse,
	}
	return fs.Build(b)
}

// Parse flattens an XML document into configuration keys.
func Parse(data []byte) (map[string]string, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("parse xml: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("parse xml: no root element")
	}

	out := keySet{values: make(map[string]string), folded: make(map[string]struct{})}
	if err := flatten(root, "", out); err != nil {
		return nil, err
	}
	return out.values, nil
}

// keySet rejects keys differing only in case.
type keySet struct {
	values map[string]string
	folded map[string]struct{}
}

func (s keySet) set(key, value string) error {
	f := strings.ToLower(key)
	if _, dup := s.folded[f]; dup {
		return fmt.Errorf("parse xml: duplicate key %q", key)
	}
	s.folded[f] = struct{}{}
	s.values[key] = value
	return nil
}

func flatten(el *etree.Element, prefix string, out keySet) error {
	join := func(seg string) string {
		if prefix == "" {
			return seg
		}
		return configuration.Combine(prefix, seg)
	}

	for _, attr := range el.Attr {
		if attr.Space == "xmlns" || attr.Key == "xmlns" {
			continue
		}
		if err := out.set(join(attr.Key), attr.Value); err != nil {
			return err
		}
	}

	children := el.ChildElements()
	if len(children) == 0 {
		if text := strings.TrimSpace(el.Text()); text != "" || len(el.Attr) == 0 {
			if prefix != "" {
				return out.set(prefix, text)
			}
		}
		return nil
	}

	counts := make(map[string]int)
	for _, child := range children {
		counts[strings.ToLower(child.Tag)]++
	}
	seen := make(map[string]int)
	for _, child := range children {
		name := strings.ToLower(child.Tag)
		key := join(child.Tag)
		if counts[name] > 1 {
			key = configuration.Combine(key, strconv.Itoa(seen[name]))
			seen[name]++
		}
		if err := flatten(child, key, out); err != nil {
			return err
		}
	}
	return nil
}
