package yaml

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zoobzio/protected/configuration"
)

// Source loads a YAML file as configuration. Only the first document of
// the stream is read.
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

// Parse flattens a YAML document into configuration keys. The root must
// be a mapping; an empty document yields no keys.
func Parse(data []byte) (map[string]string, error) {
	var doc yaml.Node
	err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&doc)
	if errors.Is(err, io.EOF) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parse yaml: root must be a mapping")
	}

	out := make(map[string]string)
	flatten(root, "", out)
	return out, nil
}

func flatten(n *yaml.Node, prefix string, out map[string]string) {
	join := func(seg string) string {
		if prefix == "" {
			return seg
		}
		return configuration.Combine(prefix, seg)
	}

	if n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}

	switch n.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			flatten(n.Content[i+1], join(n.Content[i].Value), out)
		}
	case yaml.SequenceNode:
		for i, c := range n.Content {
			flatten(c, join(strconv.Itoa(i)), out)
		}
	case yaml.ScalarNode:
		if n.ShortTag() == "!!null" {
			out[prefix] = ""
			return
		}
		out[prefix] = n.Value
	}
}
