// Package yaml protects tokens in YAML files and loads YAML files as
// configuration.
package yaml

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zoobzio/protected"
)

// Name is the registry name of the YAML processor.
const Name = "yaml"

func init() {
	protected.RegisterProcessor(Name, New)
}

// yamlProcessor implements protected.FileProcessor for YAML streams.
type yamlProcessor struct{}

// New returns a YAML file processor. String scalars in mapping values and
// sequence items are candidates; mapping keys never are. Comments attached
// to nodes and every document of a multi-document stream are kept.
func New() protected.FileProcessor {
	return &yamlProcessor{}
}

func (p *yamlProcessor) ProtectFile(raw string, protect *regexp.Regexp, protectFn protected.ProtectFunc) (string, error) {
	docs, err := decodeAll(raw)
	if err != nil {
		return "", err
	}

	var candidates []*yaml.Node
	for _, doc := range docs {
		collect(doc, protect, &candidates)
	}
	if len(candidates) == 0 {
		return raw, nil
	}

	for _, n := range candidates {
		out, err := protectFn(n.Value)
		if err != nil {
			return "", err
		}
		n.Value = out
	}

	var b bytes.Buffer
	enc := yaml.NewEncoder(&b)
	enc.SetIndent(detectIndent(raw))
	for _, doc := range docs {
		if err := enc.Encode(doc); err != nil {
			return "", fmt.Errorf("write yaml: %w", err)
		}
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("write yaml: %w", err)
	}
	return b.String(), nil
}

func decodeAll(raw string) ([]*yaml.Node, error) {
	dec := yaml.NewDecoder(strings.NewReader(raw))
	var docs []*yaml.Node
	for {
		var doc yaml.Node
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			return docs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
		docs = append(docs, &doc)
	}
}

// collect appends the string scalars of n that match protect.
func collect(n *yaml.Node, protect *regexp.Regexp, out *[]*yaml.Node) {
	switch n.Kind {
	case yaml.DocumentNode, yaml.SequenceNode:
		for _, c := range n.Content {
			collectValue(c, protect, out)
		}
	case yaml.MappingNode:
		for i := 1; i < len(n.Content); i += 2 {
			collectValue(n.Content[i], protect, out)
		}
	}
}

func collectValue(n *yaml.Node, protect *regexp.Regexp, out *[]*yaml.Node) {
	if n.Kind == yaml.ScalarNode {
		if n.ShortTag() == "!!str" && protect.MatchString(n.Value) {
			*out = append(*out, n)
		}
		return
	}
	collect(n, protect, out)
}

// detectIndent returns the indentation of the first indented line, or 2.
func detectIndent(raw string) int {
	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimLeft(line, " ")
		if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "- ") {
			continue
		}
		if n := len(line) - len(trimmed); n > 0 {
			return n
		}
	}
	return 2
}
