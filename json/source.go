package json

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/Jeffail/gabs/v2"

	"github.com/zoobzio/protected/configuration"
)

// Source loads a JSON file as configuration. Nested objects become key
// segments and array elements their index.
type Source struct {
	Path           string
	Optional       bool
	ReloadOnChange bool
	ReloadDelay    time.Duration

	// AllowComments strips comments and trailing commas before parsing.
	AllowComments bool
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
	if s.AllowComments {
		fs.Parser = func(data []byte) (map[string]string, error) {
			return Parse(StripComments(data))
		}
	}
	return fs.Build(b)
}

// Parse flattens a JSON document into configuration keys. The root must
// be an object. Numbers keep their literal text; null becomes "". A leading
// byte order mark is skipped.
func Parse(data []byte) (map[string]string, error) {
	dec := json.NewDecoder(bytes.NewReader(bytes.TrimPrefix(data, []byte(bom))))
	dec.UseNumber()

	container, err := gabs.ParseJSONDecoder(dec)
	if err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	if _, ok := container.Data().(map[string]any); !ok {
		return nil, fmt.Errorf("parse json: root must be an object")
	}

	out := make(map[string]string)
	flatten(container, "", out)
	return out, nil
}

func flatten(c *gabs.Container, prefix string, out map[string]string) {
	join := func(seg string) string {
		if prefix == "" {
			return seg
		}
		return configuration.Combine(prefix, seg)
	}

	switch v := c.Data().(type) {
	case map[string]any:
		for key, child := range c.ChildrenMap() {
			flatten(child, join(key), out)
		}
	case []any:
		for i, child := range c.Children() {
			flatten(child, join(strconv.Itoa(i)), out)
		}
	case string:
		out[prefix] = v
	case json.Number:
		out[prefix] = v.String()
	case bool:
		out[prefix] = strconv.FormatBool(v)
	case nil:
		out[prefix] = ""
	default:
		out[prefix] = fmt.Sprint(v)
	}
}
