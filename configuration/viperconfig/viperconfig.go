// Package viperconfig exposes a viper instance as a configuration source.
package viperconfig

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/zoobzio/protected/configuration"
)

// Source reads every key of Viper. Viper's "." separator becomes the
// configuration delimiter and sequences become indexed keys.
//
// When Watch is set the provider reloads on viper's OnConfigChange, which
// requires Viper to have been read from a file.
type Source struct {
	Viper *viper.Viper
	Watch bool
}

// Build returns a provider over s.Viper, or the global instance when nil.
func (s *Source) Build(configuration.Builder) (configuration.Provider, error) {
	v := s.Viper
	if v == nil {
		v = viper.GetViper()
	}

	var opts []configuration.ProviderOption
	if s.Watch {
		opts = append(opts, configuration.WithReload())
	}
	p := configuration.NewDataProvider(func() (map[string]string, error) {
		return Flatten(v), nil
	}, opts...)

	if s.Watch {
		v.OnConfigChange(func(fsnotify.Event) {
			_ = p.Reload()
		})
		v.WatchConfig()
	}
	return p, nil
}

// Flatten returns the keys of v in configuration form.
func Flatten(v *viper.Viper) map[string]string {
	out := make(map[string]string)
	for _, key := range v.AllKeys() {
		flatten(v.Get(key), toKey(key), out)
	}
	return out
}

func toKey(viperKey string) string {
	return strings.ReplaceAll(viperKey, ".", configuration.KeyDelimiter)
}

func flatten(value any, prefix string, out map[string]string) {
	switch t := value.(type) {
	case nil:
		out[prefix] = ""
	case string:
		out[prefix] = t
	case []any:
		for i, item := range t {
			flatten(item, configuration.Combine(prefix, strconv.Itoa(i)), out)
		}
	case []string:
		for i, item := range t {
			out[configuration.Combine(prefix, strconv.Itoa(i))] = item
		}
	case map[string]any:
		for k, item := range t {
			flatten(item, configuration.Combine(prefix, k), out)
		}
	default:
		out[prefix] = fmt.Sprint(t)
	}
}
