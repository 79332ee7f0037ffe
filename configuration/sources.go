package configuration

import (
	"fmt"
	"maps"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

// MemorySource serves a fixed key/value set.
type MemorySource struct {
	Data map[string]string
}

// Build returns a provider holding a copy of Data.
func (s *MemorySource) Build(Builder) (Provider, error) {
	data := maps.Clone(s.Data)
	return NewDataProvider(func() (map[string]string, error) {
		return maps.Clone(data), nil
	}), nil
}

// EnvironmentSource reads process environment variables. Variables not
// starting with Prefix (case-insensitive) are skipped and the prefix is
// removed from the rest. A double underscore in a name maps to KeyDelimiter.
type EnvironmentSource struct {
	Prefix string

	// Environ overrides os.Environ.
	Environ func() []string
}

// Build returns a provider over the filtered environment.
func (s *EnvironmentSource) Build(Builder) (Provider, error) {
	environ := s.Environ
	if environ == nil {
		environ = os.Environ
	}
	return NewDataProvider(func() (map[string]string, error) {
		return ParseEnvironment(environ(), s.Prefix), nil
	}), nil
}

// ParseEnvironment flattens NAME=value pairs as EnvironmentSource does.
func ParseEnvironment(environ []string, prefix string) map[string]string {
	data := make(map[string]string)
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			continue
		}
		if len(name) < len(prefix) || !strings.EqualFold(name[:len(prefix)], prefix) {
			continue
		}
		key := strings.ReplaceAll(name[len(prefix):], "__", KeyDelimiter)
		if key == "" {
			continue
		}
		data[key] = value
	}
	return data
}

// CommandLineSource parses command-line arguments.
//
// Recognised forms are "--key=value", "--key value", "/key=value",
// "/key value" and "key=value". A single-dash switch ("-k value") is only
// recognised when listed in SwitchMappings, which maps switches (including
// their dashes) to configuration keys.
type CommandLineSource struct {
	Args           []string
	SwitchMappings map[string]string
}

// Build validates the switch mappings and returns a provider over Args.
func (s *CommandLineSource) Build(Builder) (Provider, error) {
	mappings, err := normalizeSwitchMappings(s.SwitchMappings)
	if err != nil {
		return nil, err
	}
	args := append([]string(nil), s.Args...)
	return NewDataProvider(func() (map[string]string, error) {
		return parseCommandLine(args, mappings), nil
	}), nil
}

func normalizeSwitchMappings(mappings map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(mappings))
	for k, v := range mappings {
		if !strings.HasPrefix(k, "-") {
			return nil, fmt.Errorf("switch mapping %q must start with \"-\" or \"--\"", k)
		}
		n := normalize(k)
		if _, dup := out[n]; dup {
			return nil, fmt.Errorf("duplicate switch mapping %q", k)
		}
		out[n] = v
	}
	return out, nil
}

func parseCommandLine(args []string, mappings map[string]string) map[string]string {
	data := make(map[string]string)
	for i := 0; i < len(args); i++ {
		arg := args[i]
		keyStart := 0
		switch {
		case strings.HasPrefix(arg, "--"):
			keyStart = 2
		case strings.HasPrefix(arg, "-"):
			keyStart = 1
		case strings.HasPrefix(arg, "/"):
			arg = "--" + arg[1:]
			keyStart = 2
		}

		var key, value string
		name, val, hasValue := strings.Cut(arg, "=")
		mapped, isMapped := mappings[normalize(name)]

		switch {
		case isMapped:
			key = mapped
		case keyStart == 1:
			continue
		case !hasValue && keyStart == 0:
			continue
		default:
			key = name[keyStart:]
		}

		if hasValue {
			value = val
		} else {
			if i+1 >= len(args) {
				continue
			}
			i++
			value = args[i]
		}
		if key == "" {
			continue
		}
		data[key] = value
	}
	return data
}

// FlagSetSource exposes pflag flags. Flag names have "." mapped to
// KeyDelimiter; slice flags expand to indexed children.
type FlagSetSource struct {
	Flags *pflag.FlagSet

	// IncludeDefaults also exposes flags that were not set explicitly.
	IncludeDefaults bool
}

// Build returns a provider over the flag set.
func (s *FlagSetSource) Build(Builder) (Provider, error) {
	if s.Flags == nil {
		return nil, fmt.Errorf("flag set source: nil flag set")
	}
	return NewDataProvider(func() (map[string]string, error) {
		data := make(map[string]string)
		visit := func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, ".", KeyDelimiter)
			if sv, ok := f.Value.(pflag.SliceValue); ok {
				for i, v := range sv.GetSlice() {
					data[Combine(key, strconv.Itoa(i))] = v
				}
				return
			}
			data[key] = f.Value.String()
		}
		if s.IncludeDefaults {
			s.Flags.VisitAll(visit)
		} else {
			s.Flags.Visit(visit)
		}
		return data, nil
	}), nil
}
