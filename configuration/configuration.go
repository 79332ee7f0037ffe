// Package configuration provides hierarchical key/value configuration built
// from ordered sources.
//
// Keys are flattened paths joined by KeyDelimiter ("Db:Password",
// "Servers:0:Host"). Lookups are case-insensitive. A Root composes the
// providers built from each Source; later providers win on conflicting keys.
//
// # Basic Usage
//
//	b := configuration.NewBuilder().
//	    Add(&configuration.MemorySource{Data: map[string]string{"Db:Host": "localhost"}}).
//	    Add(&configuration.EnvironmentSource{Prefix: "APP_"})
//
//	root, err := b.Build()
//	if err != nil {
//	    return err
//	}
//	host := root.Get("Db:Host")
//
// # Reload
//
// Providers that can reload expose a ChangeToken through GetReloadToken.
// A token fires once; providers swap in a fresh token before firing the old
// one, so consumers re-subscribe through OnChange:
//
//	stop := configuration.OnChange(root.GetReloadToken, func() {
//	    log.Println("configuration reloaded")
//	})
//	defer stop()
package configuration

import "strings"

// KeyDelimiter separates the segments of a flattened configuration key.
const KeyDelimiter = ":"

// ChangeToken signals a single change. Once HasChanged reports true it never
// resets; consumers obtain a new token from the producer.
type ChangeToken interface {
	// HasChanged reports whether the change has occurred.
	HasChanged() bool

	// RegisterChangeCallback registers cb to run when the change occurs.
	// If the change already occurred cb runs immediately.
	// The returned func removes the registration.
	RegisterChangeCallback(cb func()) (unregister func())
}

// Provider supplies flattened key/value pairs.
type Provider interface {
	// Load (re)populates the provider's data.
	Load() error

	// TryGet returns the value stored for key.
	TryGet(key string) (string, bool)

	// Set stores value for key.
	Set(key, value string)

	// GetChildKeys returns the immediate child segments of every key under
	// parentPath, merged with earlierKeys and sorted. An empty parentPath
	// addresses the top level. One segment is returned per key, so the
	// result may contain duplicates.
	GetChildKeys(earlierKeys []string, parentPath string) []string

	// GetReloadToken returns the token fired when the provider reloads,
	// or nil when the provider never reloads.
	GetReloadToken() ChangeToken
}

// Enumerable is implemented by providers able to list their keys directly.
type Enumerable interface {
	Keys() []string
}

// Source builds a Provider.
type Source interface {
	Build(b Builder) (Provider, error)
}

// Builder assembles sources into a Root.
type Builder interface {
	// Sources returns the registered sources in order.
	Sources() []Source

	// Properties returns a bag shared between sources during Build.
	Properties() map[string]any

	// Build builds every source and composes the result.
	Build() (*Root, error)
}

// Combine joins path segments with KeyDelimiter.
func Combine(segments ...string) string {
	return strings.Join(segments, KeyDelimiter)
}

// SectionKey returns the last segment of key.
func SectionKey(key string) string {
	if i := strings.LastIndex(key, KeyDelimiter); i >= 0 {
		return key[i+len(KeyDelimiter):]
	}
	return key
}

// ParentPath returns key without its last segment, or "" for a top-level key.
func ParentPath(key string) string {
	if i := strings.LastIndex(key, KeyDelimiter); i >= 0 {
		return key[:i]
	}
	return ""
}

// normalize returns the case-folded form used as map key.
func normalize(key string) string {
	return strings.ToLower(key)
}
