package configuration

import (
	"strings"
	"sync"
	"sync/atomic"
)

// LoadFunc produces the full key/value set of a provider.
type LoadFunc func() (map[string]string, error)

// ProviderOption configures a DataProvider.
type ProviderOption func(*DataProvider)

// WithReload makes the provider expose a reload token.
func WithReload() ProviderOption {
	return func(p *DataProvider) {
		p.reloadable = true
	}
}

// DataProvider is a map-backed Provider. Keys keep the casing they were
// stored with; lookups ignore case.
type DataProvider struct {
	load       LoadFunc
	reloadable bool

	mu   sync.RWMutex
	data map[string]entry

	token atomic.Pointer[ReloadToken]
}

type entry struct {
	key   string
	value string
}

// NewDataProvider returns a provider populated by load on every Load call.
// A nil load leaves the provider empty.
func NewDataProvider(load LoadFunc, opts ...ProviderOption) *DataProvider {
	p := &DataProvider{
		load: load,
		data: make(map[string]entry),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.token.Store(NewReloadToken())
	return p
}

// Load replaces the provider data with the result of its LoadFunc.
// On error the previous data is kept.
func (p *DataProvider) Load() error {
	if p.load == nil {
		return nil
	}
	data, err := p.load()
	if err != nil {
		return err
	}
	p.Replace(data)
	return nil
}

// Replace swaps the provider data for data.
func (p *DataProvider) Replace(data map[string]string) {
	next := make(map[string]entry, len(data))
	for k, v := range data {
		next[normalize(k)] = entry{key: k, value: v}
	}

	p.mu.Lock()
	p.data = next
	p.mu.Unlock()
}

// TryGet returns the value for key.
func (p *DataProvider) TryGet(key string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.data[normalize(key)]
	return e.value, ok
}

// Set stores value for key. An existing key keeps its original casing.
func (p *DataProvider) Set(key, value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := normalize(key)
	if e, ok := p.data[n]; ok {
		key = e.key
	}
	p.data[n] = entry{key: key, value: value}
}

// Keys returns every stored key.
func (p *DataProvider) Keys() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	keys := make([]string, 0, len(p.data))
	for _, e := range p.data {
		keys = append(keys, e.key)
	}
	return keys
}

// Len returns the number of stored keys.
func (p *DataProvider) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.data)
}

// GetChildKeys returns one child segment for every key under parentPath,
// plus earlierKeys, sorted with CompareKeys.
func (p *DataProvider) GetChildKeys(earlierKeys []string, parentPath string) []string {
	p.mu.RLock()
	result := make([]string, 0, len(p.data)+len(earlierKeys))
	for _, e := range p.data {
		if offset, ok := childOffset(e.key, parentPath); ok {
			result = append(result, segment(e.key, offset))
		}
	}
	p.mu.RUnlock()

	result = append(result, earlierKeys...)
	SortKeys(result)
	return result
}

// childOffset reports whether key lies under parentPath and where its child
// segment starts.
func childOffset(key, parentPath string) (int, bool) {
	if parentPath == "" {
		return 0, true
	}
	n := len(parentPath)
	if len(key) <= n+len(KeyDelimiter) || !strings.EqualFold(key[:n], parentPath) {
		return 0, false
	}
	if key[n:n+len(KeyDelimiter)] != KeyDelimiter {
		return 0, false
	}
	return n + len(KeyDelimiter), true
}

// segment returns the segment of key starting at offset.
func segment(key string, offset int) string {
	rest := key[offset:]
	if i := strings.Index(rest, KeyDelimiter); i >= 0 {
		return rest[:i]
	}
	return rest
}

// GetReloadToken returns the current token, or nil when the provider was
// not created with WithReload.
func (p *DataProvider) GetReloadToken() ChangeToken {
	if !p.reloadable {
		return nil
	}
	return p.token.Load()
}

// OnReload swaps in a fresh token and fires the previous one.
func (p *DataProvider) OnReload() {
	previous := p.token.Swap(NewReloadToken())
	previous.OnReload()
}

// Reload loads the provider and, on success, fires its reload token.
func (p *DataProvider) Reload() error {
	if err := p.Load(); err != nil {
		return err
	}
	p.OnReload()
	return nil
}
