package configuration

import (
	"context"
	"io"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"
)

// Root composes providers. Later providers take precedence.
type Root struct {
	providers []Provider
	token     atomic.Pointer[ReloadToken]
	stops     []func()
}

// NewRoot loads every provider in order and subscribes to their reload
// tokens. The first Load error is returned after closing the providers
// that implement io.Closer.
func NewRoot(providers []Provider) (*Root, error) {
	r := &Root{providers: providers}
	r.token.Store(NewReloadToken())

	for _, p := range providers {
		if err := p.Load(); err != nil {
			_ = r.Close()
			return nil, err
		}
	}

	for _, p := range providers {
		if p.GetReloadToken() == nil {
			continue
		}
		r.stops = append(r.stops, OnChange(p.GetReloadToken, r.raiseChanged))
	}

	emitRootBuilt(context.Background(), len(providers))
	return r, nil
}

// Providers returns the composed providers in precedence order.
func (r *Root) Providers() []Provider {
	return r.providers
}

// Lookup returns the value of key from the last provider that has it.
func (r *Root) Lookup(key string) (string, bool) {
	for i := len(r.providers) - 1; i >= 0; i-- {
		if v, ok := r.providers[i].TryGet(key); ok {
			return v, true
		}
	}
	return "", false
}

// Get returns the value of key, or "" when absent.
func (r *Root) Get(key string) string {
	v, _ := r.Lookup(key)
	return v
}

// Set stores value for key in every provider.
func (r *Root) Set(key, value string) {
	for _, p := range r.providers {
		p.Set(key, value)
	}
}

// GetChildKeys returns the distinct child segments under parentPath across
// all providers, sorted.
func (r *Root) GetChildKeys(parentPath string) []string {
	var keys []string
	for _, p := range r.providers {
		keys = p.GetChildKeys(keys, parentPath)
	}
	return distinct(keys)
}

// AllKeys returns every key holding a value in any provider.
func (r *Root) AllKeys() []string {
	var result []string
	var walk func(parent string)
	walk = func(parent string) {
		for _, child := range r.GetChildKeys(parent) {
			key := child
			if parent != "" {
				key = Combine(parent, child)
			}
			if _, ok := r.Lookup(key); ok {
				result = append(result, key)
			}
			walk(key)
		}
	}
	walk("")
	return result
}

// AsMap returns the effective key/value set.
func (r *Root) AsMap() map[string]string {
	keys := r.AllKeys()
	m := make(map[string]string, len(keys))
	for _, k := range keys {
		m[k] = r.Get(k)
	}
	return m
}

// Reload reloads every provider and fires the root token. Errors from
// individual providers are aggregated; the token still fires.
func (r *Root) Reload() error {
	var result *multierror.Error
	for _, p := range r.providers {
		if err := p.Load(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	r.raiseChanged()
	return result.ErrorOrNil()
}

// GetReloadToken returns the token fired when any provider reloads.
func (r *Root) GetReloadToken() ChangeToken {
	return r.token.Load()
}

func (r *Root) raiseChanged() {
	previous := r.token.Swap(NewReloadToken())
	previous.OnReload()
}

// Close stops reload subscriptions and closes providers implementing
// io.Closer.
func (r *Root) Close() error {
	for _, stop := range r.stops {
		stop()
	}
	r.stops = nil

	var result *multierror.Error
	for _, p := range r.providers {
		if c, ok := p.(io.Closer); ok {
			if err := c.Close(); err != nil {
				result = multierror.Append(result, err)
			}
		}
	}
	return result.ErrorOrNil()
}

// distinct removes case-insensitive duplicates from sorted keys.
func distinct(keys []string) []string {
	if len(keys) == 0 {
		return keys
	}
	out := keys[:1]
	for _, k := range keys[1:] {
		if normalize(k) != normalize(out[len(out)-1]) {
			out = append(out, k)
		}
	}
	return out
}
