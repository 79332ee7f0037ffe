package protected

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zoobzio/protected/configuration"
)

// WrapOption configures a ProtectedProvider.
type WrapOption func(*ProtectedProvider)

// OnReloadError registers fn to receive decryption failures that happen
// after the inner provider reloads. Such failures are not returned to any
// caller and downstream subscribers are not notified of that reload.
func OnReloadError(fn func(error)) WrapOption {
	return func(p *ProtectedProvider) {
		p.onReloadError = fn
	}
}

// ProtectedProvider decorates a configuration provider, decrypting every
// protected value after each Load and after each reload of the inner
// provider.
//
// Reads, writes and child-key enumeration delegate to the inner provider.
// Decryption passes are serialized per provider, but not against the inner
// provider replacing its data. A pass writes a plaintext only while the key
// still holds the ciphertext it decrypted; a value replaced in between is
// left for the pass that follows the inner reload. The inner provider should
// still have a single reload driver (its watcher or Root.Reload, not both),
// since a replace landing between that check and the write is not detected.
type ProtectedProvider struct {
	inner        configuration.Provider
	cfg          *ProtectConfig
	providerType string

	onReloadError func(error)

	mu sync.Mutex

	reloadable bool
	token      atomic.Pointer[configuration.ReloadToken]
	stop       func()

	errMu   sync.RWMutex
	lastErr error
}

// Wrap returns inner decorated with decryption. When cfg is not valid the
// inner provider is returned unchanged and a skip signal is emitted.
func Wrap(inner configuration.Provider, cfg *ProtectConfig, opts ...WrapOption) configuration.Provider {
	p, err := NewProtectedProvider(inner, cfg, opts...)
	if err != nil {
		emitProviderSkipped(context.Background(), providerType(inner), err)
		return inner
	}
	return p
}

// NewProtectedProvider decorates inner, failing when cfg is not valid.
// If inner exposes a reload token the decorator subscribes to it.
func NewProtectedProvider(inner configuration.Provider, cfg *ProtectConfig, opts ...WrapOption) (*ProtectedProvider, error) {
	if inner == nil {
		return nil, errors.New("nil configuration provider")
	}
	if err := requireValid(cfg); err != nil {
		return nil, err
	}

	p := &ProtectedProvider{
		inner:        inner,
		cfg:          cfg,
		providerType: providerType(inner),
	}
	for _, opt := range opts {
		opt(p)
	}

	if inner.GetReloadToken() != nil {
		p.reloadable = true
		p.token.Store(configuration.NewReloadToken())
		p.stop = configuration.OnChange(inner.GetReloadToken, p.onInnerReload)
	}

	emitProviderWrapped(context.Background(), p.providerType)
	return p, nil
}

// Load loads the inner provider, then decrypts every protected value.
// A decryption failure is returned; values rewritten before it stay
// rewritten.
func (p *ProtectedProvider) Load() error {
	ctx := context.Background()
	start := time.Now()
	emitLoadStart(ctx, p.providerType)

	if err := p.inner.Load(); err != nil {
		emitLoadComplete(ctx, p.providerType, time.Since(start), 0, err)
		return err
	}

	n, err := p.decryptAll()
	emitLoadComplete(ctx, p.providerType, time.Since(start), n, err)
	return err
}

// onInnerReload runs when the inner provider's token fires. Subscribers of
// this provider are notified only when decryption succeeded.
func (p *ProtectedProvider) onInnerReload() {
	ctx := context.Background()
	start := time.Now()

	n, err := p.decryptAll()
	emitReloadComplete(ctx, p.providerType, time.Since(start), n, err)

	p.errMu.Lock()
	p.lastErr = err
	p.errMu.Unlock()

	if err != nil {
		if p.onReloadError != nil {
			p.onReloadError(err)
		}
		return
	}

	previous := p.token.Swap(configuration.NewReloadToken())
	previous.OnReload()
}

// decryptAll rewrites every value matching the protected pattern with its
// plaintext and returns how many values were rewritten.
func (p *ProtectedProvider) decryptAll() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for _, key := range p.keys() {
		value, ok := p.inner.TryGet(key)
		if !ok || !p.cfg.MatchesProtected(value) {
			continue
		}

		plaintext, err := p.cfg.Unprotect(value)
		if err != nil {
			var te *TransformError
			if errors.As(err, &te) {
				te.Key = key
				return n, te
			}
			return n, fmt.Errorf("key %s: %w", key, err)
		}

		if current, ok := p.inner.TryGet(key); !ok || current != value {
			continue
		}
		p.inner.Set(key, plaintext)
		n++
	}
	return n, nil
}

// keys lists the inner provider's keys, directly when it can enumerate
// them and otherwise by walking GetChildKeys.
func (p *ProtectedProvider) keys() []string {
	if e, ok := p.inner.(configuration.Enumerable); ok {
		return e.Keys()
	}
	return walkKeys(p.inner)
}

// walkKeys enumerates the keys of provider depth-first. Keys holding a value
// are still descended into, so a key may be both a value and a parent.
func walkKeys(provider configuration.Provider) []string {
	var keys []string
	var walk func(parent string)
	walk = func(parent string) {
		seen := make(map[string]struct{})
		for _, child := range provider.GetChildKeys(nil, parent) {
			folded := strings.ToLower(child)
			if _, dup := seen[folded]; dup {
				continue
			}
			seen[folded] = struct{}{}

			key := child
			if parent != "" {
				key = configuration.Combine(parent, child)
			}
			if _, ok := provider.TryGet(key); ok {
				keys = append(keys, key)
			}
			walk(key)
		}
	}
	walk("")
	return keys
}

// TryGet delegates to the inner provider.
func (p *ProtectedProvider) TryGet(key string) (string, bool) {
	return p.inner.TryGet(key)
}

// Set delegates to the inner provider.
func (p *ProtectedProvider) Set(key, value string) {
	p.inner.Set(key, value)
}

// GetChildKeys delegates to the inner provider.
func (p *ProtectedProvider) GetChildKeys(earlierKeys []string, parentPath string) []string {
	return p.inner.GetChildKeys(earlierKeys, parentPath)
}

// GetReloadToken returns the decorator's own token, fired after each
// successful re-decryption, or nil when the inner provider never reloads.
func (p *ProtectedProvider) GetReloadToken() configuration.ChangeToken {
	if !p.reloadable {
		return nil
	}
	return p.token.Load()
}

// LastReloadError returns the error of the most recent reload pass, or nil.
func (p *ProtectedProvider) LastReloadError() error {
	p.errMu.RLock()
	defer p.errMu.RUnlock()
	return p.lastErr
}

// Config returns the effective protect configuration.
func (p *ProtectedProvider) Config() *ProtectConfig {
	return p.cfg
}

// Unwrap returns the inner provider.
func (p *ProtectedProvider) Unwrap() configuration.Provider {
	return p.inner
}

// Close stops the reload subscription and closes the inner provider when
// it implements io.Closer.
func (p *ProtectedProvider) Close() error {
	if p.stop != nil {
		p.stop()
	}
	if c, ok := p.inner.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func providerType(p configuration.Provider) string {
	return fmt.Sprintf("%T", p)
}
