package protected

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/zoobzio/protected/configuration"
)

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithStrict makes Build fail when the effective configuration of a source
// is invalid, instead of leaving that source undecorated.
func WithStrict() BuilderOption {
	return func(b *Builder) {
		b.strict = true
	}
}

// WithReloadErrorHandler routes reload decryption failures of every built
// provider to fn.
func WithReloadErrorHandler(fn func(error)) BuilderOption {
	return func(b *Builder) {
		b.onReloadError = fn
	}
}

// Builder is a configuration builder whose sources are decorated for
// decryption. Each source uses the global configuration merged with its
// own override, if any.
type Builder struct {
	global     *ProtectConfig
	sources    []configuration.Source
	overrides  map[int]*ProtectConfig
	properties map[string]any
	err        error

	strict        bool
	onReloadError func(error)
}

// NewBuilder returns a builder using global as the default configuration.
func NewBuilder(global *ProtectConfig, opts ...BuilderOption) *Builder {
	b := &Builder{
		global:     global,
		overrides:  make(map[int]*ProtectConfig),
		properties: make(map[string]any),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Add appends a source.
func (b *Builder) Add(s configuration.Source) *Builder {
	b.sources = append(b.sources, s)
	return b
}

// WithProtectedConfigurationOptions sets the override of the most recently
// added source. Calling it before any Add records ErrNoSource, returned by
// Build.
func (b *Builder) WithProtectedConfigurationOptions(local *ProtectConfig) *Builder {
	if len(b.sources) == 0 {
		if b.err == nil {
			b.err = ErrNoSource
		}
		return b
	}
	b.overrides[len(b.sources)-1] = local
	return b
}

// Sources returns the registered sources.
func (b *Builder) Sources() []configuration.Source {
	return b.sources
}

// Properties returns the shared property bag.
func (b *Builder) Properties() map[string]any {
	return b.properties
}

// Build builds every source in order, wraps each provider with its
// effective configuration and composes them into a Root, which loads them.
func (b *Builder) Build() (*configuration.Root, error) {
	ctx := context.Background()
	start := time.Now()

	root, wrapped, err := b.build()
	emitBuilderBuilt(ctx, len(b.sources), wrapped, time.Since(start), err)
	return root, err
}

func (b *Builder) build() (*configuration.Root, int, error) {
	if b.err != nil {
		return nil, 0, b.err
	}

	var opts []WrapOption
	if b.onReloadError != nil {
		opts = append(opts, OnReloadError(b.onReloadError))
	}

	wrapped := 0
	providers := make([]configuration.Provider, 0, len(b.sources))
	for i, s := range b.sources {
		p, err := s.Build(b)
		if err != nil {
			closeProviders(providers)
			return nil, wrapped, fmt.Errorf("source %d: %w", i, err)
		}

		cfg := Merge(b.global, b.overrides[i])
		if b.strict {
			pp, err := NewProtectedProvider(p, cfg, opts...)
			if err != nil {
				closeProviders(append(providers, p))
				return nil, wrapped, fmt.Errorf("source %d: %w", i, err)
			}
			p = pp
		} else {
			p = Wrap(p, cfg, opts...)
		}
		if _, ok := p.(*ProtectedProvider); ok {
			wrapped++
		}
		providers = append(providers, p)
	}

	root, err := configuration.NewRoot(providers)
	if err != nil {
		return nil, wrapped, err
	}
	return root, wrapped, nil
}

// closeProviders releases the reload subscriptions and watchers of
// providers built before a failure.
func closeProviders(providers []configuration.Provider) {
	for _, p := range providers {
		if c, ok := p.(io.Closer); ok {
			_ = c.Close()
		}
	}
}
