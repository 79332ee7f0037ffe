package configuration

// ConfigurationBuilder is the plain Builder: sources are built in order
// and composed into a Root without transformation.
type ConfigurationBuilder struct {
	sources    []Source
	properties map[string]any
}

// NewBuilder returns an empty builder.
func NewBuilder() *ConfigurationBuilder {
	return &ConfigurationBuilder{properties: make(map[string]any)}
}

// Add appends a source.
func (b *ConfigurationBuilder) Add(s Source) *ConfigurationBuilder {
	b.sources = append(b.sources, s)
	return b
}

// Sources returns the registered sources.
func (b *ConfigurationBuilder) Sources() []Source {
	return b.sources
}

// Properties returns the shared property bag.
func (b *ConfigurationBuilder) Properties() map[string]any {
	return b.properties
}

// Build builds every source and composes the providers into a Root.
func (b *ConfigurationBuilder) Build() (*Root, error) {
	providers := make([]Provider, 0, len(b.sources))
	for _, s := range b.sources {
		p, err := s.Build(b)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	return NewRoot(providers)
}
