package protected

import (
	"slices"
	"sync"
)

// ProcessorFactory builds a FileProcessor.
type ProcessorFactory func() FileProcessor

var (
	factories  = map[string]ProcessorFactory{"raw": RawProcessor}
	registry   = make(map[string]FileProcessor)
	registryMu sync.RWMutex
)

// RegisterProcessor makes a file processor available under name.
// Format packages register themselves on import. Registering a name again
// replaces the factory and drops any cached instance.
func RegisterProcessor(name string, factory ProcessorFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[name] = factory
	delete(registry, name)
}

// LookupProcessor returns the processor registered under name, building and
// caching it on first use.
func LookupProcessor(name string) (FileProcessor, bool) {
	// Fast path: read-lock cache check
	registryMu.RLock()
	if cached, ok := registry[name]; ok {
		registryMu.RUnlock()
		return cached, true
	}
	registryMu.RUnlock()

	// Slow path: build and cache with write-lock
	registryMu.Lock()
	defer registryMu.Unlock()

	// Double-check pattern
	if cached, ok := registry[name]; ok {
		return cached, true
	}

	factory, ok := factories[name]
	if !ok {
		return nil, false
	}

	processor := factory()
	registry[name] = processor
	return processor, true
}

// ProcessorNames returns the registered names, sorted.
func ProcessorNames() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Reset clears cached processor instances.
// This is primarily useful for test isolation.
func Reset() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]FileProcessor)
}
