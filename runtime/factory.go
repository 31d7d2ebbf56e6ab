package runtime

import (
	"fmt"
	"sort"
	"sync"
)

// DefaultType is the runtime used when Config.Type is empty.
const DefaultType = "wazero"

// Factory is a function that creates a new Runtime
type Factory func(cfg *Config) (Runtime, error)

var (
	mu               sync.RWMutex
	runtimeFactories = make(map[string]Factory)
)

// Register registers a runtime factory
func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := runtimeFactories[name]; exists {
		panic(fmt.Sprintf("runtime %s already registered", name))
	}
	runtimeFactories[name] = factory
}

// NewRuntime creates a new Runtime for cfg. A nil cfg selects the default
// runtime with its default settings.
func NewRuntime(cfg *Config) (Runtime, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	runtimeType := cfg.Type
	if runtimeType == "" {
		runtimeType = DefaultType
	}

	mu.RLock()
	factory, ok := runtimeFactories[runtimeType]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown runtime type: %s: %w", runtimeType, ErrRuntimeNotFound)
	}

	return factory(cfg)
}

// List returns all registered runtime types
func List() []string {
	mu.RLock()
	defer mu.RUnlock()

	types := make([]string, 0, len(runtimeFactories))
	for t := range runtimeFactories {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
