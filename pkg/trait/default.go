package trait

import "sync"

// The default registry and composer exist for declaration-gate ergonomics:
// package-level Declare and MustDeclare go through them. Everything else
// should take an injected *Registry or *Composer.
var (
	defaultMu       sync.Mutex
	defaultRegistry *Registry
	defaultComposer *Composer
)

// DefaultRegistry returns the lazily built package default registry.
func DefaultRegistry() *Registry {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultRegistry == nil {
		defaultRegistry = NewRegistry()
	}
	return defaultRegistry
}

// Default returns the lazily built package default composer, backed by the
// default registry.
func Default() *Composer {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultComposer == nil {
		if defaultRegistry == nil {
			defaultRegistry = NewRegistry()
		}
		defaultComposer = NewComposer(defaultRegistry, nil)
	}
	return defaultComposer
}

// ResetDefault replaces the default registry and composer on next use.
// Existing references stay valid but orphaned; their caches and ledgers die
// with them. Intended for test isolation.
func ResetDefault() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultRegistry = nil
	defaultComposer = nil
}
