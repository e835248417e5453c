package policy

import "sync"

// Process-wide default registry, lazily and idempotently initialized. A thin
// convenience over dependency injection; library code should accept a
// *Registry or *Evaluator instead.
var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// DefaultRegistry returns the process-wide policy registry.
func DefaultRegistry() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry(nil)
	})
	return defaultRegistry
}
