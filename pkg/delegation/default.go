package delegation

import "sync"

// Process-wide default instances, lazily and idempotently initialized. These
// are thin conveniences over dependency injection: library code should accept
// an *Evaluator / *List instead of reaching for the defaults.
var (
	defaultOnce      sync.Once
	defaultEvaluator *Evaluator
	defaultRevoked   *List
)

// Default returns the process-wide delegation evaluator, wired to the
// default revocation list.
func Default() *Evaluator {
	initDefaults()
	return defaultEvaluator
}

// DefaultRevocations returns the process-wide revocation list.
func DefaultRevocations() *List {
	initDefaults()
	return defaultRevoked
}

func initDefaults() {
	defaultOnce.Do(func() {
		defaultRevoked = NewList()
		defaultEvaluator = NewEvaluator()
		defaultEvaluator.SetRevocationList(defaultRevoked)
	})
}
