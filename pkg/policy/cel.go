package policy

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// conditionEvaluator compiles and runs clause Condition expressions with a
// compiled-program cache keyed by expression text.
type conditionEvaluator struct {
	env      *cel.Env
	mu       sync.RWMutex
	programs map[string]cel.Program
}

func newConditionEvaluator() (*conditionEvaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("actor", cel.StringType),
		cel.Variable("action", cel.StringType),
		cel.Variable("resource", cel.StringType),
		cel.Variable("timestamp", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &conditionEvaluator{
		env:      env,
		programs: make(map[string]cel.Program),
	}, nil
}

// eval runs the expression against the given input and returns whether it
// evaluated to true. Any compile or runtime failure returns false: a clause
// whose condition cannot be evaluated does not match.
func (ce *conditionEvaluator) eval(expr string, input map[string]interface{}) bool {
	prg, err := ce.program(expr)
	if err != nil {
		return false
	}

	out, _, err := prg.Eval(input)
	if err != nil {
		return false
	}
	allowed, ok := out.Value().(bool)
	return ok && allowed
}

func (ce *conditionEvaluator) program(expr string) (cel.Program, error) {
	ce.mu.RLock()
	prg, ok := ce.programs[expr]
	ce.mu.RUnlock()
	if ok {
		return prg, nil
	}

	ast, issues := ce.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile condition: %w", issues.Err())
	}
	prg, err := ce.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build condition program: %w", err)
	}

	ce.mu.Lock()
	ce.programs[expr] = prg
	ce.mu.Unlock()
	return prg, nil
}
