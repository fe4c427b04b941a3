package governance

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// SLAEvaluator compiles and evaluates the CEL expression attached to an SLA
// policy against a reconciliation summary, caching compiled programs by
// expression text.
type SLAEvaluator struct {
	env      *cel.Env
	mu       sync.RWMutex
	prgCache map[string]cel.Program
}

// NewSLAEvaluator builds an evaluator whose input variable is "summary", a
// dynamic map of reconciliation summary fields (matched, mismatch, missing,
// totalIntents, totalLedgerEntries, totalChainEvents, allReconciled).
func NewSLAEvaluator() (*SLAEvaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("summary", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("sla evaluator: build cel environment: %w", err)
	}
	return &SLAEvaluator{env: env, prgCache: make(map[string]cel.Program)}, nil
}

// EvaluateSLA compiles expr (if not already cached) and evaluates it
// against summary. A false result, or the absence of an expression,
// signals an SLA violation the caller should surface as CodeSLAViolation.
func (e *SLAEvaluator) EvaluateSLA(expr string, summary map[string]interface{}) (bool, error) {
	if expr == "" {
		return false, nil
	}

	prg, err := e.programFor(expr)
	if err != nil {
		return false, err
	}

	out, _, err := prg.Eval(map[string]interface{}{"summary": summary})
	if err != nil {
		return false, fmt.Errorf("sla evaluator: eval: %w", err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("sla evaluator: expression %q did not return a bool", expr)
	}
	return result, nil
}

func (e *SLAEvaluator) programFor(expr string) (cel.Program, error) {
	e.mu.RLock()
	prg, hit := e.prgCache[expr]
	e.mu.RUnlock()
	if hit {
		return prg, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if prg, hit = e.prgCache[expr]; hit {
		return prg, nil
	}

	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("sla evaluator: compile %q: %w", expr, issues.Err())
	}
	program, err := e.env.Program(ast, cel.InterruptCheckFrequency(100), cel.CostLimit(10000))
	if err != nil {
		return nil, fmt.Errorf("sla evaluator: program %q: %w", expr, err)
	}
	e.prgCache[expr] = program
	return program, nil
}
