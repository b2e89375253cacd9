// Package policy evaluates tenant-configurable ledger policies.
//
// Whether negative on-hand inventory is acceptable (backorder modeling,
// trusted depots) differs per tenant, so the rule is a CEL expression stored
// with the tenant instead of a per-call boolean sprinkled through callers.
package policy

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// NegativeStockInput is the evaluation context offered to the rule.
type NegativeStockInput struct {
	WarehouseID string
	VariantID   string
	Status      string
	DocType     string
	Requested   float64
	Available   float64
}

// NegativeStockEvaluator compiles and evaluates tenant negative-stock rules.
// Compiled programs are cached by expression text; tenants share programs
// when they share rules.
type NegativeStockEvaluator struct {
	env *cel.Env

	mu       sync.RWMutex
	programs map[string]cel.Program
}

// NewNegativeStockEvaluator creates the evaluator with the ledger's
// declared CEL environment.
func NewNegativeStockEvaluator() (*NegativeStockEvaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("warehouse_id", cel.StringType),
		cel.Variable("variant_id", cel.StringType),
		cel.Variable("status", cel.StringType),
		cel.Variable("doc_type", cel.StringType),
		cel.Variable("requested", cel.DoubleType),
		cel.Variable("available", cel.DoubleType),
	)
	if err != nil {
		return nil, fmt.Errorf("create cel env: %w", err)
	}
	return &NegativeStockEvaluator{
		env:      env,
		programs: make(map[string]cel.Program),
	}, nil
}

// Allow evaluates the rule for one issue attempt. An empty rule means
// negative stock is never allowed. A rule that fails to compile or does not
// produce a bool is treated as a configuration error, not as permission.
func (e *NegativeStockEvaluator) Allow(rule string, input NegativeStockInput) (bool, error) {
	if rule == "" {
		return false, nil
	}

	prg, err := e.program(rule)
	if err != nil {
		return false, err
	}

	out, _, err := prg.Eval(map[string]any{
		"warehouse_id": input.WarehouseID,
		"variant_id":   input.VariantID,
		"status":       input.Status,
		"doc_type":     input.DocType,
		"requested":    input.Requested,
		"available":    input.Available,
	})
	if err != nil {
		return false, fmt.Errorf("evaluate negative-stock rule: %w", err)
	}

	allowed, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("negative-stock rule returned %T, want bool", out.Value())
	}
	return allowed, nil
}

func (e *NegativeStockEvaluator) program(rule string) (cel.Program, error) {
	e.mu.RLock()
	prg, ok := e.programs[rule]
	e.mu.RUnlock()
	if ok {
		return prg, nil
	}

	ast, iss := e.env.Compile(rule)
	if iss.Err() != nil {
		return nil, fmt.Errorf("compile negative-stock rule: %w", iss.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("negative-stock rule must evaluate to bool, got %s", ast.OutputType())
	}

	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build negative-stock program: %w", err)
	}

	e.mu.Lock()
	e.programs[rule] = prg
	e.mu.Unlock()

	return prg, nil
}
