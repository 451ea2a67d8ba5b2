package validation

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// RuleError reports which rule rejected a mutation.
type RuleError struct {
	Rule    string
	Message string
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("validation failed (%s): %s", e.Rule, e.Message)
}

// RuleValidator evaluates mutation payloads against CEL rules with a
// compiled-program cache.
type RuleValidator struct {
	cache map[string]cel.Program
	mu    sync.RWMutex
}

// NewRuleValidator creates a new rule validator
func NewRuleValidator() *RuleValidator {
	return &RuleValidator{
		cache: make(map[string]cel.Program),
	}
}

// CheckPrototype validates a prototype update payload.
// The payload keys mirror the entity's db columns.
func (v *RuleValidator) CheckPrototype(payload map[string]interface{}) error {
	return v.check(PrototypeRules, "proto", payload)
}

// CheckPart validates a part create/move payload.
func (v *RuleValidator) CheckPart(payload map[string]interface{}) error {
	return v.check(PartRules, "part", payload)
}

func (v *RuleValidator) check(rules []Rule, varName string, payload map[string]interface{}) error {
	for _, rule := range rules {
		ok, err := v.evaluate(rule, varName, payload)
		if err != nil {
			return fmt.Errorf("rule %s: %w", rule.Name, err)
		}
		if !ok {
			return &RuleError{Rule: rule.Name, Message: rule.Message}
		}
	}
	return nil
}

func (v *RuleValidator) evaluate(rule Rule, varName string, payload map[string]interface{}) (bool, error) {
	cacheKey := varName + ":" + rule.Expression

	v.mu.RLock()
	prg, exists := v.cache[cacheKey]
	v.mu.RUnlock()

	if !exists {
		var err error
		prg, err = v.compile(rule.Expression, varName)
		if err != nil {
			return false, err
		}

		v.mu.Lock()
		v.cache[cacheKey] = prg
		v.mu.Unlock()
	}

	out, _, err := prg.Eval(map[string]interface{}{
		varName: payload,
	})
	if err != nil {
		return false, fmt.Errorf("CEL evaluation error: %w", err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("CEL expression did not return boolean, got %T", out.Value())
	}

	return result, nil
}

func (v *RuleValidator) compile(expr, varName string) (cel.Program, error) {
	env, err := cel.NewEnv(
		cel.Variable(varName, cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("CEL compilation error: %w", issues.Err())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	return prg, nil
}

// ClearCache clears the compiled expression cache
func (v *RuleValidator) ClearCache() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cache = make(map[string]cel.Program)
}
