package registry

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
)

var (
	ruleEnv     *cel.Env
	ruleEnvErr  error
	ruleEnvOnce sync.Once
)

// env returns the shared CEL environment. Rules see two variables: the
// caller's tier and the model id.
func env() (*cel.Env, error) {
	ruleEnvOnce.Do(func() {
		ruleEnv, ruleEnvErr = cel.NewEnv(
			cel.Variable("tier", cel.StringType),
			cel.Variable("model", cel.StringType),
		)
	})
	return ruleEnv, ruleEnvErr
}

// rule is a compiled entitlement expression. A nil program admits every tier.
type rule struct {
	expr string
	prg  cel.Program
}

// compileRule type-checks expr. Expressions must evaluate to a bool, for
// example `tier in ["premium", "elite"]`.
func compileRule(expr string) (rule, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return rule{}, nil
	}
	e, err := env()
	if err != nil {
		return rule{}, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	ast, issues := e.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return rule{}, fmt.Errorf("%w: %q: %v", ErrInvalidRule, expr, issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return rule{}, fmt.Errorf("%w: %q must return bool, got %v", ErrInvalidRule, expr, ast.OutputType())
	}
	prg, err := e.Program(ast)
	if err != nil {
		return rule{}, fmt.Errorf("%w: %q: %v", ErrInvalidRule, expr, err)
	}
	return rule{expr: expr, prg: prg}, nil
}

// allows evaluates the rule for one tier.
func (r rule) allows(tier, modelID string) (bool, error) {
	if r.prg == nil {
		return true, nil
	}
	out, _, err := r.prg.Eval(map[string]any{"tier": tier, "model": modelID})
	if err != nil {
		return false, fmt.Errorf("eval %q: %w", r.expr, err)
	}
	ok, isBool := out.Value().(bool)
	if !isBool {
		return false, fmt.Errorf("eval %q: expression must return bool, got %T", r.expr, out.Value())
	}
	return ok, nil
}
