package attrschema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/shopspring/decimal"

	"batchline/internal/core/apperror"
	"batchline/internal/core/entity"
)

// ruleCache compiles category extra rules once per category version and
// reuses the programs across validations. Programs are safe for
// concurrent evaluation.
type ruleCache struct {
	env    *cel.Env
	envErr error

	mu       sync.RWMutex
	programs map[string][]compiledRule
}

type compiledRule struct {
	expr string
	prg  cel.Program
}

func newRuleCache() *ruleCache {
	env, err := cel.NewEnv(
		cel.Variable("attrs", cel.MapType(cel.StringType, cel.DynType)),
	)
	return &ruleCache{
		env:      env,
		envErr:   err,
		programs: make(map[string][]compiledRule),
	}
}

// compileAll compiles every rule, returning the first failure. Used at
// category registration so malformed rules never reach validation.
func (c *ruleCache) compileAll(rules []string) error {
	if c.envErr != nil {
		return apperror.NewInternal(c.envErr).WithDetail("component", "cel_env")
	}
	for i, rule := range rules {
		if _, err := c.compile(rule); err != nil {
			return apperror.NewValidation(fmt.Sprintf("extra rule %d does not compile: %v", i, err)).
				WithDetail("rule", rule)
		}
	}
	return nil
}

func (c *ruleCache) compile(expr string) (cel.Program, error) {
	ast, iss := c.env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, iss.Err()
	}
	if !reflect.DeepEqual(ast.OutputType(), cel.BoolType) {
		return nil, fmt.Errorf("rule must evaluate to bool, got %s", ast.OutputType())
	}
	return c.env.Program(ast)
}

// eval runs the schema's rules against attrs. All rules must hold.
func (c *ruleCache) eval(schema Schema, attrs entity.Attributes) error {
	compiled, err := c.forSchema(schema)
	if err != nil {
		return err
	}

	input := map[string]any{"attrs": normalizeForCEL(attrs)}
	for _, rule := range compiled {
		out, _, err := rule.prg.Eval(input)
		if err != nil {
			return apperror.NewInvalidAttribute("attributes", "extra rule failed to evaluate").
				WithDetail("rule", rule.expr).
				WithCause(err)
		}
		ok, isBool := out.Value().(bool)
		if !isBool || !ok {
			return apperror.NewInvalidAttribute("attributes", "extra rule not satisfied").
				WithDetail("rule", rule.expr)
		}
	}
	return nil
}

func (c *ruleCache) forSchema(schema Schema) ([]compiledRule, error) {
	if c.envErr != nil {
		return nil, apperror.NewInternal(c.envErr).WithDetail("component", "cel_env")
	}

	key := fmt.Sprintf("%s:%d", schema.CategoryID, schema.Version)

	c.mu.RLock()
	compiled, hit := c.programs[key]
	c.mu.RUnlock()
	if hit {
		return compiled, nil
	}

	compiled = make([]compiledRule, 0, len(schema.ExtraRules))
	for _, expr := range schema.ExtraRules {
		prg, err := c.compile(expr)
		if err != nil {
			// Registration validates rules, so this indicates a rule
			// written directly to storage. Fail the validation loudly.
			return nil, apperror.NewInvalidAttribute("attributes", "extra rule does not compile").
				WithDetail("rule", expr).
				WithCause(err)
		}
		compiled = append(compiled, compiledRule{expr: expr, prg: prg})
	}

	c.mu.Lock()
	c.programs[key] = compiled
	c.mu.Unlock()

	return compiled, nil
}

// normalizeForCEL converts attribute values into types the CEL runtime
// accepts: every numeric form becomes float64 so rules compare against
// double literals without cross-type overloads, nested maps recurse.
func normalizeForCEL(attrs entity.Attributes) map[string]any {
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case decimal.Decimal:
		f, _ := t.Float64()
		return f
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case float32:
		return float64(t)
	case map[string]any:
		return normalizeForCEL(t)
	case entity.Attributes:
		return normalizeForCEL(t)
	case []any:
		items := make([]any, len(t))
		for i, item := range t {
			items[i] = normalizeValue(item)
		}
		return items
	default:
		return v
	}
}
