package rules

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"starreign.ai/internal/protocol"
)

// Validator is the trust boundary every candidate must pass.
type Validator func(a protocol.Action) (ok bool, code string, msg string)

// Engine evaluates compiled rules against a RuleEnv.
type Engine struct {
	rules []*Rule
	log   *slog.Logger
}

// NewEngine compiles all rule conditions and sorts by priority descending.
func NewEngine(rules []*Rule, log *slog.Logger) (*Engine, error) {
	if log == nil {
		log = slog.Default()
	}
	for _, r := range rules {
		program, err := expr.Compile(r.ConditionSrc, expr.Env(RuleEnv{}), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("compile rule %q: %w", r.Name, err)
		}
		r.program = program
	}
	sorted := make([]*Rule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority > sorted[j].Priority
	})
	return &Engine{rules: sorted, log: log}, nil
}

// Rules returns the compiled rules in evaluation order.
func (e *Engine) Rules() []*Rule {
	return e.rules
}

// Decide returns the first candidate that passes validate, or a no-op.
// A nil validate accepts every candidate.
func (e *Engine) Decide(env RuleEnv, validate Validator) (protocol.Action, string) {
	for _, r := range e.rules {
		if !r.appliesTo(env.Persona) {
			continue
		}
		result, err := vm.Run(r.program, env)
		if err != nil {
			e.log.Warn("rule eval failed", "rule", r.Name, "error", err)
			continue
		}
		if matched, ok := result.(bool); !ok || !matched {
			continue
		}
		a := r.Action(env)
		if a.IsNoOp() {
			continue
		}
		if validate != nil {
			if ok, code, msg := validate(a); !ok {
				e.log.Debug("rule candidate rejected", "rule", r.Name, "code", code, "reason", msg)
				continue
			}
		}
		return a, r.Name
	}
	return protocol.NoOp(), ""
}
