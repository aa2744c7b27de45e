package rules

import (
	"github.com/expr-lang/expr/vm"

	"starreign.ai/internal/protocol"
)

// ActionFunc builds the candidate action once a rule's condition holds.
type ActionFunc func(env RuleEnv) protocol.Action

// Rule is a condition → action pair. Rules are tried by descending priority;
// the first one whose candidate passes validation decides the turn.
type Rule struct {
	Name         string      // human-readable identifier
	Priority     int         // higher = evaluated first
	Personas     []string    // empty = every persona
	ConditionSrc string      // expr source
	program      *vm.Program // compiled bytecode
	Action       ActionFunc
}

func (r *Rule) appliesTo(persona string) bool {
	if len(r.Personas) == 0 {
		return true
	}
	for _, p := range r.Personas {
		if p == persona {
			return true
		}
	}
	return false
}
