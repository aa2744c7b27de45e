package rules

import (
	"encoding/json"
	"testing"

	"starreign.ai/internal/protocol"
	"starreign.ai/internal/sim/kernel/model"
	"starreign.ai/internal/sim/tuning"
)

func newEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(DefaultRules(), nil)
	if err != nil {
		t.Fatalf("NewEngine(DefaultRules()) failed: %v", err)
	}
	return engine
}

func TestDefaultRulesCompile(t *testing.T) {
	engine := newEngine(t)
	if len(engine.rules) != len(DefaultRules()) {
		t.Fatalf("expected %d rules, got %d", len(DefaultRules()), len(engine.rules))
	}
	for i := 1; i < len(engine.rules); i++ {
		if engine.rules[i].Priority > engine.rules[i-1].Priority {
			t.Errorf("rules not sorted by priority: %s (%d) > %s (%d)",
				engine.rules[i].Name, engine.rules[i].Priority,
				engine.rules[i-1].Name, engine.rules[i-1].Priority)
		}
	}
}

func TestNewEngine_BadCondition(t *testing.T) {
	_, err := NewEngine([]*Rule{{Name: "bad", ConditionSrc: `NoSuchMethod()`}}, nil)
	if err == nil {
		t.Fatalf("expected compile error")
	}
}

func warlordEnv(turn int) RuleEnv {
	self := &model.Empire{ID: "e1", Name: "Vega", Fleet: model.Fleet{model.LightCruisers: 50}}
	env := NewEnv(PersonaWarlord, self, tuning.Defaults().Economy)
	env.Turn = turn
	env.ProtectionTurns = 20
	env.AttackPower = 200
	env.Targets = []TargetView{
		{ID: "e2", DefensePower: 48},
		{ID: "e3", DefensePower: 10, ActiveTreaty: true},
	}
	return env
}

func TestDecide_WarlordAttacksWeakestUntreatedTarget(t *testing.T) {
	engine := newEngine(t)
	a, rule := engine.Decide(warlordEnv(30), nil)
	if a.Action != protocol.ActAttack || a.TargetID != "e2" {
		t.Fatalf("expected attack on e2, got %+v (rule %q)", a, rule)
	}
	if a.Fleet["light_cruisers"] != 50 || len(a.Fleet) != 1 {
		t.Fatalf("fleet: %+v", a.Fleet)
	}
}

func TestDecide_ProtectionPeriodFallsThroughToNoOp(t *testing.T) {
	engine := newEngine(t)
	a, rule := engine.Decide(warlordEnv(10), nil)
	if !a.IsNoOp() || rule != "" {
		t.Fatalf("expected no_op, got %+v (rule %q)", a, rule)
	}
}

func TestDecide_ValidatorRejectionTriesNextRule(t *testing.T) {
	engine := newEngine(t)
	self := &model.Empire{ID: "e1", Name: "Lyra"}
	env := NewEnv(PersonaDiplomat, self, tuning.Defaults().Economy)
	env.PendingTreaties = []string{"t1"}
	env.Targets = []TargetView{{ID: "e2", DefensePower: 5}, {ID: "e3", DefensePower: 90}}
	env.OpenCoalitions = []string{"c1"}

	a, _ := engine.Decide(env, nil)
	if a.Action != protocol.ActAcceptTreaty || a.TreatyID != "t1" {
		t.Fatalf("expected accept t1, got %+v", a)
	}

	rejectDiplomacy := func(a protocol.Action) (bool, string, string) {
		if a.Action == protocol.ActAcceptTreaty || a.Action == protocol.ActJoinCoalition {
			return false, "E_BLOCKED", "no"
		}
		return true, "", ""
	}
	a, rule := engine.Decide(env, rejectDiplomacy)
	if a.Action != protocol.ActProposeTreaty || a.TargetID != "e3" || rule != "seek-non-aggression" {
		t.Fatalf("expected proposal to strongest rival e3, got %+v (rule %q)", a, rule)
	}
}

func TestDecide_PersonaFilter(t *testing.T) {
	engine := newEngine(t)
	env := warlordEnv(30)
	env.Persona = PersonaTurtle
	a, _ := engine.Decide(env, nil)
	if a.Action == protocol.ActAttack {
		t.Fatalf("turtle should never pick warlord attack rule")
	}
}

// Every rule must emit actions that pass the wire schema, since rule
// output goes through the same trust boundary as provider output.
func TestDefaultRules_ActionsMatchSchema(t *testing.T) {
	self := &model.Empire{
		ID:         "e1",
		Name:       "Vega",
		Population: 1000,
		Fleet:      model.Fleet{model.LightCruisers: 4, model.Fighters: 2},
	}
	env := NewEnv(PersonaMerchant, self, tuning.Defaults().Economy)
	env.PendingTreaties = []string{"t-1"}
	env.OpenCoalitions = []string{"c-1"}
	env.Contracts = []string{"supply-3"}
	env.Targets = []TargetView{{ID: "e2", DefensePower: 1}}

	for _, r := range DefaultRules() {
		a := r.Action(env)
		raw, err := json.Marshal(a)
		if err != nil {
			t.Fatalf("%s: marshal: %v", r.Name, err)
		}
		if _, err := protocol.ParseAction(raw); err != nil {
			t.Fatalf("%s: %s rejected by schema: %v", r.Name, raw, err)
		}
	}
}

func TestEnvHelpers(t *testing.T) {
	env := warlordEnv(30)
	if got := env.BestRatio(); got < 4.16 || got > 4.17 {
		t.Fatalf("BestRatio = %v", got)
	}
	env.Self.Population = 1000
	if !env.FoodLow() || env.FoodShortfall() != 50 {
		t.Fatalf("FoodLow=%v shortfall=%d", env.FoodLow(), env.FoodShortfall())
	}
	if env.StrongestUntreated() != "e2" {
		t.Fatalf("StrongestUntreated = %q", env.StrongestUntreated())
	}
}
