package turn

import (
	"context"
	"slices"
	"sort"

	"starreign.ai/internal/agent/decision"
	"starreign.ai/internal/agent/rules"
	"starreign.ai/internal/sim/feature/combat"
	"starreign.ai/internal/sim/feature/diplomacy"
	"starreign.ai/internal/sim/feature/economy"
	"starreign.ai/internal/sim/feature/validation"
	"starreign.ai/internal/sim/kernel/model"
	"starreign.ai/internal/sim/tuning"
)

// world is the in-memory game state one turn resolution works on. Empires
// are mutated in place and saved at the end; diplomacy lives in the store
// and is reloaded after every change.
type world struct {
	game       model.Game
	empires    []*model.Empire // human first, then ascending id
	byID       map[string]*model.Empire
	treaties   []model.Treaty
	coalitions []model.Coalition
	members    map[string][]model.Membership // active members by coalition
}

func (e *Engine) load(ctx context.Context, gameID string) (*world, error) {
	g, err := e.store.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	empires, err := e.store.ListEmpires(ctx, gameID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(empires, func(i, j int) bool {
		hi, hj := empires[i].Kind == model.OwnerHuman, empires[j].Kind == model.OwnerHuman
		if hi != hj {
			return hi
		}
		return empires[i].ID < empires[j].ID
	})
	w := &world{game: g, empires: empires, byID: make(map[string]*model.Empire, len(empires))}
	for _, emp := range empires {
		w.byID[emp.ID] = emp
	}
	if err := e.reloadDiplomacy(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

func (e *Engine) reloadDiplomacy(ctx context.Context, w *world) error {
	ts, err := e.store.ListTreaties(ctx, w.game.ID)
	if err != nil {
		return err
	}
	cs, members, err := e.coalitions.Snapshot(ctx, w.game.ID)
	if err != nil {
		return err
	}
	w.treaties, w.coalitions, w.members = ts, cs, members
	return nil
}

func (w *world) human() *model.Empire {
	for _, emp := range w.empires {
		if emp.Kind == model.OwnerHuman {
			return emp
		}
	}
	return nil
}

func (w *world) coalitionOf(empireID string) string {
	for coID, ms := range w.members {
		for _, m := range ms {
			if m.EmpireID == empireID {
				return coID
			}
		}
	}
	return ""
}

func (w *world) coalitionByID() map[string]model.Coalition {
	out := make(map[string]model.Coalition, len(w.coalitions))
	for _, co := range w.coalitions {
		out[co.ID] = co
	}
	return out
}

func offeredContracts(emp *model.Empire, turn int) []string {
	var out []string
	for _, id := range economy.OfferedContracts(turn) {
		if !slices.Contains(emp.Contracts, id) {
			out = append(out, id)
		}
	}
	return out
}

// state is what the validator sees for emp right now.
func (w *world) state(emp *model.Empire) validation.State {
	st := validation.State{
		Empire:          emp,
		Turn:            w.game.Turn,
		ProtectionTurns: w.game.ProtectionTurns,
		Targets:         make(map[string]validation.Target, len(w.empires)),
		Treaties:        map[string]model.Treaty{},
		CoalitionID:     w.coalitionOf(emp.ID),
		Coalitions:      w.coalitionByID(),
		Contracts:       economy.OfferedContracts(w.game.Turn),
	}
	for _, other := range w.empires {
		if other.ID == emp.ID {
			continue
		}
		_, active := diplomacy.ActiveBetween(w.treaties, emp.ID, other.ID)
		st.Targets[other.ID] = validation.Target{
			EmpireID:     other.ID,
			Eliminated:   other.Eliminated,
			ActiveTreaty: active,
			OpenTreaty:   diplomacy.OpenBetween(w.treaties, emp.ID, other.ID),
		}
	}
	for _, t := range w.treaties {
		if t.Involves(emp.ID) {
			st.Treaties[t.ID] = t
		}
	}
	return st
}

// observe builds the rule environment and validator state for one agent.
func (w *world) observe(emp *model.Empire, cfg tuning.Tuning) decision.Observation {
	env := rules.NewEnv(emp.Persona, emp, cfg.Economy)
	env.Turn = w.game.Turn
	env.ProtectionTurns = w.game.ProtectionTurns
	for _, other := range w.empires {
		if other.ID == emp.ID {
			continue
		}
		_, active := diplomacy.ActiveBetween(w.treaties, emp.ID, other.ID)
		env.Targets = append(env.Targets, rules.TargetView{
			ID:           other.ID,
			Territory:    other.Territory,
			Networth:     other.Networth,
			DefensePower: combat.Power(cfg.Combat, other.Fleet, combat.RoleDefend),
			ActiveTreaty: active,
			OpenTreaty:   diplomacy.OpenBetween(w.treaties, emp.ID, other.ID),
			Eliminated:   other.Eliminated,
		})
	}
	env.AttackPower = combat.Power(cfg.Combat, fleetOf(env.AttackFleet()), combat.RoleAttack)

	for _, t := range w.treaties {
		if t.Status == model.TreatyProposed && t.TargetID == emp.ID {
			env.PendingTreaties = append(env.PendingTreaties, t.ID)
		}
	}
	sort.Strings(env.PendingTreaties)

	env.CoalitionID = w.coalitionOf(emp.ID)
	if env.CoalitionID == "" {
		for _, co := range w.coalitions {
			if co.Status != model.CoalitionDissolved && len(w.members[co.ID]) < cfg.Diplomacy.CoalitionMaxSize {
				env.OpenCoalitions = append(env.OpenCoalitions, co.ID)
			}
		}
		sort.Strings(env.OpenCoalitions)
	}
	env.Contracts = offeredContracts(emp, w.game.Turn)

	return decision.Observation{
		GameID: w.game.ID,
		Turn:   w.game.Turn,
		Env:    env,
		State:  w.state(emp),
	}
}

func fleetOf(m map[string]int) model.Fleet {
	f := model.Fleet{}
	for u, n := range m {
		if model.IsUnitType(u) && n > 0 {
			f[model.UnitType(u)] = n
		}
	}
	return f
}
