package rules

import (
	"math"

	"starreign.ai/internal/sim/feature/economy"
	"starreign.ai/internal/sim/kernel/model"
	"starreign.ai/internal/sim/tuning"
)

// TargetView is what an empire can observe about a rival.
type TargetView struct {
	ID           string
	Territory    int
	Networth     int64
	DefensePower float64
	ActiveTreaty bool
	OpenTreaty   bool
	Eliminated   bool
}

// RuleEnv wraps one empire's observable state and exposes helper methods
// callable from expr conditions.
type RuleEnv struct {
	Persona         string
	Turn            int
	ProtectionTurns int
	Self            *model.Empire
	AttackPower     float64
	Targets         []TargetView
	PendingTreaties []string // proposals awaiting our answer
	CoalitionID     string
	OpenCoalitions  []string // coalitions with room to join
	Contracts       []string

	eco tuning.Economy
}

func NewEnv(persona string, self *model.Empire, eco tuning.Economy) RuleEnv {
	return RuleEnv{Persona: persona, Self: self, eco: eco}
}

func (e RuleEnv) WithEconomy(eco tuning.Economy) RuleEnv {
	e.eco = eco
	return e
}

func (e RuleEnv) Protected() bool { return e.Turn <= e.ProtectionTurns }

func (e RuleEnv) Credits() int64 {
	if e.Self == nil {
		return 0
	}
	return e.Self.Resources.Credits
}

func (e RuleEnv) Food() int64 {
	if e.Self == nil {
		return 0
	}
	return e.Self.Resources.Food
}

// FoodLow is true when stores would not cover five turns of consumption.
func (e RuleEnv) FoodLow() bool {
	if e.Self == nil {
		return false
	}
	need := int64(math.Ceil(float64(e.Self.Population)*e.eco.FoodPerPopulation)) * 5
	return e.Self.Resources.Food < need
}

func (e RuleEnv) CanAfford(unit string, qty int) bool {
	cost := economy.UnitCost(e.eco, unit, qty)
	return cost > 0 && cost <= e.Credits()
}

func (e RuleEnv) CanAffordTerritory(qty int) bool {
	if e.Self == nil {
		return false
	}
	return economy.TerritoryCost(e.eco, e.Self.Territory, qty) <= e.Credits()
}

func (e RuleEnv) attackable(t TargetView) bool {
	return !t.Eliminated && !t.ActiveTreaty && (e.Self == nil || t.ID != e.Self.ID)
}

// WeakestTarget is the attackable rival with the lowest defense power.
func (e RuleEnv) WeakestTarget() string {
	best := -1
	for i, t := range e.Targets {
		if !e.attackable(t) {
			continue
		}
		if best < 0 || t.DefensePower < e.Targets[best].DefensePower ||
			(t.DefensePower == e.Targets[best].DefensePower && t.ID < e.Targets[best].ID) {
			best = i
		}
	}
	if best < 0 {
		return ""
	}
	return e.Targets[best].ID
}

// BestRatio is our attack power over the weakest target's defense power.
func (e RuleEnv) BestRatio() float64 {
	id := e.WeakestTarget()
	if id == "" {
		return 0
	}
	for _, t := range e.Targets {
		if t.ID == id {
			if t.DefensePower == 0 {
				if e.AttackPower > 0 {
					return math.Inf(1)
				}
				return 0
			}
			return e.AttackPower / t.DefensePower
		}
	}
	return 0
}

// StrongestUntreated is the most powerful rival we have no open treaty with.
func (e RuleEnv) StrongestUntreated() string {
	best := -1
	for i, t := range e.Targets {
		if t.Eliminated || t.OpenTreaty {
			continue
		}
		if best < 0 || t.DefensePower > e.Targets[best].DefensePower {
			best = i
		}
	}
	if best < 0 {
		return ""
	}
	return e.Targets[best].ID
}

func (e RuleEnv) InCoalition() bool { return e.CoalitionID != "" }

func (e RuleEnv) HasPending() bool { return len(e.PendingTreaties) > 0 }

func (e RuleEnv) CovertReady(points, agents int) bool {
	return e.Self != nil && e.Self.CovertPoints >= points && e.Self.CovertAgents >= agents
}

func (e RuleEnv) Units(unit string) int {
	if e.Self == nil {
		return 0
	}
	return e.Self.Fleet[model.UnitType(unit)]
}

// AttackFleet commits every mobile unit; stations stay home.
func (e RuleEnv) AttackFleet() map[string]int {
	out := map[string]int{}
	if e.Self == nil {
		return out
	}
	for _, u := range model.UnitTypes {
		if u == model.Stations || e.Self.Fleet[u] <= 0 {
			continue
		}
		out[string(u)] = e.Self.Fleet[u]
	}
	return out
}

// FoodShortfall is how much food would top stores up to five turns of need.
func (e RuleEnv) FoodShortfall() int {
	if e.Self == nil {
		return 0
	}
	need := int64(math.Ceil(float64(e.Self.Population)*e.eco.FoodPerPopulation)) * 5
	if gap := need - e.Self.Resources.Food; gap > 0 {
		return int(gap)
	}
	return 0
}

func (e RuleEnv) CanBuy(resource string, qty int) bool {
	return qty > 0 && economy.BuyCost(e.eco, resource, qty) <= e.Credits()
}
