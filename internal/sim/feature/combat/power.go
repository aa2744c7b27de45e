package combat

import (
	"math"

	"starreign.ai/internal/sim/kernel/model"
	"starreign.ai/internal/sim/tuning"
)

type Role string

const (
	RoleAttack Role = "attack"
	RoleDefend Role = "defend"
)

// BasePower is the fleet score before the diversity multiplier.
func BasePower(p tuning.Combat, fleet model.Fleet, role Role) float64 {
	total := 0.0
	for _, u := range model.UnitTypes {
		n := fleet[u]
		if n <= 0 {
			continue
		}
		v := float64(n) * p.UnitPower[string(u)]
		if u == model.Stations && role == RoleDefend {
			v *= p.StationDefenseMult
		}
		total += v
	}
	if role == RoleDefend {
		total *= p.DefenderAdvantage
	}
	return total
}

// Power scores a fleet. Deterministic: no rolls, canonical unit order.
func Power(p tuning.Combat, fleet model.Fleet, role Role) float64 {
	base := BasePower(p, fleet, role)
	if fleet.DistinctTypes() >= p.DiversityMinTypes {
		base *= p.DiversityBonus
	}
	return base
}

// PowerRatio is attacker power over defender power. Two empty fleets are an
// even match; a powerless defender facing any nonempty attacker yields +Inf,
// even when the attacker is powerless too. An empty attacker yields 0.
func PowerRatio(p tuning.Combat, attacker, defender model.Fleet) float64 {
	if attacker.IsEmpty() && defender.IsEmpty() {
		return 1
	}
	if attacker.IsEmpty() {
		return 0
	}
	num := Power(p, attacker, RoleAttack)
	den := Power(p, defender, RoleDefend)
	if den == 0 {
		return math.Inf(1)
	}
	return num / den
}
