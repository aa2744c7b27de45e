package combat

import (
	"math"

	"starreign.ai/internal/sim/kernel/model"
	"starreign.ai/internal/sim/tuning"
)

type BattleInput struct {
	Committed         model.Fleet
	Defender          model.Fleet
	DefenderTerritory int

	// Effectiveness multipliers, 1.0 nominal.
	AttackerEffectiveness float64
	DefenderEffectiveness float64
}

type BattleResult struct {
	Ratio             float64     `json:"ratio"`
	AttackerWon       bool        `json:"attacker_won"`
	TerritoryCaptured int         `json:"territory_captured"`
	AttackerLosses    model.Fleet `json:"attacker_losses"`
	DefenderLosses    model.Fleet `json:"defender_losses"`
}

// Resolve fights one battle. The attacker wins iff the effective power ratio
// is at least 1; losses are fixed shares of each committed unit type.
func Resolve(p tuning.Combat, in BattleInput) BattleResult {
	ratio := PowerRatio(p, in.Committed, in.Defender)
	ae, de := effectiveness(in.AttackerEffectiveness), effectiveness(in.DefenderEffectiveness)
	if !math.IsInf(ratio, 1) {
		ratio = ratio * ae / de
	}
	res := BattleResult{Ratio: ratio, AttackerWon: ratio >= 1 && !in.Committed.IsEmpty() && Power(p, in.Committed, RoleAttack) > 0}

	attRate, defRate := p.LoserLossRate, p.WinnerLossRate
	if res.AttackerWon {
		attRate, defRate = p.WinnerLossRate, p.LoserLossRate
		share := math.Min(p.TerritoryCaptureMax, p.TerritoryCapturePerUnit*ratio)
		if math.IsInf(ratio, 1) {
			share = p.TerritoryCaptureMax
		}
		captured := int(math.Floor(float64(in.DefenderTerritory) * share))
		if captured < 1 && in.DefenderTerritory > 0 {
			captured = 1
		}
		res.TerritoryCaptured = captured
	}
	res.AttackerLosses = losses(in.Committed, attRate)
	res.DefenderLosses = losses(in.Defender, defRate)
	return res
}

func effectiveness(v float64) float64 {
	if v <= 0 {
		return 1
	}
	return v
}

func losses(f model.Fleet, rate float64) model.Fleet {
	out := model.Fleet{}
	if rate <= 0 {
		return out
	}
	for _, u := range model.UnitTypes {
		n := f[u]
		if n <= 0 {
			continue
		}
		lost := int(math.Ceil(float64(n) * rate))
		if lost > n {
			lost = n
		}
		if lost > 0 {
			out[u] = lost
		}
	}
	return out
}
