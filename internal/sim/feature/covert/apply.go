package covert

import (
	"math"

	"starreign.ai/internal/sim/kernel/model"
)

// Apply mutates attacker and target with a successful operation's effects.
// Timed effects are attached to the target and expire after turn+duration-1.
func Apply(attacker, target *model.Empire, res Result, turn int) {
	if !res.Success || target == nil {
		return
	}
	for _, fx := range res.Effects {
		switch fx.Kind {
		case model.EffectCivilStatus:
			target.CivilStatus = target.CivilStatus.Shift(int(math.Round(fx.Magnitude)))
		case model.EffectResourceDestruction:
			bal := target.Resources.Get(fx.Subject)
			target.Resources.Add(fx.Subject, -int64(math.Floor(float64(bal)*fx.Magnitude)))
		case model.EffectCreditsGained:
			stolen := int64(math.Floor(float64(target.Resources.Credits) * fx.Magnitude))
			target.Resources.Credits -= stolen
			if attacker != nil {
				attacker.Resources.Credits += stolen
			}
		case model.EffectUnitsDestroyed:
			u := model.UnitType(fx.Subject)
			n := target.Fleet[u]
			lost := int(math.Ceil(float64(n) * fx.Magnitude))
			if lost > n {
				lost = n
			}
			if lost > 0 {
				target.Fleet[u] = n - lost
			}
		case model.EffectTerritoryLost:
			lost := int(math.Ceil(float64(target.Territory) * fx.Magnitude))
			if lost >= target.Territory {
				lost = target.Territory - 1
			}
			if lost > 0 {
				target.Territory -= lost
			}
		case model.EffectArmyEffectiveness:
			target.ArmyEffectiveness = math.Max(0.1, effectiveness(target)+fx.Magnitude)
			target.Effects = append(target.Effects, model.TimedEffect{
				Kind:        fx.Kind,
				Magnitude:   fx.Magnitude,
				ExpiresTurn: turn + max(fx.Duration, 1) - 1,
			})
		case model.EffectIntelReveal, model.EffectCommsReveal:
			// Reveals belong to the attacker: SourceID on the target records who can see it.
			src := ""
			if attacker != nil {
				src = attacker.ID
			}
			target.Effects = append(target.Effects, model.TimedEffect{
				Kind:        fx.Kind,
				SourceID:    src,
				Magnitude:   fx.Magnitude,
				ExpiresTurn: turn + max(fx.Duration, 1) - 1,
			})
		}
	}
}

func effectiveness(e *model.Empire) float64 {
	if e.ArmyEffectiveness <= 0 {
		return 1
	}
	return e.ArmyEffectiveness
}
