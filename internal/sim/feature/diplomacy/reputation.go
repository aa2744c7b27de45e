package diplomacy

import (
	"math"

	"starreign.ai/internal/sim/kernel/model"
)

// CalculateDecayedReputation returns the retained magnitude of ev after turns
// have elapsed. Permanent events never decay; others shrink as
// magnitude * exp(-rate * (1 - resistance) * turns).
func CalculateDecayedReputation(ev model.ReputationEvent, turns int, rate float64) float64 {
	mag := float64(ev.Magnitude)
	if ev.Permanent || turns <= 0 {
		return mag
	}
	res := math.Min(math.Max(ev.DecayResistance, 0), 1)
	return mag * math.Exp(-rate*(1-res)*float64(turns))
}

// Reputation sums every event for empireID as of turn now, clamped to
// [-limit, limit] when limit is positive.
func Reputation(events []model.ReputationEvent, empireID string, now int, rate float64, limit int) int {
	total := 0.0
	for _, ev := range events {
		if ev.EmpireID != empireID {
			continue
		}
		total += CalculateDecayedReputation(ev, now-ev.Turn, rate)
	}
	v := int(math.Round(total))
	if limit > 0 {
		if v > limit {
			v = limit
		}
		if v < -limit {
			v = -limit
		}
	}
	return v
}
