package covert

import (
	"fmt"
	"math"

	"starreign.ai/internal/sim/kernel/model"
)

// Rand is satisfied by *math/rand.Rand.
type Rand interface {
	Float64() float64
}

type Odds struct {
	// PreVariance is base*agent*government*risk before variance and clamping.
	PreVariance      float64 `json:"pre_variance"`
	SuccessRate      float64 `json:"success_rate"`
	CatchProbability float64 `json:"catch_probability"`
}

// AgentModifier gives diminishing returns on the attacker/defender agent ratio.
func AgentModifier(attackerAgents, defenderAgents int) float64 {
	if attackerAgents <= 0 {
		return 0.5
	}
	def := math.Max(float64(defenderAgents), 1)
	return clamp(1+0.25*math.Log(float64(attackerAgents)/def), 0.5, 1.5)
}

// GovernmentModifier lowers success as the defender holds more government planets.
func GovernmentModifier(govPlanets int) float64 {
	if govPlanets < 0 {
		govPlanets = 0
	}
	return math.Max(0.6, 1-0.02*float64(govPlanets))
}

// CalculateSuccess applies base, agent ratio, government, risk, then variance
// u in [-variance, variance], then clamps to [0,1]. u is the variance draw.
func CalculateSuccess(attackerAgents, defenderAgents, defenderGovPlanets int, op Operation, u float64) Odds {
	risk := riskProfiles[op.Risk]
	agentMod := AgentModifier(attackerAgents, defenderAgents)
	pre := op.BaseRate * agentMod * GovernmentModifier(defenderGovPlanets) * risk.successMod
	return Odds{
		PreVariance:      pre,
		SuccessRate:      clamp(pre*(1+u), 0, 1),
		CatchProbability: clamp(risk.detection/agentMod, 0, 1),
	}
}

type Effect struct {
	Kind      model.EffectKind `json:"kind"`
	Magnitude float64          `json:"magnitude"`
	Duration  int              `json:"duration,omitempty"`
	Subject   string           `json:"subject,omitempty"`
}

type Result struct {
	Operation      string   `json:"operation"`
	Success        bool     `json:"success"`
	Caught         bool     `json:"caught"`
	PointsConsumed int      `json:"points_consumed"`
	AgentsLost     int      `json:"agents_lost,omitempty"`
	Effects        []Effect `json:"effects,omitempty"`
	Odds           Odds     `json:"odds"`
	Message        string   `json:"message"`
}

type ExecuteInput struct {
	Operation          string
	AttackerAgents     int
	AttackerPoints     int
	DefenderAgents     int
	DefenderGovPlanets int
	Variance           float64
	CaughtAgentLossPct float64
}

// Rolls pins the three draws for replay and tests; each must be in [0,1).
type Rolls struct {
	Variance float64
	Success  float64
	Catch    float64
}

// Execute validates affordability and rolls one operation. With rolls nil the
// draws come from rng. Effect magnitudes always come from rng; a nil rng
// samples interval midpoints.
func Execute(in ExecuteInput, rng Rand, rolls *Rolls) (Result, bool, string, string) {
	op, ok := Lookup(in.Operation)
	if !ok {
		return Result{}, false, "E_BAD_REQUEST", "unknown covert operation"
	}
	if in.AttackerPoints < op.Cost {
		return Result{}, false, "E_NO_RESOURCE", fmt.Sprintf("need %d covert points", op.Cost)
	}
	if in.AttackerAgents < op.MinAgents {
		return Result{}, false, "E_NO_RESOURCE", fmt.Sprintf("need %d agents", op.MinAgents)
	}

	var r Rolls
	switch {
	case rolls != nil:
		r = *rolls
	case rng != nil:
		r = Rolls{Variance: rng.Float64(), Success: rng.Float64(), Catch: rng.Float64()}
	default:
		r = Rolls{Variance: 0.5, Success: 0.5, Catch: 0.5}
	}
	u := (2*r.Variance - 1) * in.Variance
	odds := CalculateSuccess(in.AttackerAgents, in.DefenderAgents, in.DefenderGovPlanets, op, u)

	res := Result{
		Operation:      op.Name,
		PointsConsumed: op.Cost,
		Odds:           odds,
		Success:        r.Success < odds.SuccessRate,
		Caught:         r.Catch < odds.CatchProbability,
	}
	if res.Caught {
		lost := int(math.Ceil(float64(in.AttackerAgents) * in.CaughtAgentLossPct))
		if lost > in.AttackerAgents {
			lost = in.AttackerAgents
		}
		res.AgentsLost = lost
	}
	if res.Success {
		for _, es := range op.Effects {
			res.Effects = append(res.Effects, Effect{
				Kind:      es.Kind,
				Magnitude: sample(rng, es.Magnitude),
				Duration:  int(math.Round(sample(rng, es.Duration))),
				Subject:   es.Subject,
			})
		}
	}
	res.Message = describe(res)
	return res, true, "", ""
}

func describe(res Result) string {
	switch {
	case res.Success && res.Caught:
		return fmt.Sprintf("%s succeeded but agents were caught", res.Operation)
	case res.Success:
		return fmt.Sprintf("%s succeeded", res.Operation)
	case res.Caught:
		return fmt.Sprintf("%s failed and agents were caught", res.Operation)
	default:
		return fmt.Sprintf("%s failed", res.Operation)
	}
}

func sample(rng Rand, r Range) float64 {
	if r.Max <= r.Min {
		return r.Min
	}
	x := 0.5
	if rng != nil {
		x = rng.Float64()
	}
	return r.Min + x*(r.Max-r.Min)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
