package economy

import (
	"math"

	"starreign.ai/internal/sim/kernel/model"
	"starreign.ai/internal/sim/tuning"
)

type ProductionReport struct {
	Credits     int64  `json:"credits"`
	Upkeep      int64  `json:"upkeep"`
	Food        int64  `json:"food"`
	Ore         int64  `json:"ore"`
	Petroleum   int64  `json:"petroleum"`
	Research    int64  `json:"research"`
	Population  int64  `json:"population"`
	Shortage    bool   `json:"shortage,omitempty"`
	CivilBefore string `json:"civil_before"`
	CivilAfter  string `json:"civil_after"`
}

// Produce applies one turn of income, upkeep, food consumption, population
// change and covert point regeneration to e.
func Produce(t tuning.Tuning, e *model.Empire) ProductionReport {
	cfg := t.Economy
	rep := ProductionReport{CivilBefore: e.CivilStatus.String()}
	planets := int64(e.Territory)
	mult := e.CivilStatus.ProductionMultiplier()

	rep.Credits = int64(math.Floor(float64(planets*int64(cfg.CreditsPerPlanet)) * mult))
	rep.Food = planets*int64(cfg.FoodPerPlanet) - int64(math.Ceil(float64(e.Population)*cfg.FoodPerPopulation))
	rep.Ore = int64(math.Floor(float64(planets*int64(cfg.OrePerPlanet)) * mult))
	rep.Petroleum = int64(math.Floor(float64(planets*int64(cfg.PetroleumPerPlanet)) * mult))
	rep.Research = int64(math.Floor(float64(planets*int64(cfg.ResearchPerPlanet)) * mult))
	for _, u := range model.UnitTypes {
		rep.Upkeep += int64(e.Fleet[u]) * int64(cfg.UnitUpkeep[string(u)])
	}

	e.Resources.Credits += rep.Credits - rep.Upkeep
	e.Resources.Food += rep.Food
	e.Resources.Ore += rep.Ore
	e.Resources.Petroleum += rep.Petroleum
	e.Resources.ResearchPoints += rep.Research

	capacity := planets * int64(cfg.PopulationPerPlanet)
	if e.Resources.Food < 0 || e.Resources.Credits < 0 {
		rep.Shortage = true
		e.Resources.Food = max(e.Resources.Food, 0)
		e.Resources.Credits = max(e.Resources.Credits, 0)
		rep.Population = -e.Population / 20
		e.CivilStatus = e.CivilStatus.Shift(1)
	} else {
		grow := int64(math.Floor(float64(e.Population) * cfg.PopulationGrowth))
		if e.Population+grow > capacity {
			grow = capacity - e.Population
		}
		rep.Population = grow
		if e.CivilStatus > model.Content {
			e.CivilStatus = e.CivilStatus.Shift(-1)
		}
	}
	e.Population = max(e.Population+rep.Population, 0)

	e.CovertPoints = min(e.CovertPoints+t.Covert.PointsPerTurn, t.Covert.MaxPoints)
	e.Networth = Networth(cfg, e)
	rep.CivilAfter = e.CivilStatus.String()
	return rep
}
