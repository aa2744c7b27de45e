package coalition

import "starreign.ai/internal/sim/kernel/model"

// Standing is one coalition's share of total game territory.
type Standing struct {
	Coalition model.Coalition
	Territory int
	Share     float64
}

// CheckVictory returns the first active coalition (by id) whose surviving
// members hold at least threshold of all territory. Eliminated empires count
// toward neither side.
func CheckVictory(coalitions []model.Coalition, members map[string][]model.Membership, empires []*model.Empire, threshold float64) (Standing, bool) {
	byID := make(map[string]*model.Empire, len(empires))
	total := 0
	for _, e := range empires {
		byID[e.ID] = e
		if !e.Eliminated {
			total += e.Territory
		}
	}
	if total <= 0 {
		return Standing{}, false
	}
	for _, co := range coalitions {
		if co.Status != model.CoalitionActive {
			continue
		}
		sum := 0
		for _, m := range members[co.ID] {
			e := byID[m.EmpireID]
			if e == nil || e.Eliminated || !m.Active() {
				continue
			}
			sum += e.Territory
		}
		share := float64(sum) / float64(total)
		if share >= threshold {
			return Standing{Coalition: co, Territory: sum, Share: share}, true
		}
	}
	return Standing{}, false
}
