package turn

import (
	"encoding/hex"
	"sort"

	"lukechampine.com/blake3"

	dc "starreign.ai/internal/sim/kernel/digestcodec"
	"starreign.ai/internal/sim/kernel/model"
)

// digest hashes the canonical post-turn state. Two replays of the same game
// with the same actions and seed produce the same value.
func digest(w *world) string {
	h := blake3.New(32, nil)
	var tmp [8]byte

	dc.String(h, &tmp, w.game.ID)
	dc.I64(h, &tmp, int64(w.game.Turn))
	dc.String(h, &tmp, string(w.game.Status))
	dc.String(h, &tmp, string(w.game.Victory))
	dc.String(h, &tmp, w.game.WinnerID)

	empires := append([]*model.Empire(nil), w.empires...)
	sort.Slice(empires, func(i, j int) bool { return empires[i].ID < empires[j].ID })
	dc.U64(h, &tmp, uint64(len(empires)))
	for _, emp := range empires {
		digestEmpire(h, &tmp, emp)
	}

	treaties := append([]model.Treaty(nil), w.treaties...)
	sort.Slice(treaties, func(i, j int) bool { return treaties[i].ID < treaties[j].ID })
	dc.U64(h, &tmp, uint64(len(treaties)))
	for _, t := range treaties {
		dc.String(h, &tmp, t.ID)
		dc.String(h, &tmp, string(t.Type))
		dc.String(h, &tmp, t.ProposerID)
		dc.String(h, &tmp, t.TargetID)
		dc.String(h, &tmp, string(t.Status))
		dc.String(h, &tmp, t.BrokenBy)
	}

	coalitions := append([]model.Coalition(nil), w.coalitions...)
	sort.Slice(coalitions, func(i, j int) bool { return coalitions[i].ID < coalitions[j].ID })
	dc.U64(h, &tmp, uint64(len(coalitions)))
	for _, co := range coalitions {
		dc.String(h, &tmp, co.ID)
		dc.String(h, &tmp, co.LeaderID)
		dc.String(h, &tmp, string(co.Status))
		ids := make([]string, 0, len(w.members[co.ID]))
		for _, m := range w.members[co.ID] {
			ids = append(ids, m.EmpireID)
		}
		sort.Strings(ids)
		dc.U64(h, &tmp, uint64(len(ids)))
		for _, id := range ids {
			dc.String(h, &tmp, id)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

func digestEmpire(h dc.Writer, tmp *[8]byte, emp *model.Empire) {
	dc.String(h, tmp, emp.ID)
	r := emp.Resources
	for _, v := range []int64{r.Credits, r.Food, r.Ore, r.Petroleum, r.ResearchPoints, emp.Population, emp.Networth} {
		dc.I64(h, tmp, v)
	}
	dc.I64(h, tmp, int64(emp.CivilStatus))
	dc.I64(h, tmp, int64(emp.Territory))
	dc.I64(h, tmp, int64(emp.GovPlanets))
	dc.I64(h, tmp, int64(emp.CovertAgents))
	dc.I64(h, tmp, int64(emp.CovertPoints))
	dc.I64(h, tmp, int64(emp.Reputation))
	dc.F64(h, tmp, emp.ArmyEffectiveness)
	dc.Bool(h, emp.Eliminated)
	dc.SortedNonZeroIntMap(h, tmp, emp.Fleet)
	dc.SortedNonZeroIntMap(h, tmp, emp.UnitTiers)
	dc.SortedNonZeroIntMap(h, tmp, emp.ResearchLevels)
	dc.SortedNonZeroIntMap(h, tmp, emp.Components)
	dc.SortedNonZeroIntMap(h, tmp, emp.Items)
	dc.U64(h, tmp, uint64(len(emp.Effects)))
	for _, fx := range emp.Effects {
		dc.String(h, tmp, string(fx.Kind))
		dc.String(h, tmp, fx.SourceID)
		dc.F64(h, tmp, fx.Magnitude)
		dc.I64(h, tmp, int64(fx.ExpiresTurn))
	}
}
