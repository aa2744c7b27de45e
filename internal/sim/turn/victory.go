package turn

import (
	"starreign.ai/internal/protocol"
	"starreign.ai/internal/sim/feature/coalition"
	"starreign.ai/internal/sim/kernel/model"
	"starreign.ai/internal/sim/tuning"
)

// checkVictory runs after the turn counter advanced. The first condition
// that holds ends the game: defeat, diplomatic, conquest, last standing,
// then the turn limit.
func checkVictory(cfg tuning.Tuning, w *world) (protocol.VictoryResult, bool) {
	if h := w.human(); h != nil && h.Eliminated {
		return protocol.VictoryResult{Kind: string(model.VictoryDefeat), WinnerID: leader(w.empires)}, true
	}
	if st, ok := coalition.CheckVictory(w.coalitions, w.members, w.empires, cfg.Victory.CoalitionShare); ok {
		return protocol.VictoryResult{
			Kind:        string(model.VictoryDiplomatic),
			WinnerID:    st.Coalition.LeaderID,
			CoalitionID: st.Coalition.ID,
		}, true
	}

	total, alive := 0, 0
	var last *model.Empire
	for _, emp := range w.empires {
		if emp.Eliminated {
			continue
		}
		total += emp.Territory
		alive++
		last = emp
	}
	if total > 0 {
		for _, emp := range w.empires {
			if !emp.Eliminated && float64(emp.Territory)/float64(total) >= cfg.Victory.ConquestShare {
				return protocol.VictoryResult{Kind: string(model.VictoryConquest), WinnerID: emp.ID}, true
			}
		}
	}
	if alive == 1 {
		return protocol.VictoryResult{Kind: string(model.VictoryLastStand), WinnerID: last.ID}, true
	}
	if w.game.TurnLimit > 0 && w.game.Turn > w.game.TurnLimit {
		return protocol.VictoryResult{Kind: string(model.VictoryTurnLimit), WinnerID: leader(w.empires)}, true
	}
	return protocol.VictoryResult{}, false
}

// leader is the surviving empire with the highest networth; ties go to the
// smaller id.
func leader(empires []*model.Empire) string {
	var best *model.Empire
	for _, emp := range empires {
		if emp.Eliminated {
			continue
		}
		if best == nil || emp.Networth > best.Networth || (emp.Networth == best.Networth && emp.ID < best.ID) {
			best = emp
		}
	}
	if best == nil {
		return ""
	}
	return best.ID
}
