package turn

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	tlog "starreign.ai/internal/persistence/log"
	"starreign.ai/internal/protocol"
	"starreign.ai/internal/sim/feature/combat"
	"starreign.ai/internal/sim/feature/covert"
	"starreign.ai/internal/sim/feature/diplomacy"
	"starreign.ai/internal/sim/feature/economy"
	"starreign.ai/internal/sim/feature/validation"
	"starreign.ai/internal/sim/kernel/model"
)

// Steps lists the resolution order. Attacks resolve against the treaties in
// force when the turn began, so a treaty broken in the diplomacy step can
// neither block nor enable an attack of the same turn.
var Steps = []string{
	"production",
	"decisions",
	"economy",
	"attacks",
	"covert",
	"diplomacy",
	"timers",
	"advance",
}

type resolution struct {
	eng     *Engine
	w       *world
	turn    int
	rng     *rand.Rand
	actions map[string]protocol.Action
	report  protocol.TurnReport
}

// EndTurn resolves the current turn with the human's action and advances
// the game. Agent actions come from the Decider, cache first.
func (e *Engine) EndTurn(ctx context.Context, gameID string, player protocol.Action) (protocol.TurnReport, error) {
	mu := e.gameLock(gameID)
	if !mu.TryLock() {
		return protocol.TurnReport{}, ErrGameBusy
	}
	defer mu.Unlock()

	w, err := e.load(ctx, gameID)
	if err != nil {
		return protocol.TurnReport{}, err
	}
	if w.game.Finished() {
		return protocol.TurnReport{}, ErrGameFinished
	}
	r := &resolution{
		eng:     e,
		w:       w,
		turn:    w.game.Turn,
		rng:     rand.New(rand.NewPCG(uint64(w.game.Seed), uint64(w.game.Turn))),
		actions: map[string]protocol.Action{},
		report:  protocol.TurnReport{GameID: gameID, Turn: w.game.Turn},
	}

	steps := map[string]func(context.Context) error{
		"production": r.production,
		"decisions":  func(ctx context.Context) error { return r.collect(ctx, player) },
		"economy":    r.economy,
		"attacks":    r.attacks,
		"covert":     r.covert,
		"diplomacy":  r.diplomacy,
		"timers":     r.timers,
		"advance":    r.advance,
	}
	for _, name := range Steps {
		if err := steps[name](ctx); err != nil {
			return protocol.TurnReport{}, fmt.Errorf("turn %d %s: %w", r.turn, name, err)
		}
	}

	e.store.RecordTurn(r.report)
	if e.turns != nil {
		entry := tlog.TurnLogEntry{
			GameID:    gameID,
			Turn:      r.turn,
			Decisions: r.report.Decisions,
			Events:    len(r.report.Events),
			Digest:    r.report.Digest,
			At:        e.Now().UTC(),
		}
		if r.report.Victory != nil {
			entry.Victory = r.report.Victory.Kind
		}
		if err := e.turns.WriteTurn(entry); err != nil {
			e.log.Warn("turn log write failed", "game", gameID, "turn", r.turn, "error", err)
		}
	}
	if e.decider != nil {
		e.decider.Advance(gameID, r.report.NextTurn)
	}
	e.publish(r.report)
	e.log.Info("turn resolved", "game", gameID, "turn", r.turn, "events", len(r.report.Events), "digest", r.report.Digest)
	return r.report, nil
}

func (r *resolution) event(kind, empireID, targetID, code, msg string, data map[string]any) {
	r.report.Events = append(r.report.Events, protocol.Event{
		Turn:     r.turn,
		Kind:     kind,
		EmpireID: empireID,
		TargetID: targetID,
		Code:     code,
		Message:  msg,
		Data:     data,
	})
}

func (r *resolution) discard(emp *model.Empire, a protocol.Action, code, msg string) {
	r.event(protocol.EventActionDiscarded, emp.ID, a.TargetID, code, msg, map[string]any{"action": a.Action})
	r.eng.writeAudit(tlog.AuditEntry{
		GameID:   r.w.game.ID,
		Turn:     r.turn,
		Kind:     protocol.EventActionDiscarded,
		EmpireID: emp.ID,
		TargetID: a.TargetID,
		Code:     code,
		Reason:   msg,
		Details:  map[string]any{"action": a.Action},
	})
	r.eng.log.Info("action discarded", "game", r.w.game.ID, "empire", emp.ID, "turn", r.turn, "code", code, "reason", msg)
}

// check re-runs the validator against the state as it is now. Earlier
// steps may have changed fleets, treasuries or targets.
func (r *resolution) check(emp *model.Empire, a protocol.Action) bool {
	if ok, code, msg := validation.Validate(a, r.w.state(emp), r.eng.cfg); !ok {
		r.discard(emp, a, code, msg)
		return false
	}
	return true
}

func (r *resolution) living() []*model.Empire {
	out := make([]*model.Empire, 0, len(r.w.empires))
	for _, emp := range r.w.empires {
		if !emp.Eliminated {
			out = append(out, emp)
		}
	}
	return out
}

// 1. production and consumption
func (r *resolution) production(ctx context.Context) error {
	for _, emp := range r.living() {
		rep := economy.Produce(r.eng.cfg, emp)
		r.event(protocol.EventProduction, emp.ID, "", "", "", map[string]any{
			"credits":  rep.Credits,
			"upkeep":   rep.Upkeep,
			"food":     rep.Food,
			"shortage": rep.Shortage,
			"civil":    rep.CivilAfter,
		})
	}
	return nil
}

// 2. one validated action per empire
func (r *resolution) collect(ctx context.Context, player protocol.Action) error {
	for _, emp := range r.living() {
		if emp.Kind == model.OwnerHuman {
			a := player
			if a.IsNoOp() {
				a = protocol.NoOp()
			}
			if !r.check(emp, a) {
				a = protocol.NoOp()
			}
			r.actions[emp.ID] = a
			r.report.Decisions = append(r.report.Decisions, protocol.Decision{EmpireID: emp.ID, Action: a, Source: "player"})
			continue
		}
		if r.eng.decider == nil {
			r.actions[emp.ID] = protocol.NoOp()
			continue
		}
		d := r.eng.decider.Decide(ctx, r.w.observe(emp, r.eng.cfg))
		r.actions[emp.ID] = d.Action
		r.report.Decisions = append(r.report.Decisions, d.Record())
		if d.FallbackReason != "" {
			r.event(protocol.EventDecisionFallback, emp.ID, "", "", d.FallbackReason, map[string]any{"action": d.Action.Action})
			r.eng.writeAudit(tlog.AuditEntry{
				GameID:   r.w.game.ID,
				Turn:     r.turn,
				Kind:     protocol.EventDecisionFallback,
				EmpireID: emp.ID,
				Reason:   d.FallbackReason,
				Details:  map[string]any{"action": d.Action.Action, "rule": d.Rule},
			})
		}
	}
	return nil
}

// 3. economic actions
func (r *resolution) economy(ctx context.Context) error {
	for _, emp := range r.living() {
		a := r.actions[emp.ID]
		if !a.IsEconomic() || !r.check(emp, a) {
			continue
		}
		ok, code, msg := economy.Apply(r.eng.cfg.Economy, emp, a)
		if !ok {
			r.discard(emp, a, code, msg)
			continue
		}
		r.event(protocol.EventActionApplied, emp.ID, "", "", msg, map[string]any{"action": a.Action})
	}
	return nil
}

func ratioValue(v float64) any {
	if math.IsInf(v, 1) {
		return "inf"
	}
	return math.Round(v*1000) / 1000
}

// 4. attacks, in empire order, against turn-start treaties
func (r *resolution) attacks(ctx context.Context) error {
	for _, emp := range r.living() {
		a := r.actions[emp.ID]
		if a.Action != protocol.ActAttack || emp.Eliminated || !r.check(emp, a) {
			continue
		}
		target := r.w.byID[a.TargetID]
		committed := fleetOf(a.Fleet)
		res := combat.Resolve(r.eng.cfg.Combat, combat.BattleInput{
			Committed:             committed,
			Defender:              target.Fleet.Clone(),
			DefenderTerritory:     target.Territory,
			AttackerEffectiveness: emp.ArmyEffectiveness,
			DefenderEffectiveness: target.ArmyEffectiveness,
		})
		emp.Fleet.Subtract(res.AttackerLosses)
		target.Fleet.Subtract(res.DefenderLosses)
		if res.AttackerWon {
			emp.Territory += res.TerritoryCaptured
			target.Territory -= res.TerritoryCaptured
		}
		msg := fmt.Sprintf("%s attacked %s and lost", emp.Name, target.Name)
		if res.AttackerWon {
			msg = fmt.Sprintf("%s captured %d planets from %s", emp.Name, res.TerritoryCaptured, target.Name)
		}
		r.event(protocol.EventBattle, emp.ID, target.ID, "", msg, map[string]any{
			"ratio":           ratioValue(res.Ratio),
			"attacker_won":    res.AttackerWon,
			"captured":        res.TerritoryCaptured,
			"attacker_losses": res.AttackerLosses,
			"defender_losses": res.DefenderLosses,
		})
		if target.Territory <= 0 {
			if err := r.eliminate(ctx, target, emp.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *resolution) eliminate(ctx context.Context, emp *model.Empire, by string) error {
	emp.Territory = 0
	emp.Eliminated = true
	emp.EliminatedTurn = r.turn
	r.event(protocol.EventEliminated, emp.ID, by, "", emp.Name+" was eliminated", nil)
	if r.w.coalitionOf(emp.ID) == "" {
		return nil
	}
	if co, ok, code, msg := r.eng.coalitions.Leave(ctx, r.w.game.ID, emp.ID, r.turn); ok {
		r.event(protocol.EventCoalition, emp.ID, co.ID, "", "left on elimination", map[string]any{"status": co.Status})
	} else {
		r.eng.log.Warn("coalition leave on elimination failed", "game", r.w.game.ID, "empire", emp.ID, "code", code, "reason", msg)
	}
	return r.eng.reloadDiplomacy(ctx, r.w)
}

// 5. covert operations
func (r *resolution) covert(ctx context.Context) error {
	cfg := r.eng.cfg.Covert
	for _, emp := range r.living() {
		a := r.actions[emp.ID]
		if a.Action != protocol.ActCovertOp || !r.check(emp, a) {
			continue
		}
		target := r.w.byID[a.TargetID]
		res, ok, code, msg := covert.Execute(covert.ExecuteInput{
			Operation:          a.Operation,
			AttackerAgents:     emp.CovertAgents,
			AttackerPoints:     emp.CovertPoints,
			DefenderAgents:     target.CovertAgents,
			DefenderGovPlanets: target.GovPlanets,
			Variance:           cfg.Variance,
			CaughtAgentLossPct: cfg.CaughtAgentLossPct,
		}, r.rng, nil)
		if !ok {
			r.discard(emp, a, code, msg)
			continue
		}
		emp.CovertPoints -= res.PointsConsumed
		emp.CovertAgents -= res.AgentsLost
		covert.Apply(emp, target, res, r.turn)
		if res.Caught && cfg.CaughtRepPenalty != 0 {
			ev := model.ReputationEvent{
				ID:        r.eng.NewID(),
				EmpireID:  emp.ID,
				Kind:      "covert_caught",
				Magnitude: cfg.CaughtRepPenalty,
				Turn:      r.turn,
			}
			if err := r.eng.store.InsertReputationEvent(ctx, r.w.game.ID, ev); err != nil {
				return err
			}
		}
		r.event(protocol.EventCovert, emp.ID, target.ID, "", res.Message, map[string]any{
			"operation": res.Operation,
			"success":   res.Success,
			"caught":    res.Caught,
			"effects":   res.Effects,
		})
		r.eng.writeAudit(tlog.AuditEntry{
			GameID:   r.w.game.ID,
			Turn:     r.turn,
			Kind:     protocol.EventCovert,
			EmpireID: emp.ID,
			TargetID: target.ID,
			Reason:   res.Message,
			Details: map[string]any{
				"operation":    res.Operation,
				"success":      res.Success,
				"caught":       res.Caught,
				"success_rate": res.Odds.SuccessRate,
				"agents_lost":  res.AgentsLost,
			},
		})
	}
	return nil
}

// 6. treaties and coalitions
func (r *resolution) diplomacy(ctx context.Context) error {
	gameID := r.w.game.ID
	for _, emp := range r.living() {
		a := r.actions[emp.ID]
		if !a.IsDiplomatic() || !r.check(emp, a) {
			continue
		}
		var out outcome
		switch a.Action {
		case protocol.ActProposeTreaty:
			out = treatyOutcome(r.eng.treaties.Propose(ctx, gameID, emp.ID, a.TargetID, model.TreatyType(a.TreatyType), r.turn))
		case protocol.ActAcceptTreaty:
			out = treatyOutcome(r.eng.treaties.Accept(ctx, gameID, a.TreatyID, emp.ID, r.turn))
		case protocol.ActRejectTreaty:
			out = treatyOutcome(r.eng.treaties.Reject(ctx, gameID, a.TreatyID, emp.ID, r.turn))
		case protocol.ActBreakTreaty:
			out = treatyOutcome(r.eng.treaties.Break(ctx, gameID, a.TreatyID, emp.ID, r.turn))
		case protocol.ActEndTreaty:
			out = treatyOutcome(r.eng.treaties.End(ctx, gameID, a.TreatyID, emp.ID, r.turn))
		case protocol.ActFormCoalition:
			out = coalitionOutcome(r.eng.coalitions.Form(ctx, gameID, emp.ID, a.CoalitionName, r.turn))
		case protocol.ActJoinCoalition:
			out = coalitionOutcome(r.eng.coalitions.Join(ctx, gameID, a.CoalitionID, emp.ID, r.turn))
		case protocol.ActLeaveCoalition:
			out = coalitionOutcome(r.eng.coalitions.Leave(ctx, gameID, emp.ID, r.turn))
		}
		if !out.ok {
			r.discard(emp, a, out.code, out.msg)
			continue
		}
		r.event(out.kind, emp.ID, a.TargetID, "", a.Action, map[string]any{"id": out.id, "status": out.status})
		if a.Message != "" {
			r.event(protocol.EventActionApplied, emp.ID, a.TargetID, "", a.Message, map[string]any{"action": a.Action})
		}
		if err := r.eng.reloadDiplomacy(ctx, r.w); err != nil {
			return err
		}
	}
	return nil
}

type outcome struct {
	kind, id, status string
	ok               bool
	code, msg        string
}

func treatyOutcome(t model.Treaty, ok bool, code, msg string) outcome {
	return outcome{kind: protocol.EventTreaty, id: t.ID, status: string(t.Status), ok: ok, code: code, msg: msg}
}

func coalitionOutcome(co model.Coalition, ok bool, code, msg string) outcome {
	return outcome{kind: protocol.EventCoalition, id: co.ID, status: string(co.Status), ok: ok, code: code, msg: msg}
}

// 7. expiries and derived scores for the coming turn
func (r *resolution) timers(ctx context.Context) error {
	gameID := r.w.game.ID
	next := r.turn + 1
	expired, err := r.eng.treaties.ExpireProposals(ctx, gameID, r.turn)
	if err != nil {
		return err
	}
	for _, t := range expired {
		r.event(protocol.EventTreaty, t.ProposerID, t.TargetID, "", "proposal expired", map[string]any{"id": t.ID, "status": string(t.Status)})
	}
	if len(expired) > 0 {
		if err := r.eng.reloadDiplomacy(ctx, r.w); err != nil {
			return err
		}
	}

	events, err := r.eng.store.ListReputationEvents(ctx, gameID)
	if err != nil {
		return err
	}
	dcfg := r.eng.cfg.Diplomacy
	for _, emp := range r.w.empires {
		kept := emp.Effects[:0]
		army := 1.0
		for _, fx := range emp.Effects {
			if fx.ExpiresTurn < next {
				r.event(protocol.EventEffectExpired, emp.ID, fx.SourceID, "", string(fx.Kind), nil)
				continue
			}
			if fx.Kind == model.EffectArmyEffectiveness {
				army += fx.Magnitude
			}
			kept = append(kept, fx)
		}
		emp.Effects = kept
		emp.ArmyEffectiveness = math.Max(0.1, army)

		before := emp.Reputation
		emp.Reputation = diplomacy.Reputation(events, emp.ID, next, dcfg.DecayRate, dcfg.ReputationClamp)
		if emp.Reputation != before {
			r.event(protocol.EventReputation, emp.ID, "", "", "", map[string]any{"from": before, "to": emp.Reputation})
		}
		emp.Networth = economy.Networth(r.eng.cfg.Economy, emp)
	}
	return nil
}

// 8. turn increment, victory, persistence
func (r *resolution) advance(ctx context.Context) error {
	w := r.w
	w.game.Turn = r.turn + 1
	if v, ok := checkVictory(r.eng.cfg, w); ok {
		w.game.Status = model.GameFinished
		w.game.Victory = model.VictoryKind(v.Kind)
		w.game.WinnerID = v.WinnerID
		w.game.WinnerCoalition = v.CoalitionID
		r.report.Victory = &v
		r.event(protocol.EventVictory, v.WinnerID, v.CoalitionID, "", v.Kind, nil)
	}
	if err := r.eng.store.SaveEmpires(ctx, w.empires); err != nil {
		return err
	}
	if err := r.eng.store.UpdateGame(ctx, w.game); err != nil {
		return err
	}
	r.report.NextTurn = w.game.Turn
	for _, emp := range w.empires {
		r.report.Outcomes = append(r.report.Outcomes, protocol.EmpireOutcome{
			EmpireID:    emp.ID,
			Networth:    emp.Networth,
			Territory:   emp.Territory,
			Reputation:  emp.Reputation,
			CivilStatus: emp.CivilStatus.String(),
			Eliminated:  emp.Eliminated,
		})
	}
	r.report.Digest = digest(w)
	return nil
}
