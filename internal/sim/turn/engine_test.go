package turn

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"starreign.ai/internal/agent/decision"
	tlog "starreign.ai/internal/persistence/log"
	"starreign.ai/internal/persistence/store"
	"starreign.ai/internal/protocol"
	"starreign.ai/internal/sim/kernel/model"
	"starreign.ai/internal/sim/tuning"
)

type scriptedDecider struct {
	mu       sync.Mutex
	actions  map[string]protocol.Action
	fallback map[string]string
	advanced []int
}

func (d *scriptedDecider) Decide(_ context.Context, obs decision.Observation) decision.Decision {
	d.mu.Lock()
	defer d.mu.Unlock()
	a, ok := d.actions[obs.EmpireID()]
	if !ok {
		a = protocol.NoOp()
	}
	return decision.Decision{
		EmpireID:       obs.EmpireID(),
		Turn:           obs.Turn,
		Action:         a,
		Source:         decision.SourceRule,
		FallbackReason: d.fallback[obs.EmpireID()],
	}
}

func (d *scriptedDecider) Precompute(_ context.Context, obs []decision.Observation) int {
	return len(obs)
}

func (d *scriptedDecider) Advance(_ string, turn int) {
	d.mu.Lock()
	d.advanced = append(d.advanced, turn)
	d.mu.Unlock()
}

func (d *scriptedDecider) set(empireID string, a protocol.Action) {
	d.mu.Lock()
	d.actions[empireID] = a
	d.mu.Unlock()
}

type auditSink struct{ entries []tlog.AuditEntry }

func (s *auditSink) WriteAudit(e tlog.AuditEntry) error {
	s.entries = append(s.entries, e)
	return nil
}

type reportSink struct{ reports []protocol.TurnReport }

func (s *reportSink) PublishTurn(r protocol.TurnReport) { s.reports = append(s.reports, r) }

func newTestEngine(t *testing.T, mut func(*tuning.Tuning)) (*Engine, *scriptedDecider, *auditSink) {
	t.Helper()
	cfg := tuning.Defaults()
	cfg.ProtectionTurns = 0
	if mut != nil {
		mut(&cfg)
	}
	d := &scriptedDecider{actions: map[string]protocol.Action{}, fallback: map[string]string{}}
	audit := &auditSink{}
	e := New(Options{
		Store:   store.NewMemory(),
		Tuning:  cfg,
		Decider: d,
		Audit:   audit,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	n := 0
	e.NewID = func() string {
		n++
		return fmt.Sprintf("id-%03d", n)
	}
	return e, d, audit
}

// createGame returns the game id, the human id and the agent ids.
func createGame(t *testing.T, e *Engine, agents int) (string, string, []string) {
	t.Helper()
	g, empires, err := e.CreateGame(context.Background(), NewGame{PlayerName: "Tester", Agents: agents, Seed: 42})
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	var ids []string
	for _, emp := range empires[1:] {
		ids = append(ids, emp.ID)
	}
	return g.ID, empires[0].ID, ids
}

func editEmpire(t *testing.T, e *Engine, id string, fn func(*model.Empire)) {
	t.Helper()
	ctx := context.Background()
	emp, err := e.store.GetEmpire(ctx, id)
	if err != nil {
		t.Fatalf("GetEmpire: %v", err)
	}
	fn(emp)
	if err := e.store.SaveEmpires(ctx, []*model.Empire{emp}); err != nil {
		t.Fatalf("SaveEmpires: %v", err)
	}
}

func eventsOf(rep protocol.TurnReport, kind string) []protocol.Event {
	var out []protocol.Event
	for _, ev := range rep.Events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func TestEndTurnAdvancesGame(t *testing.T) {
	e, d, _ := newTestEngine(t, nil)
	pub := &reportSink{}
	e.AddPublisher(pub)
	gameID, _, _ := createGame(t, e, 2)

	rep, err := e.EndTurn(context.Background(), gameID, protocol.NoOp())
	if err != nil {
		t.Fatalf("EndTurn: %v", err)
	}
	if rep.Turn != 1 || rep.NextTurn != 2 {
		t.Fatalf("turn %d next %d", rep.Turn, rep.NextTurn)
	}
	if got := len(eventsOf(rep, protocol.EventProduction)); got != 3 {
		t.Fatalf("production events: got %d want 3", got)
	}
	if len(rep.Decisions) != 3 || len(rep.Outcomes) != 3 {
		t.Fatalf("decisions %d outcomes %d", len(rep.Decisions), len(rep.Outcomes))
	}
	if len(rep.Digest) != 64 {
		t.Fatalf("digest %q", rep.Digest)
	}
	g, err := e.store.GetGame(context.Background(), gameID)
	if err != nil {
		t.Fatalf("GetGame: %v", err)
	}
	if g.Turn != 2 || g.Finished() {
		t.Fatalf("game after turn: %+v", g)
	}
	if len(d.advanced) != 1 || d.advanced[0] != 2 {
		t.Fatalf("advance calls: %v", d.advanced)
	}
	if len(pub.reports) != 1 || pub.reports[0].Digest != rep.Digest {
		t.Fatalf("published: %+v", pub.reports)
	}
	turns, _ := e.store.ListTurns(context.Background(), gameID)
	if len(turns) != 1 {
		t.Fatalf("recorded turns: %d", len(turns))
	}
}

func TestInvalidPlayerActionIsDiscarded(t *testing.T) {
	e, _, audit := newTestEngine(t, nil)
	gameID, humanID, _ := createGame(t, e, 1)

	rep, err := e.EndTurn(context.Background(), gameID, protocol.Action{Action: protocol.ActBuildUnits, Unit: "fighters", Quantity: 1_000_000})
	if err != nil {
		t.Fatalf("EndTurn: %v", err)
	}
	discarded := eventsOf(rep, protocol.EventActionDiscarded)
	if len(discarded) != 1 || discarded[0].EmpireID != humanID || discarded[0].Code != "E_NO_RESOURCE" {
		t.Fatalf("discarded: %+v", discarded)
	}
	if rep.Decisions[0].Action.Action != protocol.ActNoOp {
		t.Fatalf("player decision: %+v", rep.Decisions[0])
	}
	if len(audit.entries) != 1 || audit.entries[0].Code != "E_NO_RESOURCE" {
		t.Fatalf("audit: %+v", audit.entries)
	}
}

func TestTreatyBrokenThisTurnStillBlocksAttack(t *testing.T) {
	e, d, _ := newTestEngine(t, nil)
	ctx := context.Background()
	gameID, humanID, agents := createGame(t, e, 1)
	agentID := agents[0]

	tr, ok, code, msg := e.treaties.Propose(ctx, gameID, humanID, agentID, model.TreatyNonAggression, 1)
	if !ok {
		t.Fatalf("propose: %s %s", code, msg)
	}
	if _, ok, code, msg := e.treaties.Accept(ctx, gameID, tr.ID, agentID, 1); !ok {
		t.Fatalf("accept: %s %s", code, msg)
	}

	attack := protocol.Action{Action: protocol.ActAttack, TargetID: agentID, Fleet: map[string]int{"light_cruisers": 10}}
	d.set(agentID, protocol.Action{Action: protocol.ActBreakTreaty, TreatyID: tr.ID})

	rep, err := e.EndTurn(ctx, gameID, attack)
	if err != nil {
		t.Fatalf("EndTurn: %v", err)
	}
	if got := eventsOf(rep, protocol.EventBattle); len(got) != 0 {
		t.Fatalf("attack resolved through treaty: %+v", got)
	}
	discarded := eventsOf(rep, protocol.EventActionDiscarded)
	if len(discarded) != 1 || discarded[0].Code != "E_TREATY" {
		t.Fatalf("discarded: %+v", discarded)
	}
	treaties := eventsOf(rep, protocol.EventTreaty)
	if len(treaties) != 1 || treaties[0].Data["status"] != string(model.TreatyBroken) {
		t.Fatalf("treaty events: %+v", treaties)
	}

	d.set(agentID, protocol.NoOp())
	rep, err = e.EndTurn(ctx, gameID, attack)
	if err != nil {
		t.Fatalf("EndTurn 2: %v", err)
	}
	if got := eventsOf(rep, protocol.EventBattle); len(got) != 1 {
		t.Fatalf("second turn battles: %+v", got)
	}
}

func TestConquestEndsGame(t *testing.T) {
	e, _, _ := newTestEngine(t, nil)
	gameID, humanID, _ := createGame(t, e, 2)
	editEmpire(t, e, humanID, func(emp *model.Empire) { emp.Territory = 100 })

	rep, err := e.EndTurn(context.Background(), gameID, protocol.NoOp())
	if err != nil {
		t.Fatalf("EndTurn: %v", err)
	}
	if rep.Victory == nil || rep.Victory.Kind != string(model.VictoryConquest) || rep.Victory.WinnerID != humanID {
		t.Fatalf("victory: %+v", rep.Victory)
	}
	if _, err := e.EndTurn(context.Background(), gameID, protocol.NoOp()); !errors.Is(err, ErrGameFinished) {
		t.Fatalf("want ErrGameFinished, got %v", err)
	}
}

func TestHumanEliminationIsDefeat(t *testing.T) {
	e, d, _ := newTestEngine(t, nil)
	gameID, humanID, agents := createGame(t, e, 2)
	editEmpire(t, e, humanID, func(emp *model.Empire) {
		emp.Territory = 1
		emp.Fleet = model.Fleet{model.Soldiers: 1}
	})
	editEmpire(t, e, agents[0], func(emp *model.Empire) { emp.Fleet[model.LightCruisers] = 1000 })
	d.set(agents[0], protocol.Action{Action: protocol.ActAttack, TargetID: humanID, Fleet: map[string]int{"light_cruisers": 1000}})

	rep, err := e.EndTurn(context.Background(), gameID, protocol.NoOp())
	if err != nil {
		t.Fatalf("EndTurn: %v", err)
	}
	elim := eventsOf(rep, protocol.EventEliminated)
	if len(elim) != 1 || elim[0].EmpireID != humanID {
		t.Fatalf("eliminated: %+v", elim)
	}
	if rep.Victory == nil || rep.Victory.Kind != string(model.VictoryDefeat) {
		t.Fatalf("victory: %+v", rep.Victory)
	}
}

func TestFallbackIsReportedAndAudited(t *testing.T) {
	e, d, audit := newTestEngine(t, nil)
	gameID, _, agents := createGame(t, e, 1)
	d.fallback[agents[0]] = decision.ReasonTimeout

	rep, err := e.EndTurn(context.Background(), gameID, protocol.NoOp())
	if err != nil {
		t.Fatalf("EndTurn: %v", err)
	}
	fb := eventsOf(rep, protocol.EventDecisionFallback)
	if len(fb) != 1 || fb[0].Message != decision.ReasonTimeout {
		t.Fatalf("fallback events: %+v", fb)
	}
	if len(audit.entries) != 1 || audit.entries[0].Reason != decision.ReasonTimeout {
		t.Fatalf("audit: %+v", audit.entries)
	}
}

func TestBusyGameIsRejected(t *testing.T) {
	e, _, _ := newTestEngine(t, nil)
	gameID, _, _ := createGame(t, e, 1)
	mu := e.gameLock(gameID)
	mu.Lock()
	defer mu.Unlock()
	if _, err := e.EndTurn(context.Background(), gameID, protocol.NoOp()); !errors.Is(err, ErrGameBusy) {
		t.Fatalf("want ErrGameBusy, got %v", err)
	}
}

func TestSameInputsGiveSameDigest(t *testing.T) {
	play := func() []string {
		e, d, _ := newTestEngine(t, nil)
		gameID, humanID, agents := createGame(t, e, 3)
		d.set(agents[0], protocol.Action{Action: protocol.ActCovertOp, TargetID: humanID, Operation: "send_spy"})
		d.set(agents[1], protocol.Action{Action: protocol.ActBuildUnits, Unit: "fighters", Quantity: 5})
		var digests []string
		for i := 0; i < 3; i++ {
			rep, err := e.EndTurn(context.Background(), gameID, protocol.Action{Action: protocol.ActAcquireTerritory, Quantity: 1})
			if err != nil {
				t.Fatalf("EndTurn: %v", err)
			}
			digests = append(digests, rep.Digest)
		}
		return digests
	}
	a, b := play(), play()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("turn %d digest differs: %s vs %s", i+1, a[i], b[i])
		}
	}
	if a[0] == a[1] {
		t.Fatalf("state did not change between turns")
	}
}

func TestLeaderBreaksTiesByID(t *testing.T) {
	empires := []*model.Empire{
		{ID: "b", Networth: 10},
		{ID: "a", Networth: 10},
		{ID: "c", Networth: 50, Eliminated: true},
	}
	if got := leader(empires); got != "a" {
		t.Fatalf("leader: got %q want a", got)
	}
}

func TestTurnLimitVictory(t *testing.T) {
	e, _, _ := newTestEngine(t, func(c *tuning.Tuning) { c.TurnLimit = 1 })
	gameID, _, _ := createGame(t, e, 2)
	rep, err := e.EndTurn(context.Background(), gameID, protocol.NoOp())
	if err != nil {
		t.Fatalf("EndTurn: %v", err)
	}
	if rep.Victory == nil || rep.Victory.Kind != string(model.VictoryTurnLimit) || rep.Victory.WinnerID == "" {
		t.Fatalf("victory: %+v", rep.Victory)
	}
}

type flakyStore struct {
	store.Store
	failReputation bool
}

func (s *flakyStore) ListReputationEvents(ctx context.Context, gameID string) ([]model.ReputationEvent, error) {
	if s.failReputation {
		s.failReputation = false
		return nil, errors.New("reputation table unavailable")
	}
	return s.Store.ListReputationEvents(ctx, gameID)
}

func TestRetryAfterFailedTurnKeepsDiplomacyWritesOnce(t *testing.T) {
	e, _, _ := newTestEngine(t, nil)
	st := &flakyStore{Store: e.store}
	e.store = st
	ctx := context.Background()
	gameID, humanID, agents := createGame(t, e, 1)

	propose := protocol.Action{Action: protocol.ActProposeTreaty, TargetID: agents[0], TreatyType: string(model.TreatyNonAggression)}
	st.failReputation = true
	if _, err := e.EndTurn(ctx, gameID, propose); err == nil {
		t.Fatalf("expected the turn to fail")
	}
	g, err := st.GetGame(ctx, gameID)
	if err != nil || g.Turn != 1 {
		t.Fatalf("turn must not advance on failure: %v %+v", err, g)
	}

	rep, err := e.EndTurn(ctx, gameID, propose)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if rep.NextTurn != 2 {
		t.Fatalf("retry did not advance: %+v", rep)
	}
	if got := eventsOf(rep, protocol.EventActionDiscarded); len(got) != 1 || got[0].EmpireID != humanID {
		t.Fatalf("repeated proposal should be discarded: %+v", got)
	}
	treaties, err := st.ListTreaties(ctx, gameID)
	if err != nil || len(treaties) != 1 {
		t.Fatalf("treaties after retry: %v %+v", err, treaties)
	}
}
