package diplomacy

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"starreign.ai/internal/persistence/store"
	"starreign.ai/internal/sim/kernel/model"
	"starreign.ai/internal/sim/tuning"
)

func newTreaties(t *testing.T) (*Treaties, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	d := NewTreaties(mem, tuning.Defaults().Diplomacy)
	n := 0
	d.NewID = func() string { n++; return fmt.Sprintf("T%d", n) }
	return d, mem
}

func TestTreaty_ProposeAcceptBreak(t *testing.T) {
	ctx := context.Background()
	d, mem := newTreaties(t)
	tr, ok, code, msg := d.Propose(ctx, "G1", "E1", "E2", model.TreatyNonAggression, 1)
	if !ok {
		t.Fatalf("propose: %s %s", code, msg)
	}
	if _, ok, code, _ := d.Propose(ctx, "G1", "E2", "E1", model.TreatyAlliance, 1); ok || code != "E_TREATY" {
		t.Fatalf("duplicate proposal: ok=%v code=%s", ok, code)
	}
	if _, ok, code, _ := d.Accept(ctx, "G1", tr.ID, "E1", 2); ok || code != "E_NO_PERMISSION" {
		t.Fatalf("proposer accept: ok=%v code=%s", ok, code)
	}
	if _, ok, _, msg := d.Accept(ctx, "G1", tr.ID, "E2", 2); !ok {
		t.Fatalf("accept: %s", msg)
	}
	if _, ok, code, _ := d.End(ctx, "G1", tr.ID, "E1", 5); ok || code != "E_BLOCKED" {
		t.Fatalf("early end: ok=%v code=%s", ok, code)
	}
	got, ok, _, msg := d.Break(ctx, "G1", tr.ID, "E2", 5)
	if !ok || got.Status != model.TreatyBroken {
		t.Fatalf("break: %s %+v", msg, got)
	}
	evs, _ := mem.ListReputationEvents(ctx, "G1")
	if len(evs) != 1 || evs[0].EmpireID != "E2" || evs[0].Magnitude != -40 || !evs[0].Permanent {
		t.Fatalf("break penalty: %+v", evs)
	}
}

func TestTreaty_EndHonorsBothParties(t *testing.T) {
	ctx := context.Background()
	d, mem := newTreaties(t)
	tr, _, _, _ := d.Propose(ctx, "G1", "E1", "E2", model.TreatyAlliance, 1)
	d.Accept(ctx, "G1", tr.ID, "E2", 1)
	if _, ok, code, msg := d.End(ctx, "G1", tr.ID, "E1", 21); !ok {
		t.Fatalf("end: %s %s", code, msg)
	}
	evs, _ := mem.ListReputationEvents(ctx, "G1")
	if len(evs) != 2 {
		t.Fatalf("honor events: %+v", evs)
	}
	for _, ev := range evs {
		if ev.Magnitude != 20 || ev.Permanent {
			t.Fatalf("honor event: %+v", ev)
		}
	}
}

func TestTreaty_ExpireProposals(t *testing.T) {
	ctx := context.Background()
	d, _ := newTreaties(t)
	d.Propose(ctx, "G1", "E1", "E2", model.TreatyAlliance, 1)
	d.Propose(ctx, "G1", "E1", "E3", model.TreatyAlliance, 4)
	expired, err := d.ExpireProposals(ctx, "G1", 6)
	if err != nil || len(expired) != 1 || expired[0].TargetID != "E2" {
		t.Fatalf("expired: %v %+v", err, expired)
	}
}

func TestTreaty_RandomSequencesKeepOneActivePerPair(t *testing.T) {
	ctx := context.Background()
	d, mem := newTreaties(t)
	rng := rand.New(rand.NewSource(11))
	empires := []string{"E1", "E2", "E3", "E4"}
	for turn := 1; turn <= 400; turn++ {
		a := empires[rng.Intn(len(empires))]
		b := empires[rng.Intn(len(empires))]
		ts, _ := mem.ListTreaties(ctx, "G1")
		switch rng.Intn(5) {
		case 0:
			typ := model.TreatyNonAggression
			if rng.Intn(2) == 0 {
				typ = model.TreatyAlliance
			}
			d.Propose(ctx, "G1", a, b, typ, turn)
		default:
			if len(ts) == 0 {
				continue
			}
			tr := ts[rng.Intn(len(ts))]
			switch rng.Intn(4) {
			case 0:
				d.Accept(ctx, "G1", tr.ID, tr.TargetID, turn)
			case 1:
				d.Reject(ctx, "G1", tr.ID, tr.TargetID, turn)
			case 2:
				d.Break(ctx, "G1", tr.ID, tr.ProposerID, turn)
			case 3:
				d.End(ctx, "G1", tr.ID, tr.TargetID, turn)
			}
		}
		ts, _ = mem.ListTreaties(ctx, "G1")
		active := map[string]int{}
		for _, tr := range ts {
			if tr.Status == model.TreatyActive {
				x, y := tr.Pair()
				active[x+"|"+y]++
			}
		}
		for pair, n := range active {
			if n > 1 {
				t.Fatalf("turn %d: pair %s has %d active treaties", turn, pair, n)
			}
		}
	}
}

func TestActiveBetween(t *testing.T) {
	ts := []model.Treaty{
		{ID: "T1", ProposerID: "E1", TargetID: "E2", Status: model.TreatyBroken},
		{ID: "T2", ProposerID: "E2", TargetID: "E1", Status: model.TreatyActive},
	}
	got, ok := ActiveBetween(ts, "E1", "E2")
	if !ok || got.ID != "T2" {
		t.Fatalf("got %+v ok=%v", got, ok)
	}
	if _, ok := ActiveBetween(ts, "E1", "E3"); ok {
		t.Fatalf("unexpected treaty for E1/E3")
	}
}
