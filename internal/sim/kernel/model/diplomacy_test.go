package model

import "testing"

func TestTreatyTransitions(t *testing.T) {
	cases := []struct {
		from, to TreatyStatus
		ok       bool
	}{
		{TreatyProposed, TreatyActive, true},
		{TreatyProposed, TreatyRejected, true},
		{TreatyProposed, TreatyBroken, false},
		{TreatyActive, TreatyEnded, true},
		{TreatyActive, TreatyBroken, true},
		{TreatyActive, TreatyRejected, false},
		{TreatyBroken, TreatyActive, false},
		{TreatyEnded, TreatyActive, false},
		{TreatyRejected, TreatyActive, false},
	}
	for _, c := range cases {
		if got := c.from.CanTransition(c.to); got != c.ok {
			t.Fatalf("%s -> %s: got %v want %v", c.from, c.to, got, c.ok)
		}
	}
}

func TestCoalitionStatusFor(t *testing.T) {
	if CoalitionStatusFor(0, 2) != CoalitionDissolved {
		t.Fatalf("0 members should dissolve")
	}
	if CoalitionStatusFor(1, 2) != CoalitionForming {
		t.Fatalf("1 member should be forming")
	}
	if CoalitionStatusFor(5, 2) != CoalitionActive {
		t.Fatalf("5 members should be active")
	}
}

func TestEarliestMember(t *testing.T) {
	ms := []Membership{
		{EmpireID: "E9", JoinTurn: 3},
		{EmpireID: "E1", JoinTurn: 1, LeftTurn: 4},
		{EmpireID: "E7", JoinTurn: 2},
		{EmpireID: "E3", JoinTurn: 2},
	}
	if got := EarliestMember(ms); got != "E3" {
		t.Fatalf("got %q want E3", got)
	}
	if got := EarliestMember(nil); got != "" {
		t.Fatalf("empty: got %q", got)
	}
}

func TestPairKeyCanonical(t *testing.T) {
	a, b := PairKey("E5", "E2")
	if a != "E2" || b != "E5" {
		t.Fatalf("got %s,%s", a, b)
	}
}
