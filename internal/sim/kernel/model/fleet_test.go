package model

import "testing"

func TestFleetCoversAndSubtract(t *testing.T) {
	f := Fleet{LightCruisers: 10, Carriers: 2}
	if !f.Covers(Fleet{LightCruisers: 10}) {
		t.Fatalf("expected full commitment covered")
	}
	if f.Covers(Fleet{Carriers: 3}) {
		t.Fatalf("expected over-commitment rejected")
	}
	if f.Covers(Fleet{Fighters: -1}) {
		t.Fatalf("expected negative commitment rejected")
	}
	f.Subtract(Fleet{LightCruisers: 4, Carriers: 5})
	if f[LightCruisers] != 6 || f[Carriers] != 0 {
		t.Fatalf("subtract: got %+v", f)
	}
}

func TestFleetDistinctTypes(t *testing.T) {
	f := Fleet{Soldiers: 1, Fighters: 1, Stations: 0, Carriers: 3}
	if got := f.DistinctTypes(); got != 3 {
		t.Fatalf("distinct types: got %d want 3", got)
	}
	if (Fleet{}).Total() != 0 || !(Fleet{}).IsEmpty() {
		t.Fatalf("empty fleet should be empty")
	}
}

func TestCivilStatusShiftClamps(t *testing.T) {
	if got := Revolting.Shift(3); got != Revolting {
		t.Fatalf("shift past revolting: got %v", got)
	}
	if got := Happy.Shift(-5); got != Ecstatic {
		t.Fatalf("shift past ecstatic: got %v", got)
	}
	if Neutral.String() != "neutral" {
		t.Fatalf("string: got %q", Neutral.String())
	}
}

func TestEmpireCloneIsDeep(t *testing.T) {
	e := &Empire{ID: "E1", Fleet: Fleet{Fighters: 5}, Items: map[string]int{"x": 1}}
	c := e.Clone()
	c.Fleet[Fighters] = 1
	c.Items["x"] = 9
	if e.Fleet[Fighters] != 5 || e.Items["x"] != 1 {
		t.Fatalf("clone aliases original: %+v", e)
	}
}
