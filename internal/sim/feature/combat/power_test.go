package combat

import (
	"math"
	"math/rand"
	"testing"

	"starreign.ai/internal/sim/kernel/model"
	"starreign.ai/internal/sim/tuning"
)

func TestPowerRatio_EqualCruiserFleets(t *testing.T) {
	p := tuning.Defaults().Combat
	att := model.Fleet{model.LightCruisers: 10}
	def := model.Fleet{model.LightCruisers: 10}
	if got := Power(p, att, RoleAttack); got != 40 {
		t.Fatalf("attack power: got %v want 40", got)
	}
	if got := Power(p, def, RoleDefend); math.Abs(got-48) > 1e-9 {
		t.Fatalf("defend power: got %v want 48", got)
	}
	if got := PowerRatio(p, att, def); math.Abs(got-40.0/48.0) > 1e-9 {
		t.Fatalf("ratio: got %v want ~0.833", got)
	}
}

func TestPowerRatio_EdgeCases(t *testing.T) {
	p := tuning.Defaults().Combat
	if got := PowerRatio(p, model.Fleet{}, model.Fleet{}); got != 1 {
		t.Fatalf("both empty: got %v want 1", got)
	}
	if got := PowerRatio(p, model.Fleet{model.Fighters: 3}, model.Fleet{model.Soldiers: 100}); !math.IsInf(got, 1) {
		t.Fatalf("powerless defender: got %v want +Inf", got)
	}
	if got := PowerRatio(p, model.Fleet{model.Soldiers: 10}, model.Fleet{model.Soldiers: 10}); !math.IsInf(got, 1) {
		t.Fatalf("both nonempty, both powerless: got %v want +Inf", got)
	}
	if got := PowerRatio(p, model.Fleet{}, model.Fleet{model.Fighters: 1}); got != 0 {
		t.Fatalf("empty attacker: got %v want 0", got)
	}
	if got := PowerRatio(p, model.Fleet{}, model.Fleet{model.Soldiers: 5}); got != 0 {
		t.Fatalf("empty attacker, powerless defender: got %v want 0", got)
	}
}

func TestPower_StationDefenseStacksBeforeDefenderAdvantage(t *testing.T) {
	p := tuning.Defaults().Combat
	f := model.Fleet{model.Stations: 2}
	if got := Power(p, f, RoleAttack); got != 80 {
		t.Fatalf("attack: got %v want 80", got)
	}
	if got := Power(p, f, RoleDefend); math.Abs(got-2*40*2.0*1.2) > 1e-9 {
		t.Fatalf("defend: got %v want 192", got)
	}
}

func TestPower_DiversityBonusIsExact(t *testing.T) {
	p := tuning.Defaults().Combat
	f := model.Fleet{model.Fighters: 7, model.LightCruisers: 3, model.HeavyCruisers: 2, model.Carriers: 1}
	for _, role := range []Role{RoleAttack, RoleDefend} {
		base := BasePower(p, f, role)
		if got := Power(p, f, role); got != base*1.15 {
			t.Fatalf("%s: got %v want %v", role, got, base*1.15)
		}
	}
	three := model.Fleet{model.Fighters: 7, model.LightCruisers: 3, model.Carriers: 1}
	if Power(p, three, RoleAttack) != BasePower(p, three, RoleAttack) {
		t.Fatalf("three types should not get the diversity bonus")
	}
}

func TestPower_DefenderNeverWeaker(t *testing.T) {
	p := tuning.Defaults().Combat
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		f := model.Fleet{}
		for _, u := range model.UnitTypes {
			if rng.Intn(2) == 0 {
				f[u] = rng.Intn(50)
			}
		}
		att := Power(p, f, RoleAttack)
		if att > 0 && Power(p, f, RoleDefend) < att {
			t.Fatalf("fleet %+v: defend %v < attack %v", f, Power(p, f, RoleDefend), att)
		}
	}
}

func TestPower_Deterministic(t *testing.T) {
	p := tuning.Defaults().Combat
	f := model.Fleet{model.Fighters: 11, model.Stations: 1, model.Carriers: 4, model.Soldiers: 9}
	first := Power(p, f, RoleDefend)
	for i := 0; i < 20; i++ {
		if Power(p, f, RoleDefend) != first {
			t.Fatalf("power not deterministic")
		}
	}
}
