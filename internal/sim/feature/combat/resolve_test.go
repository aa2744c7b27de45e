package combat

import (
	"math"
	"testing"

	"starreign.ai/internal/sim/kernel/model"
	"starreign.ai/internal/sim/tuning"
)

func TestResolve_StrongerAttackerCapturesTerritory(t *testing.T) {
	p := tuning.Defaults().Combat
	res := Resolve(p, BattleInput{
		Committed:         model.Fleet{model.Carriers: 10},
		Defender:          model.Fleet{model.LightCruisers: 10},
		DefenderTerritory: 40,
	})
	if !res.AttackerWon {
		t.Fatalf("expected attacker win, ratio=%v", res.Ratio)
	}
	if res.TerritoryCaptured < 1 || res.TerritoryCaptured > 6 {
		t.Fatalf("captured %d out of bounds", res.TerritoryCaptured)
	}
	if res.DefenderLosses[model.LightCruisers] != 2 {
		t.Fatalf("defender losses: %+v", res.DefenderLosses)
	}
	if res.AttackerLosses[model.Carriers] != 1 {
		t.Fatalf("attacker losses: %+v", res.AttackerLosses)
	}
}

func TestResolve_WeakerAttackerLoses(t *testing.T) {
	p := tuning.Defaults().Combat
	res := Resolve(p, BattleInput{
		Committed:         model.Fleet{model.LightCruisers: 10},
		Defender:          model.Fleet{model.LightCruisers: 10},
		DefenderTerritory: 40,
	})
	if res.AttackerWon || res.TerritoryCaptured != 0 {
		t.Fatalf("expected loss: %+v", res)
	}
	if res.AttackerLosses[model.LightCruisers] != 2 {
		t.Fatalf("attacker losses: %+v", res.AttackerLosses)
	}
}

func TestResolve_DemoralizedDefender(t *testing.T) {
	p := tuning.Defaults().Combat
	res := Resolve(p, BattleInput{
		Committed:             model.Fleet{model.LightCruisers: 10},
		Defender:              model.Fleet{model.LightCruisers: 10},
		DefenderTerritory:     10,
		DefenderEffectiveness: 0.8,
	})
	if !res.AttackerWon {
		t.Fatalf("expected win against demoralized defender, ratio=%v", res.Ratio)
	}
}

func TestResolve_SoldiersAloneNeverWin(t *testing.T) {
	p := tuning.Defaults().Combat
	res := Resolve(p, BattleInput{
		Committed:         model.Fleet{model.Soldiers: 100},
		Defender:          model.Fleet{},
		DefenderTerritory: 10,
	})
	if res.AttackerWon {
		t.Fatalf("powerless attack should not win: %+v", res)
	}
}

func TestResolve_PowerlessFleetsInfiniteRatioNoWin(t *testing.T) {
	p := tuning.Defaults().Combat
	res := Resolve(p, BattleInput{
		Committed:         model.Fleet{model.Soldiers: 10},
		Defender:          model.Fleet{model.Soldiers: 10},
		DefenderTerritory: 10,
	})
	if !math.IsInf(res.Ratio, 1) || res.AttackerWon || res.TerritoryCaptured != 0 {
		t.Fatalf("powerless fleets: %+v", res)
	}
}
