package covert

import "starreign.ai/internal/sim/kernel/model"

type RiskTier string

const (
	RiskLow     RiskTier = "low"
	RiskMedium  RiskTier = "medium"
	RiskHigh    RiskTier = "high"
	RiskExtreme RiskTier = "extreme"
)

type riskProfile struct {
	successMod float64
	detection  float64
}

var riskProfiles = map[RiskTier]riskProfile{
	RiskLow:     {successMod: 1.0, detection: 0.10},
	RiskMedium:  {successMod: 0.9, detection: 0.25},
	RiskHigh:    {successMod: 0.75, detection: 0.40},
	RiskExtreme: {successMod: 0.6, detection: 0.60},
}

// Range is a closed interval sampled uniformly.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func (r Range) Contains(v float64) bool { return v >= r.Min && v <= r.Max }

type EffectSpec struct {
	Kind      model.EffectKind
	Magnitude Range
	// Duration in turns; zero means instantaneous.
	Duration Range
	// Resource or unit the effect targets, when it has one.
	Subject string
}

type Operation struct {
	Name      string
	BaseRate  float64
	Cost      int
	MinAgents int
	Risk      RiskTier
	Effects   []EffectSpec
}

const (
	OpSendSpy              = "send_spy"
	OpInsurgentAid         = "insurgent_aid"
	OpSupportDissension    = "support_dissension"
	OpDemoralizeTroops     = "demoralize_troops"
	OpBombingOperations    = "bombing_operations"
	OpRelationsSpying      = "relations_spying"
	OpTakeHostages         = "take_hostages"
	OpCarriersSabotage     = "carriers_sabotage"
	OpCommunicationsSpying = "communications_spying"
	OpSetupCoup            = "setup_coup"
)

var catalog = map[string]Operation{
	OpSendSpy: {
		Name: OpSendSpy, BaseRate: 0.8, Cost: 2, MinAgents: 1, Risk: RiskLow,
		Effects: []EffectSpec{{Kind: model.EffectIntelReveal, Magnitude: Range{1, 1}, Duration: Range{3, 3}}},
	},
	OpInsurgentAid: {
		Name: OpInsurgentAid, BaseRate: 0.6, Cost: 6, MinAgents: 10, Risk: RiskMedium,
		Effects: []EffectSpec{{Kind: model.EffectCivilStatus, Magnitude: Range{1, 2}}},
	},
	OpSupportDissension: {
		Name: OpSupportDissension, BaseRate: 0.65, Cost: 5, MinAgents: 8, Risk: RiskMedium,
		Effects: []EffectSpec{
			{Kind: model.EffectCivilStatus, Magnitude: Range{1, 1}},
			{Kind: model.EffectResourceDestruction, Magnitude: Range{0.03, 0.08}, Subject: "food"},
		},
	},
	OpDemoralizeTroops: {
		Name: OpDemoralizeTroops, BaseRate: 0.6, Cost: 6, MinAgents: 10, Risk: RiskMedium,
		Effects: []EffectSpec{{Kind: model.EffectArmyEffectiveness, Magnitude: Range{-0.2, -0.1}, Duration: Range{3, 5}}},
	},
	OpBombingOperations: {
		Name: OpBombingOperations, BaseRate: 0.5, Cost: 10, MinAgents: 20, Risk: RiskHigh,
		Effects: []EffectSpec{
			{Kind: model.EffectResourceDestruction, Magnitude: Range{0.05, 0.15}, Subject: "ore"},
			{Kind: model.EffectUnitsDestroyed, Magnitude: Range{0.02, 0.05}, Subject: string(model.Stations)},
		},
	},
	OpRelationsSpying: {
		Name: OpRelationsSpying, BaseRate: 0.75, Cost: 3, MinAgents: 3, Risk: RiskLow,
		Effects: []EffectSpec{{Kind: model.EffectIntelReveal, Magnitude: Range{2, 2}, Duration: Range{5, 5}, Subject: "relations"}},
	},
	OpTakeHostages: {
		Name: OpTakeHostages, BaseRate: 0.45, Cost: 12, MinAgents: 25, Risk: RiskHigh,
		Effects: []EffectSpec{{Kind: model.EffectCreditsGained, Magnitude: Range{0.02, 0.06}, Subject: "credits"}},
	},
	OpCarriersSabotage: {
		Name: OpCarriersSabotage, BaseRate: 0.4, Cost: 14, MinAgents: 30, Risk: RiskHigh,
		Effects: []EffectSpec{{Kind: model.EffectUnitsDestroyed, Magnitude: Range{0.05, 0.15}, Subject: string(model.Carriers)}},
	},
	OpCommunicationsSpying: {
		Name: OpCommunicationsSpying, BaseRate: 0.7, Cost: 4, MinAgents: 5, Risk: RiskLow,
		Effects: []EffectSpec{{Kind: model.EffectCommsReveal, Magnitude: Range{1, 1}, Duration: Range{3, 5}}},
	},
	OpSetupCoup: {
		Name: OpSetupCoup, BaseRate: 0.2, Cost: 25, MinAgents: 50, Risk: RiskExtreme,
		Effects: []EffectSpec{
			{Kind: model.EffectCivilStatus, Magnitude: Range{2, 3}},
			{Kind: model.EffectTerritoryLost, Magnitude: Range{0.02, 0.05}},
		},
	},
}

// Names lists operations in catalog order for prompts and rule tables.
var Names = []string{
	OpSendSpy, OpInsurgentAid, OpSupportDissension, OpDemoralizeTroops, OpBombingOperations,
	OpRelationsSpying, OpTakeHostages, OpCarriersSabotage, OpCommunicationsSpying, OpSetupCoup,
}

func Lookup(name string) (Operation, bool) {
	op, ok := catalog[name]
	return op, ok
}
