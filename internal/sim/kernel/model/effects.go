package model

type EffectKind string

const (
	EffectResourceDestruction EffectKind = "resource_destruction"
	EffectCivilStatus         EffectKind = "civil_status"
	EffectArmyEffectiveness   EffectKind = "army_effectiveness"
	EffectCreditsGained       EffectKind = "credits_gained"
	EffectUnitsDestroyed      EffectKind = "units_destroyed"
	EffectTerritoryLost       EffectKind = "territory_lost"
	EffectIntelReveal         EffectKind = "intel_reveal"
	EffectCommsReveal         EffectKind = "comms_reveal"
)

// TimedEffect is a modifier attached to an empire until ExpiresTurn (inclusive).
type TimedEffect struct {
	Kind        EffectKind `json:"kind"`
	SourceID    string     `json:"source_id,omitempty"`
	Magnitude   float64    `json:"magnitude"`
	ExpiresTurn int        `json:"expires_turn"`
}
