package model

type OwnerKind string

const (
	OwnerHuman      OwnerKind = "human"
	OwnerRuleAgent  OwnerKind = "rule_agent"
	OwnerModelAgent OwnerKind = "model_agent"
)

type Resources struct {
	Credits        int64 `json:"credits"`
	Food           int64 `json:"food"`
	Ore            int64 `json:"ore"`
	Petroleum      int64 `json:"petroleum"`
	ResearchPoints int64 `json:"research_points"`
}

// Get returns a named resource balance; unknown names read as zero.
func (r Resources) Get(name string) int64 {
	switch name {
	case "credits":
		return r.Credits
	case "food":
		return r.Food
	case "ore":
		return r.Ore
	case "petroleum":
		return r.Petroleum
	case "research_points":
		return r.ResearchPoints
	default:
		return 0
	}
}

func (r *Resources) Add(name string, delta int64) {
	switch name {
	case "credits":
		r.Credits += delta
	case "food":
		r.Food += delta
	case "ore":
		r.Ore += delta
	case "petroleum":
		r.Petroleum += delta
	case "research_points":
		r.ResearchPoints += delta
	}
}

type Empire struct {
	ID      string    `json:"id"`
	GameID  string    `json:"game_id"`
	Name    string    `json:"name"`
	Kind    OwnerKind `json:"kind"`
	Persona string    `json:"persona,omitempty"`

	Resources   Resources   `json:"resources"`
	Population  int64       `json:"population"`
	CivilStatus CivilStatus `json:"civil_status"`
	Fleet       Fleet       `json:"fleet"`
	Territory   int         `json:"territory"`
	GovPlanets  int         `json:"gov_planets"`

	CovertAgents int `json:"covert_agents"`
	CovertPoints int `json:"covert_points"`

	// 1.0 is nominal; demoralization lowers it until the effect expires.
	ArmyEffectiveness float64       `json:"army_effectiveness"`
	Effects           []TimedEffect `json:"effects,omitempty"`

	ResearchLevels map[string]int   `json:"research_levels,omitempty"`
	UnitTiers      map[UnitType]int `json:"unit_tiers,omitempty"`
	Components     map[string]int   `json:"components,omitempty"`
	Items          map[string]int   `json:"items,omitempty"`
	Contracts      []string         `json:"contracts,omitempty"`

	Networth   int64 `json:"networth"`
	Reputation int   `json:"reputation"`

	Eliminated     bool `json:"eliminated"`
	EliminatedTurn int  `json:"eliminated_turn,omitempty"`
}

func (e *Empire) IsAgent() bool {
	return e != nil && e.Kind != OwnerHuman
}

// Clone returns a deep copy so turn steps can mutate without aliasing store state.
func (e *Empire) Clone() *Empire {
	if e == nil {
		return nil
	}
	c := *e
	c.Fleet = e.Fleet.Clone()
	c.Effects = append([]TimedEffect(nil), e.Effects...)
	c.ResearchLevels = cloneMap(e.ResearchLevels)
	c.Components = cloneMap(e.Components)
	c.Items = cloneMap(e.Items)
	c.Contracts = append([]string(nil), e.Contracts...)
	if e.UnitTiers != nil {
		c.UnitTiers = make(map[UnitType]int, len(e.UnitTiers))
		for k, v := range e.UnitTiers {
			c.UnitTiers[k] = v
		}
	}
	return &c
}

func (e *Empire) HasEffect(kind EffectKind, source string, turn int) bool {
	for _, fx := range e.Effects {
		if fx.Kind == kind && (source == "" || fx.SourceID == source) && fx.ExpiresTurn >= turn {
			return true
		}
	}
	return false
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	if m == nil {
		return nil
	}
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
