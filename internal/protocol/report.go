package protocol

// Event kinds emitted while resolving a turn.
const (
	EventProduction       = "PRODUCTION"
	EventActionApplied    = "ACTION_APPLIED"
	EventActionDiscarded  = "ACTION_DISCARDED"
	EventBattle           = "BATTLE"
	EventCovert           = "COVERT"
	EventTreaty           = "TREATY"
	EventCoalition        = "COALITION"
	EventReputation       = "REPUTATION"
	EventEffectExpired    = "EFFECT_EXPIRED"
	EventEliminated       = "ELIMINATED"
	EventVictory          = "VICTORY"
	EventDecisionFallback = "DECISION_FALLBACK"
)

type Event struct {
	Turn     int            `json:"turn"`
	Kind     string         `json:"kind"`
	EmpireID string         `json:"empire_id,omitempty"`
	TargetID string         `json:"target_id,omitempty"`
	Code     string         `json:"code,omitempty"`
	Message  string         `json:"message,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

// Decision records which tier produced an empire's action for the turn.
type Decision struct {
	EmpireID       string  `json:"empire_id"`
	Action         Action  `json:"action"`
	Source         string  `json:"source"`
	Provider       string  `json:"provider,omitempty"`
	CacheHit       bool    `json:"cache_hit,omitempty"`
	FallbackReason string  `json:"fallback_reason,omitempty"`
	CostUSD        float64 `json:"cost_usd,omitempty"`
}

type EmpireOutcome struct {
	EmpireID    string `json:"empire_id"`
	Networth    int64  `json:"networth"`
	Territory   int    `json:"territory"`
	Reputation  int    `json:"reputation"`
	CivilStatus string `json:"civil_status"`
	Eliminated  bool   `json:"eliminated,omitempty"`
}

type VictoryResult struct {
	Kind        string `json:"kind"`
	WinnerID    string `json:"winner_id,omitempty"`
	CoalitionID string `json:"coalition_id,omitempty"`
}

// TurnReport summarizes one resolved turn. Digest is the hex blake3 of the
// canonical post-turn state.
type TurnReport struct {
	GameID    string          `json:"game_id"`
	Turn      int             `json:"turn"`
	NextTurn  int             `json:"next_turn"`
	Decisions []Decision      `json:"decisions"`
	Events    []Event         `json:"events"`
	Outcomes  []EmpireOutcome `json:"outcomes"`
	Victory   *VictoryResult  `json:"victory,omitempty"`
	Digest    string          `json:"digest"`
}
