package model

type TreatyType string

const (
	TreatyNonAggression TreatyType = "non_aggression"
	TreatyAlliance      TreatyType = "alliance"
)

func IsTreatyType(s string) bool {
	return s == string(TreatyNonAggression) || s == string(TreatyAlliance)
}

type TreatyStatus string

const (
	TreatyProposed TreatyStatus = "proposed"
	TreatyActive   TreatyStatus = "active"
	TreatyRejected TreatyStatus = "rejected"
	TreatyEnded    TreatyStatus = "ended"
	TreatyBroken   TreatyStatus = "broken"
)

type Treaty struct {
	ID            string       `json:"id"`
	GameID        string       `json:"game_id"`
	Type          TreatyType   `json:"type"`
	ProposerID    string       `json:"proposer_id"`
	TargetID      string       `json:"target_id"`
	Status        TreatyStatus `json:"status"`
	ProposedTurn  int          `json:"proposed_turn"`
	ActivatedTurn int          `json:"activated_turn,omitempty"`
	ClosedTurn    int          `json:"closed_turn,omitempty"`
	BrokenBy      string       `json:"broken_by,omitempty"`
}

// Pair returns the unordered empire pair in canonical order.
func (t Treaty) Pair() (string, string) {
	return PairKey(t.ProposerID, t.TargetID)
}

func (t Treaty) Involves(empireID string) bool {
	return t.ProposerID == empireID || t.TargetID == empireID
}

func (t Treaty) Other(empireID string) string {
	if t.ProposerID == empireID {
		return t.TargetID
	}
	return t.ProposerID
}

func (t Treaty) Open() bool {
	return t.Status == TreatyProposed || t.Status == TreatyActive
}

func PairKey(a, b string) (string, string) {
	if a <= b {
		return a, b
	}
	return b, a
}

type CoalitionStatus string

const (
	CoalitionForming   CoalitionStatus = "forming"
	CoalitionActive    CoalitionStatus = "active"
	CoalitionDissolved CoalitionStatus = "dissolved"
)

type Coalition struct {
	ID            string          `json:"id"`
	GameID        string          `json:"game_id"`
	Name          string          `json:"name"`
	LeaderID      string          `json:"leader_id"`
	Status        CoalitionStatus `json:"status"`
	FoundedTurn   int             `json:"founded_turn"`
	DissolvedTurn int             `json:"dissolved_turn,omitempty"`
}

// Membership is active while LeftTurn is zero; turns start at 1.
type Membership struct {
	CoalitionID string `json:"coalition_id"`
	EmpireID    string `json:"empire_id"`
	JoinTurn    int    `json:"join_turn"`
	LeftTurn    int    `json:"left_turn,omitempty"`
}

func (m Membership) Active() bool { return m.LeftTurn == 0 }

type ReputationEvent struct {
	ID              string  `json:"id"`
	EmpireID        string  `json:"empire_id"`
	Kind            string  `json:"kind"`
	Magnitude       int     `json:"magnitude"`
	Permanent       bool    `json:"permanent"`
	DecayResistance float64 `json:"decay_resistance"`
	Turn            int     `json:"turn"`
}

var treatyTransitions = map[TreatyStatus][]TreatyStatus{
	TreatyProposed: {TreatyActive, TreatyRejected},
	TreatyActive:   {TreatyEnded, TreatyBroken},
}

// CanTransition reports whether a treaty may move from one status to another.
// Rejected, ended and broken are terminal.
func (s TreatyStatus) CanTransition(to TreatyStatus) bool {
	for _, next := range treatyTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// CoalitionStatusFor derives status from the active member count.
func CoalitionStatusFor(active, minSize int) CoalitionStatus {
	switch {
	case active <= 0:
		return CoalitionDissolved
	case active < minSize:
		return CoalitionForming
	default:
		return CoalitionActive
	}
}

// EarliestMember picks the active member with the lowest join turn; ties go
// to the smallest empire id.
func EarliestMember(members []Membership) string {
	best := -1
	for i, m := range members {
		if !m.Active() {
			continue
		}
		if best < 0 || m.JoinTurn < members[best].JoinTurn ||
			(m.JoinTurn == members[best].JoinTurn && m.EmpireID < members[best].EmpireID) {
			best = i
		}
	}
	if best < 0 {
		return ""
	}
	return members[best].EmpireID
}
