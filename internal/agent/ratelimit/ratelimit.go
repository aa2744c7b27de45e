package ratelimit

import (
	"sync"
	"sync/atomic"
	"time"

	"starreign.ai/internal/sim/tuning"
)

// Denial reasons.
const (
	ReasonTurnCap    = "per_turn_cap"
	ReasonHourCap    = "per_hour_cap"
	ReasonGameCap    = "per_game_cap"
	ReasonDailySpend = "daily_spend_cap"
)

// State is one game's counters. It is a value: Admit and Settle return a
// new State and never mutate the receiver.
type State struct {
	Turn      int
	TurnCalls int

	HourStart time.Time
	HourCalls int

	GameCalls int

	DayStart    time.Time
	DaySpendUSD float64
	// ReservedUSD is the estimated spend of admitted calls not yet settled.
	ReservedUSD float64
}

// Admit reserves one call if it fits every cap after rolling the windows.
// estCostUSD is held in ReservedUSD until Settle replaces it with the
// actual spend.
func (s State) Admit(l tuning.Limits, now time.Time, turn int, estCostUSD float64) (State, bool, string) {
	next := s
	if next.Turn != turn {
		next.Turn = turn
		next.TurnCalls = 0
	}
	if expired(now, next.HourStart, time.Hour) {
		next.HourStart, next.HourCalls = now, 0
	}
	if expired(now, next.DayStart, 24*time.Hour) {
		next.DayStart, next.DaySpendUSD = now, 0
	}

	switch {
	case !under(next.TurnCalls, l.PerTurn):
		return next, false, ReasonTurnCap
	case !under(next.HourCalls, l.PerHour):
		return next, false, ReasonHourCap
	case !under(next.GameCalls, l.PerGame):
		return next, false, ReasonGameCap
	case l.DailySpendUSD > 0 && next.DaySpendUSD+next.ReservedUSD+estCostUSD > l.DailySpendUSD:
		return next, false, ReasonDailySpend
	}
	next.TurnCalls++
	next.HourCalls++
	next.GameCalls++
	next.ReservedUSD += estCostUSD
	return next, true, ""
}

// Settle releases reservedUSD and adds the actual spend. A call that
// failed settles with costUSD 0.
func (s State) Settle(reservedUSD, costUSD float64) State {
	s.ReservedUSD -= reservedUSD
	if s.ReservedUSD < 1e-12 {
		s.ReservedUSD = 0
	}
	s.DaySpendUSD += costUSD
	return s
}

// Governor holds per-game State behind compare-and-swap pointers so
// concurrent callers in a batch never lose an update.
type Governor struct {
	limits tuning.Limits
	now    func() time.Time
	games  sync.Map // game id -> *atomic.Pointer[State]
}

func NewGovernor(limits tuning.Limits) *Governor {
	return &Governor{limits: limits, now: time.Now}
}

// WithClock swaps the time source; used by tests.
func (g *Governor) WithClock(now func() time.Time) *Governor {
	g.now = now
	return g
}

func (g *Governor) slot(gameID string) *atomic.Pointer[State] {
	if v, ok := g.games.Load(gameID); ok {
		return v.(*atomic.Pointer[State])
	}
	p := &atomic.Pointer[State]{}
	p.Store(&State{})
	v, _ := g.games.LoadOrStore(gameID, p)
	return v.(*atomic.Pointer[State])
}

func (g *Governor) Admit(gameID string, turn int, estCostUSD float64) (bool, string) {
	p := g.slot(gameID)
	now := g.now()
	for {
		cur := p.Load()
		next, ok, reason := cur.Admit(g.limits, now, turn, estCostUSD)
		if !ok {
			return false, reason
		}
		if p.CompareAndSwap(cur, &next) {
			return true, ""
		}
	}
}

// Settle swaps reservations made by Admit for the spend actually incurred.
func (g *Governor) Settle(gameID string, reservedUSD, costUSD float64) {
	if reservedUSD == 0 && costUSD == 0 {
		return
	}
	p := g.slot(gameID)
	for {
		cur := p.Load()
		next := cur.Settle(reservedUSD, costUSD)
		if p.CompareAndSwap(cur, &next) {
			return
		}
	}
}

func (g *Governor) Snapshot(gameID string) State {
	return *g.slot(gameID).Load()
}

// Forget drops a finished game's counters.
func (g *Governor) Forget(gameID string) {
	g.games.Delete(gameID)
}
