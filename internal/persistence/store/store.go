package store

import (
	"context"
	"errors"
	"fmt"

	"starreign.ai/internal/protocol"
	"starreign.ai/internal/sim/kernel/model"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrDuplicateTreaty    = errors.New("open treaty already exists for pair")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrCoalitionFull      = errors.New("coalition is full")
	ErrCoalitionClosed    = errors.New("coalition is dissolved")
	ErrAlreadyInCoalition = errors.New("empire already in an active coalition")
	ErrNotMember          = errors.New("empire is not an active member")
)

type CoalitionLimits struct {
	Min int
	Max int
}

type Games interface {
	CreateGame(ctx context.Context, g model.Game) error
	GetGame(ctx context.Context, id string) (model.Game, error)
	UpdateGame(ctx context.Context, g model.Game) error
}

type Empires interface {
	InsertEmpire(ctx context.Context, e *model.Empire) error
	GetEmpire(ctx context.Context, id string) (*model.Empire, error)
	// ListEmpires returns copies ordered by id.
	ListEmpires(ctx context.Context, gameID string) ([]*model.Empire, error)
	SaveEmpires(ctx context.Context, es []*model.Empire) error
}

type Treaties interface {
	// InsertTreaty stores a proposal; it fails with ErrDuplicateTreaty when the
	// pair already has a proposed or active treaty.
	InsertTreaty(ctx context.Context, t model.Treaty) error
	GetTreaty(ctx context.Context, id string) (model.Treaty, error)
	ListTreaties(ctx context.Context, gameID string) ([]model.Treaty, error)
	// ActivateTreaty moves a proposal to active, re-checking the pair under the
	// same lock or transaction as the write.
	ActivateTreaty(ctx context.Context, id string, turn int) (model.Treaty, error)
	CloseTreaty(ctx context.Context, id string, to model.TreatyStatus, turn int, brokenBy string) (model.Treaty, error)
}

type Coalitions interface {
	CreateCoalition(ctx context.Context, c model.Coalition, founder model.Membership) error
	GetCoalition(ctx context.Context, id string) (model.Coalition, error)
	ListCoalitions(ctx context.Context, gameID string) ([]model.Coalition, error)
	// Members returns the full membership history of a coalition.
	Members(ctx context.Context, coalitionID string) ([]model.Membership, error)
	ActiveMembership(ctx context.Context, gameID, empireID string) (model.Membership, bool, error)
	// JoinCoalition checks capacity atomically with the insert.
	JoinCoalition(ctx context.Context, m model.Membership, lim CoalitionLimits) (model.Coalition, error)
	LeaveCoalition(ctx context.Context, coalitionID, empireID string, turn int, lim CoalitionLimits) (model.Coalition, error)
}

type Reputation interface {
	InsertReputationEvent(ctx context.Context, gameID string, ev model.ReputationEvent) error
	ListReputationEvents(ctx context.Context, gameID string) ([]model.ReputationEvent, error)
}

type Store interface {
	Games
	Empires
	Treaties
	Coalitions
	Reputation

	RecordTurn(report protocol.TurnReport)
	ListTurns(ctx context.Context, gameID string) ([]protocol.TurnReport, error)
	Close() error
}

func canActivate(t model.Treaty, pairHasActive bool) error {
	if !t.Status.CanTransition(model.TreatyActive) {
		return fmt.Errorf("treaty %s %s -> active: %w", t.ID, t.Status, ErrInvalidTransition)
	}
	if pairHasActive {
		return fmt.Errorf("treaty %s: %w", t.ID, ErrDuplicateTreaty)
	}
	return nil
}

func closeTreaty(t model.Treaty, to model.TreatyStatus, turn int, brokenBy string) (model.Treaty, error) {
	if !t.Status.CanTransition(to) {
		return t, fmt.Errorf("treaty %s %s -> %s: %w", t.ID, t.Status, to, ErrInvalidTransition)
	}
	t.Status = to
	t.ClosedTurn = turn
	if to == model.TreatyBroken {
		t.BrokenBy = brokenBy
	}
	return t, nil
}

// applyJoin validates a join against the coalition's current active members
// and returns the coalition row after the insert.
func applyJoin(c model.Coalition, active []model.Membership, m model.Membership, lim CoalitionLimits) (model.Coalition, error) {
	if c.Status == model.CoalitionDissolved {
		return c, fmt.Errorf("coalition %s: %w", c.ID, ErrCoalitionClosed)
	}
	if lim.Max > 0 && len(active) >= lim.Max {
		return c, fmt.Errorf("coalition %s: %w", c.ID, ErrCoalitionFull)
	}
	c.Status = model.CoalitionStatusFor(len(active)+1, lim.Min)
	if c.LeaderID == "" {
		c.LeaderID = m.EmpireID
	}
	return c, nil
}

// applyLeave returns the coalition row after empireID leaves. Leadership moves
// to the earliest remaining joiner; an empty coalition dissolves.
func applyLeave(c model.Coalition, remaining []model.Membership, empireID string, turn int, lim CoalitionLimits) model.Coalition {
	c.Status = model.CoalitionStatusFor(len(remaining), lim.Min)
	if c.Status == model.CoalitionDissolved {
		c.LeaderID = ""
		c.DissolvedTurn = turn
		return c
	}
	if c.LeaderID == empireID {
		c.LeaderID = model.EarliestMember(remaining)
	}
	return c
}
