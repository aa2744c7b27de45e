package coalition

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"starreign.ai/internal/persistence/store"
	"starreign.ai/internal/sim/kernel/model"
	"starreign.ai/internal/sim/tuning"
)

type Repo interface {
	store.Coalitions
}

type Coalitions struct {
	repo  Repo
	lim   store.CoalitionLimits
	NewID func() string
}

func New(repo Repo, cfg tuning.Diplomacy) *Coalitions {
	return &Coalitions{
		repo:  repo,
		lim:   store.CoalitionLimits{Min: cfg.CoalitionMinSize, Max: cfg.CoalitionMaxSize},
		NewID: uuid.NewString,
	}
}

func ValidateName(name string) bool {
	trimmed := strings.TrimSpace(name)
	return trimmed != "" && len(trimmed) <= 64
}

func codeFor(err error) string {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return "E_INVALID_TARGET"
	case errors.Is(err, store.ErrCoalitionFull), errors.Is(err, store.ErrCoalitionClosed):
		return "E_BLOCKED"
	case errors.Is(err, store.ErrAlreadyInCoalition):
		return "E_CONFLICT"
	case errors.Is(err, store.ErrNotMember):
		return "E_BLOCKED"
	default:
		return "E_INTERNAL"
	}
}

// Form founds a coalition in the forming state with the caller as leader.
func (c *Coalitions) Form(ctx context.Context, gameID, founderID, name string, turn int) (model.Coalition, bool, string, string) {
	if !ValidateName(name) {
		return model.Coalition{}, false, "E_BAD_REQUEST", "bad coalition_name"
	}
	co := model.Coalition{
		ID:          c.NewID(),
		GameID:      gameID,
		Name:        strings.TrimSpace(name),
		LeaderID:    founderID,
		Status:      model.CoalitionForming,
		FoundedTurn: turn,
	}
	founder := model.Membership{CoalitionID: co.ID, EmpireID: founderID, JoinTurn: turn}
	if err := c.repo.CreateCoalition(ctx, co, founder); err != nil {
		return model.Coalition{}, false, codeFor(err), err.Error()
	}
	return co, true, "", ""
}

func (c *Coalitions) Join(ctx context.Context, gameID, coalitionID, empireID string, turn int) (model.Coalition, bool, string, string) {
	co, err := c.repo.GetCoalition(ctx, coalitionID)
	if err != nil {
		return co, false, codeFor(err), err.Error()
	}
	if co.GameID != gameID {
		return co, false, "E_INVALID_TARGET", "coalition not in game"
	}
	co, err = c.repo.JoinCoalition(ctx, model.Membership{CoalitionID: coalitionID, EmpireID: empireID, JoinTurn: turn}, c.lim)
	if err != nil {
		return co, false, codeFor(err), err.Error()
	}
	return co, true, "", ""
}

// Leave removes empireID from whatever coalition it currently belongs to.
func (c *Coalitions) Leave(ctx context.Context, gameID, empireID string, turn int) (model.Coalition, bool, string, string) {
	m, ok, err := c.repo.ActiveMembership(ctx, gameID, empireID)
	if err != nil {
		return model.Coalition{}, false, "E_INTERNAL", err.Error()
	}
	if !ok {
		return model.Coalition{}, false, "E_BLOCKED", "not in coalition"
	}
	co, err := c.repo.LeaveCoalition(ctx, m.CoalitionID, empireID, turn, c.lim)
	if err != nil {
		return co, false, codeFor(err), err.Error()
	}
	return co, true, "", ""
}

// Snapshot loads every coalition in the game with its active members.
func (c *Coalitions) Snapshot(ctx context.Context, gameID string) ([]model.Coalition, map[string][]model.Membership, error) {
	cs, err := c.repo.ListCoalitions(ctx, gameID)
	if err != nil {
		return nil, nil, err
	}
	members := make(map[string][]model.Membership, len(cs))
	for _, co := range cs {
		ms, err := c.repo.Members(ctx, co.ID)
		if err != nil {
			return nil, nil, err
		}
		for _, m := range ms {
			if m.Active() {
				members[co.ID] = append(members[co.ID], m)
			}
		}
	}
	return cs, members, nil
}
