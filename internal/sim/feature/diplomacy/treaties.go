package diplomacy

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"starreign.ai/internal/persistence/store"
	"starreign.ai/internal/sim/kernel/model"
	"starreign.ai/internal/sim/tuning"
)

// Repo is the slice of the store the treaty machine needs.
type Repo interface {
	store.Treaties
	InsertReputationEvent(ctx context.Context, gameID string, ev model.ReputationEvent) error
}

type Treaties struct {
	repo  Repo
	cfg   tuning.Diplomacy
	NewID func() string
}

func NewTreaties(repo Repo, cfg tuning.Diplomacy) *Treaties {
	return &Treaties{repo: repo, cfg: cfg, NewID: uuid.NewString}
}

// ActiveBetween finds the active treaty for an unordered pair.
func ActiveBetween(ts []model.Treaty, a, b string) (model.Treaty, bool) {
	pa, pb := model.PairKey(a, b)
	for _, t := range ts {
		if t.Status != model.TreatyActive {
			continue
		}
		if ta, tb := t.Pair(); ta == pa && tb == pb {
			return t, true
		}
	}
	return model.Treaty{}, false
}

// OpenBetween reports a proposed or active treaty for the pair.
func OpenBetween(ts []model.Treaty, a, b string) bool {
	pa, pb := model.PairKey(a, b)
	for _, t := range ts {
		if !t.Open() {
			continue
		}
		if ta, tb := t.Pair(); ta == pa && tb == pb {
			return true
		}
	}
	return false
}

func codeFor(err error) string {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return "E_INVALID_TARGET"
	case errors.Is(err, store.ErrDuplicateTreaty):
		return "E_TREATY"
	case errors.Is(err, store.ErrInvalidTransition):
		return "E_CONFLICT"
	default:
		return "E_INTERNAL"
	}
}

func (d *Treaties) Propose(ctx context.Context, gameID, proposerID, targetID string, typ model.TreatyType, turn int) (model.Treaty, bool, string, string) {
	if proposerID == targetID {
		return model.Treaty{}, false, "E_INVALID_TARGET", "cannot treat with yourself"
	}
	if d.cfg.Terms(string(typ)) == (tuning.TreatyTerms{}) {
		return model.Treaty{}, false, "E_BAD_REQUEST", "bad treaty_type"
	}
	t := model.Treaty{
		ID:           d.NewID(),
		GameID:       gameID,
		Type:         typ,
		ProposerID:   proposerID,
		TargetID:     targetID,
		Status:       model.TreatyProposed,
		ProposedTurn: turn,
	}
	if err := d.repo.InsertTreaty(ctx, t); err != nil {
		return model.Treaty{}, false, codeFor(err), err.Error()
	}
	return t, true, "", ""
}

func (d *Treaties) load(ctx context.Context, gameID, id string) (model.Treaty, bool, string, string) {
	t, err := d.repo.GetTreaty(ctx, id)
	if err != nil {
		return t, false, codeFor(err), err.Error()
	}
	if t.GameID != gameID {
		return t, false, "E_INVALID_TARGET", "treaty not in game"
	}
	return t, true, "", ""
}

func (d *Treaties) Accept(ctx context.Context, gameID, treatyID, actorID string, turn int) (model.Treaty, bool, string, string) {
	t, ok, code, msg := d.load(ctx, gameID, treatyID)
	if !ok {
		return t, false, code, msg
	}
	if t.TargetID != actorID {
		return t, false, "E_NO_PERMISSION", "only the target may accept"
	}
	t, err := d.repo.ActivateTreaty(ctx, treatyID, turn)
	if err != nil {
		return t, false, codeFor(err), err.Error()
	}
	return t, true, "", ""
}

func (d *Treaties) Reject(ctx context.Context, gameID, treatyID, actorID string, turn int) (model.Treaty, bool, string, string) {
	t, ok, code, msg := d.load(ctx, gameID, treatyID)
	if !ok {
		return t, false, code, msg
	}
	if t.TargetID != actorID {
		return t, false, "E_NO_PERMISSION", "only the target may reject"
	}
	t, err := d.repo.CloseTreaty(ctx, treatyID, model.TreatyRejected, turn, "")
	if err != nil {
		return t, false, codeFor(err), err.Error()
	}
	return t, true, "", ""
}

// Break ends an active treaty unilaterally. Always permitted for a party;
// the breaker receives the type's penalty as a permanent event.
func (d *Treaties) Break(ctx context.Context, gameID, treatyID, actorID string, turn int) (model.Treaty, bool, string, string) {
	t, ok, code, msg := d.load(ctx, gameID, treatyID)
	if !ok {
		return t, false, code, msg
	}
	if !t.Involves(actorID) {
		return t, false, "E_NO_PERMISSION", "not a party to treaty"
	}
	t, err := d.repo.CloseTreaty(ctx, treatyID, model.TreatyBroken, turn, actorID)
	if err != nil {
		return t, false, codeFor(err), err.Error()
	}
	terms := d.cfg.Terms(string(t.Type))
	ev := model.ReputationEvent{
		ID:        d.NewID(),
		EmpireID:  actorID,
		Kind:      "treaty_broken",
		Magnitude: terms.BreakPenalty,
		Permanent: true,
		Turn:      turn,
	}
	if err := d.repo.InsertReputationEvent(ctx, gameID, ev); err != nil {
		return t, false, "E_INTERNAL", fmt.Sprintf("record reputation: %v", err)
	}
	return t, true, "", ""
}

// End closes an active treaty peacefully once its minimum duration has run.
// Both parties receive the decaying honor bonus.
func (d *Treaties) End(ctx context.Context, gameID, treatyID, actorID string, turn int) (model.Treaty, bool, string, string) {
	t, ok, code, msg := d.load(ctx, gameID, treatyID)
	if !ok {
		return t, false, code, msg
	}
	if !t.Involves(actorID) {
		return t, false, "E_NO_PERMISSION", "not a party to treaty"
	}
	terms := d.cfg.Terms(string(t.Type))
	if t.Status == model.TreatyActive && turn-t.ActivatedTurn < terms.MinDuration {
		return t, false, "E_BLOCKED", fmt.Sprintf("minimum duration is %d turns", terms.MinDuration)
	}
	t, err := d.repo.CloseTreaty(ctx, treatyID, model.TreatyEnded, turn, "")
	if err != nil {
		return t, false, codeFor(err), err.Error()
	}
	for _, id := range []string{t.ProposerID, t.TargetID} {
		ev := model.ReputationEvent{
			ID:              d.NewID(),
			EmpireID:        id,
			Kind:            "treaty_honored",
			Magnitude:       terms.HonorBonus,
			DecayResistance: d.cfg.HonorResistance,
			Turn:            turn,
		}
		if err := d.repo.InsertReputationEvent(ctx, gameID, ev); err != nil {
			return t, false, "E_INTERNAL", fmt.Sprintf("record reputation: %v", err)
		}
	}
	return t, true, "", ""
}

// ExpireProposals rejects proposals left unanswered for ProposalExpiryTurn turns.
func (d *Treaties) ExpireProposals(ctx context.Context, gameID string, turn int) ([]model.Treaty, error) {
	if d.cfg.ProposalExpiryTurn <= 0 {
		return nil, nil
	}
	ts, err := d.repo.ListTreaties(ctx, gameID)
	if err != nil {
		return nil, err
	}
	var expired []model.Treaty
	for _, t := range ts {
		if t.Status != model.TreatyProposed || turn-t.ProposedTurn < d.cfg.ProposalExpiryTurn {
			continue
		}
		closed, err := d.repo.CloseTreaty(ctx, t.ID, model.TreatyRejected, turn, "")
		if err != nil {
			if errors.Is(err, store.ErrInvalidTransition) {
				continue
			}
			return expired, err
		}
		expired = append(expired, closed)
	}
	return expired, nil
}
