package validation

import (
	"fmt"
	"slices"

	"starreign.ai/internal/protocol"
	"starreign.ai/internal/sim/feature/coalition"
	"starreign.ai/internal/sim/feature/covert"
	"starreign.ai/internal/sim/feature/economy"
	"starreign.ai/internal/sim/kernel/model"
	"starreign.ai/internal/sim/tuning"
)

// Target is another empire as the actor sees it.
type Target struct {
	EmpireID     string
	Eliminated   bool
	ActiveTreaty bool
	// OpenTreaty covers proposed as well as active treaties.
	OpenTreaty bool
}

// State is everything the validator may consult. It never reads the store.
type State struct {
	Empire          *model.Empire
	Turn            int
	ProtectionTurns int
	Targets         map[string]Target
	// Treaties involving the actor, by id.
	Treaties map[string]model.Treaty
	// CoalitionID is the actor's active coalition, if any.
	CoalitionID string
	Coalitions  map[string]model.Coalition
	Contracts   []string
}

// Validate is the trust boundary for every action regardless of tier.
// Illegal actions are rejected with a code and reason, never adjusted.
func Validate(a protocol.Action, st State, t tuning.Tuning) (ok bool, code string, msg string) {
	e := st.Empire
	if e == nil {
		return false, "E_INTERNAL", "missing empire state"
	}
	if e.Eliminated {
		return false, "E_BLOCKED", "empire eliminated"
	}
	cfg := t.Economy

	switch a.Action {
	case "", protocol.ActNoOp:
		return true, "", ""

	case protocol.ActBuildUnits:
		if !model.IsUnitType(a.Unit) {
			return false, "E_BAD_REQUEST", "bad unit"
		}
		if a.Quantity <= 0 {
			return false, "E_BAD_REQUEST", "quantity must be positive"
		}
		if cost := economy.UnitCost(cfg, a.Unit, a.Quantity); cost > e.Resources.Credits {
			return false, "E_NO_RESOURCE", fmt.Sprintf("need %d credits", cost)
		}
		return true, "", ""

	case protocol.ActAcquireTerritory:
		if a.Quantity <= 0 {
			return false, "E_BAD_REQUEST", "quantity must be positive"
		}
		if cost := economy.TerritoryCost(cfg, e.Territory, a.Quantity); cost > e.Resources.Credits {
			return false, "E_NO_RESOURCE", fmt.Sprintf("need %d credits", cost)
		}
		return true, "", ""

	case protocol.ActReleaseTerritory:
		if a.Quantity <= 0 {
			return false, "E_BAD_REQUEST", "quantity must be positive"
		}
		if a.Quantity >= e.Territory {
			return false, "E_BLOCKED", "cannot release every planet"
		}
		return true, "", ""

	case protocol.ActAttack:
		if ok, code, msg := validateTarget(st, a.TargetID); !ok {
			return false, code, msg
		}
		if st.Turn <= st.ProtectionTurns {
			return false, "E_PROTECTED", "protection period"
		}
		if st.Targets[a.TargetID].ActiveTreaty {
			return false, "E_TREATY", "active treaty with target"
		}
		committed := model.Fleet{}
		for u, n := range a.Fleet {
			if !model.IsUnitType(u) || n < 0 {
				return false, "E_BAD_REQUEST", "bad fleet"
			}
			committed[model.UnitType(u)] = n
		}
		if committed.Total() <= 0 {
			return false, "E_BAD_REQUEST", "no units committed"
		}
		if !e.Fleet.Covers(committed) {
			return false, "E_NO_RESOURCE", "committed more units than owned"
		}
		return true, "", ""

	case protocol.ActProposeTreaty:
		if ok, code, msg := validateTarget(st, a.TargetID); !ok {
			return false, code, msg
		}
		if !model.IsTreatyType(a.TreatyType) {
			return false, "E_BAD_REQUEST", "bad treaty_type"
		}
		if st.Targets[a.TargetID].OpenTreaty {
			return false, "E_TREATY", "treaty already open with target"
		}
		return true, "", ""

	case protocol.ActAcceptTreaty, protocol.ActRejectTreaty:
		tr, ok := st.Treaties[a.TreatyID]
		if !ok {
			return false, "E_INVALID_TARGET", "treaty not found"
		}
		if tr.Status != model.TreatyProposed {
			return false, "E_CONFLICT", "treaty not proposed"
		}
		if tr.TargetID != e.ID {
			return false, "E_NO_PERMISSION", "only the target may answer"
		}
		return true, "", ""

	case protocol.ActBreakTreaty, protocol.ActEndTreaty:
		tr, ok := st.Treaties[a.TreatyID]
		if !ok {
			return false, "E_INVALID_TARGET", "treaty not found"
		}
		if tr.Status != model.TreatyActive {
			return false, "E_CONFLICT", "treaty not active"
		}
		if !tr.Involves(e.ID) {
			return false, "E_NO_PERMISSION", "not a party to treaty"
		}
		if a.Action == protocol.ActEndTreaty {
			minTurns := t.Diplomacy.Terms(string(tr.Type)).MinDuration
			if st.Turn-tr.ActivatedTurn < minTurns {
				return false, "E_BLOCKED", fmt.Sprintf("minimum duration is %d turns", minTurns)
			}
		}
		return true, "", ""

	case protocol.ActTradeResource:
		if _, ok := cfg.ResourcePrices[a.Resource]; !ok {
			return false, "E_BAD_REQUEST", "bad resource"
		}
		if a.Quantity <= 0 {
			return false, "E_BAD_REQUEST", "quantity must be positive"
		}
		switch a.Side {
		case "buy":
			if cost := economy.BuyCost(cfg, a.Resource, a.Quantity); cost > e.Resources.Credits {
				return false, "E_NO_RESOURCE", fmt.Sprintf("need %d credits", cost)
			}
		case "sell":
			if e.Resources.Get(a.Resource) < int64(a.Quantity) {
				return false, "E_NO_RESOURCE", "insufficient " + a.Resource
			}
		default:
			return false, "E_BAD_REQUEST", "bad side"
		}
		return true, "", ""

	case protocol.ActFundResearch:
		if a.Amount <= 0 || a.Field == "" {
			return false, "E_BAD_REQUEST", "bad research request"
		}
		if a.Amount > e.Resources.ResearchPoints {
			return false, "E_NO_RESOURCE", "insufficient research points"
		}
		return true, "", ""

	case protocol.ActUpgradeUnit:
		if !model.IsUnitType(a.Unit) {
			return false, "E_BAD_REQUEST", "bad unit"
		}
		tier := e.UnitTiers[model.UnitType(a.Unit)]
		if tier >= cfg.MaxUnitTier {
			return false, "E_BLOCKED", "unit already at max tier"
		}
		if cost := economy.UpgradeCost(cfg, tier); cost > e.Resources.ResearchPoints {
			return false, "E_NO_RESOURCE", fmt.Sprintf("need %d research points", cost)
		}
		return true, "", ""

	case protocol.ActCovertOp:
		op, ok := covert.Lookup(a.Operation)
		if !ok {
			return false, "E_BAD_REQUEST", "bad operation"
		}
		if ok, code, msg := validateTarget(st, a.TargetID); !ok {
			return false, code, msg
		}
		if e.CovertPoints < op.Cost {
			return false, "E_NO_RESOURCE", fmt.Sprintf("need %d covert points", op.Cost)
		}
		if e.CovertAgents < op.MinAgents {
			return false, "E_NO_RESOURCE", fmt.Sprintf("need %d agents", op.MinAgents)
		}
		return true, "", ""

	case protocol.ActCraftComponent:
		r, ok := cfg.Components[a.Component]
		if !ok {
			return false, "E_BAD_REQUEST", "bad component"
		}
		if a.Quantity <= 0 {
			return false, "E_BAD_REQUEST", "quantity must be positive"
		}
		q := int64(a.Quantity)
		if int64(r.Credits)*q > e.Resources.Credits || int64(r.Ore)*q > e.Resources.Ore || int64(r.Research)*q > e.Resources.ResearchPoints {
			return false, "E_NO_RESOURCE", "insufficient materials"
		}
		return true, "", ""

	case protocol.ActAcceptContract:
		if !slices.Contains(st.Contracts, a.ContractID) {
			return false, "E_INVALID_TARGET", "contract not offered"
		}
		if slices.Contains(e.Contracts, a.ContractID) {
			return false, "E_CONFLICT", "contract already accepted"
		}
		return true, "", ""

	case protocol.ActPurchaseItem:
		price, ok := cfg.BlackMarket[a.Item]
		if !ok {
			return false, "E_BAD_REQUEST", "bad item"
		}
		if int64(price) > e.Resources.Credits {
			return false, "E_NO_RESOURCE", fmt.Sprintf("need %d credits", price)
		}
		return true, "", ""

	case protocol.ActFormCoalition:
		if st.CoalitionID != "" {
			return false, "E_CONFLICT", "already in coalition"
		}
		if !coalition.ValidateName(a.CoalitionName) {
			return false, "E_BAD_REQUEST", "bad coalition_name"
		}
		return true, "", ""

	case protocol.ActJoinCoalition:
		if st.CoalitionID != "" {
			return false, "E_CONFLICT", "already in coalition"
		}
		co, ok := st.Coalitions[a.CoalitionID]
		if !ok {
			return false, "E_INVALID_TARGET", "coalition not found"
		}
		if co.Status == model.CoalitionDissolved {
			return false, "E_BLOCKED", "coalition dissolved"
		}
		return true, "", ""

	case protocol.ActLeaveCoalition:
		if st.CoalitionID == "" {
			return false, "E_BLOCKED", "not in coalition"
		}
		return true, "", ""
	}
	return false, "E_BAD_REQUEST", "unknown action"
}

func validateTarget(st State, id string) (ok bool, code string, msg string) {
	if id == "" {
		return false, "E_BAD_REQUEST", "missing target_id"
	}
	if id == st.Empire.ID {
		return false, "E_INVALID_TARGET", "cannot target yourself"
	}
	tg, found := st.Targets[id]
	if !found {
		return false, "E_INVALID_TARGET", "target not visible"
	}
	if tg.Eliminated {
		return false, "E_INVALID_TARGET", "target eliminated"
	}
	return true, "", ""
}
