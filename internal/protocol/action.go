package protocol

// Action kinds.
const (
	ActNoOp             = "no_op"
	ActBuildUnits       = "build_units"
	ActAcquireTerritory = "acquire_territory"
	ActReleaseTerritory = "release_territory"
	ActAttack           = "attack"
	ActProposeTreaty    = "propose_treaty"
	ActAcceptTreaty     = "accept_treaty"
	ActRejectTreaty     = "reject_treaty"
	ActBreakTreaty      = "break_treaty"
	ActEndTreaty        = "end_treaty"
	ActTradeResource    = "trade_resource"
	ActFundResearch     = "fund_research"
	ActUpgradeUnit      = "upgrade_unit"
	ActCovertOp         = "covert_op"
	ActCraftComponent   = "craft_component"
	ActAcceptContract   = "accept_contract"
	ActPurchaseItem     = "purchase_item"
	ActFormCoalition    = "form_coalition"
	ActJoinCoalition    = "join_coalition"
	ActLeaveCoalition   = "leave_coalition"
)

var ActionKinds = []string{
	ActNoOp,
	ActBuildUnits,
	ActAcquireTerritory,
	ActReleaseTerritory,
	ActAttack,
	ActProposeTreaty,
	ActAcceptTreaty,
	ActRejectTreaty,
	ActBreakTreaty,
	ActEndTreaty,
	ActTradeResource,
	ActFundResearch,
	ActUpgradeUnit,
	ActCovertOp,
	ActCraftComponent,
	ActAcceptContract,
	ActPurchaseItem,
	ActFormCoalition,
	ActJoinCoalition,
	ActLeaveCoalition,
}

// Action is the tagged union every tier produces. Only the fields of the
// variant named by Action are meaningful; the schema rejects the rest.
type Action struct {
	Action string `json:"action"`

	Unit     string `json:"unit,omitempty"`
	Quantity int    `json:"quantity,omitempty"`

	TargetID string         `json:"target_id,omitempty"`
	Fleet    map[string]int `json:"fleet,omitempty"`

	TreatyType string `json:"treaty_type,omitempty"`
	TreatyID   string `json:"treaty_id,omitempty"`

	Resource string `json:"resource,omitempty"`
	Side     string `json:"side,omitempty"` // "buy" or "sell"

	Field  string `json:"field,omitempty"`
	Amount int64  `json:"amount,omitempty"`

	Operation  string `json:"operation,omitempty"`
	Component  string `json:"component,omitempty"`
	ContractID string `json:"contract_id,omitempty"`
	Item       string `json:"item,omitempty"`

	CoalitionID   string `json:"coalition_id,omitempty"`
	CoalitionName string `json:"coalition_name,omitempty"`

	Message   string `json:"message,omitempty"`
	Rationale string `json:"rationale,omitempty"`
}

func NoOp() Action { return Action{Action: ActNoOp} }

func (a Action) IsNoOp() bool { return a.Action == "" || a.Action == ActNoOp }

func (a Action) IsDiplomatic() bool {
	switch a.Action {
	case ActProposeTreaty, ActAcceptTreaty, ActRejectTreaty, ActBreakTreaty, ActEndTreaty,
		ActFormCoalition, ActJoinCoalition, ActLeaveCoalition:
		return true
	}
	return false
}

func (a Action) IsEconomic() bool {
	switch a.Action {
	case ActBuildUnits, ActAcquireTerritory, ActReleaseTerritory, ActTradeResource,
		ActFundResearch, ActUpgradeUnit, ActCraftComponent, ActAcceptContract, ActPurchaseItem:
		return true
	}
	return false
}

// CommittedUnits sums the fleet committed to an attack.
func (a Action) CommittedUnits() int {
	n := 0
	for _, c := range a.Fleet {
		n += c
	}
	return n
}
