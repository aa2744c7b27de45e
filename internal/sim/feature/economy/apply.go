package economy

import (
	"fmt"

	"starreign.ai/internal/protocol"
	"starreign.ai/internal/sim/kernel/model"
	"starreign.ai/internal/sim/tuning"
)

// Black-market items and what they deliver on purchase.
const (
	ItemForgedPapers   = "forged_papers"
	ItemMercenaryCorps = "mercenary_corps"
	ItemStolenSchemata = "stolen_schemata"
)

// Apply performs an already validated economic action and returns a short
// description. It re-checks balances so a stale action cannot overdraw.
func Apply(cfg tuning.Economy, e *model.Empire, a protocol.Action) (ok bool, code string, msg string) {
	switch a.Action {
	case protocol.ActBuildUnits:
		cost := UnitCost(cfg, a.Unit, a.Quantity)
		if e.Resources.Credits < cost {
			return false, "E_NO_RESOURCE", "insufficient credits"
		}
		e.Resources.Credits -= cost
		if e.Fleet == nil {
			e.Fleet = model.Fleet{}
		}
		e.Fleet[model.UnitType(a.Unit)] += a.Quantity
		return true, "", fmt.Sprintf("built %d %s", a.Quantity, a.Unit)

	case protocol.ActAcquireTerritory:
		cost := TerritoryCost(cfg, e.Territory, a.Quantity)
		if e.Resources.Credits < cost {
			return false, "E_NO_RESOURCE", "insufficient credits"
		}
		e.Resources.Credits -= cost
		e.Territory += a.Quantity
		return true, "", fmt.Sprintf("acquired %d planets", a.Quantity)

	case protocol.ActReleaseTerritory:
		if a.Quantity >= e.Territory {
			return false, "E_BLOCKED", "cannot release every planet"
		}
		e.Resources.Credits += TerritoryRefund(cfg, e.Territory, a.Quantity)
		e.Territory -= a.Quantity
		return true, "", fmt.Sprintf("released %d planets", a.Quantity)

	case protocol.ActTradeResource:
		if a.Side == "buy" {
			cost := BuyCost(cfg, a.Resource, a.Quantity)
			if e.Resources.Credits < cost {
				return false, "E_NO_RESOURCE", "insufficient credits"
			}
			e.Resources.Credits -= cost
			e.Resources.Add(a.Resource, int64(a.Quantity))
			return true, "", fmt.Sprintf("bought %d %s", a.Quantity, a.Resource)
		}
		if e.Resources.Get(a.Resource) < int64(a.Quantity) {
			return false, "E_NO_RESOURCE", "insufficient " + a.Resource
		}
		e.Resources.Add(a.Resource, -int64(a.Quantity))
		e.Resources.Credits += SellIncome(cfg, a.Resource, a.Quantity)
		return true, "", fmt.Sprintf("sold %d %s", a.Quantity, a.Resource)

	case protocol.ActFundResearch:
		if e.Resources.ResearchPoints < a.Amount {
			return false, "E_NO_RESOURCE", "insufficient research points"
		}
		e.Resources.ResearchPoints -= a.Amount
		if e.ResearchLevels == nil {
			e.ResearchLevels = map[string]int{}
		}
		e.ResearchLevels[a.Field] += int(a.Amount)
		return true, "", fmt.Sprintf("funded %s research", a.Field)

	case protocol.ActUpgradeUnit:
		u := model.UnitType(a.Unit)
		tier := e.UnitTiers[u]
		if tier >= cfg.MaxUnitTier {
			return false, "E_BLOCKED", "unit already at max tier"
		}
		cost := UpgradeCost(cfg, tier)
		if e.Resources.ResearchPoints < cost {
			return false, "E_NO_RESOURCE", "insufficient research points"
		}
		e.Resources.ResearchPoints -= cost
		if e.UnitTiers == nil {
			e.UnitTiers = map[model.UnitType]int{}
		}
		e.UnitTiers[u] = tier + 1
		return true, "", fmt.Sprintf("%s upgraded to tier %d", a.Unit, tier+1)

	case protocol.ActCraftComponent:
		r, ok := cfg.Components[a.Component]
		if !ok {
			return false, "E_BAD_REQUEST", "unknown component"
		}
		q := int64(a.Quantity)
		if e.Resources.Credits < int64(r.Credits)*q || e.Resources.Ore < int64(r.Ore)*q || e.Resources.ResearchPoints < int64(r.Research)*q {
			return false, "E_NO_RESOURCE", "insufficient materials"
		}
		e.Resources.Credits -= int64(r.Credits) * q
		e.Resources.Ore -= int64(r.Ore) * q
		e.Resources.ResearchPoints -= int64(r.Research) * q
		if e.Components == nil {
			e.Components = map[string]int{}
		}
		e.Components[a.Component] += a.Quantity
		return true, "", fmt.Sprintf("crafted %d %s", a.Quantity, a.Component)

	case protocol.ActAcceptContract:
		for _, id := range e.Contracts {
			if id == a.ContractID {
				return false, "E_CONFLICT", "contract already accepted"
			}
		}
		e.Contracts = append(e.Contracts, a.ContractID)
		e.Resources.Credits += int64(cfg.ContractReward)
		return true, "", "contract accepted"

	case protocol.ActPurchaseItem:
		price, ok := cfg.BlackMarket[a.Item]
		if !ok {
			return false, "E_BAD_REQUEST", "unknown item"
		}
		if e.Resources.Credits < int64(price) {
			return false, "E_NO_RESOURCE", "insufficient credits"
		}
		e.Resources.Credits -= int64(price)
		if e.Items == nil {
			e.Items = map[string]int{}
		}
		e.Items[a.Item]++
		switch a.Item {
		case ItemForgedPapers:
			e.CovertAgents += 5
		case ItemMercenaryCorps:
			if e.Fleet == nil {
				e.Fleet = model.Fleet{}
			}
			e.Fleet[model.Fighters] += 50
		case ItemStolenSchemata:
			e.Resources.ResearchPoints += 500
		}
		return true, "", "purchased " + a.Item
	}
	return false, "E_BAD_REQUEST", "not an economic action"
}
