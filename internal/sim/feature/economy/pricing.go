package economy

import (
	"fmt"
	"math"

	"starreign.ai/internal/sim/kernel/model"
	"starreign.ai/internal/sim/tuning"
)

func UnitCost(cfg tuning.Economy, unit string, qty int) int64 {
	return int64(cfg.UnitCost[unit]) * int64(qty)
}

// TerritoryCost prices qty more planets on top of held; each planet costs
// more than the last.
func TerritoryCost(cfg tuning.Economy, held, qty int) int64 {
	var total int64
	for i := 0; i < qty; i++ {
		total += int64(cfg.TerritoryBaseCost) + int64(cfg.TerritoryCostGrowth)*int64(held+i)
	}
	return total
}

// TerritoryRefund is what releasing the top qty planets returns.
func TerritoryRefund(cfg tuning.Economy, held, qty int) int64 {
	if qty > held {
		qty = held
	}
	return int64(math.Floor(float64(TerritoryCost(cfg, held-qty, qty)) * cfg.TerritoryRefundPct))
}

func BuyCost(cfg tuning.Economy, resource string, qty int) int64 {
	return int64(math.Ceil(float64(cfg.ResourcePrices[resource]) * float64(qty) * (1 + cfg.TradeSpreadPct)))
}

func SellIncome(cfg tuning.Economy, resource string, qty int) int64 {
	return int64(math.Floor(float64(cfg.ResourcePrices[resource]) * float64(qty) * (1 - cfg.TradeSpreadPct)))
}

// UpgradeCost is the research price of raising a unit type to the next tier.
func UpgradeCost(cfg tuning.Economy, currentTier int) int64 {
	return int64(cfg.UpgradeResearchCost) * int64(currentTier+1)
}

// OfferedContracts lists the contract ids open for acceptance on turn.
func OfferedContracts(turn int) []string {
	return []string{fmt.Sprintf("supply-%d", turn), fmt.Sprintf("escort-%d", turn)}
}

// Networth combines territory with the build value of the fleet.
func Networth(cfg tuning.Economy, e *model.Empire) int64 {
	if e == nil || e.Eliminated {
		return 0
	}
	nw := int64(e.Territory) * 1000
	for _, u := range model.UnitTypes {
		nw += int64(e.Fleet[u]) * int64(cfg.UnitCost[string(u)]) / 10
	}
	for name, n := range e.Components {
		r := cfg.Components[name]
		nw += int64(n) * int64(r.Credits) / 10
	}
	return nw + e.Resources.Credits/100
}
