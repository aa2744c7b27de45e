package rules

import (
	"fmt"

	"starreign.ai/internal/protocol"
	"starreign.ai/internal/sim/feature/covert"
)

// Persona archetypes assigned to agent empires at game creation.
const (
	PersonaWarlord   = "warlord"
	PersonaDiplomat  = "diplomat"
	PersonaMerchant  = "merchant"
	PersonaSpymaster = "spymaster"
	PersonaTurtle    = "turtle"
)

var Personas = []string{PersonaWarlord, PersonaDiplomat, PersonaMerchant, PersonaSpymaster, PersonaTurtle}

func IsPersona(p string) bool {
	for _, x := range Personas {
		if x == p {
			return true
		}
	}
	return false
}

// DefaultRules returns the persona rule set. Callers get a fresh slice
// each time because NewEngine writes compiled programs into the rules.
func DefaultRules() []*Rule {
	return []*Rule{
		{
			Name:         "answer-pending-treaty",
			Priority:     100,
			Personas:     []string{PersonaDiplomat, PersonaMerchant, PersonaTurtle},
			ConditionSrc: `HasPending()`,
			Action: func(env RuleEnv) protocol.Action {
				return protocol.Action{Action: protocol.ActAcceptTreaty, TreatyID: env.PendingTreaties[0]}
			},
		},
		{
			Name:         "feed-population",
			Priority:     95,
			ConditionSrc: `FoodLow() && CanBuy("food", FoodShortfall())`,
			Action: func(env RuleEnv) protocol.Action {
				return protocol.Action{Action: protocol.ActTradeResource, Resource: "food", Side: "buy", Quantity: env.FoodShortfall()}
			},
		},
		{
			Name:         "strike-weakest",
			Priority:     90,
			Personas:     []string{PersonaWarlord},
			ConditionSrc: `!Protected() && WeakestTarget() != "" && BestRatio() >= 1.3`,
			Action: func(env RuleEnv) protocol.Action {
				return protocol.Action{Action: protocol.ActAttack, TargetID: env.WeakestTarget(), Fleet: env.AttackFleet()}
			},
		},
		{
			Name:         "demoralize-weakest",
			Priority:     90,
			Personas:     []string{PersonaSpymaster},
			ConditionSrc: `CovertReady(6, 10) && WeakestTarget() != ""`,
			Action: func(env RuleEnv) protocol.Action {
				return protocol.Action{Action: protocol.ActCovertOp, Operation: covert.OpDemoralizeTroops, TargetID: env.WeakestTarget()}
			},
		},
		{
			Name:         "spy-on-weakest",
			Priority:     85,
			Personas:     []string{PersonaSpymaster, PersonaWarlord},
			ConditionSrc: `CovertReady(2, 1) && WeakestTarget() != ""`,
			Action: func(env RuleEnv) protocol.Action {
				return protocol.Action{Action: protocol.ActCovertOp, Operation: covert.OpSendSpy, TargetID: env.WeakestTarget()}
			},
		},
		{
			Name:         "join-open-coalition",
			Priority:     84,
			Personas:     []string{PersonaDiplomat, PersonaTurtle},
			ConditionSrc: `!InCoalition() && len(OpenCoalitions) > 0`,
			Action: func(env RuleEnv) protocol.Action {
				return protocol.Action{Action: protocol.ActJoinCoalition, CoalitionID: env.OpenCoalitions[0]}
			},
		},
		{
			Name:         "seek-non-aggression",
			Priority:     82,
			Personas:     []string{PersonaDiplomat, PersonaTurtle, PersonaMerchant},
			ConditionSrc: `StrongestUntreated() != ""`,
			Action: func(env RuleEnv) protocol.Action {
				return protocol.Action{Action: protocol.ActProposeTreaty, TargetID: env.StrongestUntreated(), TreatyType: "non_aggression"}
			},
		},
		{
			Name:         "found-coalition",
			Priority:     80,
			Personas:     []string{PersonaDiplomat},
			ConditionSrc: `!InCoalition() && len(OpenCoalitions) == 0`,
			Action: func(env RuleEnv) protocol.Action {
				name := "League"
				if env.Self != nil {
					name = fmt.Sprintf("%s League", env.Self.Name)
				}
				return protocol.Action{Action: protocol.ActFormCoalition, CoalitionName: name}
			},
		},
		{
			Name:         "take-contract",
			Priority:     78,
			Personas:     []string{PersonaMerchant},
			ConditionSrc: `len(Contracts) > 0`,
			Action: func(env RuleEnv) protocol.Action {
				return protocol.Action{Action: protocol.ActAcceptContract, ContractID: env.Contracts[0]}
			},
		},
		{
			Name:         "fortify",
			Priority:     75,
			Personas:     []string{PersonaTurtle},
			ConditionSrc: `Units("stations") < 10 && CanAfford("stations", 1)`,
			Action: func(env RuleEnv) protocol.Action {
				return protocol.Action{Action: protocol.ActBuildUnits, Unit: "stations", Quantity: 1}
			},
		},
		{
			Name:         "build-cruisers",
			Priority:     70,
			Personas:     []string{PersonaWarlord},
			ConditionSrc: `CanAfford("light_cruisers", 5)`,
			Action: func(env RuleEnv) protocol.Action {
				return protocol.Action{Action: protocol.ActBuildUnits, Unit: "light_cruisers", Quantity: 5}
			},
		},
		{
			Name:         "sell-surplus-ore",
			Priority:     65,
			Personas:     []string{PersonaMerchant},
			ConditionSrc: `Self != nil && Self.Resources.Ore >= 1000`,
			Action: func(env RuleEnv) protocol.Action {
				return protocol.Action{Action: protocol.ActTradeResource, Resource: "ore", Side: "sell", Quantity: 500}
			},
		},
		{
			Name:         "expand",
			Priority:     60,
			ConditionSrc: `CanAffordTerritory(1)`,
			Action: func(env RuleEnv) protocol.Action {
				return protocol.Action{Action: protocol.ActAcquireTerritory, Quantity: 1}
			},
		},
		{
			Name:         "fund-research",
			Priority:     40,
			Personas:     []string{PersonaMerchant, PersonaTurtle, PersonaSpymaster},
			ConditionSrc: `Self != nil && Self.Resources.ResearchPoints >= 100`,
			Action: func(env RuleEnv) protocol.Action {
				return protocol.Action{Action: protocol.ActFundResearch, Field: "economy", Amount: 100}
			},
		},
		{
			Name:         "build-fighters",
			Priority:     10,
			ConditionSrc: `CanAfford("fighters", 10)`,
			Action: func(env RuleEnv) protocol.Action {
				return protocol.Action{Action: protocol.ActBuildUnits, Unit: "fighters", Quantity: 10}
			},
		},
	}
}
