package decision

import (
	"fmt"
	"sort"
	"strings"

	"starreign.ai/internal/agent/llm"
	"starreign.ai/internal/agent/rules"
	"starreign.ai/internal/sim/feature/covert"
	"starreign.ai/internal/sim/kernel/model"
)

var personaBriefs = map[string]string{
	rules.PersonaWarlord:   "You are an aggressive warlord. You grow by conquest and strike rivals that are weaker than you.",
	rules.PersonaDiplomat:  "You are a patient diplomat. You build treaties and coalitions and avoid wars you cannot win.",
	rules.PersonaMerchant:  "You are a shrewd merchant. You grow credits through trade and contracts and buy security when needed.",
	rules.PersonaSpymaster: "You are a spymaster. You weaken rivals from the shadows before anyone else moves.",
	rules.PersonaTurtle:    "You are a cautious defender. You fortify your planets and keep peace with strong neighbours.",
}

const actionGuide = `Reply with exactly one JSON object and nothing else. Valid shapes:
{"action":"no_op"}
{"action":"build_units","unit":UNIT,"quantity":N}
{"action":"acquire_territory","quantity":N}
{"action":"release_territory","quantity":N}
{"action":"attack","target_id":ID,"fleet":{UNIT:N,...}}
{"action":"propose_treaty","target_id":ID,"treaty_type":"non_aggression"|"alliance"}
{"action":"accept_treaty"|"reject_treaty"|"break_treaty"|"end_treaty","treaty_id":ID}
{"action":"trade_resource","resource":"food"|"ore"|"petroleum","side":"buy"|"sell","quantity":N}
{"action":"fund_research","field":"weapons"|"defense"|"economy"|"covert","amount":N}
{"action":"upgrade_unit","unit":UNIT}
{"action":"covert_op","operation":OP,"target_id":ID}
{"action":"craft_component","component":NAME,"quantity":N}
{"action":"accept_contract","contract_id":ID}
{"action":"purchase_item","item":NAME}
{"action":"form_coalition","coalition_name":TEXT}
{"action":"join_coalition","coalition_id":ID}
{"action":"leave_coalition"}
Any shape may add "message" (shown to other empires) and "rationale".`

// BuildPrompt renders the persona and the empire's observable state.
func BuildPrompt(obs Observation, temperature float64, maxTokens int) llm.Request {
	persona := obs.Env.Persona
	brief, ok := personaBriefs[persona]
	if !ok {
		brief = "You rule a space empire and want to survive and grow."
	}
	var sys strings.Builder
	sys.WriteString(brief)
	sys.WriteString("\n\n")
	fmt.Fprintf(&sys, "UNIT is one of: %s.\n", strings.Join(unitNames(), ", "))
	fmt.Fprintf(&sys, "OP is one of: %s.\n", strings.Join(covert.Names, ", "))
	sys.WriteString(actionGuide)

	return llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: sys.String()},
			{Role: "user", Content: summarize(obs)},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
}

func unitNames() []string {
	out := make([]string, 0, len(model.UnitTypes))
	for _, u := range model.UnitTypes {
		out = append(out, string(u))
	}
	return out
}

func summarize(obs Observation) string {
	var b strings.Builder
	env := obs.Env
	e := env.Self

	phase := "Early Game"
	if env.Turn > 120 {
		phase = "Late Game"
	} else if env.Turn > env.ProtectionTurns {
		phase = "Mid Game"
	}
	fmt.Fprintf(&b, "Turn: %d | Phase: %s", env.Turn, phase)
	if env.Protected() {
		fmt.Fprintf(&b, " | Protection ends after turn %d", env.ProtectionTurns)
	}
	fmt.Fprintln(&b)
	if e == nil {
		return b.String()
	}

	r := e.Resources
	fmt.Fprintf(&b, "Empire: %s (%s) | Planets: %d | Population: %d | Mood: %s\n",
		e.Name, e.ID, e.Territory, e.Population, e.CivilStatus)
	fmt.Fprintf(&b, "Credits: %d | Food: %d | Ore: %d | Petroleum: %d | Research: %d\n",
		r.Credits, r.Food, r.Ore, r.Petroleum, r.ResearchPoints)
	fmt.Fprintf(&b, "Covert: %d agents, %d points\n", e.CovertAgents, e.CovertPoints)

	if !e.Fleet.IsEmpty() {
		fmt.Fprintf(&b, "Fleet:")
		for _, u := range model.UnitTypes {
			if n := e.Fleet[u]; n > 0 {
				fmt.Fprintf(&b, " %dx %s", n, u)
			}
		}
		fmt.Fprintf(&b, " (attack power %.0f)\n", env.AttackPower)
	}

	if len(env.Targets) > 0 {
		targets := append([]rules.TargetView(nil), env.Targets...)
		sort.Slice(targets, func(i, j int) bool { return targets[i].ID < targets[j].ID })
		fmt.Fprintln(&b, "Rivals:")
		for _, t := range targets {
			if t.Eliminated {
				continue
			}
			flag := ""
			switch {
			case t.ActiveTreaty:
				flag = " [treaty]"
			case t.OpenTreaty:
				flag = " [proposal pending]"
			}
			fmt.Fprintf(&b, "  %s: planets %d, networth %d, defense %.0f%s\n",
				t.ID, t.Territory, t.Networth, t.DefensePower, flag)
		}
	}
	if len(env.PendingTreaties) > 0 {
		fmt.Fprintf(&b, "Treaty proposals awaiting your answer: %s\n", strings.Join(env.PendingTreaties, ", "))
	}
	if env.CoalitionID != "" {
		fmt.Fprintf(&b, "Coalition: %s\n", env.CoalitionID)
	} else if len(env.OpenCoalitions) > 0 {
		fmt.Fprintf(&b, "Open coalitions: %s\n", strings.Join(env.OpenCoalitions, ", "))
	}
	if len(env.Contracts) > 0 {
		fmt.Fprintf(&b, "Contracts on offer: %s\n", strings.Join(env.Contracts, ", "))
	}
	fmt.Fprintf(&b, "Choose one action for turn %d.", obs.Turn)
	return b.String()
}
