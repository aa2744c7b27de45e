package turn

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"starreign.ai/internal/agent/decision"
	"starreign.ai/internal/agent/rules"
	"starreign.ai/internal/sim/feature/economy"
	"starreign.ai/internal/sim/kernel/model"
)

type NewGame struct {
	PlayerName string
	Agents     int
	// Seed fixes covert rolls and persona assignment; zero picks one.
	Seed int64
}

const (
	maxAgents         = 99
	startingTerritory = 10
)

var empireNames = []string{
	"Vega", "Lyra", "Orion", "Draco", "Cygnus", "Hydra", "Perseus", "Auriga",
	"Carina", "Cetus", "Corvus", "Fornax", "Grus", "Lupus", "Pavo", "Pyxis",
}

func (e *Engine) startingEmpire(gameID, id, name string, kind model.OwnerKind, persona string) *model.Empire {
	emp := &model.Empire{
		ID:      id,
		GameID:  gameID,
		Name:    name,
		Kind:    kind,
		Persona: persona,
		Resources: model.Resources{
			Credits:        50000,
			Food:           5000,
			Ore:            1000,
			Petroleum:      500,
			ResearchPoints: 200,
		},
		Population:  int64(startingTerritory * e.cfg.Economy.PopulationPerPlanet),
		CivilStatus: model.Content,
		Fleet: model.Fleet{
			model.Soldiers:      100,
			model.Fighters:      50,
			model.Stations:      2,
			model.LightCruisers: 10,
		},
		Territory:         startingTerritory,
		GovPlanets:        1,
		CovertAgents:      20,
		CovertPoints:      10,
		ArmyEffectiveness: 1,
	}
	emp.Networth = economy.Networth(e.cfg.Economy, emp)
	return emp
}

// CreateGame seats one human and n agent empires. A share of the agents,
// chosen by the seed, is upgraded to the model tier.
func (e *Engine) CreateGame(ctx context.Context, ng NewGame) (model.Game, []*model.Empire, error) {
	if ng.Agents < 1 || ng.Agents > maxAgents {
		return model.Game{}, nil, fmt.Errorf("agents must be in [1,%d]", maxAgents)
	}
	name := strings.TrimSpace(ng.PlayerName)
	if name == "" {
		name = "Player"
	}
	seed := ng.Seed
	if seed == 0 {
		seed = e.Now().UnixNano()
	}
	g := model.Game{
		ID:              e.NewID(),
		Turn:            1,
		Status:          model.GameActive,
		ProtectionTurns: e.cfg.ProtectionTurns,
		TurnLimit:       e.cfg.TurnLimit,
		Seed:            seed,
		CreatedAt:       e.Now().UTC(),
	}
	if err := e.store.CreateGame(ctx, g); err != nil {
		return model.Game{}, nil, err
	}

	rng := rand.New(rand.NewPCG(uint64(seed), 0))
	modelSlots := int(math.Round(e.cfg.Agents.ModelTierShare * float64(ng.Agents)))
	tiers := make([]model.OwnerKind, ng.Agents)
	for i := range tiers {
		tiers[i] = model.OwnerRuleAgent
		if i < modelSlots {
			tiers[i] = model.OwnerModelAgent
		}
	}
	rng.Shuffle(len(tiers), func(i, j int) { tiers[i], tiers[j] = tiers[j], tiers[i] })

	empires := []*model.Empire{e.startingEmpire(g.ID, e.NewID(), name, model.OwnerHuman, "")}
	for i := 0; i < ng.Agents; i++ {
		agentName := empireNames[i%len(empireNames)]
		if i >= len(empireNames) {
			agentName = fmt.Sprintf("%s %d", agentName, i/len(empireNames)+1)
		}
		persona := rules.Personas[rng.IntN(len(rules.Personas))]
		empires = append(empires, e.startingEmpire(g.ID, e.NewID(), agentName, tiers[i], persona))
	}
	for _, emp := range empires {
		if err := e.store.InsertEmpire(ctx, emp); err != nil {
			return model.Game{}, nil, err
		}
	}
	e.log.Info("game created", "game", g.ID, "agents", ng.Agents, "model_tier", modelSlots, "seed", seed)
	return g, empires, nil
}

// Observations builds the current view of every living agent empire.
func (e *Engine) Observations(ctx context.Context, gameID string) ([]decision.Observation, error) {
	w, err := e.load(ctx, gameID)
	if err != nil {
		return nil, err
	}
	var out []decision.Observation
	for _, emp := range w.empires {
		if emp.Eliminated || !emp.IsAgent() {
			continue
		}
		out = append(out, w.observe(emp, e.cfg))
	}
	return out, nil
}

// Plan precomputes model-tier decisions for the current turn while the
// human is still planning. It blocks until every batch is done or ctx ends.
func (e *Engine) Plan(ctx context.Context, gameID string) (int, error) {
	if e.decider == nil {
		return 0, nil
	}
	obs, err := e.Observations(ctx, gameID)
	if err != nil {
		return 0, err
	}
	return e.decider.Precompute(ctx, obs), nil
}

// View is a read-only snapshot of a game.
type View struct {
	Game       model.Game                    `json:"game"`
	Empires    []*model.Empire               `json:"empires"`
	Treaties   []model.Treaty                `json:"treaties"`
	Coalitions []model.Coalition             `json:"coalitions"`
	Members    map[string][]model.Membership `json:"members"`
}

func (e *Engine) View(ctx context.Context, gameID string) (View, error) {
	w, err := e.load(ctx, gameID)
	if err != nil {
		return View{}, err
	}
	return View{
		Game:       w.game,
		Empires:    w.empires,
		Treaties:   w.treaties,
		Coalitions: w.coalitions,
		Members:    w.members,
	}, nil
}
