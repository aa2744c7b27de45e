package tuning

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	ProtectionTurns int `yaml:"protection_turns"`
	TurnLimit       int `yaml:"turn_limit"`

	Combat    Combat    `yaml:"combat"`
	Covert    Covert    `yaml:"covert"`
	Diplomacy Diplomacy `yaml:"diplomacy"`
	Economy   Economy   `yaml:"economy"`
	Agents    Agents    `yaml:"agents"`
	Victory   Victory   `yaml:"victory"`
}

type Combat struct {
	UnitPower               map[string]float64 `yaml:"unit_power"`
	StationDefenseMult      float64            `yaml:"station_defense_mult"`
	DefenderAdvantage       float64            `yaml:"defender_advantage"`
	DiversityBonus          float64            `yaml:"diversity_bonus"`
	DiversityMinTypes       int                `yaml:"diversity_min_types"`
	WinnerLossRate          float64            `yaml:"winner_loss_rate"`
	LoserLossRate           float64            `yaml:"loser_loss_rate"`
	TerritoryCapturePerUnit float64            `yaml:"territory_capture_per_ratio"`
	TerritoryCaptureMax     float64            `yaml:"territory_capture_max"`
}

type Covert struct {
	PointsPerTurn      int     `yaml:"points_per_turn"`
	MaxPoints          int     `yaml:"max_points"`
	Variance           float64 `yaml:"variance"`
	CaughtAgentLossPct float64 `yaml:"caught_agent_loss_pct"`
	CaughtRepPenalty   int     `yaml:"caught_rep_penalty"`
}

type TreatyTerms struct {
	MinDuration  int `yaml:"min_duration"`
	BreakPenalty int `yaml:"break_penalty"`
	HonorBonus   int `yaml:"honor_bonus"`
}

type Diplomacy struct {
	NonAggression      TreatyTerms `yaml:"non_aggression"`
	Alliance           TreatyTerms `yaml:"alliance"`
	HonorResistance    float64     `yaml:"honor_resistance"`
	DecayRate          float64     `yaml:"decay_rate"`
	ReputationClamp    int         `yaml:"reputation_clamp"`
	CoalitionMinSize   int         `yaml:"coalition_min_size"`
	CoalitionMaxSize   int         `yaml:"coalition_max_size"`
	ProposalExpiryTurn int         `yaml:"proposal_expiry_turns"`
}

type Economy struct {
	UnitCost            map[string]int    `yaml:"unit_cost"`
	UnitUpkeep          map[string]int    `yaml:"unit_upkeep"`
	TerritoryBaseCost   int               `yaml:"territory_base_cost"`
	TerritoryCostGrowth int               `yaml:"territory_cost_growth"`
	TerritoryRefundPct  float64           `yaml:"territory_refund_pct"`
	CreditsPerPlanet    int               `yaml:"credits_per_planet"`
	FoodPerPlanet       int               `yaml:"food_per_planet"`
	OrePerPlanet        int               `yaml:"ore_per_planet"`
	PetroleumPerPlanet  int               `yaml:"petroleum_per_planet"`
	ResearchPerPlanet   int               `yaml:"research_per_planet"`
	FoodPerPopulation   float64           `yaml:"food_per_population"`
	PopulationGrowth    float64           `yaml:"population_growth"`
	PopulationPerPlanet int               `yaml:"population_per_planet"`
	ResourcePrices      map[string]int    `yaml:"resource_prices"`
	TradeSpreadPct      float64           `yaml:"trade_spread_pct"`
	UpgradeResearchCost int               `yaml:"upgrade_research_cost"`
	MaxUnitTier         int               `yaml:"max_unit_tier"`
	Components          map[string]Recipe `yaml:"components"`
	BlackMarket         map[string]int    `yaml:"black_market"`
	ContractReward      int               `yaml:"contract_reward"`
}

type Recipe struct {
	Credits  int `yaml:"credits"`
	Ore      int `yaml:"ore"`
	Research int `yaml:"research"`
}

type Provider struct {
	Name            string  `yaml:"name"`
	BaseURL         string  `yaml:"base_url"`
	Model           string  `yaml:"model"`
	APIKeyEnv       string  `yaml:"api_key_env"`
	TimeoutMs       int     `yaml:"timeout_ms"`
	RequestsPerMin  int     `yaml:"requests_per_min"`
	PromptCostPer1K float64 `yaml:"prompt_cost_per_1k"`
	OutputCostPer1K float64 `yaml:"output_cost_per_1k"`
}

type Limits struct {
	PerTurn       int     `yaml:"per_turn"`
	PerHour       int     `yaml:"per_hour"`
	PerGame       int     `yaml:"per_game"`
	DailySpendUSD float64 `yaml:"daily_spend_usd"`
}

type Agents struct {
	ModelTierShare    float64    `yaml:"model_tier_share"`
	BatchSize         int        `yaml:"batch_size"`
	InterBatchDelayMs int        `yaml:"inter_batch_delay_ms"`
	CacheTTLMinutes   int        `yaml:"cache_ttl_minutes"`
	Temperature       float64    `yaml:"temperature"`
	MaxTokens         int        `yaml:"max_tokens"`
	MessageMaxRunes   int        `yaml:"message_max_runes"`
	Denylist          []string   `yaml:"denylist"`
	Limits            Limits     `yaml:"limits"`
	Providers         []Provider `yaml:"providers"`
}

type Victory struct {
	CoalitionShare float64 `yaml:"coalition_share"`
	ConquestShare  float64 `yaml:"conquest_share"`
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.applyDefaults()
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func Defaults() Tuning {
	t := Tuning{
		ProtocolVersion: "1.0",
		ProtectionTurns: 20,
		TurnLimit:       200,
		Combat: Combat{
			UnitPower: map[string]float64{
				"soldiers":       0,
				"fighters":       1,
				"stations":       40,
				"light_cruisers": 4,
				"heavy_cruisers": 4,
				"carriers":       12,
			},
			StationDefenseMult:      2.0,
			DefenderAdvantage:       1.2,
			DiversityBonus:          1.15,
			DiversityMinTypes:       4,
			WinnerLossRate:          0.08,
			LoserLossRate:           0.20,
			TerritoryCapturePerUnit: 0.05,
			TerritoryCaptureMax:     0.15,
		},
		Covert: Covert{
			PointsPerTurn:      5,
			MaxPoints:          50,
			Variance:           0.2,
			CaughtAgentLossPct: 0.05,
			CaughtRepPenalty:   -5,
		},
		Diplomacy: Diplomacy{
			NonAggression:      TreatyTerms{MinDuration: 10, BreakPenalty: -40, HonorBonus: 10},
			Alliance:           TreatyTerms{MinDuration: 20, BreakPenalty: -80, HonorBonus: 20},
			HonorResistance:    0.5,
			DecayRate:          0.1,
			ReputationClamp:    1000,
			CoalitionMinSize:   2,
			CoalitionMaxSize:   5,
			ProposalExpiryTurn: 5,
		},
		Economy: Economy{
			UnitCost: map[string]int{
				"soldiers":       50,
				"fighters":       200,
				"stations":       5000,
				"light_cruisers": 1000,
				"heavy_cruisers": 1500,
				"carriers":       3000,
			},
			UnitUpkeep: map[string]int{
				"soldiers":       0,
				"fighters":       1,
				"stations":       20,
				"light_cruisers": 4,
				"heavy_cruisers": 6,
				"carriers":       12,
			},
			TerritoryBaseCost:   8000,
			TerritoryCostGrowth: 400,
			TerritoryRefundPct:  0.5,
			CreditsPerPlanet:    900,
			FoodPerPlanet:       120,
			OrePerPlanet:        60,
			PetroleumPerPlanet:  40,
			ResearchPerPlanet:   10,
			FoodPerPopulation:   0.01,
			PopulationGrowth:    0.02,
			PopulationPerPlanet: 2000,
			ResourcePrices: map[string]int{
				"food":      8,
				"ore":       12,
				"petroleum": 20,
			},
			TradeSpreadPct:      0.1,
			UpgradeResearchCost: 500,
			MaxUnitTier:         3,
			Components: map[string]Recipe{
				"shield_matrix": {Credits: 4000, Ore: 500, Research: 100},
				"warp_core":     {Credits: 9000, Ore: 1200, Research: 300},
				"sensor_array":  {Credits: 2500, Ore: 200, Research: 50},
			},
			BlackMarket: map[string]int{
				"forged_papers":   3000,
				"mercenary_corps": 12000,
				"stolen_schemata": 8000,
			},
			ContractReward: 5000,
		},
		Agents: Agents{
			ModelTierShare:    0.2,
			BatchSize:         5,
			InterBatchDelayMs: 500,
			CacheTTLMinutes:   60,
			Temperature:       0.7,
			MaxTokens:         600,
			MessageMaxRunes:   280,
			Denylist:          []string{"kill yourself", "nazi", "slur"},
			Limits: Limits{
				PerTurn:       50,
				PerHour:       500,
				PerGame:       5000,
				DailySpendUSD: 5.0,
			},
		},
		Victory: Victory{
			CoalitionShare: 0.5,
			ConquestShare:  0.6,
		},
	}
	return t
}

// applyDefaults fills zero values left behind by a partial YAML file.
func (t *Tuning) applyDefaults() {
	d := Defaults()
	if t.ProtectionTurns < 0 {
		t.ProtectionTurns = 0
	}
	if t.TurnLimit <= 0 {
		t.TurnLimit = d.TurnLimit
	}
	if len(t.Combat.UnitPower) == 0 {
		t.Combat.UnitPower = d.Combat.UnitPower
	}
	if t.Combat.DefenderAdvantage <= 0 {
		t.Combat.DefenderAdvantage = d.Combat.DefenderAdvantage
	}
	if t.Combat.DiversityBonus <= 0 {
		t.Combat.DiversityBonus = d.Combat.DiversityBonus
	}
	if t.Combat.DiversityMinTypes <= 0 {
		t.Combat.DiversityMinTypes = d.Combat.DiversityMinTypes
	}
	if t.Combat.StationDefenseMult <= 0 {
		t.Combat.StationDefenseMult = d.Combat.StationDefenseMult
	}
	if len(t.Economy.UnitCost) == 0 {
		t.Economy.UnitCost = d.Economy.UnitCost
	}
	if t.Agents.BatchSize <= 0 {
		t.Agents.BatchSize = d.Agents.BatchSize
	}
	if t.Agents.InterBatchDelayMs < 0 {
		t.Agents.InterBatchDelayMs = 0
	}
	if t.Agents.CacheTTLMinutes <= 0 {
		t.Agents.CacheTTLMinutes = d.Agents.CacheTTLMinutes
	}
	if t.Agents.MaxTokens <= 0 {
		t.Agents.MaxTokens = d.Agents.MaxTokens
	}
	if t.Agents.MessageMaxRunes <= 0 {
		t.Agents.MessageMaxRunes = d.Agents.MessageMaxRunes
	}
	if t.Diplomacy.CoalitionMinSize <= 0 {
		t.Diplomacy.CoalitionMinSize = d.Diplomacy.CoalitionMinSize
	}
	if t.Diplomacy.CoalitionMaxSize <= 0 {
		t.Diplomacy.CoalitionMaxSize = d.Diplomacy.CoalitionMaxSize
	}
	if t.Victory.CoalitionShare <= 0 {
		t.Victory.CoalitionShare = d.Victory.CoalitionShare
	}
	if t.Victory.ConquestShare <= 0 {
		t.Victory.ConquestShare = d.Victory.ConquestShare
	}
	for i := range t.Agents.Providers {
		if t.Agents.Providers[i].TimeoutMs <= 0 {
			t.Agents.Providers[i].TimeoutMs = 15000
		}
	}
}

func (t Tuning) Validate() error {
	if t.Diplomacy.CoalitionMinSize > t.Diplomacy.CoalitionMaxSize {
		return fmt.Errorf("coalition_min_size %d > coalition_max_size %d", t.Diplomacy.CoalitionMinSize, t.Diplomacy.CoalitionMaxSize)
	}
	if t.Victory.CoalitionShare > 1 || t.Victory.ConquestShare > 1 {
		return fmt.Errorf("victory shares must be in (0,1]")
	}
	if t.Agents.ModelTierShare < 0 || t.Agents.ModelTierShare > 1 {
		return fmt.Errorf("agents.model_tier_share must be in [0,1]")
	}
	l := t.Agents.Limits
	if l.PerTurn < 0 || l.PerHour < 0 || l.PerGame < 0 || l.DailySpendUSD < 0 {
		return fmt.Errorf("agents.limits must be non-negative")
	}
	seen := map[string]bool{}
	for i, p := range t.Agents.Providers {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return fmt.Errorf("agents.providers[%d]: empty name", i)
		}
		if seen[name] {
			return fmt.Errorf("agents.providers[%d]: duplicate name %q", i, name)
		}
		seen[name] = true
		if strings.TrimSpace(p.BaseURL) == "" {
			return fmt.Errorf("agents.providers[%d]: empty base_url", i)
		}
	}
	for unit, cost := range t.Economy.UnitCost {
		if cost <= 0 {
			return fmt.Errorf("economy.unit_cost[%s] must be positive", unit)
		}
	}
	return nil
}

// Terms returns the fixed terms for a treaty type; unknown types get zero terms.
func (d Diplomacy) Terms(treatyType string) TreatyTerms {
	switch treatyType {
	case "alliance":
		return d.Alliance
	case "non_aggression":
		return d.NonAggression
	default:
		return TreatyTerms{}
	}
}
