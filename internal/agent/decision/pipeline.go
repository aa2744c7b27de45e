package decision

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"starreign.ai/internal/agent/llm"
	"starreign.ai/internal/agent/ratelimit"
	"starreign.ai/internal/agent/rules"
	"starreign.ai/internal/protocol"
	"starreign.ai/internal/sim/feature/validation"
	"starreign.ai/internal/sim/kernel/model"
	"starreign.ai/internal/sim/tuning"
)

const (
	SourceRule  = "rule"
	SourceModel = "model"
)

// Fallback reasons recorded when the model tier gives up on an empire.
const (
	ReasonBudget      = "budget_exceeded"
	ReasonTimeout     = "timeout"
	ReasonUnavailable = "provider_unavailable"
	ReasonRateLimited = "provider_rate_limited"
	ReasonMalformed   = "malformed_response"
	ReasonSchema      = "schema_invalid"
	ReasonRejected    = "validator_rejected"
)

const rationaleMaxRunes = 1000

// Observation is one empire's view of the game for a target turn.
type Observation struct {
	GameID string
	Turn   int
	Env    rules.RuleEnv
	State  validation.State
}

func (o Observation) EmpireID() string {
	if o.Env.Self == nil {
		return ""
	}
	return o.Env.Self.ID
}

func (o Observation) modelTier() bool {
	return o.Env.Self != nil && o.Env.Self.Kind == model.OwnerModelAgent
}

type Decision struct {
	EmpireID         string
	Turn             int
	Action           protocol.Action
	Source           string
	Rule             string
	Provider         string
	CacheHit         bool
	FallbackReason   string
	CostUSD          float64
	PromptTokens     int
	CompletionTokens int
}

func (d Decision) Record() protocol.Decision {
	return protocol.Decision{
		EmpireID:       d.EmpireID,
		Action:         d.Action,
		Source:         d.Source,
		Provider:       d.Provider,
		CacheHit:       d.CacheHit,
		FallbackReason: d.FallbackReason,
		CostUSD:        d.CostUSD,
	}
}

// Completer is the failover chain as the pipeline uses it.
type Completer interface {
	CompleteGated(ctx context.Context, req llm.Request, gate llm.Gate) (llm.Response, []llm.Attempt, error)
}

type Pipeline struct {
	cfg       tuning.Tuning
	rules     *rules.Engine
	chain     Completer
	gov       *ratelimit.Governor
	cache     *Cache
	clean     *Sanitizer
	notes     *Sanitizer
	estCost   float64
	batchWait time.Duration
	log       *slog.Logger
}

// New wires a pipeline. A nil chain makes every empire rule-driven.
func New(cfg tuning.Tuning, engine *rules.Engine, chain Completer, gov *ratelimit.Governor, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	if gov == nil {
		gov = ratelimit.NewGovernor(cfg.Agents.Limits)
	}
	a := cfg.Agents
	p := &Pipeline{
		cfg:       cfg,
		rules:     engine,
		chain:     chain,
		gov:       gov,
		cache:     NewCache(time.Duration(a.CacheTTLMinutes) * time.Minute),
		clean:     NewSanitizer(a.MessageMaxRunes, a.Denylist),
		notes:     NewSanitizer(rationaleMaxRunes, a.Denylist),
		batchWait: time.Duration(a.InterBatchDelayMs) * time.Millisecond,
		log:       log,
	}
	if len(a.Providers) > 0 {
		pc := a.Providers[0]
		p.estCost = llm.Cost(pc.PromptCostPer1K, pc.OutputCostPer1K, 1500, a.MaxTokens)
	}
	return p
}

func (p *Pipeline) Cache() *Cache { return p.cache }

func (p *Pipeline) Governor() *ratelimit.Governor { return p.gov }

func (p *Pipeline) validator(obs Observation) rules.Validator {
	return func(a protocol.Action) (bool, string, string) {
		return validation.Validate(a, obs.State, p.cfg)
	}
}

// Decide returns exactly one validated action for the empire. Model-tier
// empires are served from the cache when possible and computed inline on a
// miss; every failure degrades to the rule tier.
func (p *Pipeline) Decide(ctx context.Context, obs Observation) Decision {
	if !obs.modelTier() || p.chain == nil {
		return p.ruleDecision(obs, "", 0)
	}
	if e, ok := p.cache.get(obs.GameID, obs.EmpireID(), obs.Turn); ok {
		if e.Failed {
			d := p.ruleDecision(obs, e.Decision.FallbackReason, e.Decision.CostUSD)
			d.CacheHit = true
			return d
		}
		d := e.Decision
		if ok, code, msg := p.validator(obs)(d.Action); !ok {
			p.log.Warn("cached decision no longer legal", "game", obs.GameID, "empire", d.EmpireID, "code", code, "reason", msg)
			return p.ruleDecision(obs, ReasonRejected, d.CostUSD)
		}
		d.CacheHit = true
		return d
	}
	return p.resolve(ctx, obs)
}

// resolve runs the model tier once and caches the outcome. Outcomes caused
// by the caller cancelling ctx are not cached.
func (p *Pipeline) resolve(ctx context.Context, obs Observation) Decision {
	d, ok := p.modelDecision(ctx, obs)
	if ctx.Err() == nil {
		p.cache.put(obs.GameID, obs.EmpireID(), obs.Turn, entry{Decision: d, Failed: !ok})
	}
	if ok {
		return d
	}
	return p.ruleDecision(obs, d.FallbackReason, d.CostUSD)
}

// modelDecision returns ok=false with FallbackReason and CostUSD set when
// the model tier cannot produce a legal action.
func (p *Pipeline) modelDecision(ctx context.Context, obs Observation) (Decision, bool) {
	base := Decision{EmpireID: obs.EmpireID(), Turn: obs.Turn, Source: SourceModel}
	fail := func(reason string) (Decision, bool) {
		base.FallbackReason = reason
		return base, false
	}

	// Every admitted attempt holds estCost until the chain returns; only
	// the answering call is charged its actual cost.
	reserved := 0.0
	gate := func(provider string) (bool, string) {
		ok, reason := p.gov.Admit(obs.GameID, obs.Turn, p.estCost)
		if ok {
			reserved += p.estCost
		}
		return ok, reason
	}
	req := BuildPrompt(obs, p.cfg.Agents.Temperature, p.cfg.Agents.MaxTokens)
	resp, attempts, err := p.chain.CompleteGated(ctx, req, gate)
	if err != nil {
		p.gov.Settle(obs.GameID, reserved, 0)
		p.log.Debug("model tier failed", "game", obs.GameID, "empire", base.EmpireID, "attempts", len(attempts), "error", err)
		return fail(llm.Reason(err))
	}
	p.gov.Settle(obs.GameID, reserved, resp.CostUSD)
	base.Provider = resp.Provider
	base.CostUSD = resp.CostUSD
	base.PromptTokens = resp.PromptTokens
	base.CompletionTokens = resp.CompletionTokens

	raw, ok := ExtractJSON(resp.Text)
	if !ok {
		return fail(ReasonMalformed)
	}
	a, err := protocol.ParseAction(raw)
	if err != nil {
		p.log.Debug("provider action rejected by schema", "game", obs.GameID, "empire", base.EmpireID, "provider", resp.Provider, "error", err)
		return fail(ReasonSchema)
	}
	a.Message = p.clean.Clean(a.Message)
	a.Rationale = p.notes.Clean(a.Rationale)
	if ok, code, msg := p.validator(obs)(a); !ok {
		p.log.Debug("provider action illegal", "game", obs.GameID, "empire", base.EmpireID, "code", code, "reason", msg)
		return fail(ReasonRejected)
	}
	base.Action = a
	return base, true
}

func (p *Pipeline) ruleDecision(obs Observation, reason string, cost float64) Decision {
	var a protocol.Action
	rule := ""
	if p.rules != nil {
		a, rule = p.rules.Decide(obs.Env, p.validator(obs))
	} else {
		a = protocol.NoOp()
	}
	if reason != "" {
		p.log.Warn("agent decision fell back to rules",
			"game", obs.GameID, "empire", obs.EmpireID(), "turn", obs.Turn, "fallback_reason", reason)
	}
	return Decision{
		EmpireID:       obs.EmpireID(),
		Turn:           obs.Turn,
		Action:         a,
		Source:         SourceRule,
		Rule:           rule,
		FallbackReason: reason,
		CostUSD:        cost,
	}
}

// Precompute fills the cache for model-tier empires in batches of
// BatchSize with a fixed pause between batches. It returns the number
// of empires computed.
func (p *Pipeline) Precompute(ctx context.Context, obs []Observation) int {
	if p.chain == nil {
		return 0
	}
	var todo []Observation
	for _, o := range obs {
		if !o.modelTier() {
			continue
		}
		if _, ok := p.cache.get(o.GameID, o.EmpireID(), o.Turn); ok {
			continue
		}
		todo = append(todo, o)
	}
	size := p.cfg.Agents.BatchSize
	if size <= 0 {
		size = 1
	}
	done := 0
	for start := 0; start < len(todo); start += size {
		if start > 0 && !pause(ctx, p.batchWait) {
			break
		}
		end := min(start+size, len(todo))
		var wg sync.WaitGroup
		for _, o := range todo[start:end] {
			wg.Add(1)
			go func(o Observation) {
				defer wg.Done()
				p.resolve(ctx, o)
			}(o)
		}
		wg.Wait()
		done += end - start
	}
	p.log.Info("precompute finished", "scheduled", len(todo), "computed", done)
	return done
}

func pause(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Advance drops cache entries for turns before turn.
func (p *Pipeline) Advance(gameID string, turn int) {
	p.cache.InvalidateBefore(gameID, turn)
}
