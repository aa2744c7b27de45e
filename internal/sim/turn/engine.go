// Package turn resolves one game turn across every empire in a fixed,
// documented step order.
package turn

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"starreign.ai/internal/agent/decision"
	tlog "starreign.ai/internal/persistence/log"
	"starreign.ai/internal/persistence/store"
	"starreign.ai/internal/protocol"
	"starreign.ai/internal/sim/feature/coalition"
	"starreign.ai/internal/sim/feature/diplomacy"
	"starreign.ai/internal/sim/tuning"
)

var (
	ErrGameFinished = errors.New("game finished")
	ErrGameBusy     = errors.New("turn already resolving")
)

// Decider produces one validated action per agent empire.
type Decider interface {
	Decide(ctx context.Context, obs decision.Observation) decision.Decision
	Precompute(ctx context.Context, obs []decision.Observation) int
	Advance(gameID string, turn int)
}

type TurnWriter interface {
	WriteTurn(tlog.TurnLogEntry) error
}

type AuditWriter interface {
	WriteAudit(tlog.AuditEntry) error
}

// Publisher receives every resolved turn report.
type Publisher interface {
	PublishTurn(report protocol.TurnReport)
}

type Options struct {
	Store   store.Store
	Tuning  tuning.Tuning
	Decider Decider
	Turns   TurnWriter
	Audit   AuditWriter
	Logger  *slog.Logger
}

type Engine struct {
	store      store.Store
	cfg        tuning.Tuning
	treaties   *diplomacy.Treaties
	coalitions *coalition.Coalitions
	decider    Decider
	turns      TurnWriter
	audit      AuditWriter
	log        *slog.Logger

	NewID func() string
	Now   func() time.Time

	pubMu      sync.RWMutex
	publishers []Publisher

	locks sync.Map // game id -> *sync.Mutex
}

func New(opts Options) *Engine {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		store:      opts.Store,
		cfg:        opts.Tuning,
		treaties:   diplomacy.NewTreaties(opts.Store, opts.Tuning.Diplomacy),
		coalitions: coalition.New(opts.Store, opts.Tuning.Diplomacy),
		decider:    opts.Decider,
		turns:      opts.Turns,
		audit:      opts.Audit,
		log:        log,
		NewID:      uuid.NewString,
		Now:        time.Now,
	}
}

func (e *Engine) Tuning() tuning.Tuning { return e.cfg }

func (e *Engine) AddPublisher(p Publisher) {
	e.pubMu.Lock()
	e.publishers = append(e.publishers, p)
	e.pubMu.Unlock()
}

func (e *Engine) publish(rep protocol.TurnReport) {
	e.pubMu.RLock()
	ps := append([]Publisher(nil), e.publishers...)
	e.pubMu.RUnlock()
	for _, p := range ps {
		p.PublishTurn(rep)
	}
}

func (e *Engine) gameLock(gameID string) *sync.Mutex {
	v, _ := e.locks.LoadOrStore(gameID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

func (e *Engine) writeAudit(a tlog.AuditEntry) {
	if e.audit == nil {
		return
	}
	if err := e.audit.WriteAudit(a); err != nil {
		e.log.Warn("audit write failed", "game", a.GameID, "error", err)
	}
}
