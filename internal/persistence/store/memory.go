package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"starreign.ai/internal/protocol"
	"starreign.ai/internal/sim/kernel/model"
)

// Memory is a mutex-guarded Store for tests and single-process servers.
type Memory struct {
	mu sync.Mutex

	games       map[string]model.Game
	empires     map[string]*model.Empire
	treaties    map[string]model.Treaty
	treatyOrder []string
	coalitions  map[string]model.Coalition
	members     map[string][]model.Membership
	reputation  map[string][]model.ReputationEvent
	turns       map[string][]protocol.TurnReport
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		games:      map[string]model.Game{},
		empires:    map[string]*model.Empire{},
		treaties:   map[string]model.Treaty{},
		coalitions: map[string]model.Coalition{},
		members:    map[string][]model.Membership{},
		reputation: map[string][]model.ReputationEvent{},
		turns:      map[string][]protocol.TurnReport{},
	}
}

func (m *Memory) CreateGame(_ context.Context, g model.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[g.ID]; ok {
		return fmt.Errorf("game %s already exists", g.ID)
	}
	m.games[g.ID] = g
	return nil
}

func (m *Memory) GetGame(_ context.Context, id string) (model.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[id]
	if !ok {
		return model.Game{}, fmt.Errorf("game %s: %w", id, ErrNotFound)
	}
	return g, nil
}

func (m *Memory) UpdateGame(_ context.Context, g model.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[g.ID]; !ok {
		return fmt.Errorf("game %s: %w", g.ID, ErrNotFound)
	}
	m.games[g.ID] = g
	return nil
}

func (m *Memory) InsertEmpire(_ context.Context, e *model.Empire) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.empires[e.ID]; ok {
		return fmt.Errorf("empire %s already exists", e.ID)
	}
	m.empires[e.ID] = e.Clone()
	return nil
}

func (m *Memory) GetEmpire(_ context.Context, id string) (*model.Empire, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.empires[id]
	if !ok {
		return nil, fmt.Errorf("empire %s: %w", id, ErrNotFound)
	}
	return e.Clone(), nil
}

func (m *Memory) ListEmpires(_ context.Context, gameID string) ([]*model.Empire, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Empire
	for _, e := range m.empires {
		if e.GameID == gameID {
			out = append(out, e.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) SaveEmpires(_ context.Context, es []*model.Empire) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range es {
		if _, ok := m.empires[e.ID]; !ok {
			return fmt.Errorf("empire %s: %w", e.ID, ErrNotFound)
		}
	}
	for _, e := range es {
		m.empires[e.ID] = e.Clone()
	}
	return nil
}

func (m *Memory) pairOpen(t model.Treaty, statuses ...model.TreatyStatus) bool {
	a, b := t.Pair()
	for _, other := range m.treaties {
		if other.ID == t.ID || other.GameID != t.GameID {
			continue
		}
		oa, ob := other.Pair()
		if oa != a || ob != b {
			continue
		}
		for _, s := range statuses {
			if other.Status == s {
				return true
			}
		}
	}
	return false
}

func (m *Memory) InsertTreaty(_ context.Context, t model.Treaty) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.treaties[t.ID]; ok {
		return fmt.Errorf("treaty %s already exists", t.ID)
	}
	if m.pairOpen(t, model.TreatyProposed, model.TreatyActive) {
		return fmt.Errorf("treaty %s: %w", t.ID, ErrDuplicateTreaty)
	}
	m.treaties[t.ID] = t
	m.treatyOrder = append(m.treatyOrder, t.ID)
	return nil
}

func (m *Memory) GetTreaty(_ context.Context, id string) (model.Treaty, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.treaties[id]
	if !ok {
		return model.Treaty{}, fmt.Errorf("treaty %s: %w", id, ErrNotFound)
	}
	return t, nil
}

func (m *Memory) ListTreaties(_ context.Context, gameID string) ([]model.Treaty, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Treaty
	for _, id := range m.treatyOrder {
		if t := m.treaties[id]; t.GameID == gameID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *Memory) ActivateTreaty(_ context.Context, id string, turn int) (model.Treaty, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.treaties[id]
	if !ok {
		return model.Treaty{}, fmt.Errorf("treaty %s: %w", id, ErrNotFound)
	}
	if err := canActivate(t, m.pairOpen(t, model.TreatyActive)); err != nil {
		return t, err
	}
	t.Status = model.TreatyActive
	t.ActivatedTurn = turn
	m.treaties[id] = t
	return t, nil
}

func (m *Memory) CloseTreaty(_ context.Context, id string, to model.TreatyStatus, turn int, brokenBy string) (model.Treaty, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.treaties[id]
	if !ok {
		return model.Treaty{}, fmt.Errorf("treaty %s: %w", id, ErrNotFound)
	}
	next, err := closeTreaty(t, to, turn, brokenBy)
	if err != nil {
		return t, err
	}
	m.treaties[id] = next
	return next, nil
}

func (m *Memory) activeMembership(gameID, empireID string) (model.Membership, bool) {
	for cid, ms := range m.members {
		if m.coalitions[cid].GameID != gameID {
			continue
		}
		for _, mem := range ms {
			if mem.EmpireID == empireID && mem.Active() {
				return mem, true
			}
		}
	}
	return model.Membership{}, false
}

func activeOnly(ms []model.Membership) []model.Membership {
	var out []model.Membership
	for _, mem := range ms {
		if mem.Active() {
			out = append(out, mem)
		}
	}
	return out
}

func (m *Memory) CreateCoalition(_ context.Context, c model.Coalition, founder model.Membership) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.coalitions[c.ID]; ok {
		return fmt.Errorf("coalition %s already exists", c.ID)
	}
	if _, ok := m.activeMembership(c.GameID, founder.EmpireID); ok {
		return fmt.Errorf("empire %s: %w", founder.EmpireID, ErrAlreadyInCoalition)
	}
	founder.CoalitionID = c.ID
	c.LeaderID = founder.EmpireID
	c.Status = model.CoalitionForming
	m.coalitions[c.ID] = c
	m.members[c.ID] = []model.Membership{founder}
	return nil
}

func (m *Memory) GetCoalition(_ context.Context, id string) (model.Coalition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.coalitions[id]
	if !ok {
		return model.Coalition{}, fmt.Errorf("coalition %s: %w", id, ErrNotFound)
	}
	return c, nil
}

func (m *Memory) ListCoalitions(_ context.Context, gameID string) ([]model.Coalition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Coalition
	for _, c := range m.coalitions {
		if c.GameID == gameID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) Members(_ context.Context, coalitionID string) ([]model.Membership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Membership(nil), m.members[coalitionID]...), nil
}

func (m *Memory) ActiveMembership(_ context.Context, gameID, empireID string) (model.Membership, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mem, ok := m.activeMembership(gameID, empireID)
	return mem, ok, nil
}

func (m *Memory) JoinCoalition(_ context.Context, mem model.Membership, lim CoalitionLimits) (model.Coalition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.coalitions[mem.CoalitionID]
	if !ok {
		return model.Coalition{}, fmt.Errorf("coalition %s: %w", mem.CoalitionID, ErrNotFound)
	}
	if _, ok := m.activeMembership(c.GameID, mem.EmpireID); ok {
		return c, fmt.Errorf("empire %s: %w", mem.EmpireID, ErrAlreadyInCoalition)
	}
	next, err := applyJoin(c, activeOnly(m.members[c.ID]), mem, lim)
	if err != nil {
		return c, err
	}
	m.members[c.ID] = append(m.members[c.ID], mem)
	m.coalitions[c.ID] = next
	return next, nil
}

func (m *Memory) LeaveCoalition(_ context.Context, coalitionID, empireID string, turn int, lim CoalitionLimits) (model.Coalition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.coalitions[coalitionID]
	if !ok {
		return model.Coalition{}, fmt.Errorf("coalition %s: %w", coalitionID, ErrNotFound)
	}
	ms := m.members[coalitionID]
	found := false
	for i := range ms {
		if ms[i].EmpireID == empireID && ms[i].Active() {
			ms[i].LeftTurn = turn
			found = true
		}
	}
	if !found {
		return c, fmt.Errorf("empire %s in %s: %w", empireID, coalitionID, ErrNotMember)
	}
	next := applyLeave(c, activeOnly(ms), empireID, turn, lim)
	m.coalitions[coalitionID] = next
	return next, nil
}

func (m *Memory) InsertReputationEvent(_ context.Context, gameID string, ev model.ReputationEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reputation[gameID] = append(m.reputation[gameID], ev)
	return nil
}

func (m *Memory) ListReputationEvents(_ context.Context, gameID string) ([]model.ReputationEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.ReputationEvent(nil), m.reputation[gameID]...), nil
}

func (m *Memory) RecordTurn(report protocol.TurnReport) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns[report.GameID] = append(m.turns[report.GameID], report)
}

func (m *Memory) ListTurns(_ context.Context, gameID string) ([]protocol.TurnReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]protocol.TurnReport(nil), m.turns[gameID]...), nil
}

func (m *Memory) Close() error { return nil }
