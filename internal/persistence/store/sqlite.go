package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"starreign.ai/internal/protocol"
	"starreign.ai/internal/sim/kernel/model"
)

// SQLite is the durable Store. Repository calls are synchronous; turn reports
// are written by a background goroutine so turn resolution never waits on disk.
type SQLite struct {
	db  *sql.DB
	log *slog.Logger

	ch   chan protocol.TurnReport
	wg   sync.WaitGroup
	once sync.Once

	// chMu orders RecordTurn sends against the close of ch.
	chMu   sync.RWMutex
	closed bool
}

var _ Store = (*SQLite)(nil)

func OpenSQLite(path string, logger *slog.Logger) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection serializes every transaction, which is what makes the
	// capacity and pair checks atomic with their writes.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLite{
		db:  db,
		log: logger,
		ch:  make(chan protocol.TurnReport, 1024),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS games (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			turn INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS empires (
			id TEXT PRIMARY KEY,
			game_id TEXT NOT NULL REFERENCES games(id),
			kind TEXT NOT NULL,
			eliminated INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_empires_game ON empires(game_id, id);`,
		`CREATE TABLE IF NOT EXISTS treaties (
			id TEXT PRIMARY KEY,
			game_id TEXT NOT NULL REFERENCES games(id),
			type TEXT NOT NULL,
			proposer_id TEXT NOT NULL,
			target_id TEXT NOT NULL,
			empire_a TEXT NOT NULL,
			empire_b TEXT NOT NULL,
			status TEXT NOT NULL,
			proposed_turn INTEGER NOT NULL,
			activated_turn INTEGER NOT NULL DEFAULT 0,
			closed_turn INTEGER NOT NULL DEFAULT 0,
			broken_by TEXT NOT NULL DEFAULT '',
			seq INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_treaties_game ON treaties(game_id, seq);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_treaties_active_pair ON treaties(game_id, empire_a, empire_b) WHERE status = 'active';`,
		`CREATE TABLE IF NOT EXISTS coalitions (
			id TEXT PRIMARY KEY,
			game_id TEXT NOT NULL REFERENCES games(id),
			name TEXT NOT NULL,
			leader_id TEXT NOT NULL,
			status TEXT NOT NULL,
			founded_turn INTEGER NOT NULL,
			dissolved_turn INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS memberships (
			coalition_id TEXT NOT NULL REFERENCES coalitions(id),
			game_id TEXT NOT NULL,
			empire_id TEXT NOT NULL,
			join_turn INTEGER NOT NULL,
			left_turn INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (coalition_id, empire_id, join_turn)
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_memberships_active ON memberships(game_id, empire_id) WHERE left_turn = 0;`,
		`CREATE TABLE IF NOT EXISTS reputation_events (
			id TEXT PRIMARY KEY,
			game_id TEXT NOT NULL,
			empire_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			magnitude INTEGER NOT NULL,
			permanent INTEGER NOT NULL,
			decay_resistance REAL NOT NULL,
			turn INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_reputation_game ON reputation_events(game_id, turn);`,
		`CREATE TABLE IF NOT EXISTS turns (
			game_id TEXT NOT NULL,
			turn INTEGER NOT NULL,
			digest TEXT NOT NULL,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (game_id, turn)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLite) Close() error {
	var err error
	s.once.Do(func() {
		s.chMu.Lock()
		s.closed = true
		close(s.ch)
		s.chMu.Unlock()
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func notFound(kind, id string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return err
}

func (s *SQLite) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// Games.

func (s *SQLite) CreateGame(ctx context.Context, g model.Game) error {
	b, err := json.Marshal(g)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO games(id,status,turn,raw_json) VALUES(?,?,?,?)`, g.ID, string(g.Status), g.Turn, string(b))
	return err
}

func (s *SQLite) GetGame(ctx context.Context, id string) (model.Game, error) {
	var raw string
	if err := s.db.QueryRowContext(ctx, `SELECT raw_json FROM games WHERE id = ?`, id).Scan(&raw); err != nil {
		return model.Game{}, notFound("game", id, err)
	}
	var g model.Game
	err := json.Unmarshal([]byte(raw), &g)
	return g, err
}

func (s *SQLite) UpdateGame(ctx context.Context, g model.Game) error {
	b, err := json.Marshal(g)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE games SET status = ?, turn = ?, raw_json = ? WHERE id = ?`, string(g.Status), g.Turn, string(b), g.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("game %s: %w", g.ID, ErrNotFound)
	}
	return nil
}

// Empires.

func (s *SQLite) InsertEmpire(ctx context.Context, e *model.Empire) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO empires(id,game_id,kind,eliminated,raw_json) VALUES(?,?,?,?,?)`,
		e.ID, e.GameID, string(e.Kind), boolInt(e.Eliminated), string(b))
	return err
}

func (s *SQLite) GetEmpire(ctx context.Context, id string) (*model.Empire, error) {
	var raw string
	if err := s.db.QueryRowContext(ctx, `SELECT raw_json FROM empires WHERE id = ?`, id).Scan(&raw); err != nil {
		return nil, notFound("empire", id, err)
	}
	var e model.Empire
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *SQLite) ListEmpires(ctx context.Context, gameID string) ([]*model.Empire, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT raw_json FROM empires WHERE game_id = ? ORDER BY id`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Empire
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var e model.Empire
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (s *SQLite) SaveEmpires(ctx context.Context, es []*model.Empire) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `UPDATE empires SET eliminated = ?, raw_json = ? WHERE id = ?`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, e := range es {
			b, err := json.Marshal(e)
			if err != nil {
				return err
			}
			res, err := stmt.ExecContext(ctx, boolInt(e.Eliminated), string(b), e.ID)
			if err != nil {
				return err
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return fmt.Errorf("empire %s: %w", e.ID, ErrNotFound)
			}
		}
		return nil
	})
}

// Treaties.

const treatyCols = `id,game_id,type,proposer_id,target_id,status,proposed_turn,activated_turn,closed_turn,broken_by`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTreaty(r rowScanner) (model.Treaty, error) {
	var t model.Treaty
	var typ, status string
	err := r.Scan(&t.ID, &t.GameID, &typ, &t.ProposerID, &t.TargetID, &status, &t.ProposedTurn, &t.ActivatedTurn, &t.ClosedTurn, &t.BrokenBy)
	t.Type = model.TreatyType(typ)
	t.Status = model.TreatyStatus(status)
	return t, err
}

func pairHas(ctx context.Context, tx *sql.Tx, t model.Treaty, statuses ...model.TreatyStatus) (bool, error) {
	a, b := t.Pair()
	q := `SELECT COUNT(1) FROM treaties WHERE game_id = ? AND empire_a = ? AND empire_b = ? AND id != ? AND status IN (?` + strings.Repeat(",?", len(statuses)-1) + `)`
	args := []any{t.GameID, a, b, t.ID}
	for _, st := range statuses {
		args = append(args, string(st))
	}
	var n int
	if err := tx.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLite) InsertTreaty(ctx context.Context, t model.Treaty) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		open, err := pairHas(ctx, tx, t, model.TreatyProposed, model.TreatyActive)
		if err != nil {
			return err
		}
		if open {
			return fmt.Errorf("treaty %s: %w", t.ID, ErrDuplicateTreaty)
		}
		var seq int
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq),0)+1 FROM treaties WHERE game_id = ?`, t.GameID).Scan(&seq); err != nil {
			return err
		}
		a, b := t.Pair()
		_, err = tx.ExecContext(ctx, `INSERT INTO treaties(`+treatyCols+`,empire_a,empire_b,seq) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			t.ID, t.GameID, string(t.Type), t.ProposerID, t.TargetID, string(t.Status), t.ProposedTurn, t.ActivatedTurn, t.ClosedTurn, t.BrokenBy, a, b, seq)
		if isUniqueViolation(err) {
			return fmt.Errorf("treaty %s: %w", t.ID, ErrDuplicateTreaty)
		}
		return err
	})
}

func (s *SQLite) GetTreaty(ctx context.Context, id string) (model.Treaty, error) {
	t, err := scanTreaty(s.db.QueryRowContext(ctx, `SELECT `+treatyCols+` FROM treaties WHERE id = ?`, id))
	if err != nil {
		return model.Treaty{}, notFound("treaty", id, err)
	}
	return t, nil
}

func (s *SQLite) ListTreaties(ctx context.Context, gameID string) ([]model.Treaty, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+treatyCols+` FROM treaties WHERE game_id = ? ORDER BY seq`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Treaty
	for rows.Next() {
		t, err := scanTreaty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLite) ActivateTreaty(ctx context.Context, id string, turn int) (model.Treaty, error) {
	var out model.Treaty
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		t, err := scanTreaty(tx.QueryRowContext(ctx, `SELECT `+treatyCols+` FROM treaties WHERE id = ?`, id))
		if err != nil {
			return notFound("treaty", id, err)
		}
		out = t
		active, err := pairHas(ctx, tx, t, model.TreatyActive)
		if err != nil {
			return err
		}
		if err := canActivate(t, active); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE treaties SET status = ?, activated_turn = ? WHERE id = ?`, string(model.TreatyActive), turn, id)
		if isUniqueViolation(err) {
			return fmt.Errorf("treaty %s: %w", id, ErrDuplicateTreaty)
		}
		if err != nil {
			return err
		}
		out.Status = model.TreatyActive
		out.ActivatedTurn = turn
		return nil
	})
	return out, err
}

func (s *SQLite) CloseTreaty(ctx context.Context, id string, to model.TreatyStatus, turn int, brokenBy string) (model.Treaty, error) {
	var out model.Treaty
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		t, err := scanTreaty(tx.QueryRowContext(ctx, `SELECT `+treatyCols+` FROM treaties WHERE id = ?`, id))
		if err != nil {
			return notFound("treaty", id, err)
		}
		out = t
		next, err := closeTreaty(t, to, turn, brokenBy)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE treaties SET status = ?, closed_turn = ?, broken_by = ? WHERE id = ?`,
			string(next.Status), next.ClosedTurn, next.BrokenBy, id); err != nil {
			return err
		}
		out = next
		return nil
	})
	return out, err
}

// Coalitions.

const coalitionCols = `id,game_id,name,leader_id,status,founded_turn,dissolved_turn`

func scanCoalition(r rowScanner) (model.Coalition, error) {
	var c model.Coalition
	var status string
	err := r.Scan(&c.ID, &c.GameID, &c.Name, &c.LeaderID, &status, &c.FoundedTurn, &c.DissolvedTurn)
	c.Status = model.CoalitionStatus(status)
	return c, err
}

func membersTx(ctx context.Context, tx *sql.Tx, coalitionID string, activeOnly bool) ([]model.Membership, error) {
	q := `SELECT coalition_id,empire_id,join_turn,left_turn FROM memberships WHERE coalition_id = ?`
	if activeOnly {
		q += ` AND left_turn = 0`
	}
	q += ` ORDER BY join_turn, empire_id`
	rows, err := tx.QueryContext(ctx, q, coalitionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Membership
	for rows.Next() {
		var m model.Membership
		if err := rows.Scan(&m.CoalitionID, &m.EmpireID, &m.JoinTurn, &m.LeftTurn); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func activeMembershipTx(ctx context.Context, tx *sql.Tx, gameID, empireID string) (model.Membership, bool, error) {
	var m model.Membership
	err := tx.QueryRowContext(ctx, `SELECT coalition_id,empire_id,join_turn,left_turn FROM memberships WHERE game_id = ? AND empire_id = ? AND left_turn = 0`,
		gameID, empireID).Scan(&m.CoalitionID, &m.EmpireID, &m.JoinTurn, &m.LeftTurn)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Membership{}, false, nil
	}
	if err != nil {
		return model.Membership{}, false, err
	}
	return m, true, nil
}

func updateCoalitionTx(ctx context.Context, tx *sql.Tx, c model.Coalition) error {
	_, err := tx.ExecContext(ctx, `UPDATE coalitions SET leader_id = ?, status = ?, dissolved_turn = ? WHERE id = ?`,
		c.LeaderID, string(c.Status), c.DissolvedTurn, c.ID)
	return err
}

func (s *SQLite) CreateCoalition(ctx context.Context, c model.Coalition, founder model.Membership) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, ok, err := activeMembershipTx(ctx, tx, c.GameID, founder.EmpireID); err != nil {
			return err
		} else if ok {
			return fmt.Errorf("empire %s: %w", founder.EmpireID, ErrAlreadyInCoalition)
		}
		c.LeaderID = founder.EmpireID
		c.Status = model.CoalitionForming
		if _, err := tx.ExecContext(ctx, `INSERT INTO coalitions(`+coalitionCols+`) VALUES(?,?,?,?,?,?,?)`,
			c.ID, c.GameID, c.Name, c.LeaderID, string(c.Status), c.FoundedTurn, c.DissolvedTurn); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO memberships(coalition_id,game_id,empire_id,join_turn,left_turn) VALUES(?,?,?,?,0)`,
			c.ID, c.GameID, founder.EmpireID, founder.JoinTurn)
		if isUniqueViolation(err) {
			return fmt.Errorf("empire %s: %w", founder.EmpireID, ErrAlreadyInCoalition)
		}
		return err
	})
}

func (s *SQLite) GetCoalition(ctx context.Context, id string) (model.Coalition, error) {
	c, err := scanCoalition(s.db.QueryRowContext(ctx, `SELECT `+coalitionCols+` FROM coalitions WHERE id = ?`, id))
	if err != nil {
		return model.Coalition{}, notFound("coalition", id, err)
	}
	return c, nil
}

func (s *SQLite) ListCoalitions(ctx context.Context, gameID string) ([]model.Coalition, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+coalitionCols+` FROM coalitions WHERE game_id = ? ORDER BY id`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Coalition
	for rows.Next() {
		c, err := scanCoalition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLite) Members(ctx context.Context, coalitionID string) ([]model.Membership, error) {
	var out []model.Membership
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		out, err = membersTx(ctx, tx, coalitionID, false)
		return err
	})
	return out, err
}

func (s *SQLite) ActiveMembership(ctx context.Context, gameID, empireID string) (model.Membership, bool, error) {
	var (
		m  model.Membership
		ok bool
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		m, ok, err = activeMembershipTx(ctx, tx, gameID, empireID)
		return err
	})
	return m, ok, err
}

func (s *SQLite) JoinCoalition(ctx context.Context, mem model.Membership, lim CoalitionLimits) (model.Coalition, error) {
	var out model.Coalition
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		c, err := scanCoalition(tx.QueryRowContext(ctx, `SELECT `+coalitionCols+` FROM coalitions WHERE id = ?`, mem.CoalitionID))
		if err != nil {
			return notFound("coalition", mem.CoalitionID, err)
		}
		out = c
		if _, ok, err := activeMembershipTx(ctx, tx, c.GameID, mem.EmpireID); err != nil {
			return err
		} else if ok {
			return fmt.Errorf("empire %s: %w", mem.EmpireID, ErrAlreadyInCoalition)
		}
		active, err := membersTx(ctx, tx, c.ID, true)
		if err != nil {
			return err
		}
		next, err := applyJoin(c, active, mem, lim)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO memberships(coalition_id,game_id,empire_id,join_turn,left_turn) VALUES(?,?,?,?,0)`,
			c.ID, c.GameID, mem.EmpireID, mem.JoinTurn)
		if isUniqueViolation(err) {
			return fmt.Errorf("empire %s: %w", mem.EmpireID, ErrAlreadyInCoalition)
		}
		if err != nil {
			return err
		}
		if err := updateCoalitionTx(ctx, tx, next); err != nil {
			return err
		}
		out = next
		return nil
	})
	return out, err
}

func (s *SQLite) LeaveCoalition(ctx context.Context, coalitionID, empireID string, turn int, lim CoalitionLimits) (model.Coalition, error) {
	var out model.Coalition
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		c, err := scanCoalition(tx.QueryRowContext(ctx, `SELECT `+coalitionCols+` FROM coalitions WHERE id = ?`, coalitionID))
		if err != nil {
			return notFound("coalition", coalitionID, err)
		}
		out = c
		res, err := tx.ExecContext(ctx, `UPDATE memberships SET left_turn = ? WHERE coalition_id = ? AND empire_id = ? AND left_turn = 0`, turn, coalitionID, empireID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("empire %s in %s: %w", empireID, coalitionID, ErrNotMember)
		}
		remaining, err := membersTx(ctx, tx, coalitionID, true)
		if err != nil {
			return err
		}
		next := applyLeave(c, remaining, empireID, turn, lim)
		if err := updateCoalitionTx(ctx, tx, next); err != nil {
			return err
		}
		out = next
		return nil
	})
	return out, err
}

// Reputation.

func (s *SQLite) InsertReputationEvent(ctx context.Context, gameID string, ev model.ReputationEvent) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO reputation_events(id,game_id,empire_id,kind,magnitude,permanent,decay_resistance,turn) VALUES(?,?,?,?,?,?,?,?)`,
		ev.ID, gameID, ev.EmpireID, ev.Kind, ev.Magnitude, boolInt(ev.Permanent), ev.DecayResistance, ev.Turn)
	return err
}

func (s *SQLite) ListReputationEvents(ctx context.Context, gameID string) ([]model.ReputationEvent, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,empire_id,kind,magnitude,permanent,decay_resistance,turn FROM reputation_events WHERE game_id = ? ORDER BY turn, id`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.ReputationEvent
	for rows.Next() {
		var ev model.ReputationEvent
		var perm int
		if err := rows.Scan(&ev.ID, &ev.EmpireID, &ev.Kind, &ev.Magnitude, &perm, &ev.DecayResistance, &ev.Turn); err != nil {
			return nil, err
		}
		ev.Permanent = perm != 0
		out = append(out, ev)
	}
	return out, rows.Err()
}

// Turn reports.

func (s *SQLite) RecordTurn(report protocol.TurnReport) {
	if s == nil {
		return
	}
	s.chMu.RLock()
	defer s.chMu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- report:
	default:
		// JSONL turn logs remain the source of truth if the writer falls behind.
		s.log.Warn("turn report dropped", "game", report.GameID, "turn", report.Turn)
	}
}

func (s *SQLite) ListTurns(ctx context.Context, gameID string) ([]protocol.TurnReport, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT raw_json FROM turns WHERE game_id = ? ORDER BY turn`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []protocol.TurnReport
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var r protocol.TurnReport
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLite) loop() {
	for report := range s.ch {
		b, err := json.Marshal(report)
		if err != nil {
			s.log.Error("marshal turn report", "game", report.GameID, "turn", report.Turn, "err", err)
			continue
		}
		if _, err := s.db.Exec(`INSERT OR REPLACE INTO turns(game_id,turn,digest,raw_json) VALUES(?,?,?,?)`,
			report.GameID, report.Turn, report.Digest, string(b)); err != nil {
			s.log.Error("write turn report", "game", report.GameID, "turn", report.Turn, "err", err)
		}
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
