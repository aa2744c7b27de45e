package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	persistlog "starreign.ai/internal/persistence/log"
	"starreign.ai/internal/persistence/store"
	"starreign.ai/internal/protocol"
)

func main() {
	var (
		dataDir = flag.String("data", "./data", "runtime data directory")
		gameID  = flag.String("game", "", "only this game (optional)")
		dbPath  = flag.String("db", "", "sqlite database to cross-check digests against (optional)")
	)
	flag.Parse()

	files, err := persistlog.ListFiles(filepath.Join(*dataDir, "turns"), "turns")
	if err != nil {
		fmt.Fprintln(os.Stderr, "list turn logs:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no turn logs found under", *dataDir)
		os.Exit(1)
	}
	games, err := readTurnLogs(files, *gameID)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	ids := make([]string, 0, len(games))
	for id := range games {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		printSummary(os.Stdout, summarize(games[id]))
	}

	if *dbPath == "" {
		return
	}
	st, err := store.OpenSQLite(*dbPath, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		fmt.Fprintln(os.Stderr, "open db:", err)
		os.Exit(1)
	}
	defer st.Close()
	bad := 0
	for _, id := range ids {
		reports, err := st.ListTurns(context.Background(), id)
		if err != nil {
			fmt.Fprintln(os.Stderr, "list turns:", err)
			os.Exit(1)
		}
		for _, m := range verify(games[id], reports) {
			fmt.Println("MISMATCH", m)
			bad++
		}
	}
	if bad > 0 {
		os.Exit(1)
	}
	fmt.Printf("verify ok: games=%d\n", len(ids))
}

// readTurnLogs groups entries by game, in log order.
func readTurnLogs(files []string, onlyGame string) (map[string][]persistlog.TurnLogEntry, error) {
	out := map[string][]persistlog.TurnLogEntry{}
	for _, path := range files {
		err := persistlog.ReadJSONL(path, func(line []byte) error {
			var e persistlog.TurnLogEntry
			if err := json.Unmarshal(line, &e); err != nil {
				return fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
			}
			if onlyGame != "" && e.GameID != onlyGame {
				return nil
			}
			out[e.GameID] = append(out[e.GameID], e)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

type summary struct {
	GameID    string
	Turns     int
	LastTurn  int
	Gaps      []int
	Victory   string
	BySource  map[string]int
	Fallbacks map[string]int
	CacheHits int
	CostUSD   float64
}

func summarize(entries []persistlog.TurnLogEntry) summary {
	s := summary{BySource: map[string]int{}, Fallbacks: map[string]int{}}
	for i, e := range entries {
		s.GameID = e.GameID
		s.Turns++
		if i > 0 && e.Turn != s.LastTurn+1 {
			s.Gaps = append(s.Gaps, e.Turn)
		}
		s.LastTurn = e.Turn
		if e.Victory != "" {
			s.Victory = e.Victory
		}
		for _, d := range e.Decisions {
			s.BySource[d.Source]++
			if d.FallbackReason != "" {
				s.Fallbacks[d.FallbackReason]++
			}
			if d.CacheHit {
				s.CacheHits++
			}
			s.CostUSD += d.CostUSD
		}
	}
	return s
}

func printSummary(w io.Writer, s summary) {
	fmt.Fprintf(w, "game=%s turns=%d last=%d victory=%q cost_usd=%.4f cache_hits=%d\n",
		s.GameID, s.Turns, s.LastTurn, s.Victory, s.CostUSD, s.CacheHits)
	for _, k := range sortedKeys(s.BySource) {
		fmt.Fprintf(w, "  source %-8s %d\n", k, s.BySource[k])
	}
	for _, k := range sortedKeys(s.Fallbacks) {
		fmt.Fprintf(w, "  fallback %-22s %d\n", k, s.Fallbacks[k])
	}
	if len(s.Gaps) > 0 {
		fmt.Fprintf(w, "  gaps before turns %v\n", s.Gaps)
	}
}

// verify compares logged digests with the reports the store recorded.
func verify(entries []persistlog.TurnLogEntry, reports []protocol.TurnReport) []string {
	byTurn := make(map[int]string, len(reports))
	for _, r := range reports {
		byTurn[r.Turn] = r.Digest
	}
	var out []string
	for _, e := range entries {
		got, ok := byTurn[e.Turn]
		switch {
		case !ok:
			out = append(out, fmt.Sprintf("game=%s turn=%d missing from store", e.GameID, e.Turn))
		case got != e.Digest:
			out = append(out, fmt.Sprintf("game=%s turn=%d log=%s store=%s", e.GameID, e.Turn, e.Digest, got))
		}
	}
	return out
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
