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
	"strings"

	persistlog "starreign.ai/internal/persistence/log"
	"starreign.ai/internal/persistence/store"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "game":
			gameCmd(os.Args[2:])
			return
		case "turns":
			turnsCmd(os.Args[2:])
			return
		case "audit":
			auditCmd(os.Args[2:])
			return
		}
	}
	fmt.Fprintln(os.Stderr, "usage: admin game|turns|audit [flags]")
	os.Exit(2)
}

func openDB(path string) *store.SQLite {
	st, err := store.OpenSQLite(path, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		fmt.Fprintln(os.Stderr, "open db:", err)
		os.Exit(1)
	}
	return st
}

func gameCmd(args []string) {
	fs := flag.NewFlagSet("game", flag.ExitOnError)
	dbPath := fs.String("db", "./data/starreign.sqlite", "sqlite database path")
	id := fs.String("id", "", "game id")
	_ = fs.Parse(args)
	if strings.TrimSpace(*id) == "" {
		fmt.Fprintln(os.Stderr, "missing -id")
		os.Exit(2)
	}
	st := openDB(*dbPath)
	defer st.Close()

	ctx := context.Background()
	g, err := st.GetGame(ctx, *id)
	if err != nil {
		fmt.Fprintln(os.Stderr, "game:", err)
		os.Exit(1)
	}
	empires, err := st.ListEmpires(ctx, *id)
	if err != nil {
		fmt.Fprintln(os.Stderr, "empires:", err)
		os.Exit(1)
	}
	treaties, err := st.ListTreaties(ctx, *id)
	if err != nil {
		fmt.Fprintln(os.Stderr, "treaties:", err)
		os.Exit(1)
	}
	coalitions, err := st.ListCoalitions(ctx, *id)
	if err != nil {
		fmt.Fprintln(os.Stderr, "coalitions:", err)
		os.Exit(1)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(map[string]any{
		"game":       g,
		"empires":    empires,
		"treaties":   treaties,
		"coalitions": coalitions,
	})
}

func turnsCmd(args []string) {
	fs := flag.NewFlagSet("turns", flag.ExitOnError)
	dbPath := fs.String("db", "./data/starreign.sqlite", "sqlite database path")
	id := fs.String("id", "", "game id")
	_ = fs.Parse(args)
	st := openDB(*dbPath)
	defer st.Close()

	reports, err := st.ListTurns(context.Background(), *id)
	if err != nil {
		fmt.Fprintln(os.Stderr, "turns:", err)
		os.Exit(1)
	}
	for _, r := range reports {
		victory := ""
		if r.Victory != nil {
			victory = r.Victory.Kind + ":" + r.Victory.WinnerID
		}
		fmt.Printf("turn=%d next=%d events=%d decisions=%d digest=%s %s\n", r.Turn, r.NextTurn, len(r.Events), len(r.Decisions), r.Digest, victory)
	}
}

// auditCmd prints audit entries, newest file last, filtered by game and kind.
func auditCmd(args []string) {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	gameID := fs.String("game", "", "game id (optional)")
	kind := fs.String("kind", "", "entry kind, e.g. COVERT or DECISION_FALLBACK (optional)")
	_ = fs.Parse(args)

	files, err := persistlog.ListFiles(filepath.Join(*dataDir, "audit"), "audit")
	if err != nil {
		fmt.Fprintln(os.Stderr, "list audit logs:", err)
		os.Exit(1)
	}
	n, err := filterAudit(files, *gameID, *kind, os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read audit:", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "%d entries\n", n)
}

func filterAudit(files []string, gameID, kind string, w io.Writer) (int, error) {
	n := 0
	for _, path := range files {
		err := persistlog.ReadJSONL(path, func(line []byte) error {
			var e persistlog.AuditEntry
			if err := json.Unmarshal(line, &e); err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(path), err)
			}
			if gameID != "" && e.GameID != gameID {
				return nil
			}
			if kind != "" && !strings.EqualFold(e.Kind, kind) {
				return nil
			}
			n++
			_, err := fmt.Fprintf(w, "%s\n", line)
			return err
		})
		if err != nil {
			return n, err
		}
	}
	return n, nil
}
