package log

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"
)

func TestTurnLogger_RotatesHourlyAndReadsBack(t *testing.T) {
	dir := t.TempDir()
	l := NewTurnLogger(dir)
	clock := time.Date(2026, 3, 1, 10, 59, 0, 0, time.UTC)
	l.w.now = func() time.Time { return clock }

	if err := l.WriteTurn(TurnLogEntry{GameID: "g1", Turn: 1, Digest: "aa"}); err != nil {
		t.Fatalf("WriteTurn: %v", err)
	}
	if err := l.WriteTurn(TurnLogEntry{GameID: "g1", Turn: 2, Digest: "bb"}); err != nil {
		t.Fatalf("WriteTurn: %v", err)
	}
	clock = clock.Add(2 * time.Minute)
	if err := l.WriteTurn(TurnLogEntry{GameID: "g1", Turn: 3, Digest: "cc"}); err != nil {
		t.Fatalf("WriteTurn: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	read := func(hour string) []TurnLogEntry {
		var out []TurnLogEntry
		path := filepath.Join(dir, "turns", "turns-"+hour+".jsonl.zst")
		err := ReadJSONL(path, func(line []byte) error {
			var e TurnLogEntry
			if err := json.Unmarshal(line, &e); err != nil {
				return err
			}
			out = append(out, e)
			return nil
		})
		if err != nil {
			t.Fatalf("ReadJSONL(%s): %v", hour, err)
		}
		return out
	}
	first := read("2026-03-01-10")
	if len(first) != 2 || first[0].Turn != 1 || first[1].Digest != "bb" {
		t.Fatalf("first hour: %+v", first)
	}
	second := read("2026-03-01-11")
	if len(second) != 1 || second[0].Turn != 3 {
		t.Fatalf("second hour: %+v", second)
	}

	files, err := ListFiles(filepath.Join(dir, "turns"), "turns")
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if len(files) != 2 || filepath.Base(files[0]) != "turns-2026-03-01-10.jsonl.zst" {
		t.Fatalf("files: %v", files)
	}
}

func TestAuditLogger_Write(t *testing.T) {
	dir := t.TempDir()
	l := NewAuditLogger(dir)
	clock := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	l.w.now = func() time.Time { return clock }
	if err := l.WriteAudit(AuditEntry{GameID: "g1", Turn: 4, Kind: "COVERT", EmpireID: "e1", Details: map[string]any{"success": true}}); err != nil {
		t.Fatalf("WriteAudit: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	n := 0
	err := ReadJSONL(filepath.Join(dir, "audit", "audit-2026-03-01-10.jsonl.zst"), func(line []byte) error {
		var e AuditEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return err
		}
		if e.Kind != "COVERT" || e.Details["success"] != true {
			t.Fatalf("entry: %+v", e)
		}
		n++
		return nil
	})
	if err != nil || n != 1 {
		t.Fatalf("read %d entries, err=%v", n, err)
	}
}
