package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	persistlog "starreign.ai/internal/persistence/log"
)

func TestFilterAudit(t *testing.T) {
	dir := t.TempDir()
	l := persistlog.NewAuditLogger(dir)
	for _, e := range []persistlog.AuditEntry{
		{GameID: "g1", Turn: 1, Kind: "COVERT", EmpireID: "e1"},
		{GameID: "g1", Turn: 1, Kind: "DECISION_FALLBACK", EmpireID: "e2", Reason: "timeout"},
		{GameID: "g2", Turn: 1, Kind: "COVERT", EmpireID: "e9"},
	} {
		if err := l.WriteAudit(e); err != nil {
			t.Fatalf("WriteAudit: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	files, err := persistlog.ListFiles(filepath.Join(dir, "audit"), "audit")
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}

	var buf bytes.Buffer
	n, err := filterAudit(files, "g1", "covert", &buf)
	if err != nil {
		t.Fatalf("filterAudit: %v", err)
	}
	if n != 1 || !strings.Contains(buf.String(), `"empire_id":"e1"`) {
		t.Fatalf("n=%d out=%s", n, buf.String())
	}

	buf.Reset()
	if n, _ := filterAudit(files, "", "", &buf); n != 3 {
		t.Fatalf("unfiltered: %d", n)
	}
}
