package natsbus

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"starreign.ai/internal/protocol"
)

type fakeConn struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (f *fakeConn) Publish(subj string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.subjects = append(f.subjects, subj)
	f.payloads = append(f.payloads, data)
	return nil
}

func (f *fakeConn) Drain() error { return nil }

func TestPublishTurn(t *testing.T) {
	fc := &fakeConn{}
	p := &Publisher{nc: fc, log: slog.New(slog.NewTextHandler(io.Discard, nil))}
	p.PublishTurn(protocol.TurnReport{GameID: "G7", Turn: 4, NextTurn: 5, Digest: "ff"})

	if len(fc.subjects) != 1 || fc.subjects[0] != "starreign.games.G7.turns" {
		t.Fatalf("subjects: %v", fc.subjects)
	}
	var msg protocol.TurnReportMsg
	if err := json.Unmarshal(fc.payloads[0], &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Type != protocol.TypeTurnReport || msg.Report.Turn != 4 || msg.Report.Digest != "ff" {
		t.Fatalf("message: %+v", msg)
	}
}

func TestPublishErrorIsSwallowed(t *testing.T) {
	fc := &fakeConn{err: errors.New("connection closed")}
	p := &Publisher{nc: fc, log: slog.New(slog.NewTextHandler(io.Discard, nil))}
	p.PublishTurn(protocol.TurnReport{GameID: "G7", Turn: 1})
	if len(fc.subjects) != 0 {
		t.Fatalf("unexpected publish")
	}
}
