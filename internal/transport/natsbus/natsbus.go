// Package natsbus mirrors resolved turn reports onto NATS so other services
// (leaderboards, replay archivers) can follow games without polling.
package natsbus

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"starreign.ai/internal/protocol"
)

const subjectPrefix = "starreign.games."

// Subject is where reports for gameID are published.
func Subject(gameID string) string {
	return subjectPrefix + gameID + ".turns"
}

type conn interface {
	Publish(subj string, data []byte) error
	Drain() error
}

type Publisher struct {
	nc  conn
	log *slog.Logger
}

// Connect dials url and keeps reconnecting for the life of the process.
func Connect(url string, log *slog.Logger) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("starreign"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", url, err)
	}
	return &Publisher{nc: nc, log: log}, nil
}

// PublishTurn implements the turn engine's Publisher. Failures are logged;
// the turn has already been committed.
func (p *Publisher) PublishTurn(rep protocol.TurnReport) {
	b, err := json.Marshal(protocol.TurnReportMsg{
		Type:            protocol.TypeTurnReport,
		ProtocolVersion: protocol.Version,
		Report:          rep,
	})
	if err != nil {
		p.log.Error("encode turn report", "game", rep.GameID, "error", err)
		return
	}
	if err := p.nc.Publish(Subject(rep.GameID), b); err != nil {
		p.log.Warn("nats publish failed", "game", rep.GameID, "turn", rep.Turn, "error", err)
	}
}

// Close flushes pending publishes.
func (p *Publisher) Close() error {
	return p.nc.Drain()
}
