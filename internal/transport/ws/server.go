// Package ws streams turn reports to browser and bot clients.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"starreign.ai/internal/protocol"
	"starreign.ai/internal/sim/kernel/model"
)

// Source is the read side a subscriber needs: the game's current turn and
// the reports it missed.
type Source interface {
	GetGame(ctx context.Context, id string) (model.Game, error)
	ListTurns(ctx context.Context, gameID string) ([]protocol.TurnReport, error)
}

type client struct {
	id     string
	gameID string
	out    chan []byte
}

// Hub fans published turn reports out to the sockets subscribed to a game.
// A client whose queue is full is dropped rather than stalling the turn.
type Hub struct {
	src Source
	log *slog.Logger

	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]map[string]*client // game id -> session id
}

const (
	queueSize    = 16
	writeTimeout = 5 * time.Second
	readTimeout  = 60 * time.Second
)

func NewHub(src Source, logger *slog.Logger) *Hub {
	return &Hub{
		src: src,
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		clients: map[string]map[string]*client{},
	}
}

// Subscribers reports how many sockets follow gameID.
func (h *Hub) Subscribers(gameID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[gameID])
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	m := h.clients[c.gameID]
	if m == nil {
		m = map[string]*client{}
		h.clients[c.gameID] = m
	}
	m[c.id] = c
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	m := h.clients[c.gameID]
	if _, ok := m[c.id]; !ok {
		return
	}
	delete(m, c.id)
	close(c.out)
	if len(m) == 0 {
		delete(h.clients, c.gameID)
	}
}

// PublishTurn implements the turn engine's Publisher.
func (h *Hub) PublishTurn(rep protocol.TurnReport) {
	b, err := json.Marshal(protocol.TurnReportMsg{
		Type:            protocol.TypeTurnReport,
		ProtocolVersion: protocol.Version,
		Report:          rep,
	})
	if err != nil {
		h.log.Error("encode turn report", "game", rep.GameID, "error", err)
		return
	}
	var slow []*client
	h.mu.RLock()
	for _, c := range h.clients[rep.GameID] {
		select {
		case c.out <- b:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()
	for _, c := range slow {
		h.log.Warn("dropping slow subscriber", "game", c.gameID, "session", c.id)
		h.remove(c)
	}
}

// Handler serves GET /v1/games/{id}/ws. The client opens with HELLO; the
// path id wins when both are set.
func (h *Hub) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		c, backlog := h.handshake(r.Context(), conn, r.PathValue("id"))
		if c == nil {
			return
		}
		for _, b := range backlog {
			if err := write(conn, b); err != nil {
				return
			}
		}
		h.add(c)
		defer h.remove(c)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-c.out:
					if !ok {
						_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "slow consumer"), time.Now().Add(time.Second))
						cancel()
						return
					}
					if err := write(conn, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop; clients only send pings and close frames.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
			if ctx.Err() != nil {
				return
			}
		}
	}
}

func (h *Hub) handshake(ctx context.Context, conn *websocket.Conn, pathID string) (*client, [][]byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil, nil
	}
	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, websocket.ClosePolicyViolation, "expected HELLO")
		return nil, nil
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return nil, nil
	}
	if hello.ProtocolVersion != protocol.Version {
		closeWith(conn, websocket.ClosePolicyViolation, "bad protocol_version")
		return nil, nil
	}
	gameID := hello.GameID
	if pathID != "" {
		gameID = pathID
	}
	g, err := h.src.GetGame(ctx, gameID)
	if err != nil {
		closeWith(conn, websocket.ClosePolicyViolation, "unknown game")
		return nil, nil
	}

	c := &client{id: uuid.NewString(), gameID: g.ID, out: make(chan []byte, queueSize)}
	welcome, err := json.Marshal(protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       c.id,
		GameID:          g.ID,
		Turn:            g.Turn,
	})
	if err != nil || write(conn, welcome) != nil {
		return nil, nil
	}

	var backlog [][]byte
	if hello.SinceTurn > 0 {
		reports, err := h.src.ListTurns(ctx, g.ID)
		if err != nil {
			h.log.Warn("list turns for backlog", "game", g.ID, "error", err)
		}
		for _, rep := range reports {
			if rep.Turn < hello.SinceTurn {
				continue
			}
			b, err := json.Marshal(protocol.TurnReportMsg{Type: protocol.TypeTurnReport, ProtocolVersion: protocol.Version, Report: rep})
			if err == nil {
				backlog = append(backlog, b)
			}
		}
	}
	h.log.Info("subscriber joined", "game", g.ID, "session", c.id, "backlog", len(backlog))
	return c, backlog
}

func write(conn *websocket.Conn, b []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, b)
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(time.Second))
}
