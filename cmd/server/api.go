package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"starreign.ai/internal/persistence/store"
	"starreign.ai/internal/protocol"
	"starreign.ai/internal/sim/turn"
	"starreign.ai/internal/transport/ws"
)

const maxBodyBytes = 64 * 1024

type api struct {
	engine *turn.Engine
	log    *slog.Logger

	// planTimeout bounds a background precompute.
	planTimeout time.Duration
}

func (a *api) routes(hub *ws.Hub) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("POST /v1/games", a.createGame)
	mux.HandleFunc("GET /v1/games/{id}", a.getGame)
	mux.HandleFunc("POST /v1/games/{id}/plan", a.plan)
	mux.HandleFunc("POST /v1/games/{id}/end-turn", a.endTurn)
	if hub != nil {
		mux.HandleFunc("GET /v1/games/{id}/ws", hub.Handler())
	}
	return mux
}

type createGameRequest struct {
	PlayerName string `json:"player_name"`
	Agents     int    `json:"agents"`
	Seed       int64  `json:"seed,omitempty"`
}

func (a *api) createGame(rw http.ResponseWriter, r *http.Request) {
	var req createGameRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(rw, http.StatusBadRequest, protocol.ErrProtoBadRequest, "invalid json")
		return
	}
	g, empires, err := a.engine.CreateGame(r.Context(), turn.NewGame{PlayerName: req.PlayerName, Agents: req.Agents, Seed: req.Seed})
	if err != nil {
		writeError(rw, http.StatusBadRequest, protocol.ErrBadRequest, err.Error())
		return
	}
	writeJSON(rw, http.StatusCreated, map[string]any{"game": g, "empires": empires})
}

func (a *api) getGame(rw http.ResponseWriter, r *http.Request) {
	v, err := a.engine.View(r.Context(), r.PathValue("id"))
	if err != nil {
		a.fail(rw, err)
		return
	}
	writeJSON(rw, http.StatusOK, v)
}

// plan starts precomputing model-tier decisions while the player thinks.
// With ?wait=1 it blocks and reports how many decisions were made.
func (a *api) plan(rw http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("id")
	if _, err := a.engine.View(r.Context(), gameID); err != nil {
		a.fail(rw, err)
		return
	}
	timeout := a.planTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	if r.URL.Query().Get("wait") == "1" {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		n, err := a.engine.Plan(ctx, gameID)
		if err != nil {
			a.fail(rw, err)
			return
		}
		writeJSON(rw, http.StatusOK, map[string]any{"game_id": gameID, "decided": n})
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		n, err := a.engine.Plan(ctx, gameID)
		if err != nil {
			a.log.Warn("precompute failed", "game", gameID, "error", err)
			return
		}
		a.log.Info("precompute done", "game", gameID, "decided", n)
	}()
	writeJSON(rw, http.StatusAccepted, map[string]any{"game_id": gameID, "accepted": true})
}

// endTurn takes the player's action as the body; an empty body is no_op.
func (a *api) endTurn(rw http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(rw, http.StatusBadRequest, protocol.ErrProtoBadRequest, "read body")
		return
	}
	action := protocol.NoOp()
	if len(bytes.TrimSpace(raw)) > 0 {
		action, err = protocol.ParseAction(raw)
		if err != nil {
			writeError(rw, http.StatusBadRequest, protocol.ErrSchema, err.Error())
			return
		}
	}
	rep, err := a.engine.EndTurn(r.Context(), r.PathValue("id"), action)
	if err != nil {
		a.fail(rw, err)
		return
	}
	writeJSON(rw, http.StatusOK, rep)
}

func (a *api) fail(rw http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(rw, http.StatusNotFound, protocol.ErrGameNotFound, "game not found")
	case errors.Is(err, turn.ErrGameFinished):
		writeError(rw, http.StatusConflict, protocol.ErrGameFinished, err.Error())
	case errors.Is(err, turn.ErrGameBusy):
		writeError(rw, http.StatusConflict, protocol.ErrGameBusy, err.Error())
	default:
		a.log.Error("request failed", "error", err)
		writeError(rw, http.StatusInternalServerError, protocol.ErrInternal, "internal error")
	}
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

func writeError(rw http.ResponseWriter, status int, code, msg string) {
	writeJSON(rw, status, map[string]string{"code": code, "message": msg})
}
