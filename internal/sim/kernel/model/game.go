package model

import "time"

type GameStatus string

const (
	GameActive   GameStatus = "active"
	GameFinished GameStatus = "finished"
)

type VictoryKind string

const (
	VictoryNone       VictoryKind = ""
	VictoryDiplomatic VictoryKind = "diplomatic"
	VictoryConquest   VictoryKind = "conquest"
	VictoryLastStand  VictoryKind = "last_standing"
	VictoryTurnLimit  VictoryKind = "turn_limit"
	VictoryDefeat     VictoryKind = "defeat"
)

type Game struct {
	ID              string      `json:"id"`
	Turn            int         `json:"turn"`
	Status          GameStatus  `json:"status"`
	WinnerID        string      `json:"winner_id,omitempty"`
	WinnerCoalition string      `json:"winner_coalition,omitempty"`
	Victory         VictoryKind `json:"victory,omitempty"`
	ProtectionTurns int         `json:"protection_turns"`
	TurnLimit       int         `json:"turn_limit"`
	Seed            int64       `json:"seed"`
	CreatedAt       time.Time   `json:"created_at"`
}

func (g Game) Finished() bool { return g.Status == GameFinished }
