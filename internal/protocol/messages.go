package protocol

// HELLO (client -> server) opens a turn-report subscription.
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	GameID          string `json:"game_id"`
	EmpireID        string `json:"empire_id,omitempty"`
	SinceTurn       int    `json:"since_turn,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	SessionID       string `json:"session_id"`
	GameID          string `json:"game_id"`
	Turn            int    `json:"turn"`
}

type AckMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	AckFor          string `json:"ack_for"`
	Accepted        bool   `json:"accepted"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`
	Turn            int    `json:"turn,omitempty"`
}

// TURN_REPORT (server -> client)
type TurnReportMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	Report          TurnReport `json:"report"`
}
