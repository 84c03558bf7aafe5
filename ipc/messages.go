package ipc

import (
	"github.com/nstehr/ego/host"
	"github.com/nstehr/ego/model"
)

// Message types exchanged with the host bridge.
const (
	TypeHello      = "hello"
	TypeAck        = "ack"
	TypeGameState  = "game_state"
	TypeTickResult = "tick_result"
)

// HelloMessage opens a session. GameID is optional; the engine generates
// one when the host does not.
type HelloMessage struct {
	Player string `json:"player"`
	Race   string `json:"race"`
	Map    string `json:"map,omitempty"`
	GameID string `json:"game_id,omitempty"`
}

type AckMessage struct {
	Status string `json:"status"`
	GameID string `json:"game_id,omitempty"`
}

// GameStateMessage is one tick of world view.
type GameStateMessage struct {
	model.GameState
}

// TickResultMessage carries everything the engine decided during a tick.
// Commands and plans are in issue order.
type TickResultMessage struct {
	Iteration int               `json:"iteration"`
	Commands  []host.Command    `json:"commands"`
	Plans     []string          `json:"plans,omitempty"`
	Elected   map[string]string `json:"elected,omitempty"`
	Urgency   int               `json:"urgency"`
	Error     string            `json:"error,omitempty"`
}
