// Package types holds the websocket protocol spoken at /ws?code=XXXXXX.
//
// Client -> Server
//
//	add:       nick, roles: string[], captain: bool
//	remove:    nick
//	stage:     {}
//	pick:      nick, role
//	make_game: {}
//
// Server -> Client
//
//	StateSnapshot: version, state (phase, unstaged, staged, captains,
//	               teams, picking_team, need)
//	GameFinished:  version, state, teams: [{role: nick}, {role: nick}]
//	Error:         error
package types

import "github.com/DoyleJ11/hl-pug-backend/internal/engine"

type ClientMessage struct {
	Type    string   `json:"type"`
	Nick    string   `json:"nick,omitempty"`
	Roles   []string `json:"roles,omitempty"`
	Captain bool     `json:"captain,omitempty"`
	Role    string   `json:"role,omitempty"`
}

const (
	MsgStateSnapshot = "StateSnapshot"
	MsgGameFinished  = "GameFinished"
	MsgError         = "Error"
)

type ServerMessage struct {
	Type    string        `json:"type"` // "StateSnapshot" | "GameFinished" | "Error"
	Version int           `json:"version,omitempty"`
	State   *engine.State `json:"state,omitempty"`
	Teams   []engine.Team `json:"teams,omitempty"`
	Error   string        `json:"error,omitempty"`
}
