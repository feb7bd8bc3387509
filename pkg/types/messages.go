package types

import "github.com/hwzhu/mowan-server/internal/game"

// Client -> Server. One message per attempted action; the server validates
// everything and answers errors to the sender only.
//
// place:   digit, row, col            (Deployment phase, any player)
// advance: row, col                   (Action phase, active player)
// duel:    target_player, target_row, target_col
// recycle: row, col
// pass:    {}
type ClientMessage struct {
	Type         string `json:"type"`
	Digit        int    `json:"digit,omitempty"`
	Row          int    `json:"row"`
	Col          int    `json:"col"`
	TargetPlayer string `json:"target_player,omitempty"`
	TargetRow    int    `json:"target_row"`
	TargetCol    int    `json:"target_col"`
}

// Server -> Client. Every game-state message carries the receiver's own
// projection; a reconnecting client needs nothing but the next "state".
//
// Types: "state" | "game_started" | "turn_changed" | "duel" | "game_ended"
// | "error"
type ServerMessage struct {
	Type    string     `json:"type"`
	Version int        `json:"version,omitempty"`
	View    *game.View `json:"view,omitempty"`
	Duel    *DuelInfo  `json:"duel,omitempty"`
	Winner  string     `json:"winner,omitempty"`
	Draw    bool       `json:"draw,omitempty"`
	Error   string     `json:"error,omitempty"`
}

// DuelInfo is broadcast with both digits in the open; resolution is the
// only point where hidden digits become public.
type DuelInfo struct {
	Attacker      string `json:"attacker"`
	Defender      string `json:"defender"`
	AttackerDigit int    `json:"attacker_digit"`
	DefenderDigit int    `json:"defender_digit"`
	Outcome       string `json:"outcome"`
}
