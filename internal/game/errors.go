package game

import "errors"

var ErrInvalidPlacement = errors.New("invalid placement")
var ErrIllegalMove = errors.New("illegal move")
var ErrNotYourTurn = errors.New("not your turn")
var ErrWrongPhase = errors.New("wrong phase")
var ErrNoPlayersRemain = errors.New("no players remain")
var ErrUnsupportedCommand = errors.New("unsupported command")

// ProtocolError marks an internal inconsistency in a session. The room that
// hit it is aborted; other rooms are unaffected. Player input can never
// produce one.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return "protocol error: " + e.Reason
}
