package room

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/hwzhu/mowan-server/internal/game"
	"github.com/hwzhu/mowan-server/pkg/types"
)

type Config struct {
	// How long a disconnected player is waited for before their turns
	// start auto-passing.
	GraceWindow time.Duration
	// Per-turn think time; zero disables the timer. Expiry is an implicit
	// pass routed through the same inbox as player actions.
	TurnTimer time.Duration
}

type Msg interface{ isRoomMsg() }

// FromPlayer carries one action. Cmd.Player is the authenticated identity
// set by the transport layer, never client-supplied.
type FromPlayer struct {
	Cmd game.Command
}

type Attach struct {
	PlayerID string
	Outbox   chan types.ServerMessage
}

type Detach struct{ PlayerID string }

type GetStatus struct {
	Reply chan Status
}

type Shutdown struct{}

type turnExpired struct{ seq int }

type graceExpired struct {
	PlayerID string
	gen      int
}

func (FromPlayer) isRoomMsg()   {}
func (Attach) isRoomMsg()       {}
func (Detach) isRoomMsg()       {}
func (GetStatus) isRoomMsg()    {}
func (Shutdown) isRoomMsg()     {}
func (turnExpired) isRoomMsg()  {}
func (graceExpired) isRoomMsg() {}

// Status reflects internal state without data races; test hook.
type Status struct {
	Version     int
	NumAttached int
	Phase       game.Phase
	Active      string
}

// Result is handed to the terminal callback exactly once per room.
type Result struct {
	Code         string
	Winner       string
	Draw         bool
	Abandoned    bool
	Aborted      bool
	Participants []string
}

type TerminalFunc func(Result)

type conn struct {
	outbox chan types.ServerMessage
	online bool
	// Bumped on every connect/disconnect; lets stale grace fires be
	// recognized and dropped.
	gen      int
	autoPass bool
}

// Room owns one game session and serializes every mutation through its
// inbox: actions, timer fires and connection changes all take the same
// single-writer path. Rooms are independent; a failure here never touches
// another room.
type Room struct {
	code       string
	inbox      chan Msg
	session    *game.Session
	conns      map[string]*conn
	version    int
	cfg        Config
	onTerminal TerminalFunc
	terminal   bool
	closed     bool
	log        *zap.Logger
	ctx        context.Context
	cancel     context.CancelFunc
}

func New(parent context.Context, code string, roster []game.Seat, cfg Config, log *zap.Logger, onTerminal TerminalFunc) (*Room, error) {
	session, _, err := game.NewSession(game.DefaultConfig(), roster)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(parent)
	r := &Room{
		code:       code,
		inbox:      make(chan Msg, 64),
		session:    session,
		conns:      make(map[string]*conn, len(roster)),
		cfg:        cfg,
		onTerminal: onTerminal,
		log:        log.With(zap.String("room", code)),
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, seat := range roster {
		r.conns[seat.ID] = &conn{}
	}
	go r.loop()
	return r, nil
}

func (r *Room) Inbox() chan<- Msg { return r.inbox }
func (r *Room) Code() string      { return r.code }

// Done closes once the room's loop has stopped draining the inbox. Senders
// must select on it or risk blocking on a dead room.
func (r *Room) Done() <-chan struct{} { return r.ctx.Done() }

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Attach:
				r.attach(msg)
			case Detach:
				r.detach(msg.PlayerID)
			case FromPlayer:
				r.handleCommand(msg.Cmd)
			case turnExpired:
				if !r.terminal && msg.seq == r.session.Seq() && r.session.Phase() == game.PhaseAction {
					r.handleCommand(game.Command{Type: game.CmdPass, Player: r.session.Active()})
				}
			case graceExpired:
				r.handleGrace(msg)
			case GetStatus:
				msg.Reply <- Status{
					Version:     r.version,
					NumAttached: r.onlineCount(),
					Phase:       r.session.Phase(),
					Active:      r.session.Active(),
				}
			case Shutdown:
				r.shutdown()
				return
			}
			r.chaseAutoPass()
		}
	}
}

// attach registers (or re-registers) a player's transport and immediately
// sends a full projection snapshot, so a reconnecting client resynchronizes
// no matter how much it missed.
func (r *Room) attach(msg Attach) {
	c := r.conns[msg.PlayerID]
	if c == nil {
		// Not on the roster.
		close(msg.Outbox)
		return
	}
	if c.outbox != nil && c.outbox != msg.Outbox {
		close(c.outbox)
	}
	c.outbox = msg.Outbox
	c.online = true
	c.autoPass = false
	c.gen++
	r.log.Info("player attached", zap.String("player", msg.PlayerID))

	view := r.session.ViewFor(msg.PlayerID)
	r.send(msg.PlayerID, types.ServerMessage{Type: "state", Version: r.version, View: &view})
}

func (r *Room) detach(playerID string) {
	c := r.conns[playerID]
	if c == nil || !c.online {
		return
	}
	if c.outbox != nil {
		close(c.outbox)
		c.outbox = nil
	}
	c.online = false
	c.gen++
	r.log.Info("player detached", zap.String("player", playerID))

	if r.cfg.GraceWindow <= 0 || r.terminal {
		return
	}
	gen := c.gen
	time.AfterFunc(r.cfg.GraceWindow, func() {
		select {
		case r.inbox <- graceExpired{PlayerID: playerID, gen: gen}:
		case <-r.ctx.Done():
		}
	})
}

func (r *Room) handleGrace(msg graceExpired) {
	c := r.conns[msg.PlayerID]
	if c == nil || c.online || c.gen != msg.gen || r.terminal {
		return
	}
	c.autoPass = true
	r.log.Info("grace window expired", zap.String("player", msg.PlayerID))

	if !r.anyAliveReachable() {
		r.abandon()
	}
}

// chaseAutoPass burns the turns of players past their grace window. The
// chase is bounded: it stops at the first alive player still reachable, and
// a room with none left is abandoned rather than passed in circles for
// whoever is still watching.
func (r *Room) chaseAutoPass() {
	for !r.terminal && r.session.Phase() == game.PhaseAction && r.onlineCount() > 0 {
		if !r.anyAliveReachable() {
			r.abandon()
			return
		}
		c := r.conns[r.session.Active()]
		if c == nil || !c.autoPass {
			return
		}
		r.handleCommand(game.Command{Type: game.CmdPass, Player: r.session.Active()})
	}
}

// anyAliveReachable reports whether some alive player is connected or may
// still come back within their grace window. Players who never connected at
// all (gen zero) do not count as coming back.
func (r *Room) anyAliveReachable() bool {
	for _, p := range r.session.Players() {
		if p.Eliminated {
			continue
		}
		c := r.conns[p.ID]
		if c == nil || c.gen == 0 {
			continue
		}
		if c.online || !c.autoPass {
			return true
		}
	}
	return false
}

// abandon closes a room nobody alive can come back to; no result is
// recorded.
func (r *Room) abandon() {
	r.terminal = true
	r.emitResult(Result{Code: r.code, Abandoned: true, Participants: r.participants()})
}

func (r *Room) handleCommand(cmd game.Command) {
	if r.terminal {
		r.sendError(cmd.Player, game.ErrWrongPhase)
		return
	}
	if r.conns[cmd.Player] == nil {
		// Not a participant of this room; nothing to answer to.
		return
	}

	events, err := r.session.Apply(cmd)
	if err != nil {
		var perr *game.ProtocolError
		if errors.As(err, &perr) {
			r.abort(perr)
			return
		}
		// Recoverable rejections go only to the submitter and consume
		// nothing.
		r.sendError(cmd.Player, err)
		return
	}

	r.version++
	r.fanOut(events)
	r.afterEvents(events)
}

func (r *Room) afterEvents(events []game.Event) {
	for _, ev := range events {
		switch ev.Type {
		case game.EvtTurnChanged:
			r.armTurnTimer()
		case game.EvtGameEnded:
			r.terminal = true
			r.emitResult(Result{
				Code:         r.code,
				Winner:       ev.Winner,
				Draw:         ev.Winner == "",
				Participants: r.participants(),
			})
			// The room stays up so clients can read the result; the hub
			// removes it when the retention window elapses.
		}
	}
}

func (r *Room) armTurnTimer() {
	if r.cfg.TurnTimer <= 0 || r.terminal {
		return
	}
	seq := r.session.Seq()
	time.AfterFunc(r.cfg.TurnTimer, func() {
		select {
		case r.inbox <- turnExpired{seq: seq}:
		case <-r.ctx.Done():
		}
	})
}

// fanOut converts applied events into per-player messages. Each message
// carries a projection derived fresh for its receiver.
func (r *Room) fanOut(events []game.Event) {
	for _, ev := range events {
		msg := types.ServerMessage{Version: r.version}
		switch ev.Type {
		case game.EvtGameStarted:
			msg.Type = "game_started"
		case game.EvtPiecePlaced:
			msg.Type = "state"
		case game.EvtTurnChanged:
			msg.Type = "turn_changed"
		case game.EvtDuel:
			msg.Type = "duel"
			msg.Duel = &types.DuelInfo{
				Attacker:      ev.Player,
				Defender:      ev.Target,
				AttackerDigit: ev.DigitA,
				DefenderDigit: ev.DigitB,
				Outcome:       string(ev.Outcome),
			}
		case game.EvtGameEnded:
			msg.Type = "game_ended"
			msg.Winner = ev.Winner
			msg.Draw = ev.Winner == ""
		default:
			// deployment_complete / player_eliminated ride on the adjacent
			// messages; the view already reflects them.
			continue
		}

		for id, c := range r.conns {
			if !c.online {
				continue
			}
			view := r.session.ViewFor(id)
			out := msg
			out.View = &view
			r.send(id, out)
		}
	}
}

func (r *Room) send(playerID string, msg types.ServerMessage) {
	c := r.conns[playerID]
	if c == nil || !c.online || c.outbox == nil {
		return
	}
	select {
	case c.outbox <- msg:
	default:
		// Slow or wedged socket. Drop it; the client gets a full snapshot
		// on reconnect anyway.
		r.log.Warn("dropping slow client", zap.String("player", playerID))
		r.detach(playerID)
	}
}

func (r *Room) sendError(playerID string, err error) {
	r.send(playerID, types.ServerMessage{Type: "error", Error: err.Error()})
}

// abort kills this room only; a protocol error means the session state can
// no longer be trusted.
func (r *Room) abort(perr *game.ProtocolError) {
	r.log.Error("aborting room", zap.Error(perr))
	for id, c := range r.conns {
		if c.online {
			r.send(id, types.ServerMessage{Type: "error", Error: perr.Error()})
		}
	}
	r.terminal = true
	r.emitResult(Result{Code: r.code, Aborted: true, Participants: r.participants()})
	r.shutdown()
}

func (r *Room) emitResult(res Result) {
	if r.onTerminal == nil {
		return
	}
	// Off the loop goroutine: the callback may hit the database.
	go r.onTerminal(res)
}

func (r *Room) onlineCount() int {
	n := 0
	for _, c := range r.conns {
		if c.online {
			n++
		}
	}
	return n
}

func (r *Room) participants() []string {
	ids := make([]string, 0, len(r.conns))
	for _, p := range r.session.Players() {
		ids = append(ids, p.ID)
	}
	return ids
}

func (r *Room) shutdown() {
	if r.closed {
		return
	}
	r.closed = true
	for _, c := range r.conns {
		if c.outbox != nil {
			close(c.outbox)
			c.outbox = nil
		}
		c.online = false
	}
	r.cancel()
}
