package game

import "fmt"

type Phase string

const (
	PhaseDeployment Phase = "deployment"
	PhaseAction     Phase = "action"
	PhaseGameOver   Phase = "game_over"
)

type CommandType string

const (
	CmdPlace   CommandType = "Place"
	CmdAdvance CommandType = "Advance"
	CmdDuel    CommandType = "Duel"
	CmdRecycle CommandType = "Recycle"
	CmdPass    CommandType = "Pass"
)

type Command struct {
	Type   CommandType
	Player string
	Digit  int
	Cell   Cell
	// Duel only: whose piece to drag into the common area, and from where.
	Target     string
	TargetCell Cell
}

type EventType string

const (
	EvtGameStarted        EventType = "game_started"
	EvtPiecePlaced        EventType = "piece_placed"
	EvtDeploymentComplete EventType = "deployment_complete"
	EvtTurnChanged        EventType = "turn_changed"
	EvtDuel               EventType = "duel"
	EvtPlayerEliminated   EventType = "player_eliminated"
	EvtGameEnded          EventType = "game_ended"
)

type Event struct {
	Type   EventType
	Player string
	Target string
	// Duel only. DigitA belongs to Player (the initiator), DigitB to Target.
	DigitA  int
	DigitB  int
	Outcome Outcome
	// GameEnded only; empty means a draw.
	Winner string
}

type Seat struct {
	ID   string
	Name string
}

type Player struct {
	ID         string
	Name       string
	Seat       int
	Eliminated bool
	Board      *Board
	// Digits lost to duels, public knowledge.
	Lost []int
}

// commonEntry is a piece sitting in the shared contest area, ordered by
// arrival. Duels pair an arriving piece with the earliest opposing one.
type commonEntry struct {
	piece   *Piece
	arrived int
}

// Session is the authoritative state of one running game. It is the only
// writer of that state and is not safe for concurrent use; the room actor
// serializes access to it.
type Session struct {
	cfg      Config
	phase    Phase
	players  []*Player
	byID     map[string]*Player
	sched    *Scheduler
	common   []commonEntry
	arrivals int
	seq      int
	winner   string
	draw     bool
	// Applied-event log, diagnostics only. Reconnection uses ViewFor, never
	// a replay of this.
	log []Event
}

// NewSession starts a game in the Deployment phase for a 3-5 player roster
// in seat order.
func NewSession(cfg Config, roster []Seat) (*Session, []Event, error) {
	if len(roster) < 3 || len(roster) > 5 {
		return nil, nil, fmt.Errorf("roster size %d not in [3,5]", len(roster))
	}
	s := &Session{
		cfg:   cfg,
		phase: PhaseDeployment,
		byID:  make(map[string]*Player, len(roster)),
	}
	seats := make([]string, 0, len(roster))
	for i, seat := range roster {
		if _, dup := s.byID[seat.ID]; dup {
			return nil, nil, fmt.Errorf("duplicate player %q in roster", seat.ID)
		}
		p := &Player{ID: seat.ID, Name: seat.Name, Seat: i, Board: NewBoard(cfg)}
		s.players = append(s.players, p)
		s.byID[seat.ID] = p
		seats = append(seats, seat.ID)
	}
	s.sched = NewScheduler(seats)

	events := []Event{{Type: EvtGameStarted}}
	s.log = append(s.log, events...)
	return s, events, nil
}

func (s *Session) Phase() Phase   { return s.phase }
func (s *Session) Winner() string { return s.winner }
func (s *Session) Draw() bool     { return s.draw }
func (s *Session) Seq() int       { return s.seq }

func (s *Session) Player(id string) (*Player, bool) {
	p, ok := s.byID[id]
	return p, ok
}

func (s *Session) Players() []*Player { return s.players }

// Active returns the player whose turn it is, or "" outside the Action
// phase.
func (s *Session) Active() string {
	if s.phase != PhaseAction {
		return ""
	}
	return s.sched.Active()
}

func (s *Session) Events() []Event { return s.log }

// Apply validates and applies one command. On error the state is untouched
// and the turn is not consumed; only a *ProtocolError means the session is
// no longer trustworthy.
func (s *Session) Apply(cmd Command) ([]Event, error) {
	p, ok := s.byID[cmd.Player]
	if !ok {
		return nil, ErrIllegalMove
	}

	switch s.phase {
	case PhaseDeployment:
		if cmd.Type != CmdPlace {
			return nil, ErrWrongPhase
		}
		return s.applyPlace(p, cmd)

	case PhaseAction:
		if cmd.Type == CmdPlace {
			return nil, ErrWrongPhase
		}
		if p.Eliminated || s.sched.Active() != p.ID {
			return nil, ErrNotYourTurn
		}
		return s.applyAction(p, cmd)

	default:
		return nil, ErrWrongPhase
	}
}

// applyPlace handles deployment. Placement is not turn-ordered; everyone
// deploys concurrently until each has placed all ten digits.
func (s *Session) applyPlace(p *Player, cmd Command) ([]Event, error) {
	if p.Board.Deployed() {
		return nil, ErrInvalidPlacement
	}
	if err := p.Board.Place(p.ID, cmd.Digit, cmd.Cell); err != nil {
		return nil, err
	}

	events := []Event{{Type: EvtPiecePlaced, Player: p.ID}}
	for _, q := range s.players {
		if !q.Board.Deployed() {
			s.log = append(s.log, events...)
			return events, nil
		}
	}

	s.phase = PhaseAction
	events = append(events,
		Event{Type: EvtDeploymentComplete},
		Event{Type: EvtTurnChanged, Player: s.sched.Active()},
	)
	s.log = append(s.log, events...)
	return events, nil
}

func (s *Session) applyAction(p *Player, cmd Command) ([]Event, error) {
	var events []Event
	var err error

	switch cmd.Type {
	case CmdAdvance:
		events, err = s.applyAdvance(p, cmd)
	case CmdDuel:
		events, err = s.applyDuel(p, cmd)
	case CmdRecycle:
		err = p.Board.Withdraw(cmd.Cell)
	case CmdPass:
		// Forfeits the turn, no board change.
	default:
		err = ErrUnsupportedCommand
	}
	if err != nil {
		return nil, err
	}

	s.seq++
	tail, err := s.finishTurn()
	events = append(events, tail...)
	s.log = append(s.log, events...)
	return events, err
}

// applyAdvance moves a piece one row forward. Crossing the front row puts
// the piece in the common area; if an opposing piece is already waiting
// there, resolution runs immediately against the earliest arrival and keeps
// running while opposing pieces remain.
func (s *Session) applyAdvance(p *Player, cmd Command) ([]Event, error) {
	left, err := p.Board.Step(cmd.Cell)
	if err != nil {
		return nil, err
	}
	if left == nil {
		return nil, nil
	}

	s.arrivals++
	s.common = append(s.common, commonEntry{piece: left, arrived: s.arrivals})

	def := s.earliestOpposing(p.ID)
	if def == nil {
		return nil, nil
	}
	events := s.resolveDuel(left, def.piece)
	return append(events, s.settleCommon()...), nil
}

// applyDuel drags an opposing grid piece into the common area to fight the
// mover's earliest piece already there.
func (s *Session) applyDuel(p *Player, cmd Command) ([]Event, error) {
	champ := s.earliestOwned(p.ID)
	if champ == nil {
		return nil, ErrIllegalMove
	}
	target, ok := s.byID[cmd.Target]
	if !ok || target.ID == p.ID || target.Eliminated {
		return nil, ErrIllegalMove
	}
	dragged := target.Board.Take(cmd.TargetCell)
	if dragged == nil {
		return nil, ErrIllegalMove
	}

	s.arrivals++
	s.common = append(s.common, commonEntry{piece: dragged, arrived: s.arrivals})
	events := s.resolveDuel(champ.piece, dragged)
	return append(events, s.settleCommon()...), nil
}

// settleCommon resolves until the common area holds at most one owner's
// pieces. Each round pairs the earliest arrival with the earliest piece
// opposing it; the later arrival is the attacker.
func (s *Session) settleCommon() []Event {
	var events []Event
	for {
		def := s.earliestCommon()
		if def == nil {
			return events
		}
		att := s.earliestOpposing(def.piece.Owner)
		if att == nil {
			return events
		}
		events = append(events, s.resolveDuel(att.piece, def.piece)...)
	}
}

// resolveDuel applies the resolver outcome: both pieces are revealed to
// everyone, the loser (or both) leaves the common area, and elimination is
// checked for both owners.
func (s *Session) resolveDuel(att, def *Piece) []Event {
	att.Revealed = true
	def.Revealed = true
	out := Resolve(att.Digit, def.Digit)

	events := []Event{{
		Type:    EvtDuel,
		Player:  att.Owner,
		Target:  def.Owner,
		DigitA:  att.Digit,
		DigitB:  def.Digit,
		Outcome: out,
	}}

	switch out {
	case BothEliminated:
		s.removeCommon(att)
		s.removeCommon(def)
		s.byID[att.Owner].Lost = append(s.byID[att.Owner].Lost, att.Digit)
		s.byID[def.Owner].Lost = append(s.byID[def.Owner].Lost, def.Digit)
	case AWins:
		s.removeCommon(def)
		s.byID[def.Owner].Lost = append(s.byID[def.Owner].Lost, def.Digit)
	case BWins:
		s.removeCommon(att)
		s.byID[att.Owner].Lost = append(s.byID[att.Owner].Lost, att.Digit)
	}

	events = append(events, s.checkElimination(att.Owner)...)
	if def.Owner != att.Owner {
		events = append(events, s.checkElimination(def.Owner)...)
	}
	return events
}

// finishTurn runs after every consumed turn: close the game when at most
// one player is left, otherwise hand the turn to the next alive seat.
func (s *Session) finishTurn() ([]Event, error) {
	if s.sched.AliveCount() <= 1 {
		s.phase = PhaseGameOver
		for _, p := range s.players {
			if !p.Eliminated {
				s.winner = p.ID
			}
		}
		s.draw = s.winner == ""
		return []Event{{Type: EvtGameEnded, Winner: s.winner}}, nil
	}
	if err := s.sched.Advance(); err != nil {
		return nil, &ProtocolError{Reason: "scheduler failed with players alive: " + err.Error()}
	}
	return []Event{{Type: EvtTurnChanged, Player: s.sched.Active()}}, nil
}

// checkElimination removes a player who has nothing left anywhere: no grid
// pieces, no common-area pieces, and an empty hand.
func (s *Session) checkElimination(id string) []Event {
	p := s.byID[id]
	if p == nil || p.Eliminated {
		return nil
	}
	if p.Board.GridCount() > 0 || p.Board.HandCount() > 0 || s.commonCount(id) > 0 {
		return nil
	}
	p.Eliminated = true
	s.sched.Eliminate(id)
	return []Event{{Type: EvtPlayerEliminated, Player: id}}
}

func (s *Session) commonCount(owner string) int {
	n := 0
	for _, e := range s.common {
		if e.piece.Owner == owner {
			n++
		}
	}
	return n
}

func (s *Session) earliestCommon() *commonEntry {
	var best *commonEntry
	for i := range s.common {
		e := &s.common[i]
		if best == nil || e.arrived < best.arrived {
			best = e
		}
	}
	return best
}

func (s *Session) earliestOpposing(owner string) *commonEntry {
	var best *commonEntry
	for i := range s.common {
		e := &s.common[i]
		if e.piece.Owner == owner {
			continue
		}
		if best == nil || e.arrived < best.arrived {
			best = e
		}
	}
	return best
}

func (s *Session) earliestOwned(owner string) *commonEntry {
	var best *commonEntry
	for i := range s.common {
		e := &s.common[i]
		if e.piece.Owner != owner {
			continue
		}
		if best == nil || e.arrived < best.arrived {
			best = e
		}
	}
	return best
}

func (s *Session) removeCommon(p *Piece) {
	for i := range s.common {
		if s.common[i].piece == p {
			s.common = append(s.common[:i], s.common[i+1:]...)
			return
		}
	}
}
