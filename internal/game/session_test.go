package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roster3() []Seat {
	return []Seat{{ID: "p1", Name: "One"}, {ID: "p2", Name: "Two"}, {ID: "p3", Name: "Three"}}
}

func newTestSession(t *testing.T, roster []Seat) *Session {
	t.Helper()
	s, events, err := NewSession(DefaultConfig(), roster)
	require.NoError(t, err)
	require.Equal(t, EvtGameStarted, events[0].Type)
	return s
}

// deployAll places digit d at cell (d/6, d%6) for every player: the front
// row holds 0-5, the middle row 6-9.
func deployAll(t *testing.T, s *Session) {
	t.Helper()
	for _, p := range s.Players() {
		for d := 0; d <= 9; d++ {
			_, err := s.Apply(Command{
				Type: CmdPlace, Player: p.ID, Digit: d,
				Cell: Cell{Row: d / 6, Col: d % 6},
			})
			require.NoError(t, err)
		}
	}
	require.Equal(t, PhaseAction, s.Phase())
}

// strip empties a player's grid except the front-row cell at col, which
// (after deployAll) holds the digit equal to col.
func strip(p *Player, col int) {
	for r := 0; r < 3; r++ {
		for c := 0; c < 6; c++ {
			if r == 0 && c == col {
				continue
			}
			p.Board.Take(Cell{Row: r, Col: c})
		}
	}
}

func TestSession_RosterSizeBounds(t *testing.T) {
	_, _, err := NewSession(DefaultConfig(), []Seat{{ID: "a"}, {ID: "b"}})
	assert.Error(t, err)
	_, _, err = NewSession(DefaultConfig(), []Seat{
		{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}, {ID: "e"}, {ID: "f"},
	})
	assert.Error(t, err)
}

func TestSession_DeploymentCompletesIntoAction(t *testing.T) {
	s := newTestSession(t, roster3())
	assert.Equal(t, PhaseDeployment, s.Phase())

	var last []Event
	for _, p := range s.Players() {
		for d := 0; d <= 9; d++ {
			events, err := s.Apply(Command{
				Type: CmdPlace, Player: p.ID, Digit: d,
				Cell: Cell{Row: d / 6, Col: d % 6},
			})
			require.NoError(t, err)
			last = events
		}
	}

	assert.Equal(t, PhaseAction, s.Phase())
	types := make([]EventType, 0, len(last))
	for _, ev := range last {
		types = append(types, ev.Type)
	}
	assert.Contains(t, types, EvtDeploymentComplete)
	assert.Contains(t, types, EvtTurnChanged)
	assert.Equal(t, "p1", s.Active())
}

func TestSession_DuplicateDigitRejected(t *testing.T) {
	s := newTestSession(t, roster3())
	_, err := s.Apply(Command{Type: CmdPlace, Player: "p1", Digit: 4, Cell: Cell{Row: 0, Col: 0}})
	require.NoError(t, err)
	_, err = s.Apply(Command{Type: CmdPlace, Player: "p1", Digit: 4, Cell: Cell{Row: 0, Col: 1}})
	assert.ErrorIs(t, err, ErrInvalidPlacement)
}

func TestSession_ActionDuringDeploymentRejected(t *testing.T) {
	s := newTestSession(t, roster3())
	_, err := s.Apply(Command{Type: CmdAdvance, Player: "p1", Cell: Cell{Row: 0, Col: 0}})
	assert.ErrorIs(t, err, ErrWrongPhase)
}

func TestSession_PlaceDuringActionRejected(t *testing.T) {
	s := newTestSession(t, roster3())
	deployAll(t, s)
	_, err := s.Apply(Command{Type: CmdPlace, Player: "p1", Digit: 4, Cell: Cell{Row: 2, Col: 0}})
	assert.ErrorIs(t, err, ErrWrongPhase)
}

func TestSession_RejectedActionConsumesNothing(t *testing.T) {
	s := newTestSession(t, roster3())
	deployAll(t, s)
	require.Equal(t, "p1", s.Active())

	_, err := s.Apply(Command{Type: CmdAdvance, Player: "p2", Cell: Cell{Row: 0, Col: 0}})
	assert.ErrorIs(t, err, ErrNotYourTurn)

	// Legal mover, empty source cell.
	_, err = s.Apply(Command{Type: CmdAdvance, Player: "p1", Cell: Cell{Row: 2, Col: 0}})
	assert.ErrorIs(t, err, ErrIllegalMove)

	assert.Equal(t, "p1", s.Active())
	assert.Equal(t, 0, s.Seq())
}

func TestSession_PassRotatesTurn(t *testing.T) {
	s := newTestSession(t, roster3())
	deployAll(t, s)

	events, err := s.Apply(Command{Type: CmdPass, Player: "p1"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EvtTurnChanged, events[0].Type)
	assert.Equal(t, "p2", s.Active())
}

func TestSession_RecycleMovesPieceToHand(t *testing.T) {
	s := newTestSession(t, roster3())
	deployAll(t, s)

	_, err := s.Apply(Command{Type: CmdRecycle, Player: "p1", Cell: Cell{Row: 1, Col: 0}})
	require.NoError(t, err)

	p1, _ := s.Player("p1")
	assert.Equal(t, 9, p1.Board.GridCount())
	assert.Equal(t, []int{6}, p1.Board.HandDigits())
	assert.Equal(t, "p2", s.Active())
}

// The end-to-end scenario: P1 advances into the common area, P2 follows
// with the same digit, both pieces die revealed, and the turn reaches P3.
func TestSession_MutualEliminationDuel(t *testing.T) {
	s := newTestSession(t, roster3())
	deployAll(t, s)

	// P1 pushes digit 3 off the front row.
	events, err := s.Apply(Command{Type: CmdAdvance, Player: "p1", Cell: Cell{Row: 0, Col: 3}})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EvtTurnChanged, events[0].Type)
	assert.Equal(t, "p2", s.Active())

	// P2's digit 3 arrives and fights it.
	events, err = s.Apply(Command{Type: CmdAdvance, Player: "p2", Cell: Cell{Row: 0, Col: 3}})
	require.NoError(t, err)

	require.Equal(t, EvtDuel, events[0].Type)
	assert.Equal(t, "p2", events[0].Player)
	assert.Equal(t, "p1", events[0].Target)
	assert.Equal(t, 3, events[0].DigitA)
	assert.Equal(t, 3, events[0].DigitB)
	assert.Equal(t, BothEliminated, events[0].Outcome)

	p1, _ := s.Player("p1")
	p2, _ := s.Player("p2")
	assert.Equal(t, []int{3}, p1.Lost)
	assert.Equal(t, []int{3}, p2.Lost)
	assert.Equal(t, "p3", s.Active())
}

// An arriving piece fights through every waiting opponent, not just the
// first: the common area never settles with both sides still in it.
func TestSession_ArrivalChainsDuelsUntilOneSideRemains(t *testing.T) {
	s := newTestSession(t, roster3())
	deployAll(t, s)

	// P1 parks digit 5, then digit 2, in the common area.
	_, err := s.Apply(Command{Type: CmdAdvance, Player: "p1", Cell: Cell{Row: 0, Col: 5}})
	require.NoError(t, err)
	_, err = s.Apply(Command{Type: CmdPass, Player: "p2"})
	require.NoError(t, err)
	_, err = s.Apply(Command{Type: CmdPass, Player: "p3"})
	require.NoError(t, err)
	_, err = s.Apply(Command{Type: CmdAdvance, Player: "p1", Cell: Cell{Row: 0, Col: 2}})
	require.NoError(t, err)

	// P2's 3 arrives: it kills the 5, then falls to the 2.
	events, err := s.Apply(Command{Type: CmdAdvance, Player: "p2", Cell: Cell{Row: 0, Col: 3}})
	require.NoError(t, err)

	require.Len(t, events, 3)
	assert.Equal(t, EvtDuel, events[0].Type)
	assert.Equal(t, 3, events[0].DigitA)
	assert.Equal(t, 5, events[0].DigitB)
	assert.Equal(t, AWins, events[0].Outcome)
	assert.Equal(t, EvtDuel, events[1].Type)
	assert.Equal(t, 3, events[1].DigitA)
	assert.Equal(t, 2, events[1].DigitB)
	assert.Equal(t, BWins, events[1].Outcome)
	assert.Equal(t, EvtTurnChanged, events[2].Type)

	p1, _ := s.Player("p1")
	p2, _ := s.Player("p2")
	assert.Equal(t, []int{5}, p1.Lost)
	assert.Equal(t, []int{3}, p2.Lost)

	// Only one side's pieces remain.
	v := s.ViewFor("p3")
	require.Len(t, v.Common, 1)
	assert.Equal(t, "p1", v.Common[0].Owner)
	require.NotNil(t, v.Common[0].Digit)
	assert.Equal(t, 2, *v.Common[0].Digit)
}

func TestSession_DuelCommandDragsTargetPiece(t *testing.T) {
	s := newTestSession(t, roster3())
	deployAll(t, s)

	// Without a common-area piece a challenge is illegal.
	_, err := s.Apply(Command{Type: CmdDuel, Player: "p1", Target: "p2", TargetCell: Cell{Row: 0, Col: 5}})
	assert.ErrorIs(t, err, ErrIllegalMove)

	// P1 stations digit 0 in the common area, others pass.
	_, err = s.Apply(Command{Type: CmdAdvance, Player: "p1", Cell: Cell{Row: 0, Col: 0}})
	require.NoError(t, err)
	_, err = s.Apply(Command{Type: CmdPass, Player: "p2"})
	require.NoError(t, err)
	_, err = s.Apply(Command{Type: CmdPass, Player: "p3"})
	require.NoError(t, err)

	// P1 challenges P2's digit 5: 0 beats 5 by the general rule.
	events, err := s.Apply(Command{Type: CmdDuel, Player: "p1", Target: "p2", TargetCell: Cell{Row: 0, Col: 5}})
	require.NoError(t, err)
	require.Equal(t, EvtDuel, events[0].Type)
	assert.Equal(t, 0, events[0].DigitA)
	assert.Equal(t, 5, events[0].DigitB)
	assert.Equal(t, AWins, events[0].Outcome)

	p2, _ := s.Player("p2")
	assert.Equal(t, []int{5}, p2.Lost)
	assert.Equal(t, 9, p2.Board.GridCount())
}

func TestSession_WinnerWhenOnePlayerLeft(t *testing.T) {
	s := newTestSession(t, roster3())
	deployAll(t, s)
	p2, _ := s.Player("p2")
	p3, _ := s.Player("p3")
	strip(p2, 3)
	strip(p3, 3)

	_, err := s.Apply(Command{Type: CmdPass, Player: "p1"})
	require.NoError(t, err)
	_, err = s.Apply(Command{Type: CmdAdvance, Player: "p2", Cell: Cell{Row: 0, Col: 3}})
	require.NoError(t, err)

	events, err := s.Apply(Command{Type: CmdAdvance, Player: "p3", Cell: Cell{Row: 0, Col: 3}})
	require.NoError(t, err)

	var got []EventType
	for _, ev := range events {
		got = append(got, ev.Type)
	}
	assert.Equal(t, []EventType{EvtDuel, EvtPlayerEliminated, EvtPlayerEliminated, EvtGameEnded}, got)
	assert.Equal(t, PhaseGameOver, s.Phase())
	assert.Equal(t, "p1", s.Winner())
	assert.False(t, s.Draw())

	// Terminal phase rejects everything.
	_, err = s.Apply(Command{Type: CmdPass, Player: "p1"})
	assert.ErrorIs(t, err, ErrWrongPhase)
}

func TestSession_DrawWhenLastTwoEliminateEachOther(t *testing.T) {
	s := newTestSession(t, roster3())
	deployAll(t, s)
	for _, id := range []string{"p1", "p2"} {
		p, _ := s.Player(id)
		strip(p, 3)
	}
	p3, _ := s.Player("p3")
	strip(p3, 5)

	_, err := s.Apply(Command{Type: CmdPass, Player: "p1"})
	require.NoError(t, err)
	_, err = s.Apply(Command{Type: CmdPass, Player: "p2"})
	require.NoError(t, err)
	// P3's 5 waits in the common area.
	_, err = s.Apply(Command{Type: CmdAdvance, Player: "p3", Cell: Cell{Row: 0, Col: 5}})
	require.NoError(t, err)
	// P1's 3 kills it; P3 is out.
	_, err = s.Apply(Command{Type: CmdAdvance, Player: "p1", Cell: Cell{Row: 0, Col: 3}})
	require.NoError(t, err)
	assert.Equal(t, PhaseAction, s.Phase())

	// P2's 3 meets P1's 3: mutual elimination empties the game.
	events, err := s.Apply(Command{Type: CmdAdvance, Player: "p2", Cell: Cell{Row: 0, Col: 3}})
	require.NoError(t, err)

	last := events[len(events)-1]
	assert.Equal(t, EvtGameEnded, last.Type)
	assert.Equal(t, "", last.Winner)
	assert.Equal(t, PhaseGameOver, s.Phase())
	assert.True(t, s.Draw())
	assert.Equal(t, "", s.Winner())
}
