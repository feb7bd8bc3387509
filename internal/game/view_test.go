package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewFor_HidesUnrevealedOpponentDigits(t *testing.T) {
	s := newTestSession(t, roster3())
	deployAll(t, s)

	v := s.ViewFor("p1")
	assert.Equal(t, "p1", v.You)
	assert.Equal(t, PhaseAction, v.Phase)
	assert.Equal(t, "p1", v.Active)

	for _, pv := range v.Players {
		require.Len(t, pv.Pieces, 10)
		for _, piece := range pv.Pieces {
			if pv.ID == "p1" {
				require.NotNil(t, piece.Digit, "own digits are visible")
			} else {
				assert.Nil(t, piece.Digit, "opponent digit leaked for %s", pv.ID)
			}
		}
	}
}

func TestViewFor_HandDigitsOnlyForOwner(t *testing.T) {
	s := newTestSession(t, roster3())
	deployAll(t, s)
	_, err := s.Apply(Command{Type: CmdRecycle, Player: "p1", Cell: Cell{Row: 1, Col: 0}})
	require.NoError(t, err)

	own := s.ViewFor("p1")
	other := s.ViewFor("p2")
	for _, pv := range own.Players {
		if pv.ID == "p1" {
			assert.Equal(t, []int{6}, pv.Hand)
			assert.Equal(t, 1, pv.HandCount)
		}
	}
	for _, pv := range other.Players {
		if pv.ID == "p1" {
			assert.Nil(t, pv.Hand)
			assert.Equal(t, 1, pv.HandCount, "hand size is public")
		}
	}
}

func TestViewFor_RevealedPiecesArePublic(t *testing.T) {
	s := newTestSession(t, roster3())
	deployAll(t, s)

	// P1's 0 survives a duel against P2's 5 and stays in the common area,
	// revealed.
	_, err := s.Apply(Command{Type: CmdAdvance, Player: "p1", Cell: Cell{Row: 0, Col: 0}})
	require.NoError(t, err)
	_, err = s.Apply(Command{Type: CmdAdvance, Player: "p2", Cell: Cell{Row: 0, Col: 5}})
	require.NoError(t, err)

	v := s.ViewFor("p3")
	require.Len(t, v.Common, 1)
	assert.Equal(t, "p1", v.Common[0].Owner)
	assert.True(t, v.Common[0].Revealed)
	require.NotNil(t, v.Common[0].Digit)
	assert.Equal(t, 0, *v.Common[0].Digit)

	// Lost digits are public knowledge too.
	for _, pv := range v.Players {
		if pv.ID == "p2" {
			assert.Equal(t, []int{5}, pv.Lost)
		}
	}
}

// A projection is a pure function of the current state: deriving it twice,
// or after a gap of any length, yields the same thing. This is what makes
// full-snapshot reconnection correct.
func TestViewFor_Rederivable(t *testing.T) {
	s := newTestSession(t, roster3())
	deployAll(t, s)

	before := s.ViewFor("p2")
	again := s.ViewFor("p2")
	assert.Equal(t, before, again)

	_, err := s.Apply(Command{Type: CmdAdvance, Player: "p1", Cell: Cell{Row: 0, Col: 2}})
	require.NoError(t, err)

	after := s.ViewFor("p2")
	assert.Equal(t, after, s.ViewFor("p2"))
	assert.NotEqual(t, before, after)
}
