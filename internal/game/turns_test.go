package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_SkipsEliminatedSeats(t *testing.T) {
	sc := NewScheduler([]string{"P1", "P2", "P3", "P4"})
	sc.Eliminate("P2")

	assert.Equal(t, "P1", sc.Active())
	require.NoError(t, sc.Advance())
	assert.Equal(t, "P3", sc.Active())
	require.NoError(t, sc.Advance())
	assert.Equal(t, "P4", sc.Active())
	require.NoError(t, sc.Advance())
	assert.Equal(t, "P1", sc.Active())
}

func TestScheduler_NoPlayersRemain(t *testing.T) {
	sc := NewScheduler([]string{"P1", "P2", "P3"})
	sc.Eliminate("P2")
	sc.Eliminate("P3")

	assert.Equal(t, 1, sc.AliveCount())
	err := sc.Advance()
	assert.ErrorIs(t, err, ErrNoPlayersRemain)
	// No-op: the pointer stays put.
	assert.Equal(t, "P1", sc.Active())
}
