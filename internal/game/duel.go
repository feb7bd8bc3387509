package game

type Outcome string

const (
	AWins          Outcome = "a_wins"
	BWins          Outcome = "b_wins"
	BothEliminated Outcome = "both_eliminated"
)

// Resolve decides a duel between two digits. Checks run in priority order;
// the special pairs override the general rule. The general rank order is
// reversed: 0 is the strongest digit and 9 the weakest, so the lower digit
// wins. Exceptions: equal digits destroy each other, 0 against 6 or 9
// destroys both, and 8 beats 0.
func Resolve(a, b int) Outcome {
	if a == b {
		return BothEliminated
	}

	lo, hi := a, b
	if lo > hi {
		lo, hi = hi, lo
	}

	if lo == 0 && (hi == 6 || hi == 9) {
		return BothEliminated
	}

	if lo == 0 && hi == 8 {
		if a == 8 {
			return AWins
		}
		return BWins
	}

	if a < b {
		return AWins
	}
	return BWins
}
