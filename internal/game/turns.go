package game

// Scheduler tracks the active player among the alive subset of the roster,
// in fixed seat order. It never decides game over; the session converts
// ErrNoPlayersRemain into the terminal phase.
type Scheduler struct {
	seats  []string
	alive  map[string]bool
	cursor int
}

func NewScheduler(seats []string) *Scheduler {
	alive := make(map[string]bool, len(seats))
	for _, id := range seats {
		alive[id] = true
	}
	return &Scheduler{seats: seats, alive: alive}
}

func (sc *Scheduler) Active() string {
	return sc.seats[sc.cursor]
}

func (sc *Scheduler) Eliminate(id string) {
	sc.alive[id] = false
}

func (sc *Scheduler) AliveCount() int {
	n := 0
	for _, ok := range sc.alive {
		if ok {
			n++
		}
	}
	return n
}

// Advance moves the pointer to the next alive seat, wrapping and skipping
// eliminated players. With one or zero players left it is a no-op and
// reports ErrNoPlayersRemain.
func (sc *Scheduler) Advance() error {
	if sc.AliveCount() <= 1 {
		return ErrNoPlayersRemain
	}
	for i := 0; i < len(sc.seats); i++ {
		sc.cursor = (sc.cursor + 1) % len(sc.seats)
		if sc.alive[sc.seats[sc.cursor]] {
			return nil
		}
	}
	return ErrNoPlayersRemain
}
