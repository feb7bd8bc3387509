package game

// Cell addresses one square on a player's personal grid. Row 0 is the front
// row; stepping forward from it leaves the grid for the common area.
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

type Piece struct {
	Owner    string
	Digit    int
	Revealed bool
}

// Config carries the per-room grid geometry. All supported room sizes
// currently share the original 3x6 layout, but the zone shape is kept
// configurable.
type Config struct {
	Rows int
	Cols int
}

func DefaultConfig() Config {
	return Config{Rows: 3, Cols: 6}
}

// Board is one player's personal grid plus their hand. Each of the digits
// 0-9 is deployed exactly once; the board never changes a digit after
// placement, only its location.
type Board struct {
	cfg  Config
	grid [][]*Piece
	hand []*Piece
	used map[int]bool
}

func NewBoard(cfg Config) *Board {
	grid := make([][]*Piece, cfg.Rows)
	for r := range grid {
		grid[r] = make([]*Piece, cfg.Cols)
	}
	return &Board{cfg: cfg, grid: grid, used: make(map[int]bool)}
}

func (b *Board) InZone(c Cell) bool {
	return c.Row >= 0 && c.Row < b.cfg.Rows && c.Col >= 0 && c.Col < b.cfg.Cols
}

func (b *Board) PieceAt(c Cell) *Piece {
	if !b.InZone(c) {
		return nil
	}
	return b.grid[c.Row][c.Col]
}

// Place deploys a digit onto an empty cell. Each digit may be placed once.
func (b *Board) Place(owner string, digit int, c Cell) error {
	if digit < 0 || digit > 9 {
		return ErrInvalidPlacement
	}
	if !b.InZone(c) {
		return ErrInvalidPlacement
	}
	if b.grid[c.Row][c.Col] != nil {
		return ErrInvalidPlacement
	}
	if b.used[digit] {
		return ErrInvalidPlacement
	}
	b.grid[c.Row][c.Col] = &Piece{Owner: owner, Digit: digit}
	b.used[digit] = true
	return nil
}

func (b *Board) Deployed() bool {
	return len(b.used) == 10
}

// Step moves the piece at from one row toward the front. From row 0 the
// piece leaves the grid and is returned to the caller, which places it in
// the common area. Within the grid the destination must be empty.
func (b *Board) Step(from Cell) (*Piece, error) {
	p := b.PieceAt(from)
	if p == nil {
		return nil, ErrIllegalMove
	}
	if from.Row == 0 {
		b.grid[from.Row][from.Col] = nil
		return p, nil
	}
	to := Cell{Row: from.Row - 1, Col: from.Col}
	if b.grid[to.Row][to.Col] != nil {
		return nil, ErrIllegalMove
	}
	b.grid[to.Row][to.Col] = p
	b.grid[from.Row][from.Col] = nil
	return nil, nil
}

// Withdraw pulls the piece at c back into the hand. Hand pieces cannot
// re-enter play after Deployment; they only keep their owner alive.
func (b *Board) Withdraw(c Cell) error {
	p := b.PieceAt(c)
	if p == nil {
		return ErrIllegalMove
	}
	b.grid[c.Row][c.Col] = nil
	b.hand = append(b.hand, p)
	return nil
}

// Take removes and returns the piece at c, or nil if the cell is empty.
func (b *Board) Take(c Cell) *Piece {
	p := b.PieceAt(c)
	if p == nil {
		return nil
	}
	b.grid[c.Row][c.Col] = nil
	return p
}

func (b *Board) GridCount() int {
	n := 0
	for _, row := range b.grid {
		for _, p := range row {
			if p != nil {
				n++
			}
		}
	}
	return n
}

func (b *Board) HandCount() int {
	return len(b.hand)
}

func (b *Board) HandDigits() []int {
	out := make([]int, 0, len(b.hand))
	for _, p := range b.hand {
		out = append(out, p.Digit)
	}
	return out
}
