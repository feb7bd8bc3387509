package game

// View is the slice of the true state one player is allowed to observe.
// It is derived fresh from the session every time, which is what makes a
// reconnecting client's snapshot identical to the one it would have had
// without the gap.
type View struct {
	Phase   Phase            `json:"phase"`
	You     string           `json:"you"`
	Active  string           `json:"active,omitempty"`
	Players []PlayerView     `json:"players"`
	Common  []CommonAreaView `json:"common"`
	Winner  string           `json:"winner,omitempty"`
	Draw    bool             `json:"draw,omitempty"`
	Seq     int              `json:"seq"`
}

type PlayerView struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Seat       int         `json:"seat"`
	Eliminated bool        `json:"eliminated"`
	Deployed   bool        `json:"deployed"`
	HandCount  int         `json:"hand_count"`
	Hand       []int       `json:"hand,omitempty"`
	Lost       []int       `json:"lost"`
	Pieces     []PieceView `json:"pieces"`
}

type PieceView struct {
	Row      int  `json:"row"`
	Col      int  `json:"col"`
	Digit    *int `json:"digit,omitempty"`
	Revealed bool `json:"revealed"`
}

type CommonAreaView struct {
	Owner    string `json:"owner"`
	Digit    *int   `json:"digit,omitempty"`
	Revealed bool   `json:"revealed"`
}

// ViewFor projects the session for one player: their own digits in full,
// everyone else's pieces as opaque tokens until revealed by a duel. Phase,
// turn pointer, eliminations and lost digits are public.
func (s *Session) ViewFor(viewer string) View {
	v := View{
		Phase:  s.phase,
		You:    viewer,
		Active: s.Active(),
		Winner: s.winner,
		Draw:   s.draw,
		Seq:    s.seq,
	}

	for _, p := range s.players {
		pv := PlayerView{
			ID:         p.ID,
			Name:       p.Name,
			Seat:       p.Seat,
			Eliminated: p.Eliminated,
			Deployed:   p.Board.Deployed(),
			HandCount:  p.Board.HandCount(),
			Lost:       append([]int(nil), p.Lost...),
		}
		if p.ID == viewer {
			pv.Hand = p.Board.HandDigits()
		}
		for r := 0; r < s.cfg.Rows; r++ {
			for c := 0; c < s.cfg.Cols; c++ {
				piece := p.Board.PieceAt(Cell{Row: r, Col: c})
				if piece == nil {
					continue
				}
				pv.Pieces = append(pv.Pieces, PieceView{
					Row:      r,
					Col:      c,
					Digit:    visibleDigit(piece, viewer),
					Revealed: piece.Revealed,
				})
			}
		}
		v.Players = append(v.Players, pv)
	}

	for _, e := range s.common {
		v.Common = append(v.Common, CommonAreaView{
			Owner:    e.piece.Owner,
			Digit:    visibleDigit(e.piece, viewer),
			Revealed: e.piece.Revealed,
		})
	}
	return v
}

func visibleDigit(p *Piece, viewer string) *int {
	if p.Owner != viewer && !p.Revealed {
		return nil
	}
	d := p.Digit
	return &d
}
