package game

// Category identifies what a body is for scoring.
type Category string

const (
	CategoryWhite   Category = "white"
	CategoryBlack   Category = "black"
	CategoryQueen   Category = "queen"
	CategoryStriker Category = "striker"
)

// Player is a seat number: 1 shoots from the bottom baseline, 2 from the top.
type Player int

const (
	NoPlayer Player = 0
	Player1  Player = 1
	Player2  Player = 2
)

// Opponent returns the other seat.
func (p Player) Opponent() Player {
	if p == Player1 {
		return Player2
	}
	return Player1
}

// Color returns the coin colour a player owns. Player 1 owns white.
func (p Player) Color() Category {
	if p == Player1 {
		return CategoryWhite
	}
	return CategoryBlack
}

func (p Player) index() int {
	return int(p) - 1
}

// ownerOf returns the player owning a colour, or NoPlayer for the queen and striker.
func ownerOf(c Category) Player {
	switch c {
	case CategoryWhite:
		return Player1
	case CategoryBlack:
		return Player2
	}
	return NoPlayer
}

// Body is a disc on the board: a coin or the striker.
type Body struct {
	ID       int      `json:"id"`
	Position Vec2     `json:"position"`
	Velocity Vec2     `json:"velocity"`
	Radius   float64  `json:"radius"`
	Mass     float64  `json:"mass"`
	Category Category `json:"category"`
}

// Moving reports whether either velocity axis is non-zero.
func (b *Body) Moving() bool {
	return !b.Velocity.IsZero()
}

func (b *Body) stop() {
	b.Velocity = Vec2{}
}

func (b *Body) clone() *Body {
	c := *b
	return &c
}

func newCoin(id int, pos Vec2, radius float64, cat Category) *Body {
	return &Body{ID: id, Position: pos, Radius: radius, Mass: CoinMass, Category: cat}
}

func newStriker(pos Vec2, radius float64) *Body {
	return &Body{ID: StrikerID, Position: pos, Radius: radius, Mass: StrikerMass, Category: CategoryStriker}
}
