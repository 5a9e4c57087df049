package game

import "math"

// Pocket is one of the four corner pockets.
type Pocket struct {
	ID       int  `json:"id"`
	Position Vec2 `json:"position"`
}

// Board holds the geometry of a session. It is derived once from the viewport and never changes.
type Board struct {
	Width         float64  `json:"width"`
	Height        float64  `json:"height"`
	Center        Vec2     `json:"center"`
	Radius        float64  `json:"radius"`
	CoinRadius    float64  `json:"coin_radius"`
	StrikerRadius float64  `json:"striker_radius"`
	PocketRadius  float64  `json:"pocket_radius"`
	Pockets       []Pocket `json:"pockets"`
	BaselineHalf  float64  `json:"baseline_half"`
	baselineDist  float64
}

// NewBoard derives the board from a viewport size. Non-positive sizes fall back to the default viewport.
func NewBoard(width, height float64) *Board {
	if width <= 0 || height <= 0 {
		width, height = DefaultViewport, DefaultViewport
	}
	r := math.Min(width, height) * BoardRadiusRatio
	c := Vec2{X: width / 2, Y: height / 2}
	off := r * PocketOffsetRatio

	return &Board{
		Width:         width,
		Height:        height,
		Center:        c,
		Radius:        r,
		CoinRadius:    r * CoinRadiusRatio,
		StrikerRadius: r * StrikerRadiusRatio,
		PocketRadius:  r * PocketRadiusRatio,
		Pockets: []Pocket{
			{ID: 0, Position: Vec2{X: c.X - off, Y: c.Y - off}},
			{ID: 1, Position: Vec2{X: c.X + off, Y: c.Y - off}},
			{ID: 2, Position: Vec2{X: c.X - off, Y: c.Y + off}},
			{ID: 3, Position: Vec2{X: c.X + off, Y: c.Y + off}},
		},
		BaselineHalf: r * BaselineHalfRatio,
		baselineDist: r * BaselineOffsetRatio,
	}
}

// BaselineY returns the y coordinate a player shoots from.
func (b *Board) BaselineY(p Player) float64 {
	if p == Player2 {
		return b.Center.Y - b.baselineDist
	}
	return b.Center.Y + b.baselineDist
}

// BaselineCenter is the default striker position for a player.
func (b *Board) BaselineCenter(p Player) Vec2 {
	return Vec2{X: b.Center.X, Y: b.BaselineY(p)}
}

// ClampBaselineX keeps x on the legal baseline segment.
func (b *Board) ClampBaselineX(x float64) float64 {
	if math.IsNaN(x) {
		return b.Center.X
	}
	return clamp(x, b.Center.X-b.BaselineHalf, b.Center.X+b.BaselineHalf)
}

// OnBaseline reports whether x lies on the legal segment.
func (b *Board) OnBaseline(x float64) bool {
	return x >= b.Center.X-b.BaselineHalf && x <= b.Center.X+b.BaselineHalf
}

// ForwardAngle is the straight-ahead shooting direction for a player.
func (b *Board) ForwardAngle(p Player) float64 {
	if p == Player2 {
		return math.Pi / 2
	}
	return -math.Pi / 2
}

// PlayingBounds returns the min and max legal center coordinate for a body of radius r.
func (b *Board) PlayingBounds(r float64) (lo, hi Vec2) {
	lo = Vec2{X: b.Center.X - b.Radius + r, Y: b.Center.Y - b.Radius + r}
	hi = Vec2{X: b.Center.X + b.Radius - r, Y: b.Center.Y + b.Radius - r}
	return lo, hi
}

// PocketAt returns the pocket whose capture radius contains p.
func (b *Board) PocketAt(p Vec2) (Pocket, bool) {
	for _, pk := range b.Pockets {
		if p.DistanceTo(pk.Position) < b.PocketRadius {
			return pk, true
		}
	}
	return Pocket{}, false
}

// StandardRack lays out 19 coins: the queen at the center, an inner ring of
// six and an outer ring of twelve, colours alternating white and black.
func (b *Board) StandardRack() []*Body {
	cr := b.CoinRadius
	coins := make([]*Body, 0, 2*CoinsPerColor+1)
	coins = append(coins, newCoin(QueenID, b.Center, cr, CategoryQueen))

	id := 1
	ring := func(count int, dist, offsetDeg float64) {
		for i := 0; i < count; i++ {
			a := (offsetDeg + float64(i)*360/float64(count)) * math.Pi / 180
			cat := CategoryWhite
			if i%2 == 1 {
				cat = CategoryBlack
			}
			coins = append(coins, newCoin(id, b.Center.Plus(FromAngle(a, dist)), cr, cat))
			id++
		}
	}
	ring(6, cr*2.1, 0)
	ring(12, cr*4.0, 15)
	return coins
}
