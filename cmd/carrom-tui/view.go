package main

import (
	"math"

	"github.com/playmatatu/carrom/internal/game"
)

// cellAspect is how much taller a terminal cell is than it is wide.
const cellAspect = 2.0

// viewport maps board coordinates onto terminal cells. The board square is fitted
// into the area left of the HUD and centered.
type viewport struct {
	left, top float64 // board coordinate of the top-left corner of the square
	size      float64 // board side length
	col0, row0 int
	cols, rows int
}

func newViewport(b game.BoardView, width, height int) viewport {
	size := 2 * b.Radius
	if size <= 0 {
		size = 1
	}
	rows := height - 1
	cols := int(float64(rows) * cellAspect)
	if cols > width {
		cols = width
		rows = int(float64(cols) / cellAspect)
	}
	if rows < 1 {
		rows = 1
	}
	if cols < 1 {
		cols = 1
	}
	return viewport{
		left: b.Center.X - b.Radius,
		top:  b.Center.Y - b.Radius,
		size: size,
		col0: (width - cols) / 2,
		row0: 0,
		cols: cols,
		rows: rows,
	}
}

// toCell returns the terminal cell of a board point and whether it is on screen.
func (v viewport) toCell(x, y float64) (int, int, bool) {
	fx := (x - v.left) / v.size
	fy := (y - v.top) / v.size
	if math.IsNaN(fx) || math.IsNaN(fy) || fx < 0 || fx > 1 || fy < 0 || fy > 1 {
		return 0, 0, false
	}
	col := v.col0 + int(math.Min(fx*float64(v.cols), float64(v.cols-1)))
	row := v.row0 + int(math.Min(fy*float64(v.rows), float64(v.rows-1)))
	return col, row, true
}

// toBoard returns the board point at the center of a terminal cell.
func (v viewport) toBoard(col, row int) (float64, float64) {
	x := v.left + (float64(col-v.col0)+0.5)/float64(v.cols)*v.size
	y := v.top + (float64(row-v.row0)+0.5)/float64(v.rows)*v.size
	return x, y
}

// aimPath returns the cells of the aim guide: a dotted line from the striker in the
// aim direction whose length grows with power.
func (v viewport) aimPath(snap game.Snapshot) [][2]int {
	if !snap.Aim.Aiming || snap.Aim.Power <= 0 {
		return nil
	}
	length := snap.Aim.Power / game.MaxPower * v.size * 0.4
	dx, dy := math.Cos(snap.Aim.Angle), math.Sin(snap.Aim.Angle)
	var cells [][2]int
	seen := map[[2]int]bool{}
	step := v.size / float64(v.rows) / 2
	for d := snap.Striker.Radius + step; d <= length; d += step {
		col, row, ok := v.toCell(snap.Striker.X+dx*d, snap.Striker.Y+dy*d)
		if !ok {
			break
		}
		c := [2]int{col, row}
		if !seen[c] {
			seen[c] = true
			cells = append(cells, c)
		}
	}
	return cells
}
