// Command carrom-tui plays carrom in a terminal: against the computer, or two players
// sharing one keyboard and mouse.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/playmatatu/carrom/internal/config"
	"github.com/playmatatu/carrom/internal/game"
)

const maxMessages = 6

type Game struct {
	screen tcell.Screen
	runner *game.Runner
	local  bool // both seats at this keyboard

	dragging bool

	mu       sync.Mutex
	snap     game.Snapshot
	haveSnap bool
	messages []string
}

func NewGame(local bool, seed int64) (*Game, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}
	screen.EnableMouse()

	g := &Game{screen: screen, local: local}

	seats := [2]game.Seat{game.SeatHuman, game.SeatAI}
	if local {
		seats[1] = game.SeatHuman
	}
	s := game.NewSession(game.SessionOptions{
		Seats:  seats,
		Tuning: game.TuningFromConfig(config.Load()),
		Seed:   seed,
		Sink:   game.SinkFunc(g.onEvent),
	})
	g.runner = game.NewRunner(s, g.onSnapshot)
	return g, nil
}

func (g *Game) onSnapshot(snap game.Snapshot) {
	g.mu.Lock()
	g.snap = snap
	g.haveSnap = true
	g.mu.Unlock()
}

func (g *Game) onEvent(e game.Event) {
	var msg string
	switch e.Type {
	case game.EventCoinPotted:
		msg = fmt.Sprintf("P%d potted a %s coin", e.Player, e.Category)
	case game.EventQueenCaptured:
		msg = fmt.Sprintf("P%d captured the queen, cover it!", e.Player)
	case game.EventQueenCovered:
		msg = fmt.Sprintf("P%d covered the queen", e.Player)
	case game.EventQueenReturned:
		msg = "Queen returned to the center"
	case game.EventFoul:
		msg = fmt.Sprintf("Foul by P%d: %s (-%d)", e.Player, e.Reason, e.Penalty)
	case game.EventTurnSwitched:
		msg = fmt.Sprintf("P%d to play", e.Player)
	case game.EventGameOver:
		msg = fmt.Sprintf("Game over: P%d wins (%s). r to play again", e.Winner, e.Reason)
	default:
		return
	}
	g.mu.Lock()
	g.messages = append(g.messages, msg)
	if len(g.messages) > maxMessages {
		g.messages = g.messages[len(g.messages)-maxMessages:]
	}
	g.mu.Unlock()
}

func (g *Game) current() (game.Snapshot, bool, []string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	msgs := append([]string(nil), g.messages...)
	return g.snap, g.haveSnap, msgs
}

// player is who the keyboard and mouse act for.
func (g *Game) player(snap game.Snapshot) game.Player {
	if g.local {
		return snap.Active
	}
	return game.Player1
}

func (g *Game) send(ev game.InputEvent) {
	if err := g.runner.HandleInput(ev); err != nil {
		switch err {
		case game.ErrNotYourTurn, game.ErrInMotion, game.ErrSeatMismatch:
			// ignored while the computer plays or coins move
		default:
			g.note(err.Error())
		}
	}
}

func (g *Game) note(msg string) {
	g.mu.Lock()
	g.messages = append(g.messages, msg)
	if len(g.messages) > maxMessages {
		g.messages = g.messages[len(g.messages)-maxMessages:]
	}
	g.mu.Unlock()
}

func (g *Game) handleInput(ev tcell.Event) bool {
	snap, ok, _ := g.current()
	if !ok {
		return true
	}
	p := g.player(snap)

	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return false
		case tcell.KeyLeft:
			g.send(game.InputEvent{Kind: game.KeyPress, Player: p, Key: game.KeyLeft})
		case tcell.KeyRight:
			g.send(game.InputEvent{Kind: game.KeyPress, Player: p, Key: game.KeyRight})
		case tcell.KeyEnter:
			g.send(game.InputEvent{Kind: game.KeyPress, Player: p, Key: game.KeyShoot})
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'q':
				return false
			case ' ':
				g.send(game.InputEvent{Kind: game.KeyPress, Player: p, Key: game.KeyShoot})
			case 'r':
				g.runner.Do(func(s *game.Session) { s.Reset() })
				g.mu.Lock()
				g.messages = nil
				g.mu.Unlock()
			}
		}

	case *tcell.EventMouse:
		w, h := g.screen.Size()
		v := newViewport(snap.Board, w, h)
		col, row := ev.Position()
		x, y := v.toBoard(col, row)
		pressed := ev.Buttons()&tcell.Button1 != 0

		switch {
		case pressed && !g.dragging:
			g.dragging = true
			g.send(game.InputEvent{Kind: game.PointerDown, Player: p, X: x, Y: y})
		case pressed:
			g.send(game.InputEvent{Kind: game.PointerMove, Player: p, X: x, Y: y})
		case g.dragging:
			g.dragging = false
			g.send(game.InputEvent{Kind: game.PointerUp, Player: p, X: x, Y: y})
		}

	case *tcell.EventResize:
		g.screen.Sync()
	}
	return true
}

func (g *Game) draw() {
	snap, ok, msgs := g.current()
	g.screen.Clear()
	if !ok {
		g.screen.Show()
		return
	}
	w, h := g.screen.Size()
	v := newViewport(snap.Board, w, h)

	frame := tcell.StyleDefault.Foreground(tcell.ColorOlive)
	for c := v.col0; c < v.col0+v.cols; c++ {
		g.screen.SetContent(c, v.row0, '─', nil, frame)
		g.screen.SetContent(c, v.row0+v.rows-1, '─', nil, frame)
	}
	for r := v.row0; r < v.row0+v.rows; r++ {
		g.screen.SetContent(v.col0, r, '│', nil, frame)
		g.screen.SetContent(v.col0+v.cols-1, r, '│', nil, frame)
	}

	line := tcell.StyleDefault.Foreground(tcell.ColorGray)
	for p, y := range snap.Board.BaselineY {
		style := line
		if game.Player(p+1) == snap.Active {
			style = line.Bold(true)
		}
		for x := snap.Board.Center.X - snap.Board.BaselineHalf; x <= snap.Board.Center.X+snap.Board.BaselineHalf; x += snap.Board.Radius / 40 {
			if col, row, ok := v.toCell(x, y); ok {
				g.screen.SetContent(col, row, '·', nil, style)
			}
		}
	}

	pocket := tcell.StyleDefault.Foreground(tcell.ColorDarkGray)
	for _, pk := range snap.Board.Pockets {
		if col, row, ok := v.toCell(pk.X, pk.Y); ok {
			g.screen.SetContent(col, row, '◯', nil, pocket)
		}
	}

	aim := tcell.StyleDefault.Foreground(tcell.ColorYellow)
	for _, c := range v.aimPath(snap) {
		g.screen.SetContent(c[0], c[1], '.', nil, aim)
	}

	for _, coin := range snap.Coins {
		col, row, ok := v.toCell(coin.X, coin.Y)
		if !ok {
			continue
		}
		switch coin.Category {
		case game.CategoryWhite:
			g.screen.SetContent(col, row, '●', nil, tcell.StyleDefault.Foreground(tcell.ColorWhite))
		case game.CategoryBlack:
			g.screen.SetContent(col, row, '●', nil, tcell.StyleDefault.Foreground(tcell.ColorSteelBlue))
		case game.CategoryQueen:
			g.screen.SetContent(col, row, '♛', nil, tcell.StyleDefault.Foreground(tcell.ColorRed))
		}
	}
	if col, row, ok := v.toCell(snap.Striker.X, snap.Striker.Y); ok {
		g.screen.SetContent(col, row, '◉', nil, tcell.StyleDefault.Foreground(tcell.ColorGreen).Bold(true))
	}

	status := fmt.Sprintf(" P1 (white) %d  |  P2 (black) %d  |  P%d %s  |  shot %d  |  power %.0f ",
		snap.Scores[0], snap.Scores[1], snap.Active, snap.Phase, snap.ShotNumber, snap.Aim.Power)
	if snap.QueenPending {
		status += fmt.Sprintf("|  queen pending for P%d ", snap.QueenCapturedBy)
	}
	g.text(0, h-1, status, tcell.StyleDefault.Reverse(true))

	hudCol := v.col0 + v.cols + 2
	if hudCol < w-10 {
		g.text(hudCol, 0, "←/→ move  space shoot", tcell.StyleDefault)
		g.text(hudCol, 1, "drag to aim, r restart, q quit", tcell.StyleDefault)
		for i, m := range msgs {
			g.text(hudCol, 3+i, m, tcell.StyleDefault.Foreground(tcell.ColorAqua))
		}
	}

	g.screen.Show()
}

func (g *Game) text(col, row int, s string, style tcell.Style) {
	for _, r := range s {
		g.screen.SetContent(col, row, r, nil, style)
		col++
	}
}

func (g *Game) run(ctx context.Context) {
	g.runner.Start(ctx)
	defer g.runner.Stop()

	ticker := time.NewTicker(16 * time.Millisecond) // ~60 FPS
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := g.screen.PollEvent()
			if ev == nil {
				return
			}
			eventChan <- ev
		}
	}()

	for {
		select {
		case ev := <-eventChan:
			if !g.handleInput(ev) {
				return
			}
		case <-ticker.C:
			g.draw()
		case <-ctx.Done():
			return
		}
	}
}

func main() {
	local := flag.Bool("local", false, "two players at one keyboard instead of playing the computer")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random seed for the computer's aim")
	flag.Parse()

	g, err := NewGame(*local, *seed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize terminal: %v\n", err)
		os.Exit(1)
	}
	defer g.screen.Fini()

	g.run(context.Background())
}
