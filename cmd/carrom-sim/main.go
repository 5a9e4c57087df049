// Command carrom-sim plays headless AI-vs-AI games, records every shot in a sqlite
// replay database, and can re-simulate a recorded match to check it reproduces.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/playmatatu/carrom/internal/config"
	"github.com/playmatatu/carrom/internal/database"
	"github.com/playmatatu/carrom/internal/game"
	"github.com/playmatatu/carrom/internal/store"
)

func main() {
	godotenv.Load()
	cfg := config.Load()

	games := flag.Int("games", 1, "number of games to simulate")
	seed := flag.Int64("seed", time.Now().UnixNano(), "seed of the first game; later games use seed+i")
	maxShots := flag.Int("max-shots", 400, "stop a game after this many shots")
	dbPath := flag.String("db", cfg.ReplayDBPath, "sqlite replay database")
	verify := flag.String("verify", "", "replay the recorded match with this token and compare the result")
	verbose := flag.Bool("v", false, "log engine turn events")
	flag.Parse()

	db, err := database.OpenSQLite(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open replay database: %v", err)
	}
	defer db.Close()
	if err := store.EnsureSQLiteSchema(db); err != nil {
		log.Fatalf("Failed to prepare schema: %v", err)
	}
	st := store.New(db)
	ctx := context.Background()

	if *verify != "" {
		if err := verifyMatch(ctx, st, game.TuningFromConfig(cfg), *verify); err != nil {
			log.Fatalf("[SIM] verify %s: %v", *verify, err)
		}
		return
	}

	var logger *log.Logger
	if *verbose {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	tuning := game.TuningFromConfig(cfg)

	wins := [3]int{}
	for i := 0; i < *games; i++ {
		res, err := simulate(ctx, st, tuning, *seed+int64(i), *maxShots, logger)
		if err != nil {
			log.Fatalf("[SIM] game %d: %v", i+1, err)
		}
		wins[res.winner]++
		fmt.Printf("%s seed=%d shots=%d scores=%v winner=%d reason=%s\n",
			res.token, *seed+int64(i), res.shots, res.scores, res.winner, res.reason)
	}
	fmt.Printf("white=%d black=%d unfinished=%d\n", wins[1], wins[2], wins[0])
}

type result struct {
	token  string
	shots  int
	scores [2]int
	winner int
	reason string
}

// simulate plays one game on the session clock, without wall-clock sleeps, and records it.
func simulate(ctx context.Context, st *store.Store, tuning game.Tuning, seed int64, maxShots int, logger *log.Logger) (result, error) {
	token := game.NewMatchToken()
	var shots []store.Shot
	sink := game.SinkFunc(func(e game.Event) {
		if e.Type == game.EventShotFired && e.Shot != nil {
			shots = append(shots, store.Shot{
				MatchToken: token,
				ShotNumber: len(shots) + 1,
				Player:     int(e.Shot.Player),
				StrikerX:   e.Shot.StrikerX,
				Angle:      e.Shot.Angle,
				Power:      e.Shot.Power,
			})
		}
	})

	s := game.NewSession(game.SessionOptions{
		Seats:  [2]game.Seat{game.SeatAI, game.SeatAI},
		Tuning: tuning,
		Seed:   seed,
		Sink:   sink,
		Logger: logger,
	})
	defer s.Close()

	if err := st.CreateMatch(ctx, &store.Match{Token: token, Mode: "sim", Seat1Name: "AI white", Seat2Name: "AI black"}); err != nil {
		return result{}, err
	}

	for frame := 0; s.Phase() != game.PhaseGameOver; frame++ {
		if s.Turn.ShotNumber >= maxShots && s.Idle() {
			break
		}
		if frame > maxShots*20000 {
			return result{}, fmt.Errorf("game did not finish within the frame budget")
		}
		s.Frame(tuning.FrameInterval)
	}

	for _, shot := range shots {
		if err := st.RecordShot(ctx, shot); err != nil {
			return result{}, err
		}
	}

	res := result{token: token, shots: len(shots), scores: s.Turn.Scores, winner: int(s.Winner()), reason: s.Turn.WinReason}
	if s.Phase() == game.PhaseGameOver {
		if err := st.CompleteMatch(ctx, token, res.winner, res.reason, res.scores); err != nil {
			return result{}, err
		}
	} else {
		res.reason = "shot limit"
		if err := st.SetMatchStatus(ctx, token, store.StatusCancelled); err != nil {
			return result{}, err
		}
	}
	return res, nil
}

// verifyMatch rebuilds a recorded match from its shots and compares the outcome.
func verifyMatch(ctx context.Context, st *store.Store, tuning game.Tuning, token string) error {
	m, err := st.GetMatch(ctx, token)
	if err != nil {
		return err
	}
	rows, err := st.ListShots(ctx, token)
	if err != nil {
		return err
	}
	cmds := make([]game.ShotCommand, len(rows))
	for i, r := range rows {
		cmds[i] = game.ShotCommand{Player: game.Player(r.Player), StrikerX: r.StrikerX, Angle: r.Angle, Power: r.Power}
	}

	s, err := game.Replay(game.SessionOptions{Tuning: tuning}, cmds)
	if err != nil {
		return err
	}
	defer s.Close()

	log.Printf("[SIM] replayed %d shots: scores=%v winner=%d", len(cmds), s.Turn.Scores, s.Winner())
	if m.Status != store.StatusCompleted {
		log.Printf("[SIM] match %s is %s; no recorded result to compare", token, m.Status)
		return nil
	}
	if s.Turn.Scores != [2]int{m.Score1, m.Score2} || int(s.Winner()) != m.Winner {
		return fmt.Errorf("replay diverged: scores=%v winner=%d, recorded scores=[%d %d] winner=%d",
			s.Turn.Scores, s.Winner(), m.Score1, m.Score2, m.Winner)
	}
	fmt.Printf("%s reproduces: scores=%v winner=%d\n", token, s.Turn.Scores, s.Winner())
	return nil
}
