package game

import (
	"context"
	"log"
	"sync"
	"time"
)

// Runner drives one session from its own goroutine: a frame per tick, and every
// input funnelled through the same loop so the session has a single owner.
type Runner struct {
	session    *Session
	interval   time.Duration
	inputs     chan func(*Session)
	onSnapshot func(Snapshot)
	stop       chan struct{}
	done       chan struct{}
	stopOnce   sync.Once
	dirty      bool
}

// NewRunner wraps a session. onSnapshot, if set, is called from the loop goroutine
// after each frame in which something changed.
func NewRunner(s *Session, onSnapshot func(Snapshot)) *Runner {
	return &Runner{
		session:    s,
		interval:   s.tuning.FrameInterval,
		inputs:     make(chan func(*Session), 100),
		onSnapshot: onSnapshot,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		dirty:      true,
	}
}

// Start runs the loop in a new goroutine.
func (r *Runner) Start(ctx context.Context) {
	go r.Run(ctx)
}

// Run blocks until the context is cancelled or Stop is called. The session is closed on exit.
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	defer close(r.done)
	defer r.session.Close()

	for {
		select {
		case fn := <-r.inputs:
			fn(r.session)
			r.dirty = true

		case <-ticker.C:
			busy := !r.session.Idle() || r.session.sched.Pending() > 0
			r.session.Frame(r.interval)
			if (busy || r.dirty) && r.onSnapshot != nil {
				r.onSnapshot(r.session.Snapshot())
			}
			r.dirty = false

		case <-r.stop:
			return

		case <-ctx.Done():
			return
		}
	}
}

// Stop ends the loop and waits for it to exit.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
	<-r.done
}

// Done is closed once the loop has exited.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

// Do queues fn to run on the loop goroutine.
func (r *Runner) Do(fn func(*Session)) error {
	select {
	case r.inputs <- fn:
		return nil
	case <-r.done:
		return ErrSessionClosed
	}
}

// Call runs fn on the loop goroutine and waits for its result.
func (r *Runner) Call(fn func(*Session) error) error {
	reply := make(chan error, 1)
	if err := r.Do(func(s *Session) { reply <- fn(s) }); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-r.done:
		return ErrSessionClosed
	}
}

// HandleInput forwards a local input event to the session.
func (r *Runner) HandleInput(ev InputEvent) error {
	return r.Call(func(s *Session) error { return s.HandleInput(ev) })
}

// ApplyRemoteShot forwards a peer's shot to the session.
func (r *Runner) ApplyRemoteShot(cmd ShotCommand) error {
	return r.Call(func(s *Session) error { return s.ApplyRemoteShot(cmd) })
}

// Forfeit ends the game in favour of p's opponent.
func (r *Runner) Forfeit(p Player, reason string) error {
	return r.Call(func(s *Session) error { return s.Forfeit(p, reason) })
}

// Snapshot returns a snapshot taken on the loop goroutine.
func (r *Runner) Snapshot() (Snapshot, error) {
	var snap Snapshot
	err := r.Call(func(s *Session) error {
		snap = s.Snapshot()
		return nil
	})
	if err != nil {
		log.Printf("[CARROM] snapshot unavailable: %v", err)
	}
	return snap, err
}
