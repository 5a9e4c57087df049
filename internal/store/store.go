package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrDuplicateShot = errors.New("shot already recorded")
)

// Match statuses as stored.
const (
	StatusWaiting    = "WAITING"
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
	StatusCancelled  = "CANCELLED"
)

// Queue entry statuses.
const (
	QueueQueued  = "queued"
	QueueMatched = "matched"
	QueueExpired = "expired"
)

// Match is one carrom game as persisted.
type Match struct {
	Token       string     `db:"token" json:"token"`
	Mode        string     `db:"mode" json:"mode"`
	Status      string     `db:"status" json:"status"`
	Seat1Name   string     `db:"seat1_name" json:"seat1_name"`
	Seat2Name   string     `db:"seat2_name" json:"seat2_name"`
	Winner      int        `db:"winner" json:"winner"`
	WinReason   string     `db:"win_reason" json:"win_reason"`
	Score1      int        `db:"score1" json:"score1"`
	Score2      int        `db:"score2" json:"score2"`
	ShotCount   int        `db:"shot_count" json:"shot_count"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}

// Shot is one launched shot; replaying a match's shots in order rebuilds it.
type Shot struct {
	MatchToken string    `db:"match_token" json:"-"`
	ShotNumber int       `db:"shot_number" json:"shot_number"`
	Player     int       `db:"player" json:"player"`
	StrikerX   float64   `db:"striker_x" json:"striker_x"`
	Angle      float64   `db:"angle" json:"angle"`
	Power      float64   `db:"power" json:"power"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// QueueEntry is a player waiting for the matchmaker.
type QueueEntry struct {
	QueueToken  string     `db:"queue_token" json:"queue_token"`
	DisplayName string     `db:"display_name" json:"display_name"`
	Status      string     `db:"status" json:"status"`
	MatchToken  *string    `db:"match_token" json:"match_token,omitempty"`
	Seat        *int       `db:"seat" json:"seat,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	ExpiresAt   time.Time  `db:"expires_at" json:"expires_at"`
	MatchedAt   *time.Time `db:"matched_at" json:"matched_at,omitempty"`
}

// Store persists matches, shots and the matchmaking queue. Queries are written with
// '?' placeholders and rebound for the driver, so the same code runs on Postgres and sqlite.
type Store struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

func (s *Store) q(query string) string {
	return s.db.Rebind(query)
}

func (s *Store) isPostgres() bool {
	return s.db.DriverName() == "postgres"
}

func now() time.Time {
	return time.Now().UTC()
}

// CreateMatch inserts a new match row.
func (s *Store) CreateMatch(ctx context.Context, m *Match) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now()
	}
	if m.Status == "" {
		m.Status = StatusWaiting
	}
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO carrom_matches (token, mode, status, seat1_name, seat2_name, winner, win_reason, score1, score2, shot_count, created_at)
		VALUES (?, ?, ?, ?, ?, 0, '', 0, 0, 0, ?)
	`), m.Token, m.Mode, m.Status, m.Seat1Name, m.Seat2Name, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create match %s: %w", m.Token, err)
	}
	return nil
}

// SetMatchStatus moves a match to a new status.
func (s *Store) SetMatchStatus(ctx context.Context, token, status string) error {
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE carrom_matches SET status = ? WHERE token = ?`), status, token)
	if err != nil {
		return fmt.Errorf("failed to update match %s: %w", token, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetSeatName records the display name of a seat once it is filled.
func (s *Store) SetSeatName(ctx context.Context, token string, seat int, name string) error {
	col := "seat1_name"
	if seat == 2 {
		col = "seat2_name"
	}
	_, err := s.db.ExecContext(ctx, s.q(`UPDATE carrom_matches SET `+col+` = ? WHERE token = ?`), name, token)
	return err
}

// RecordShot appends a shot and bumps the match's shot count in one transaction.
func (s *Store) RecordShot(ctx context.Context, shot Shot) error {
	if shot.CreatedAt.IsZero() {
		shot.CreatedAt = now()
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin shot tx: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.GetContext(ctx, &exists, tx.Rebind(`SELECT COUNT(*) FROM carrom_shots WHERE match_token = ? AND shot_number = ?`), shot.MatchToken, shot.ShotNumber); err != nil {
		return fmt.Errorf("failed to check shot: %w", err)
	}
	if exists > 0 {
		return ErrDuplicateShot
	}

	if _, err := tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO carrom_shots (match_token, shot_number, player, striker_x, angle, power, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`), shot.MatchToken, shot.ShotNumber, shot.Player, shot.StrikerX, shot.Angle, shot.Power, shot.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert shot: %w", err)
	}

	if _, err := tx.ExecContext(ctx, tx.Rebind(`
		UPDATE carrom_matches SET shot_count = ?, status = ? WHERE token = ? AND status <> ?
	`), shot.ShotNumber, StatusInProgress, shot.MatchToken, StatusCompleted); err != nil {
		return fmt.Errorf("failed to update shot count: %w", err)
	}

	return tx.Commit()
}

// CompleteMatch stores the final result.
func (s *Store) CompleteMatch(ctx context.Context, token string, winner int, reason string, scores [2]int) error {
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE carrom_matches
		SET status = ?, winner = ?, win_reason = ?, score1 = ?, score2 = ?, completed_at = ?
		WHERE token = ?
	`), StatusCompleted, winner, reason, scores[0], scores[1], now(), token)
	if err != nil {
		return fmt.Errorf("failed to complete match %s: %w", token, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	log.Printf("[DB] Match %s completed: winner=%d reason=%s scores=%v", token, winner, reason, scores)
	return nil
}

// GetMatch loads one match.
func (s *Store) GetMatch(ctx context.Context, token string) (*Match, error) {
	var m Match
	err := s.db.GetContext(ctx, &m, s.q(`
		SELECT token, mode, status, seat1_name, seat2_name, winner, win_reason, score1, score2, shot_count, created_at, completed_at
		FROM carrom_matches WHERE token = ?
	`), token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load match %s: %w", token, err)
	}
	return &m, nil
}

// ListShots returns a match's shots in play order.
func (s *Store) ListShots(ctx context.Context, token string) ([]Shot, error) {
	shots := []Shot{}
	err := s.db.SelectContext(ctx, &shots, s.q(`
		SELECT match_token, shot_number, player, striker_x, angle, power, created_at
		FROM carrom_shots WHERE match_token = ? ORDER BY shot_number
	`), token)
	if err != nil {
		return nil, fmt.Errorf("failed to list shots for %s: %w", token, err)
	}
	return shots, nil
}

// RecentMatches lists the newest matches first.
func (s *Store) RecentMatches(ctx context.Context, limit int) ([]Match, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	matches := []Match{}
	err := s.db.SelectContext(ctx, &matches, s.q(`
		SELECT token, mode, status, seat1_name, seat2_name, winner, win_reason, score1, score2, shot_count, created_at, completed_at
		FROM carrom_matches ORDER BY created_at DESC LIMIT ?
	`), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	return matches, nil
}

// Enqueue adds a player to the matchmaking queue.
func (s *Store) Enqueue(ctx context.Context, queueToken, displayName string, ttl time.Duration) (*QueueEntry, error) {
	e := &QueueEntry{
		QueueToken:  queueToken,
		DisplayName: displayName,
		Status:      QueueQueued,
		CreatedAt:   now(),
	}
	e.ExpiresAt = e.CreatedAt.Add(ttl)
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO carrom_queue (queue_token, display_name, status, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
	`), e.QueueToken, e.DisplayName, e.Status, e.CreatedAt, e.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue: %w", err)
	}
	return e, nil
}

// GetQueueEntry loads a queue entry by its token.
func (s *Store) GetQueueEntry(ctx context.Context, queueToken string) (*QueueEntry, error) {
	var e QueueEntry
	err := s.db.GetContext(ctx, &e, s.q(`
		SELECT queue_token, display_name, status, match_token, seat, created_at, expires_at, matched_at
		FROM carrom_queue WHERE queue_token = ?
	`), queueToken)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load queue entry: %w", err)
	}
	return &e, nil
}

// ClaimPair atomically takes the two oldest live queue entries and assigns them to
// matchToken as seats 1 and 2. It returns nil when fewer than two players wait.
// On Postgres the rows are claimed with FOR UPDATE SKIP LOCKED so several workers can run.
func (s *Store) ClaimPair(ctx context.Context, matchToken string) ([]QueueEntry, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin claim tx: %w", err)
	}
	defer tx.Rollback()

	query := `
		SELECT queue_token, display_name, status, match_token, seat, created_at, expires_at, matched_at
		FROM carrom_queue
		WHERE status = ? AND expires_at > ?
		ORDER BY created_at
		LIMIT 2`
	if s.isPostgres() {
		query += ` FOR UPDATE SKIP LOCKED`
	}

	var entries []QueueEntry
	if err := tx.SelectContext(ctx, &entries, tx.Rebind(query), QueueQueued, now()); err != nil {
		return nil, fmt.Errorf("failed to query queue: %w", err)
	}
	if len(entries) < 2 {
		return nil, nil
	}

	matchedAt := now()
	for i := range entries {
		seat := i + 1
		if _, err := tx.ExecContext(ctx, tx.Rebind(`
			UPDATE carrom_queue SET status = ?, match_token = ?, seat = ?, matched_at = ? WHERE queue_token = ?
		`), QueueMatched, matchToken, seat, matchedAt, entries[i].QueueToken); err != nil {
			return nil, fmt.Errorf("failed to claim queue entry: %w", err)
		}
		entries[i].Status = QueueMatched
		entries[i].MatchToken = &matchToken
		entries[i].Seat = &seat
		entries[i].MatchedAt = &matchedAt
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit claim: %w", err)
	}
	return entries, nil
}

// ExpireQueue marks stale queued entries as expired and returns how many changed.
func (s *Store) ExpireQueue(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE carrom_queue SET status = ? WHERE status = ? AND expires_at <= ?`), QueueExpired, QueueQueued, now())
	if err != nil {
		return 0, fmt.Errorf("failed to expire queue: %w", err)
	}
	return res.RowsAffected()
}
