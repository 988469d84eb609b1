// internal/store/store.go
//
// Game history: an audit trail of started and finished games.
//
// This is not session state. Nothing here is read back to resume a game;
// a restarted process always begins idle with game id 0.
//
// Implementations:
//   - memory (this package, memory.go): process-local, lost on restart.
//   - sqlite (sqlite.go): file-backed, schema from assets/migrations.

package store

import (
	"context"
	"errors"
	"time"
)

// Outcome is how a game ended.
type Outcome string

const (
	OutcomePlaying   Outcome = "playing"
	OutcomeSolved    Outcome = "solved"
	OutcomeAbandoned Outcome = "abandoned"
)

// Counter names a per-game tally.
type Counter string

const (
	CounterQuestions Counter = "questions"
	CounterAttempts  Counter = "attempts"
)

// Record is one game in the history.
type Record struct {
	ID         string     `json:"id"`
	GameID     int        `json:"gameId"`
	PuzzleID   string     `json:"puzzleId"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
	Outcome    Outcome    `json:"outcome"`
	Questions  int        `json:"questions"`
	Attempts   int        `json:"attempts"`
}

// ErrNotFound is returned for unknown record ids.
var ErrNotFound = errors.New("store: record not found")

// Store persists game history.
type Store interface {
	// Start inserts a new record (Outcome defaults to playing).
	Start(ctx context.Context, r Record) error

	// Finish sets the outcome and finish time of a record.
	Finish(ctx context.Context, id string, outcome Outcome, at time.Time) error

	// Bump increments a counter of a record.
	Bump(ctx context.Context, id string, c Counter) error

	// Recent lists the newest records first, at most limit of them.
	Recent(ctx context.Context, limit int) ([]Record, error)

	Close() error
}

const defaultRecentLimit = 20
