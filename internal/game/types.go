// internal/game/types.go
//
// Core type definitions for the turtle-soup game engine.
// Defines:
//   - State:    the session record (game id, running flag, current puzzle).
//   - Started:  result of starting a game.
//   - Reply:    the host's reaction to a question or a solution attempt.
//   - Snapshot: read-only sync view returned to pollers.
//   - Observer: hooks for metrics.

package game

import (
	"time"

	"github.com/robalobadob/soup-server/internal/apperr"
	"github.com/robalobadob/soup-server/internal/chatlog"
	"github.com/robalobadob/soup-server/internal/oracle"
	"github.com/robalobadob/soup-server/internal/puzzle"
)

const (
	// HostSpeaker is the narrator that announces puzzles and relays verdicts.
	HostSpeaker = "host"
	// AnonymousSpeaker is used when a player gives no name.
	AnonymousSpeaker = "匿名玩家"
	// DefaultMinLen is the shortest accepted submission, in characters.
	DefaultMinLen = 5
)

// State describes the current game. Puzzle is non-nil iff Running.
type State struct {
	GameID  int
	Running bool
	Puzzle  *puzzle.Puzzle
}

// Started is returned by StartNewGame.
type Started struct {
	GameID   int    `json:"gameId"`
	Question string `json:"question"`
}

// Reply is the host line produced for a submission.
type Reply struct {
	Speaker string `json:"speaker"`
	Msg     string `json:"msg"`
	Verdict string `json:"verdict"`
	Solved  bool   `json:"solved,omitempty"`
}

// Snapshot is what a poller receives.
type Snapshot struct {
	GameID   int             `json:"gameId"`
	Running  bool            `json:"running"`
	Busy     bool            `json:"aiBusy"`
	Question string          `json:"currentQuestion,omitempty"`
	Entries  []chatlog.Entry `json:"deltaEntries"`
	Cursor   chatlog.Cursor  `json:"next"`
}

// Picker draws the puzzle for a new game.
type Picker interface {
	Pick() puzzle.Puzzle
}

// Observer receives engine events, typically to feed metrics.
type Observer interface {
	GameStarted()
	GameSolved()
	OracleCall(kind oracle.Kind, outcome string, took time.Duration)
	Rejected(code apperr.Code)
}

type nopObserver struct{}

func (nopObserver) GameStarted() {}
func (nopObserver) GameSolved() {}
func (nopObserver) OracleCall(oracle.Kind, string, time.Duration) {}
func (nopObserver) Rejected(apperr.Code) {}
