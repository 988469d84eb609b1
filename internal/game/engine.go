// internal/game/engine.go
//
// Core game engine for the single turtle-soup session.
// Responsibilities:
//   - Own the session state, the chat log and the oracle guard.
//   - Start / restart / end games.
//   - Validate submissions, dispatch them to the judge and append verdicts.
//   - Serve read-only sync snapshots to pollers.
//
// Concurrency:
//   - One RWMutex guards all mutable state. It is never held across an
//     oracle call, so pollers are served while a judgement is in flight.
//   - The guard admits one judgement at a time and is released on every
//     exit path, including oracle errors and panics.
//   - StartNewGame and EndGame do not wait for the guard. If either runs
//     while a judgement is in flight, the verdict that comes back belongs
//     to a game that no longer exists; it is dropped and the caller gets
//     a game_not_running error.

package game

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/soup-server/internal/apperr"
	"github.com/robalobadob/soup-server/internal/chatlog"
	"github.com/robalobadob/soup-server/internal/oracle"
	"github.com/robalobadob/soup-server/internal/puzzle"
	"github.com/robalobadob/soup-server/internal/store"
)

// Engine is the sole writer of session state.
type Engine struct {
	mu     sync.RWMutex
	state  State
	log    chatlog.Log
	guard  guard
	record string // history record id of the current game

	picker        Picker
	judge         oracle.Judge
	history       store.Store
	observer      Observer
	minLen        int
	showRationale bool
	now           func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithMinLen sets the shortest accepted submission.
func WithMinLen(n int) Option { return func(e *Engine) { e.minLen = n } }

// WithHistory records games into s (best effort).
func WithHistory(s store.Store) Option { return func(e *Engine) { e.history = s } }

// WithObserver installs event hooks.
func WithObserver(o Observer) Option { return func(e *Engine) { e.observer = o } }

// WithShowRationale appends the judge's rationale to wrong-answer lines.
func WithShowRationale(on bool) Option { return func(e *Engine) { e.showRationale = on } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// New constructs an idle engine (game id 0, empty log).
func New(picker Picker, judge oracle.Judge, opts ...Option) *Engine {
	e := &Engine{
		picker:   picker,
		judge:    judge,
		observer: nopObserver{},
		minLen:   DefaultMinLen,
		now:      time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// ------------------------------ lifecycle ----------------------------------

// StartNewGame begins a fresh game, ending the current one first if any.
// It never waits for the guard.
func (e *Engine) StartNewGame(ctx context.Context) Started {
	p := e.picker.Pick()
	rec := store.Record{ID: uuid.NewString(), PuzzleID: p.ID, StartedAt: e.now(), Outcome: store.OutcomePlaying}

	e.mu.Lock()
	abandoned := ""
	if e.state.Running {
		abandoned = e.record
	}
	e.state.GameID++
	e.state.Running = true
	e.state.Puzzle = &p
	e.log.Reset()
	e.log.Append(HostSpeaker, "新游戏开始了: "+p.Question)
	e.record = rec.ID
	rec.GameID = e.state.GameID
	e.mu.Unlock()

	if abandoned != "" {
		e.finish(ctx, abandoned, store.OutcomeAbandoned)
	}
	e.remember(ctx, func(ctx context.Context, h store.Store) error { return h.Start(ctx, rec) })
	e.observer.GameStarted()
	log.Info().Int("gameId", rec.GameID).Str("puzzle", p.ID).Msg("new game started")

	return Started{GameID: rec.GameID, Question: p.Question}
}

// EndGame stops the current game and clears the log. It reports whether a
// game was running; calling it while idle is a no-op.
func (e *Engine) EndGame(ctx context.Context) bool {
	e.mu.Lock()
	if !e.state.Running {
		e.mu.Unlock()
		return false
	}
	e.state.Running = false
	e.state.Puzzle = nil
	e.log.Reset()
	rec := e.record
	e.record = ""
	gameID := e.state.GameID
	e.mu.Unlock()

	e.finish(ctx, rec, store.OutcomeAbandoned)
	log.Info().Int("gameId", gameID).Msg("game ended")
	return true
}

// ------------------------------ gameplay -----------------------------------

// Ask submits a yes/no question. The host answers 判断：是 / 否 / 不相关.
func (e *Engine) Ask(ctx context.Context, speaker, text string) (Reply, error) {
	t, err := e.begin(speaker, text)
	if err != nil {
		return Reply{}, err
	}

	var v oracle.QuestionVerdict
	err = e.invoke(oracle.KindQuestion, func() (string, error) {
		var err error
		v, err = e.judge.JudgeQuestion(ctx, t.puzzle, t.text)
		return string(v.Outcome), err
	})

	e.mu.Lock()
	e.guard.release()
	if err != nil {
		e.mu.Unlock()
		return Reply{}, err
	}
	if !e.current(t.gameID) {
		e.mu.Unlock()
		return Reply{}, e.stale(t.gameID)
	}
	msg := "判断：" + string(v.Outcome)
	e.log.Append(HostSpeaker, msg)
	e.mu.Unlock()

	log.Debug().Int("gameId", t.gameID).Str("verdict", string(v.Outcome)).
		Str("rationale", v.Rationale).Msg("question judged")
	e.remember(ctx, func(ctx context.Context, h store.Store) error {
		return h.Bump(ctx, t.record, store.CounterQuestions)
	})
	return Reply{Speaker: HostSpeaker, Msg: msg, Verdict: string(v.Outcome)}, nil
}

// Answer submits a full solution attempt. A correct answer reveals the
// puzzle's solution verbatim and ends the game; the log is kept so pollers
// see the reveal.
func (e *Engine) Answer(ctx context.Context, speaker, text string) (Reply, error) {
	t, err := e.begin(speaker, text)
	if err != nil {
		return Reply{}, err
	}

	var v oracle.AnswerVerdict
	err = e.invoke(oracle.KindAnswer, func() (string, error) {
		var err error
		v, err = e.judge.JudgeAnswer(ctx, t.puzzle, t.text)
		return string(v.Outcome), err
	})

	e.mu.Lock()
	e.guard.release()
	if err != nil {
		e.mu.Unlock()
		return Reply{}, err
	}
	if !e.current(t.gameID) {
		e.mu.Unlock()
		return Reply{}, e.stale(t.gameID)
	}
	reply := Reply{Speaker: HostSpeaker, Verdict: string(v.Outcome)}
	if v.Outcome == oracle.Correct {
		reply.Msg = "恭喜你，猜对了！汤底是：" + t.puzzle.Answer
		reply.Solved = true
		e.log.Append(HostSpeaker, reply.Msg)
		e.state.Running = false
		e.state.Puzzle = nil
		e.record = ""
	} else {
		reply.Msg = "很遗憾，回答错误。"
		if e.showRationale && v.Rationale != "" {
			reply.Msg += "\n依据：" + v.Rationale
		}
		e.log.Append(HostSpeaker, reply.Msg)
	}
	e.mu.Unlock()

	log.Debug().Int("gameId", t.gameID).Str("verdict", string(v.Outcome)).
		Str("rationale", v.Rationale).Msg("answer judged")
	e.remember(ctx, func(ctx context.Context, h store.Store) error {
		return h.Bump(ctx, t.record, store.CounterAttempts)
	})
	if reply.Solved {
		e.finish(ctx, t.record, store.OutcomeSolved)
		e.observer.GameSolved()
		log.Info().Int("gameId", t.gameID).Str("speaker", t.speaker).Msg("puzzle solved")
	}
	return reply, nil
}

// ------------------------------ read side ----------------------------------

// Sync returns everything a client at c is missing plus the session flags.
func (e *Engine) Sync(c chatlog.Cursor) Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s := Snapshot{
		GameID:  e.state.GameID,
		Running: e.state.Running,
		Busy:    e.guard.busy,
		Entries: e.log.Delta(e.state.GameID, c),
		Cursor:  e.log.Next(e.state.GameID),
	}
	if e.state.Puzzle != nil {
		s.Question = e.state.Puzzle.Question
	}
	return s
}

// State returns a copy of the session state.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s := e.state
	if s.Puzzle != nil {
		p := *s.Puzzle
		s.Puzzle = &p
	}
	return s
}

// Busy reports whether a judgement is in flight.
func (e *Engine) Busy() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.guard.busy
}

// Log returns a copy of the current chat log.
func (e *Engine) Log() []chatlog.Entry {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.log.All()
}

// -------------------------------- helpers ----------------------------------

// ticket is what begin hands to the oracle phase.
type ticket struct {
	gameID  int
	record  string
	puzzle  *puzzle.Puzzle
	speaker string
	text    string
}

// begin validates a submission, takes the guard and logs the utterance.
// Checks run in order: game running, length, guard.
func (e *Engine) begin(speaker, text string) (ticket, error) {
	text = strings.TrimSpace(text)
	speaker = strings.TrimSpace(speaker)
	if speaker == "" {
		speaker = AnonymousSpeaker
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	var err error
	switch {
	case !e.state.Running:
		err = apperr.ErrGameNotRunning
	case utf8.RuneCountInString(text) < e.minLen:
		err = apperr.New(apperr.CodeValidation,
			fmt.Sprintf("submission must be at least %d characters", e.minLen))
	case !e.guard.acquire():
		err = apperr.ErrOracleBusy
	}
	if err != nil {
		code, _ := apperr.CodeOf(err)
		e.observer.Rejected(code)
		return ticket{}, err
	}
	e.log.Append(speaker, text)
	return ticket{
		gameID:  e.state.GameID,
		record:  e.record,
		puzzle:  e.state.Puzzle,
		speaker: speaker,
		text:    text,
	}, nil
}

// invoke runs one oracle call, converting panics and unclassified errors
// into oracle failures and reporting the call to the observer. A missing
// puzzle is a contract violation and is returned unchanged.
func (e *Engine) invoke(kind oracle.Kind, call func() (string, error)) (err error) {
	start := time.Now()
	outcome := ""
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("oracle panic: %v", r)
		}
		switch {
		case err == nil:
		case errors.Is(err, oracle.ErrNoPuzzle):
			outcome = "failure"
			log.Error().Err(err).Str("kind", string(kind)).Msg("judge called without a puzzle")
		default:
			if !errors.Is(err, apperr.ErrOracleFailure) {
				err = apperr.Wrap(apperr.CodeOracleFailure, "judge unavailable", err)
			}
			outcome = "failure"
			log.Warn().Err(err).Str("kind", string(kind)).Msg("oracle call failed")
		}
		e.observer.OracleCall(kind, outcome, time.Since(start))
	}()
	outcome, err = call()
	return err
}

// current reports whether gameID is still the running game. Caller holds mu.
func (e *Engine) current(gameID int) bool {
	return e.state.Running && e.state.GameID == gameID
}

func (e *Engine) stale(gameID int) error {
	log.Info().Int("gameId", gameID).Msg("verdict dropped: game changed during judgement")
	return apperr.New(apperr.CodeGameNotRunning, "game changed during judgement")
}

func (e *Engine) finish(ctx context.Context, id string, outcome store.Outcome) {
	at := e.now()
	e.remember(ctx, func(ctx context.Context, h store.Store) error {
		return h.Finish(ctx, id, outcome, at)
	})
}

// remember writes to the history store, logging instead of failing.
func (e *Engine) remember(ctx context.Context, write func(context.Context, store.Store) error) {
	if e.history == nil {
		return
	}
	if err := write(context.WithoutCancel(ctx), e.history); err != nil {
		log.Warn().Err(err).Msg("history write failed")
	}
}
