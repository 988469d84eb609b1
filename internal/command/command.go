// internal/command/command.go
//
// Command dispatcher shared by the HTTP and console transports.
// Maps a command token plus content onto engine operations and folds the
// result into a uniform Response carrying a numeric status code.
//
// Tokens:
//   new_game | start | new    start (or restart) a game
//   end_game | quit  | end    end the current game
//   ask                       yes/no question
//   ans | answer              solution attempt

package command

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/soup-server/internal/apperr"
	"github.com/robalobadob/soup-server/internal/game"
)

// Request is one command from a client.
type Request struct {
	Cmd     string `json:"cmd"`
	Content string `json:"content,omitempty"`
	Speaker string `json:"speaker,omitempty"`
	// Force lets new_game interrupt an in-flight judgement.
	Force bool `json:"force,omitempty"`
}

// Response is the uniform command result.
type Response struct {
	Code     int         `json:"code"`
	Error    apperr.Code `json:"error,omitempty"`
	Msg      string      `json:"msg"`
	GameID   int         `json:"gameId"`
	Question string      `json:"question,omitempty"`
	Speaker  string      `json:"speaker,omitempty"`
	Solved   bool        `json:"solved,omitempty"`
}

// Engine is the subset of *game.Engine the dispatcher drives.
type Engine interface {
	StartNewGame(ctx context.Context) game.Started
	EndGame(ctx context.Context) bool
	Ask(ctx context.Context, speaker, text string) (game.Reply, error)
	Answer(ctx context.Context, speaker, text string) (game.Reply, error)
	State() game.State
	Busy() bool
}

// Dispatcher routes requests to an engine.
type Dispatcher struct {
	engine Engine
}

func NewDispatcher(e Engine) *Dispatcher { return &Dispatcher{engine: e} }

// Do executes r. Failures are reported in the Response, never as a Go error.
func (d *Dispatcher) Do(ctx context.Context, r Request) Response {
	cmd := strings.ToLower(strings.TrimSpace(r.Cmd))
	switch cmd {
	case "new_game", "start", "new":
		if d.engine.Busy() && !r.Force {
			return d.fail(apperr.ErrOracleBusy)
		}
		s := d.engine.StartNewGame(ctx)
		return Response{
			Msg:      "新游戏开始了",
			GameID:   s.GameID,
			Question: s.Question,
			Speaker:  game.HostSpeaker,
		}

	case "end_game", "quit", "end":
		if !d.engine.EndGame(ctx) {
			return d.fail(apperr.ErrGameNotRunning)
		}
		return Response{Msg: "游戏已结束", GameID: d.engine.State().GameID, Speaker: game.HostSpeaker}

	case "ask":
		reply, err := d.engine.Ask(ctx, r.Speaker, r.Content)
		if err != nil {
			return d.fail(err)
		}
		return d.reply(reply)

	case "ans", "answer":
		reply, err := d.engine.Answer(ctx, r.Speaker, r.Content)
		if err != nil {
			return d.fail(err)
		}
		return d.reply(reply)
	}

	log.Debug().Str("cmd", r.Cmd).Msg("unknown command")
	return d.fail(apperr.ErrInvalidCommand)
}

func (d *Dispatcher) reply(r game.Reply) Response {
	return Response{
		Msg:     r.Msg,
		GameID:  d.engine.State().GameID,
		Speaker: r.Speaker,
		Solved:  r.Solved,
	}
}

func (d *Dispatcher) fail(err error) Response {
	code, ok := apperr.CodeOf(err)
	if !ok {
		code = apperr.CodeInternal
	}
	return Response{
		Code:   apperr.Status(code),
		Error:  code,
		Msg:    err.Error(),
		GameID: d.engine.State().GameID,
	}
}
