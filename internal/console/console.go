// internal/console/console.go
//
// Terminal front end: a line-oriented REPL over the same dispatcher the
// HTTP server uses. After every command the session syncs with its own
// cursor and prints whatever is new in the chat log.

package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/tcnksm/go-input"

	"github.com/robalobadob/soup-server/internal/apperr"
	"github.com/robalobadob/soup-server/internal/chatlog"
	"github.com/robalobadob/soup-server/internal/command"
	"github.com/robalobadob/soup-server/internal/game"
)

type styles struct {
	puzzle lipgloss.Style
	host   lipgloss.Style
	player lipgloss.Style
	err    lipgloss.Style
	dim    lipgloss.Style
}

func newStyles(plain bool) styles {
	if plain {
		s := lipgloss.NewStyle()
		return styles{puzzle: s, host: s, player: s, err: s, dim: s}
	}
	return styles{
		puzzle: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		host:   lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		player: lipgloss.NewStyle().Foreground(lipgloss.Color("7")),
		err:    lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		dim:    lipgloss.NewStyle().Faint(true),
	}
}

// Session is one console player.
type Session struct {
	engine   *game.Engine
	dispatch *command.Dispatcher
	out      io.Writer
	st       styles
	speaker  string
	cursor   chatlog.Cursor
}

// New builds a session writing to out. plain disables styling.
func New(e *game.Engine, out io.Writer, speaker string, plain bool) *Session {
	return &Session{
		engine:   e,
		dispatch: command.NewDispatcher(e),
		out:      out,
		st:       newStyles(plain),
		speaker:  speaker,
		cursor:   chatlog.Fresh,
	}
}

// Run prompts on in until EOF, "exit", or ctx is done.
func (s *Session) Run(ctx context.Context, in io.Reader) error {
	src := &eofReader{r: in}
	ui := &input.UI{Writer: s.out, Reader: src}

	fmt.Fprintln(s.out, s.st.dim.Render(command.Help+"\n  exit           leave"))
	for ctx.Err() == nil {
		line, err := ui.Ask(">", &input.Options{Required: true, HideOrder: true})
		if err != nil {
			if errors.Is(err, input.ErrEmpty) && !src.eof {
				continue
			}
			if errors.Is(err, input.ErrEmpty) || errors.Is(err, input.ErrInterrupted) {
				return nil
			}
			return err
		}
		if s.Handle(ctx, line) {
			return nil
		}
	}
	return ctx.Err()
}

// Handle runs one input line and prints the outcome. It reports whether
// the user asked to leave.
func (s *Session) Handle(ctx context.Context, line string) bool {
	if t := strings.ToLower(strings.TrimSpace(line)); t == "exit" || t == "bye" {
		return true
	}
	req, err := command.ParseLine(line)
	if err != nil {
		s.fail(err.Error())
		return false
	}
	switch req.Cmd {
	case command.CmdHelp:
		fmt.Fprintln(s.out, command.Help)
		return false
	case command.CmdInfo:
		s.info()
		return false
	}

	req.Speaker = s.speaker
	res := s.dispatch.Do(ctx, req)
	s.flush()
	if res.Error != apperr.CodeOK {
		s.fail(res.Msg)
	}
	return false
}

// flush prints every chat entry the session has not shown yet.
func (s *Session) flush() {
	snap := s.engine.Sync(s.cursor)
	s.cursor = snap.Cursor
	for _, e := range snap.Entries {
		switch {
		case e.Speaker == game.HostSpeaker && e.Index == 0:
			fmt.Fprintln(s.out, s.st.puzzle.Render(e.Content))
		case e.Speaker == game.HostSpeaker:
			fmt.Fprintln(s.out, s.st.host.Render("主持人: "+e.Content))
		default:
			fmt.Fprintln(s.out, s.st.player.Render(e.Speaker+": "+e.Content))
		}
	}
}

func (s *Session) info() {
	st := s.engine.State()
	if !st.Running {
		fmt.Fprintf(s.out, "game #%d, not running (type start)\n", st.GameID)
		return
	}
	fmt.Fprintf(s.out, "game #%d, running", st.GameID)
	if s.engine.Busy() {
		fmt.Fprint(s.out, ", host is thinking")
	}
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, s.st.puzzle.Render(st.Puzzle.Question))
}

func (s *Session) fail(msg string) {
	fmt.Fprintln(s.out, s.st.err.Render("✗ "+msg))
}

// eofReader hands out one byte per Read so a line reader never buffers
// past its newline, and remembers EOF so an empty answer can be told
// apart from closed input.
type eofReader struct {
	r   io.Reader
	eof bool
}

func (e *eofReader) Read(p []byte) (int, error) {
	if len(p) > 1 {
		p = p[:1]
	}
	n, err := e.r.Read(p)
	if errors.Is(err, io.EOF) {
		e.eof = true
	}
	return n, err
}
