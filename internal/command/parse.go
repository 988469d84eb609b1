package command

import (
	"strings"

	"github.com/robalobadob/soup-server/internal/apperr"
)

// Console-only tokens handled by the REPL itself.
const (
	CmdInfo = "info"
	CmdHelp = "help"
)

// Help is the console usage text.
const Help = `commands:
  start          start a new game (restarts a running one)
  quit           end the current game
  ask <text>     ask a yes/no question
  ans <text>     propose the full solution
  info           show the current game
  help           show this help`

// ParseLine turns a console line into a Request. The first word is the
// command token; the rest of the line, trimmed, is the content.
func ParseLine(line string) (Request, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Request{}, apperr.New(apperr.CodeInvalidCommand, "empty command")
	}
	cmd, content, _ := strings.Cut(line, " ")
	cmd = strings.ToLower(cmd)
	content = strings.TrimSpace(content)

	switch cmd {
	case "start", "new", "new_game", "quit", "end", "end_game", CmdInfo, CmdHelp:
		return Request{Cmd: cmd}, nil
	case "ask", "ans", "answer":
		return Request{Cmd: cmd, Content: content}, nil
	}
	return Request{}, apperr.New(apperr.CodeInvalidCommand, "unknown command: "+cmd)
}
