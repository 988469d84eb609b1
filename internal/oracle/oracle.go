// Package oracle judges player submissions against the current puzzle.
//
// The engine only sees the Judge interface: a question gets one of
// 是 / 否 / 不相关, a solution attempt gets 正确 / 错误. Both verdicts carry a
// rationale that is meant for logs, never for the player.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/robalobadob/soup-server/internal/apperr"
	"github.com/robalobadob/soup-server/internal/puzzle"
)

// QuestionOutcome classifies a yes/no question.
type QuestionOutcome string

const (
	Affirmative QuestionOutcome = "是"
	Negative    QuestionOutcome = "否"
	Irrelevant  QuestionOutcome = "不相关"
)

// AnswerOutcome classifies a solution attempt.
type AnswerOutcome string

const (
	Correct   AnswerOutcome = "正确"
	Incorrect AnswerOutcome = "错误"
)

// QuestionVerdict is the judgement of a question.
type QuestionVerdict struct {
	Outcome   QuestionOutcome
	Rationale string
}

// AnswerVerdict is the judgement of a solution attempt.
type AnswerVerdict struct {
	Outcome   AnswerOutcome
	Rationale string
}

// Judge classifies submissions against a puzzle.
type Judge interface {
	JudgeQuestion(ctx context.Context, p *puzzle.Puzzle, text string) (QuestionVerdict, error)
	JudgeAnswer(ctx context.Context, p *puzzle.Puzzle, text string) (AnswerVerdict, error)
}

// Kind names the two judgement types.
type Kind string

const (
	KindQuestion Kind = "question"
	KindAnswer   Kind = "answer"
)

// ErrNoPuzzle is returned when a judgement is requested without a puzzle.
// The engine never does that, so seeing it means a caller bug.
var ErrNoPuzzle = errors.New("oracle: no puzzle to judge against")

// Failure is an oracle call that raised, timed out or returned an
// unparseable result. It matches apperr.ErrOracleFailure.
type Failure struct {
	Kind     Kind
	Attempts int
	Err      error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("oracle %s failed after %d attempt(s): %v", f.Kind, f.Attempts, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

func (f *Failure) Is(target error) bool {
	t, ok := target.(*apperr.Error)
	return ok && t.Code == apperr.CodeOracleFailure
}

func checkPuzzle(p *puzzle.Puzzle) error {
	if p == nil || !p.Valid() {
		return ErrNoPuzzle
	}
	return nil
}

// ParseQuestionOutcome maps model output (Chinese or English) to an outcome.
func ParseQuestionOutcome(s string) (QuestionOutcome, bool) {
	switch normalize(s) {
	case "是", "yes", "y", "affirmative", "true":
		return Affirmative, true
	case "否", "不是", "no", "n", "negative", "false":
		return Negative, true
	case "不相关", "无关", "irrelevant", "unrelated", "n/a":
		return Irrelevant, true
	}
	return "", false
}

// ParseAnswerOutcome maps model output (Chinese or English) to an outcome.
func ParseAnswerOutcome(s string) (AnswerOutcome, bool) {
	switch normalize(s) {
	case "正确", "对", "correct", "right", "yes", "true":
		return Correct, true
	case "错误", "不正确", "错", "incorrect", "wrong", "no", "false":
		return Incorrect, true
	}
	return "", false
}

func normalize(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	return strings.Trim(s, " \t\r\n\"'`「」『』“”。.!！")
}
