package oracle

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/soup-server/internal/puzzle"
)

// Config tunes a Client.
type Config struct {
	JudgeModel    string
	AnswerModel   string
	Timeout       time.Duration // whole call, all attempts included
	JudgeRetries  int
	AnswerRetries int
}

// Client is the Judge backed by a language model provider.
type Client struct {
	provider Provider
	cfg      Config
}

// NewClient wraps provider. A zero Timeout means 60s.
func NewClient(provider Provider, cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.AnswerModel == "" {
		cfg.AnswerModel = cfg.JudgeModel
	}
	return &Client{provider: provider, cfg: cfg}
}

// JudgeQuestion classifies a yes/no question.
func (c *Client) JudgeQuestion(ctx context.Context, p *puzzle.Puzzle, text string) (QuestionVerdict, error) {
	if err := checkPuzzle(p); err != nil {
		return QuestionVerdict{}, err
	}
	var v QuestionVerdict
	err := c.call(ctx, KindQuestion, c.cfg.JudgeModel, c.cfg.JudgeRetries,
		systemPrompt(questionRules, p), userPrompt(KindQuestion, text),
		func(out string) (err error) {
			v, err = parseQuestion(out)
			return err
		})
	return v, err
}

// JudgeAnswer classifies a full solution attempt.
func (c *Client) JudgeAnswer(ctx context.Context, p *puzzle.Puzzle, text string) (AnswerVerdict, error) {
	if err := checkPuzzle(p); err != nil {
		return AnswerVerdict{}, err
	}
	var v AnswerVerdict
	err := c.call(ctx, KindAnswer, c.cfg.AnswerModel, c.cfg.AnswerRetries,
		systemPrompt(answerRules, p), userPrompt(KindAnswer, text),
		func(out string) (err error) {
			v, err = parseAnswer(out)
			return err
		})
	return v, err
}

// call runs up to retries+1 attempts under one deadline. Transport and
// parse errors are both retried; the last one is returned as a *Failure.
func (c *Client) call(ctx context.Context, kind Kind, model string, retries int,
	system, user string, parse func(string) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var lastErr error
	attempts := 0
	for attempts <= retries {
		attempts++
		out, err := c.provider.Complete(ctx, model, system, user)
		if err == nil {
			if err = parse(out); err == nil {
				return nil
			}
		}
		lastErr = err
		log.Warn().Err(err).Str("kind", string(kind)).Int("attempt", attempts).Msg("oracle attempt failed")
		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break
		}
	}
	return &Failure{Kind: kind, Attempts: attempts, Err: lastErr}
}
