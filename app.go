// app.go
//
// Assembles the game from configuration: puzzle catalog, oracle client,
// history store, metrics and engine. Shared by serve and play.

package main

import (
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/soup-server/internal/apperr"
	"github.com/robalobadob/soup-server/internal/config"
	"github.com/robalobadob/soup-server/internal/game"
	"github.com/robalobadob/soup-server/internal/metrics"
	"github.com/robalobadob/soup-server/internal/oracle"
	"github.com/robalobadob/soup-server/internal/puzzle"
	"github.com/robalobadob/soup-server/internal/store"
)

type app struct {
	cfg     config.Config
	catalog *puzzle.Catalog
	history store.Store
	metrics *metrics.Metrics
	engine  *game.Engine
}

// buildApp wires every component. A judge may be injected (tests); nil
// builds the configured language-model client.
func buildApp(cfg config.Config, judge oracle.Judge) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cat, err := puzzle.LoadOrDefault(cfg.PuzzleFile)
	if err != nil {
		return nil, err
	}
	log.Info().Int("puzzles", cat.Len()).Str("mode", string(cfg.PuzzleMode)).Msg("puzzle catalog loaded")

	if judge == nil {
		provider, err := oracle.NewProvider(cfg.OracleProvider, cfg.OracleBaseURL, cfg.OracleAPIKey)
		if err != nil {
			return nil, apperr.Wrap(apperr.CodeConfiguration, "oracle provider", err)
		}
		judge = oracle.NewClient(provider, oracle.Config{
			JudgeModel:    cfg.OracleJudgeModel,
			AnswerModel:   cfg.OracleAnswerModel,
			Timeout:       cfg.OracleTimeout,
			JudgeRetries:  cfg.OracleJudgeRetries,
			AnswerRetries: cfg.OracleAnswerRetries,
		})
	}

	var hist store.Store
	if cfg.DBPath != "" {
		db, err := store.OpenSQLite(cfg.DBPath)
		if err != nil {
			return nil, apperr.Wrap(apperr.CodeConfiguration, "open history database", err)
		}
		hist = db
		log.Info().Str("path", cfg.DBPath).Msg("history: sqlite")
	} else {
		hist = store.NewMemoryStore()
		log.Info().Msg("history: in-memory")
	}

	m := metrics.New()
	picker := &puzzle.Picker{Catalog: cat, Mode: cfg.PuzzleMode, Salt: cfg.DailySalt}
	e := game.New(picker, judge,
		game.WithMinLen(cfg.MinLen),
		game.WithShowRationale(cfg.ShowRationale),
		game.WithHistory(hist),
		game.WithObserver(m),
	)
	return &app{cfg: cfg, catalog: cat, history: hist, metrics: m, engine: e}, nil
}

func (a *app) Close() {
	if err := a.history.Close(); err != nil {
		log.Warn().Err(err).Msg("close history")
	}
}
