// main.go
//
// Entry point for the turtle-soup game server.
// Commands:
//   soup serve     HTTP + websocket server (default when run without args)
//   soup play      single-player console game
//   soup puzzles   list the loaded puzzle catalog
//   soup version   print the build version

package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/robalobadob/soup-server/internal/config"
	"github.com/robalobadob/soup-server/internal/puzzle"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

func main() {
	_ = godotenv.Load()
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// overrides are flags shared by serve and play; set values win over env.
type overrides struct {
	port    string
	puzzles string
	db      string
}

func (o overrides) apply(c *config.Config) {
	if o.port != "" {
		c.Port = o.port
	}
	if o.puzzles != "" {
		c.PuzzleFile = o.puzzles
	}
	if o.db != "" {
		c.DBPath = o.db
	}
}

func rootCmd() *cobra.Command {
	var o overrides

	root := &cobra.Command{
		Use:           "soup",
		Short:         "Turtle-soup (lateral thinking) puzzle game server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(config.Load())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), o)
		},
	}
	root.PersistentFlags().StringVar(&o.puzzles, "puzzles", "", "puzzle catalog file (.json/.yaml); default is the built-in catalog")
	root.PersistentFlags().StringVar(&o.db, "db", "", "SQLite file for game history; default keeps history in memory")

	root.AddCommand(serveCmd(&o), playCmd(&o), puzzlesCmd(&o), versionCmd())
	return root
}

// setupLogging configures the global zerolog logger.
func setupLogging(c config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	if lvl, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if c.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func puzzlesCmd(o *overrides) *cobra.Command {
	return &cobra.Command{
		Use:   "puzzles",
		Short: "Validate and list the puzzle catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			o.apply(&cfg)
			cat, err := puzzle.LoadOrDefault(cfg.PuzzleFile)
			if err != nil {
				log.Error().Err(err).Msg("invalid puzzle catalog")
				return err
			}
			out := cmd.OutOrStdout()
			for i, p := range cat.All() {
				fmt.Fprintf(out, "%3d  %-12s %s\n", i+1, p.ID, p.Question)
			}
			fmt.Fprintf(out, "%d puzzles\n", cat.Len())
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "soup %s\n", Version)
		},
	}
}
