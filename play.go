package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/robalobadob/soup-server/internal/config"
	"github.com/robalobadob/soup-server/internal/console"
)

func playCmd(o *overrides) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			o.apply(&cfg)
			a, err := buildApp(cfg, nil)
			if err != nil {
				log.Error().Err(err).Msg("startup failed")
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
			defer stop()

			plain := !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd())
			return console.New(a.engine, os.Stdout, name, plain).Run(ctx, os.Stdin)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "your player name")
	return cmd
}
