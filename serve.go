package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/robalobadob/soup-server/internal/auth"
	"github.com/robalobadob/soup-server/internal/config"
	"github.com/robalobadob/soup-server/internal/httpserver"
)

func serveCmd(o *overrides) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP game server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *o)
		},
	}
	cmd.Flags().StringVar(&o.port, "port", "", "listen port (overrides PORT)")
	return cmd
}

func runServe(ctx context.Context, o overrides) error {
	cfg := config.Load()
	o.apply(&cfg)

	a, err := buildApp(cfg, nil)
	if err != nil {
		log.Error().Err(err).Msg("startup failed")
		return err
	}
	defer a.Close()

	host, err := auth.New(auth.Config{
		Password:     cfg.HostPassword,
		PasswordHash: cfg.HostPasswordHash,
		Secret:       cfg.JWTSecret,
		Expires:      cfg.JWTExpires,
		Secure:       os.Getenv("NODE_ENV") == "production",
	})
	if err != nil {
		log.Error().Err(err).Msg("host auth")
		return err
	}

	srv := httpserver.New(httpserver.Deps{
		Engine:       a.engine,
		Host:         host,
		History:      a.history,
		Metrics:      a.metrics.Handler(),
		PuzzleCount:  a.catalog.Len(),
		ClientOrigin: cfg.ClientOrigin,
		PushInterval: cfg.SyncPushInterval,
	})

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Bool("hostAuth", host.Enabled()).Msg("starting soup-server")
		return srv.ListenAndServe(ctx, ":"+cfg.Port)
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		return nil
	})
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server exited")
		return err
	}
	return nil
}
