package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jrsteele09/go-auth-client/internal/config"
	"github.com/jrsteele09/go-auth-client/internal/fakeapi"
	"github.com/jrsteele09/go-auth-client/internal/logging"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type devServerConfig struct {
	addr  string
	seeds []string
}

// NewDevServerCmd creates the dev-server subcommand.
func NewDevServerCmd() *cobra.Command {
	cfg := &devServerConfig{}

	cmd := &cobra.Command{
		Use:    "dev-server",
		Short:  "Run an in-memory auth backend for local development",
		Hidden: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			logging.Setup(c.GetEnv(), c.GetLogLevel(), cmd.ErrOrStderr())
			displayAppname(cmd, c.GetAppName())

			api := fakeapi.New()
			if err := seedUsers(api, cfg.seeds); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, &http.Server{Addr: cfg.addr, Handler: api, ReadHeaderTimeout: 10 * time.Second})
		},
	}

	cmd.Flags().StringVar(&cfg.addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringSliceVar(&cfg.seeds, "seed", nil, "verified user to create, as email:password (repeatable)")

	return cmd
}

func seedUsers(api *fakeapi.Server, seeds []string) error {
	for _, seed := range seeds {
		email, password, ok := strings.Cut(seed, ":")
		if !ok {
			return errors.Errorf("[seedUsers] seed %q is not email:password", seed)
		}
		if _, err := api.AddUser(email, password, "", true); err != nil {
			return errors.Wrapf(err, "[seedUsers] failed to add %s", email)
		}
		log.Info().Str("email", email).Msg("seeded user")
	}
	return nil
}

// serve runs server until ctx is done, then shuts it down.
func serve(ctx context.Context, server *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("dev server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return errors.Wrap(err, "[serve] server.ListenAndServe")
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "[serve] server.Shutdown")
	}
	return nil
}
