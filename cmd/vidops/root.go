package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/jrsteele09/go-auth-client/auth"
	"github.com/jrsteele09/go-auth-client/client"
	"github.com/jrsteele09/go-auth-client/credentials"
	"github.com/jrsteele09/go-auth-client/credentials/filestore"
	"github.com/jrsteele09/go-auth-client/credentials/memory"
	"github.com/jrsteele09/go-auth-client/credentials/sqlstore"
	"github.com/jrsteele09/go-auth-client/forms"
	"github.com/jrsteele09/go-auth-client/guard"
	"github.com/jrsteele09/go-auth-client/internal/config"
	"github.com/jrsteele09/go-auth-client/internal/logging"
	"github.com/jrsteele09/go-auth-client/internal/metrics"
	"github.com/jrsteele09/go-auth-client/internal/transport"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the vidops CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vidops",
		Short: "vidops - sign in to VidOps and manage your account",
		Long: `vidops keeps a VidOps session on this machine. The bearer token and
profile are stored locally and renewed automatically through the
renewal cookie when they expire.`,
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file path (YAML)")
	flags.String("base-url", "", "backend origin, e.g. https://app.example.com")
	flags.String("store", "", "credential storage: file, sqlite or memory")
	flags.String("store-path", "", "directory for the credential store and cookie jar")
	flags.String("log-level", "", "log level: debug, info, warn, error")

	cmd.AddCommand(NewLoginCmd())
	cmd.AddCommand(NewRegisterCmd())
	cmd.AddCommand(NewGoogleCmd())
	cmd.AddCommand(NewLogoutCmd())
	cmd.AddCommand(NewWhoamiCmd())
	cmd.AddCommand(NewVerifyEmailCmd())
	cmd.AddCommand(NewResendVerificationCmd())
	cmd.AddCommand(NewAccountCmd())
	cmd.AddCommand(NewVersionCmd())
	cmd.AddCommand(NewDevServerCmd())

	return cmd
}

// app is the client wiring shared by the session commands.
type app struct {
	cfg     config.Config
	store   *credentials.Store
	exec    *client.Executor
	service *auth.Service
	guard   *guard.Guard
	paths   forms.Paths
	close   func() error
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	logging.Setup(cfg.GetEnv(), cfg.GetLogLevel(), cmd.ErrOrStderr())

	backend, closeBackend, err := openBackend(cmd.Context(), cfg)
	if err != nil {
		return nil, err
	}

	jarPath := ""
	if cfg.GetStoreKind() != "memory" {
		jarPath = filepath.Join(cfg.GetStorePath(), cfg.GetCookieJarFile())
	}
	httpClient, err := transport.NewClient(cfg, jarPath)
	if err != nil {
		_ = closeBackend()
		return nil, err
	}

	store := credentials.NewStore(backend)
	m := metrics.New(nil)
	exec, err := client.New(cfg.GetBaseURL(), store,
		client.WithHTTPClient(httpClient),
		client.WithMetrics(m),
		client.WithTracer(otel.Tracer("github.com/jrsteele09/go-auth-client/cmd/vidops")),
	)
	if err != nil {
		_ = closeBackend()
		return nil, err
	}

	service, err := auth.NewService(exec, store)
	if err != nil {
		_ = closeBackend()
		return nil, err
	}
	g, err := guard.New(exec, store, cfg, guard.WithMetrics(m))
	if err != nil {
		_ = closeBackend()
		return nil, err
	}

	return &app{
		cfg:     cfg,
		store:   store,
		exec:    exec,
		service: service,
		guard:   g,
		paths:   forms.PathsFrom(cfg),
		close:   closeBackend,
	}, nil
}

// withApp runs fn with a fully wired client and releases it afterwards.
func withApp(fn func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer func() {
			_ = a.close()
		}()
		return fn(cmd, a, args)
	}
}

func openBackend(ctx context.Context, cfg config.EnvConfig) (credentials.Backend, func() error, error) {
	noop := func() error { return nil }
	if ctx == nil {
		ctx = context.Background()
	}

	switch cfg.GetStoreKind() {
	case "memory":
		return memory.New(), noop, nil
	case "file":
		return filestore.New(filepath.Join(cfg.GetStorePath(), filestore.DefaultFileName)), noop, nil
	case "sqlite":
		if err := os.MkdirAll(cfg.GetStorePath(), 0o700); err != nil {
			return nil, nil, errors.Wrap(err, "[openBackend] failed to create store directory")
		}
		b, err := sqlstore.Open(ctx, filepath.Join(cfg.GetStorePath(), sqlstore.DefaultFileName))
		if err != nil {
			return nil, nil, err
		}
		return b, b.Close, nil
	default:
		return nil, nil, errors.Errorf("[openBackend] unknown store %q (want file, sqlite or memory)", cfg.GetStoreKind())
	}
}
