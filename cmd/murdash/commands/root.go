package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dyluth/murdash/internal/config"
	"github.com/dyluth/murdash/internal/discovery"
	"github.com/dyluth/murdash/internal/logging"
	"github.com/dyluth/murdash/internal/metrics"
	"github.com/dyluth/murdash/internal/printer"
	"github.com/dyluth/murdash/pkg/backend"
	"github.com/dyluth/murdash/pkg/dashboard"
	"github.com/dyluth/murdash/pkg/realtime"
)

var (
	version string
	commit  string
	date    string
)

// Global flags
var (
	configPath string
	envFiles   []string
	modeFlag   string
	logLevel   string
	discover   bool
)

// Populated by loadRuntime before any subcommand runs
var (
	cfg          *config.Config
	logger       = zap.NewNop()
	stopLogger   = func() {}
	runtimeStats = metrics.New()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "murdash",
	Short: "murdash - terminal dashboard for mur patterns and workflows",
	Long: `murdash reads patterns and workflows from a local mur daemon, the hosted
mur service or a built-in demo dataset, and keeps them fresh over a live
event stream.

Backend selection (--mode or mode: in murdash.yml):
  auto   - probe the local daemon, fall back to the demo dataset
  demo   - built-in sample data, no network access
  local  - a mur daemon on this machine
  cloud  - the hosted mur service`,
	Version: version,
	// Prevent silent success when unknown flags are passed to root command
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadRuntime(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		stopLogger()
	},
	// Enable strict flag parsing - unknown flags will cause an error
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	// We print formatted colored errors directly in the printer package
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	err := rootCmd.Execute()
	if err != nil && !printer.IsReported(err) {
		printer.Error(err.Error(), "", nil)
	}
	return err
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultFile, "Path to murdash.yml")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env"}, "Environment files to load before reading configuration")
	rootCmd.PersistentFlags().StringVarP(&modeFlag, "mode", "m", "", "Backend mode: auto, demo, local or cloud (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&discover, "discover", false, "Find the local mur daemon through Docker container labels")
}

// loadRuntime reads .env files and murdash.yml, applies flag overrides and builds the logger.
func loadRuntime(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(envFiles...); err != nil {
		return printer.Error(
			"failed to load environment file",
			err.Error(),
			[]string{"Check the file syntax (KEY=value per line), or pass --env-file with another path"},
		)
	}

	loaded, err := config.Load(configPath)
	if err != nil {
		return printer.ErrorWithContext(
			"invalid configuration",
			err.Error(),
			map[string]string{"file": configPath},
			[]string{"Fix the file, or regenerate it:\n  murdash init --force"},
		)
	}

	if modeFlag != "" {
		loaded.Mode = modeFlag
	}
	if logLevel != "" {
		loaded.Log.Level = logLevel
	}
	if err := loaded.Validate(); err != nil {
		return printer.Error("invalid flags", err.Error(), []string{"Run 'murdash --help' for valid values"})
	}
	cfg = loaded

	l, stop, err := logging.New(logging.Options{
		Level: cfg.Log.Level,
		File:  cfg.Log.File,
		Out:   cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialise logging: %w", err)
	}
	logger, stopLogger = l, stop

	logger.Debug("Configuration loaded",
		zap.String("file", configPath),
		zap.String("mode", cfg.Mode),
		zap.String("local", cfg.Endpoints.Local))
	return nil
}

// newSession builds a dashboard session from the loaded configuration.
// Only live sessions connect the event stream.
func newSession(ctx context.Context, live bool) *dashboard.Session {
	localURL := cfg.Endpoints.Local
	if discover {
		localURL = discoverLocalURL(ctx, localURL)
	}

	return dashboard.New(dashboard.Config{
		Mode:           cfg.Mode,
		LocalURL:       localURL,
		CloudURL:       cfg.Endpoints.Cloud,
		HealthTimeout:  cfg.Health.Timeout,
		ReconnectDelay: cfg.Realtime.ReconnectDelay,
		Live:           live,
	},
		dashboard.WithLogger(logger),
		dashboard.WithBackendOptions(backend.WithRecorder(runtimeStats)),
		dashboard.WithRealtimeOptions(realtime.WithRecorder(runtimeStats)),
	)
}

// startSession builds and starts a session, reporting failures through the printer.
func startSession(ctx context.Context, live bool) (*dashboard.Session, error) {
	session := newSession(ctx, live)
	if err := session.Start(ctx); err != nil {
		suggestions := []string{
			"Check the daemon is running:\n  murdash detect",
			"Use the built-in sample data:\n  murdash --mode demo",
		}
		if backend.IsNetworkUnavailable(err) {
			return nil, printer.ErrorWithContext("backend unreachable", err.Error(),
				map[string]string{"mode": cfg.Mode}, suggestions)
		}
		return nil, printer.ErrorWithContext("failed to load dashboard data", err.Error(),
			map[string]string{"mode": cfg.Mode}, suggestions)
	}
	return session, nil
}

// discoverLocalURL replaces fallback with the URL of a running mur daemon container.
func discoverLocalURL(ctx context.Context, fallback string) string {
	cli, err := discovery.NewDockerClient(ctx)
	if err != nil {
		logger.Warn("Docker discovery unavailable", zap.Error(err))
		return fallback
	}
	defer cli.Close()

	url, err := discovery.LocalURL(ctx, cli)
	if err != nil {
		logger.Warn("No mur daemon container found", zap.Error(err))
		return fallback
	}
	logger.Info("Discovered mur daemon", zap.String("url", url))
	return url
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
