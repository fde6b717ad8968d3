package commands

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dyluth/murdash/internal/printer"
	"github.com/dyluth/murdash/internal/relay"
	"github.com/dyluth/murdash/internal/watch"
	"github.com/dyluth/murdash/pkg/model"
)

var (
	watchOutputFormat string
	watchTypes        []string
	watchRelay        bool
	watchFromRelay    bool
	watchMetricsAddr  string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream live pattern and workflow changes",
	Long: `Follow the backend's event stream. The connection is re-established
automatically after a drop; every event also refreshes the local cache.

Relay:
  --relay       republish every event to the Redis channel from murdash.yml
  --from-relay  read events from that Redis channel instead of the backend

Examples:
  # Human-readable stream
  murdash watch

  # Only pattern events, as JSON
  murdash watch --type pattern. --output json

  # Expose Prometheus metrics while watching
  murdash watch --metrics-addr :9090`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchOutputFormat, "output", "o", "default", "Output format (default or json)")
	watchCmd.Flags().StringSliceVar(&watchTypes, "type", nil, "Only show events whose type starts with this prefix (repeatable)")
	watchCmd.Flags().BoolVar(&watchRelay, "relay", false, "Republish events to the configured Redis channel")
	watchCmd.Flags().BoolVar(&watchFromRelay, "from-relay", false, "Read events from the configured Redis channel")
	watchCmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	watchCmd.MarkFlagsMutuallyExclusive("relay", "from-relay")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	format, err := watch.ParseOutputFormat(watchOutputFormat)
	if err != nil {
		return printer.Error("invalid output format", err.Error(), []string{"Valid formats: default, json"})
	}
	opts := watch.Options{Format: format, Filter: watch.TypeFilter(watchTypes...)}

	if (watchRelay || watchFromRelay) && cfg.Relay.RedisURL == "" {
		return printer.Error(
			"relay not configured",
			"--relay and --from-relay need relay.redis_url in murdash.yml.",
			[]string{"Set it in murdash.yml, or export MURDASH_REDIS_URL=redis://localhost:6379/0"},
		)
	}

	ctx, cancel := signalContext()
	defer cancel()

	if watchMetricsAddr != "" {
		stop, err := serveMetrics(watchMetricsAddr)
		if err != nil {
			return printer.Error("failed to serve metrics", err.Error(), []string{"Pick a free address with --metrics-addr"})
		}
		defer stop()
	}

	if watchFromRelay {
		return watchRelayChannel(ctx, opts)
	}

	session, err := startSession(ctx, true)
	if err != nil {
		return err
	}
	defer session.Close()

	mode := session.Client().DataSource()
	if mode == model.DataSourceDemo {
		return printer.Error(
			"no live events in demo mode",
			"The demo dataset never changes on its own.",
			[]string{"Start a local daemon:\n  mur serve", "Use the hosted service:\n  murdash --mode cloud watch"},
		)
	}

	if watchRelay {
		r, err := relay.New(cfg.Relay.RedisURL, cfg.Relay.Channel, relay.WithLogger(logger.Named("relay")))
		if err != nil {
			return printer.Error("invalid relay configuration", err.Error(), nil)
		}
		defer r.Close()

		if err := r.Ping(ctx); err != nil {
			return printer.ErrorWithContext("Redis connection failed", err.Error(),
				map[string]string{"channel": cfg.Relay.Channel}, []string{"Check relay.redis_url in murdash.yml"})
		}
		unsubscribe := session.Channel().OnEvent(r.Handler())
		defer unsubscribe()
	}

	if format == watch.OutputFormatDefault {
		printer.Info("%s Watching %s (Ctrl-C to stop)\n", printer.ModeBadge(mode), session.Client().BaseURL())
	}
	return watch.StreamActivity(ctx, session.Channel(), opts, printer.Out)
}

func watchRelayChannel(ctx context.Context, opts watch.Options) error {
	r, err := relay.New(cfg.Relay.RedisURL, cfg.Relay.Channel, relay.WithLogger(logger.Named("relay")))
	if err != nil {
		return printer.Error("invalid relay configuration", err.Error(), nil)
	}
	defer r.Close()

	sub, err := r.Subscribe(ctx)
	if err != nil {
		return printer.ErrorWithContext("Redis subscription failed", err.Error(),
			map[string]string{"channel": cfg.Relay.Channel}, []string{"Check relay.redis_url in murdash.yml"})
	}
	defer sub.Close()

	if opts.Format == watch.OutputFormatDefault {
		printer.Info("Watching relay channel %s (Ctrl-C to stop)\n", r.Channel())
	}
	return watch.StreamChannel(ctx, sub.Events(), sub.Errors(), func(err error) {
		logger.Warn("Skipping relayed event", zap.Error(err))
	}, opts, printer.Out)
}

// serveMetrics exposes the Prometheus registry on addr until the returned stop is called.
func serveMetrics(addr string) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", runtimeStats.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", zap.Error(err))
		}
	}()
	logger.Info("Serving metrics", zap.String("addr", ln.Addr().String()))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}, nil
}
