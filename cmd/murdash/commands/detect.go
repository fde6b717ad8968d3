package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dyluth/murdash/internal/discovery"
	"github.com/dyluth/murdash/internal/printer"
	"github.com/dyluth/murdash/pkg/backend"
	"github.com/dyluth/murdash/pkg/commander"
	"github.com/dyluth/murdash/pkg/model"
)

var detectDocker bool

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Show which backend murdash would use",
	Long: `Probe the configured backends and report the selected mode.

In auto mode the local daemon is health-checked (2s deadline by default) and
the demo dataset is used when it does not answer. The commander daemon is
probed as well.

Examples:
  # Probe with the configured settings
  murdash detect

  # Also list mur daemon containers found through Docker
  murdash detect --docker`,
	Args: cobra.NoArgs,
	RunE: runDetect,
}

func init() {
	detectCmd.Flags().BoolVar(&detectDocker, "docker", false, "List mur daemon containers found through Docker labels")
	rootCmd.AddCommand(detectCmd)
}

func runDetect(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	localURL := cfg.Endpoints.Local
	if discover {
		localURL = discoverLocalURL(ctx, localURL)
	}

	client := backend.NewClient(
		backend.WithLocalURL(localURL),
		backend.WithCloudURL(cfg.Endpoints.Cloud),
		backend.WithHealthTimeout(cfg.Health.Timeout),
		backend.WithLogger(logger.Named("backend")),
		backend.WithRecorder(runtimeStats),
	)

	mode := detectMode(ctx, client)
	printer.Printf("Backend:    %s", printer.ModeBadge(mode))
	if mode == model.DataSourceDemo {
		printer.Printf(" built-in sample data\n")
	} else {
		printer.Printf(" %s\n", client.BaseURL())
	}

	cmdr := commander.NewClient(
		commander.WithBaseURL(cfg.Endpoints.Commander),
		commander.WithHealthTimeout(cfg.Health.Timeout),
		commander.WithLogger(logger.Named("commander")),
	)
	if cmdr.Detect(ctx) {
		printer.Printf("Commander:  connected %s\n", cmdr.BaseURL())
	} else {
		printer.Faint("Commander:  not running at %s\n", cmdr.BaseURL())
	}

	if detectDocker {
		return printDaemons(ctx)
	}
	return nil
}

// detectMode applies the configured mode, probing only in auto mode.
func detectMode(ctx context.Context, client *backend.Client) model.DataSource {
	if cfg.IsAuto() {
		return client.DetectBackend(ctx)
	}
	client.SetDataSource(cfg.DataSource())
	return client.DataSource()
}

func printDaemons(ctx context.Context) error {
	cli, err := discovery.NewDockerClient(ctx)
	if err != nil {
		return printer.Error("Docker unavailable", err.Error(), []string{"Run without --docker to skip container discovery"})
	}
	defer cli.Close()

	daemons, err := discovery.FindDaemons(ctx, cli)
	if err != nil {
		return fmt.Errorf("failed to discover daemons: %w", err)
	}

	printer.Printf("\nContainers: %s\n", discovery.DetermineStatus(daemons))
	if len(daemons) == 0 {
		printer.Faint("  none labelled %s=%s\n", discovery.LabelComponent, discovery.ComponentServe)
		return nil
	}
	for _, d := range daemons {
		url := d.URL
		if url == "" {
			url = "-"
		}
		printer.Printf("  %-24s %-10s %s\n", d.Name, d.State, url)
	}
	return nil
}
