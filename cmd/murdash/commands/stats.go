package commands

import (
	"github.com/spf13/cobra"

	"github.com/dyluth/murdash/internal/catalog"
	"github.com/dyluth/murdash/internal/printer"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show dashboard statistics",
	Long: `Show pattern and workflow totals, average confidence over active
patterns and the maturity distribution.`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Print statistics as JSON")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	session, err := startSession(ctx, false)
	if err != nil {
		return err
	}
	defer session.Close()

	stats := session.Store().Stats()
	if statsJSON {
		return catalog.FormatSingleJSON(printer.Out, stats)
	}

	printer.Printf("%s\n", printer.ModeBadge(session.Client().DataSource()))
	catalog.FormatStats(printer.Out, stats)
	return nil
}
