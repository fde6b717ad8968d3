package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dyluth/murdash/internal/catalog"
	"github.com/dyluth/murdash/internal/filter"
	"github.com/dyluth/murdash/internal/printer"
	"github.com/dyluth/murdash/internal/timespec"
	"github.com/dyluth/murdash/pkg/model"
)

var (
	patternsOutputFormat string
	patternsSort         string
	patternsSince        string
	patternsUntil        string
	patternsTag          string
	patternsTier         string
	patternsMaturity     string
	patternsMinConf      float64
	patternsSearch       string
	patternsAll          bool
)

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "List patterns with filtering",
	Long: `List patterns from the selected backend.

Archived patterns are hidden unless --all is given.

Output Formats:
  default - Human-readable table
  jsonl   - Line-delimited JSON, one pattern per line

Time Filters (on last update):
  --since  - Show patterns updated after this time
  --until  - Show patterns updated before this time

Examples:
  # Highest-confidence patterns first
  murdash patterns --sort=confidence

  # Go patterns touched in the last week
  murdash patterns --tag="go*" --since=7d

  # Pipe to jq
  murdash patterns --output=jsonl | jq -r '.id'`,
	Args: cobra.NoArgs,
	RunE: runPatterns,
}

func init() {
	patternsCmd.Flags().StringVarP(&patternsOutputFormat, "output", "o", "default", "Output format: default or jsonl")
	patternsCmd.Flags().StringVar(&patternsSort, "sort", "id", "Sort by: id, confidence, updated or usage")

	patternsCmd.Flags().StringVar(&patternsSince, "since", "", "Show patterns updated after time (duration, day count, date or RFC3339)")
	patternsCmd.Flags().StringVar(&patternsUntil, "until", "", "Show patterns updated before time (duration, day count, date or RFC3339)")

	patternsCmd.Flags().StringVar(&patternsTag, "tag", "", "Filter by tag (glob pattern)")
	patternsCmd.Flags().StringVar(&patternsTier, "tier", "", "Filter by tier: Session, Project or Global")
	patternsCmd.Flags().StringVar(&patternsMaturity, "maturity", "", "Filter by maturity: Draft, Emerging, Stable or Canonical")
	patternsCmd.Flags().Float64Var(&patternsMinConf, "min-confidence", 0, "Hide patterns below this confidence")
	patternsCmd.Flags().StringVarP(&patternsSearch, "search", "s", "", "Case-insensitive text search over id, description and triggers")
	patternsCmd.Flags().BoolVarP(&patternsAll, "all", "a", false, "Include archived patterns")

	rootCmd.AddCommand(patternsCmd)
}

func runPatterns(cmd *cobra.Command, args []string) error {
	format, err := catalog.ParseOutputFormat(patternsOutputFormat)
	if err != nil {
		return printer.Error("invalid output format", err.Error(), []string{"Valid formats: default, jsonl"})
	}
	sortKey, err := catalog.ParseSortKey(patternsSort)
	if err != nil {
		return printer.Error("invalid sort key", err.Error(), []string{"Valid keys: id, confidence, updated, usage"})
	}

	now := time.Now()
	criteria, err := patternCriteria(now)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	session, err := startSession(ctx, false)
	if err != nil {
		return err
	}
	defer session.Close()

	if format == catalog.OutputFormatDefault {
		printer.Printf("%s ", printer.ModeBadge(session.Client().DataSource()))
	}

	return catalog.ListPatterns(printer.Out, session.Store().Patterns(), catalog.ListOptions{
		Format:   format,
		Sort:     sortKey,
		Criteria: criteria,
		Now:      now,
	})
}

// patternCriteria converts list flags into filter criteria.
func patternCriteria(now time.Time) (*filter.Criteria, error) {
	since, until, err := timespec.ParseRange(patternsSince, patternsUntil, now)
	if err != nil {
		return nil, printer.Error(
			"invalid time range",
			err.Error(),
			[]string{"Examples: --since=2h, --since=7d, --since=2025-10-29, --until=2025-10-29T13:00:00Z"},
		)
	}

	criteria := &filter.Criteria{
		Since:           since,
		Until:           until,
		TagGlob:         patternsTag,
		MinConfidence:   patternsMinConf,
		Search:          patternsSearch,
		IncludeArchived: patternsAll,
	}

	if patternsTier != "" {
		criteria.Tier = model.Tier(patternsTier)
		if err := criteria.Tier.Validate(); err != nil {
			return nil, printer.Error("invalid tier", err.Error(), []string{"Valid tiers: Session, Project, Global"})
		}
	}
	if patternsMaturity != "" {
		criteria.Maturity = model.Maturity(patternsMaturity)
		if err := criteria.Maturity.Validate(); err != nil {
			return nil, printer.Error("invalid maturity", err.Error(), []string{"Valid stages: Draft, Emerging, Stable, Canonical"})
		}
	}
	if patternsMinConf < 0 || patternsMinConf > 1 {
		return nil, printer.Error("invalid confidence", fmt.Sprintf("--min-confidence must be within [0,1], got %v", patternsMinConf), nil)
	}

	return criteria, nil
}
