package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dyluth/murdash/internal/catalog"
	"github.com/dyluth/murdash/internal/printer"
	"github.com/dyluth/murdash/internal/resolver"
	"github.com/dyluth/murdash/pkg/backend"
	"github.com/dyluth/murdash/pkg/model"
)

var (
	patternJSON    bool
	patternArchive bool
	patternRestore bool
	patternDelete  bool

	addDescription string
	addTier        string
	addMaturity    string
	addConfidence  float64
	addTags        []string
	addTriggers    []string
	addRelated     []string
)

var patternCmd = &cobra.Command{
	Use:   "pattern PATTERN_ID",
	Short: "Show, archive or delete one pattern",
	Long: `Show one pattern in detail. PATTERN_ID may be a unique prefix (at least 3 characters).

Examples:
  # Show a pattern
  murdash pattern go-error-wrapping

  # Archive it
  murdash pattern go-err --archive

  # Full JSON
  murdash pattern go-error-wrapping --json`,
	Args: cobra.ExactArgs(1),
	RunE: runPattern,
}

var patternAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a pattern",
	Long: `Create a pattern on the selected backend. The backend assigns the id.

Example:
  murdash patterns add --description "Wrap errors with context" --tier Global --tag go --trigger "returning an error"`,
	Args: cobra.NoArgs,
	RunE: runPatternAdd,
}

func init() {
	patternCmd.Flags().BoolVar(&patternJSON, "json", false, "Print the complete pattern as JSON")
	patternCmd.Flags().BoolVar(&patternArchive, "archive", false, "Archive the pattern")
	patternCmd.Flags().BoolVar(&patternRestore, "restore", false, "Un-archive the pattern")
	patternCmd.Flags().BoolVar(&patternDelete, "delete", false, "Delete the pattern")
	patternCmd.MarkFlagsMutuallyExclusive("archive", "restore", "delete")
	rootCmd.AddCommand(patternCmd)

	patternAddCmd.Flags().StringVarP(&addDescription, "description", "d", "", "Pattern description (required)")
	patternAddCmd.Flags().StringVar(&addTier, "tier", string(model.TierProject), "Tier: Session, Project or Global")
	patternAddCmd.Flags().StringVar(&addMaturity, "maturity", string(model.MaturityDraft), "Maturity: Draft, Emerging, Stable or Canonical")
	patternAddCmd.Flags().Float64Var(&addConfidence, "confidence", 0.5, "Confidence within [0,1]")
	patternAddCmd.Flags().StringSliceVar(&addTags, "tag", nil, "Tag (repeatable)")
	patternAddCmd.Flags().StringSliceVar(&addTriggers, "trigger", nil, "Trigger phrase (repeatable)")
	patternAddCmd.Flags().StringSliceVar(&addRelated, "related", nil, "Related pattern id (repeatable)")
	patternsCmd.AddCommand(patternAddCmd)
}

func runPattern(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	session, err := startSession(ctx, false)
	if err != nil {
		return err
	}
	defer session.Close()

	st := session.Store()
	p, err := resolver.ResolvePattern(st.Patterns(), args[0])
	if err != nil {
		return reportResolveError("pattern", args[0], err)
	}

	switch {
	case patternDelete:
		if err := st.DeletePattern(ctx, p.ID); err != nil {
			return reportMutationError("delete", p.ID, err)
		}
		printer.Success("Deleted pattern %s\n", p.ID)
		return nil

	case patternArchive, patternRestore:
		archived := patternArchive
		p, err = st.UpdatePattern(ctx, p.ID, model.PatternUpdate{Archived: &archived})
		if err != nil {
			return reportMutationError("update", args[0], err)
		}
		if archived {
			printer.Success("Archived pattern %s\n", p.ID)
		} else {
			printer.Success("Restored pattern %s\n", p.ID)
		}
	}

	if patternJSON {
		return catalog.FormatSingleJSON(printer.Out, p)
	}
	catalog.FormatPatternDetail(printer.Out, p, time.Now())
	return nil
}

func runPatternAdd(cmd *cobra.Command, args []string) error {
	draft := model.PatternDraft{
		Description: addDescription,
		Triggers:    nonNil(addTriggers),
		Tags:        nonNil(addTags),
		Tier:        model.Tier(addTier),
		Maturity:    model.Maturity(addMaturity),
		Confidence:  addConfidence,
		Examples:    []model.CodeExample{},
	}
	if len(addRelated) > 0 {
		draft.Related = model.Some(addRelated)
	}
	if err := draft.Validate(); err != nil {
		return printer.Error("invalid pattern", err.Error(), []string{"Run 'murdash patterns add --help' for valid values"})
	}

	ctx, cancel := signalContext()
	defer cancel()

	session, err := startSession(ctx, false)
	if err != nil {
		return err
	}
	defer session.Close()

	p, err := session.Store().CreatePattern(ctx, draft)
	if err != nil {
		return reportMutationError("create", "", err)
	}

	printer.Success("Created pattern %s %s\n", p.ID, printer.ModeBadge(session.Client().DataSource()))
	return nil
}

// reportResolveError turns resolver failures into user-facing reports.
func reportResolveError(kind, query string, err error) error {
	var ambiguous *resolver.AmbiguousError
	switch {
	case resolver.IsNotFoundError(err):
		return printer.Error(
			fmt.Sprintf("%s '%s' not found", kind, query),
			fmt.Sprintf("No %s id starts with '%s'.", kind, query),
			[]string{fmt.Sprintf("List them:\n  murdash %ss", kind)},
		)
	case errors.As(err, &ambiguous):
		return printer.Error(fmt.Sprintf("ambiguous %s id", kind), resolver.FormatAmbiguousError(ambiguous), nil)
	default:
		return printer.Error(fmt.Sprintf("invalid %s id", kind), err.Error(), nil)
	}
}

// reportMutationError turns backend write failures into user-facing reports.
func reportMutationError(action, id string, err error) error {
	ctx := map[string]string{"action": action}
	if id != "" {
		ctx["id"] = id
	}
	if code, ok := backend.StatusCode(err); ok {
		ctx["status"] = fmt.Sprint(code)
	}

	switch {
	case backend.IsNotFound(err):
		return printer.ErrorWithContext("not found", err.Error(), ctx,
			[]string{"The item may have been removed by another client. Re-list and try again."})
	case backend.IsNetworkUnavailable(err):
		return printer.ErrorWithContext("backend unreachable", err.Error(), ctx,
			[]string{"Check the daemon is running:\n  murdash detect"})
	default:
		return printer.ErrorWithContext(fmt.Sprintf("failed to %s", action), err.Error(), ctx, nil)
	}
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
