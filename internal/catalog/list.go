package catalog

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/samber/lo"

	"github.com/dyluth/murdash/internal/filter"
	"github.com/dyluth/murdash/pkg/model"
)

// OutputFormat specifies how to format list output.
type OutputFormat string

const (
	// OutputFormatDefault uses a table format with truncated descriptions
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSONL outputs complete records as line-delimited JSON
	OutputFormatJSONL OutputFormat = "jsonl"
)

// ParseOutputFormat validates a user-supplied --output value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case "", OutputFormatDefault:
		return OutputFormatDefault, nil
	case OutputFormatJSONL:
		return OutputFormatJSONL, nil
	default:
		return "", fmt.Errorf("unknown output format: %s (must be 'default' or 'jsonl')", s)
	}
}

// SortKey orders pattern listings.
type SortKey string

const (
	// SortByID orders by id ascending
	SortByID SortKey = "id"

	// SortByConfidence orders by confidence, highest first
	SortByConfidence SortKey = "confidence"

	// SortByUpdated orders by last update, newest first
	SortByUpdated SortKey = "updated"

	// SortByUsage orders by injection count, highest first
	SortByUsage SortKey = "usage"
)

// ParseSortKey validates a user-supplied --sort value.
func ParseSortKey(s string) (SortKey, error) {
	switch SortKey(s) {
	case "", SortByID:
		return SortByID, nil
	case SortByConfidence, SortByUpdated, SortByUsage:
		return SortKey(s), nil
	default:
		return "", fmt.Errorf("unknown sort key: %s (must be 'id', 'confidence', 'updated' or 'usage')", s)
	}
}

// ListOptions controls ListPatterns.
type ListOptions struct {
	Format   OutputFormat
	Sort     SortKey
	Criteria *filter.Criteria
	Now      time.Time
}

// ListPatterns filters, sorts and writes patterns. The input slice is not modified.
// Ties are broken by id so output is stable.
func ListPatterns(w io.Writer, patterns []model.Pattern, opts ListOptions) error {
	selected := patterns
	if opts.Criteria != nil {
		selected = lo.Filter(patterns, func(p model.Pattern, _ int) bool {
			return opts.Criteria.Matches(p)
		})
	} else {
		selected = lo.Reject(patterns, func(p model.Pattern, _ int) bool {
			return p.IsArchived()
		})
	}
	selected = slices.Clone(selected)

	slices.SortStableFunc(selected, comparePatterns(opts.Sort))

	switch opts.Format {
	case OutputFormatDefault, "":
		FormatPatternTable(w, selected, opts.Now)
	case OutputFormatJSONL:
		if err := FormatJSONL(w, selected); err != nil {
			return fmt.Errorf("failed to format JSONL output: %w", err)
		}
	default:
		return fmt.Errorf("unknown output format: %s", opts.Format)
	}

	return nil
}

// ListWorkflows writes workflows ordered by name.
func ListWorkflows(w io.Writer, workflows []model.Workflow, format OutputFormat, now time.Time) error {
	sorted := slices.Clone(workflows)
	slices.SortStableFunc(sorted, func(a, b model.Workflow) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})

	switch format {
	case OutputFormatDefault, "":
		FormatWorkflowTable(w, sorted, now)
	case OutputFormatJSONL:
		if err := FormatJSONL(w, sorted); err != nil {
			return fmt.Errorf("failed to format JSONL output: %w", err)
		}
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}

	return nil
}

func comparePatterns(key SortKey) func(a, b model.Pattern) int {
	byID := func(a, b model.Pattern) int { return cmp.Compare(a.ID, b.ID) }

	switch key {
	case SortByConfidence:
		return func(a, b model.Pattern) int {
			return cmp.Or(cmp.Compare(b.Confidence, a.Confidence), byID(a, b))
		}
	case SortByUpdated:
		return func(a, b model.Pattern) int {
			return cmp.Or(b.Stats.Updated.Compare(a.Stats.Updated), byID(a, b))
		}
	case SortByUsage:
		return func(a, b model.Pattern) int {
			return cmp.Or(cmp.Compare(b.Stats.Injections, a.Stats.Injections), byID(a, b))
		}
	default:
		return byID
	}
}
