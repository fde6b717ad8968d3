// Package catalog renders patterns, workflows and dashboard statistics for the terminal.
package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/dyluth/murdash/pkg/model"
)

// FormatPatternTable writes patterns as a formatted table to the provided writer.
// The table includes columns: ID, TIER, MATURITY, CONF, USED, AGE and DESCRIPTION (truncated).
// Returns the number of patterns formatted.
func FormatPatternTable(w io.Writer, patterns []model.Pattern, now time.Time) int {
	if len(patterns) == 0 {
		fmt.Fprintln(w, "No patterns found")
		return 0
	}

	fmt.Fprintf(w, "%-28s %-8s %-10s %-5s %-6s %-8s %s\n",
		"ID", "TIER", "MATURITY", "CONF", "USED", "AGE", "DESCRIPTION")
	fmt.Fprintf(w, "%-28s %-8s %-10s %-5s %-6s %-8s %s\n",
		strings.Repeat("-", 28), "--------", "----------", "-----", "------", "--------", strings.Repeat("-", 40))

	for _, p := range patterns {
		fmt.Fprintf(w, "%-28s %-8s %-10s %-5s %-6d %-8s %s\n",
			formatID(p.ID, p.IsArchived()),
			p.Tier,
			p.Maturity,
			fmt.Sprintf("%.2f", p.Confidence),
			p.Stats.Injections,
			formatAge(p.Stats.Updated, now),
			formatText(p.Description),
		)
	}

	fmt.Fprintf(w, "\n%d %s found\n", len(patterns), plural(len(patterns), "pattern"))
	return len(patterns)
}

// FormatWorkflowTable writes workflows as a formatted table to the provided writer.
// Returns the number of workflows formatted.
func FormatWorkflowTable(w io.Writer, workflows []model.Workflow, now time.Time) int {
	if len(workflows) == 0 {
		fmt.Fprintln(w, "No workflows found")
		return 0
	}

	fmt.Fprintf(w, "%-28s %-24s %-5s %-8s %s\n", "ID", "NAME", "STEPS", "AGE", "DESCRIPTION")
	fmt.Fprintf(w, "%-28s %-24s %-5s %-8s %s\n",
		strings.Repeat("-", 28), strings.Repeat("-", 24), "-----", "--------", strings.Repeat("-", 40))

	for _, wf := range workflows {
		fmt.Fprintf(w, "%-28s %-24s %-5d %-8s %s\n",
			formatID(wf.ID, false),
			truncate(wf.Name, 24),
			len(wf.Steps),
			formatAge(wf.Updated, now),
			formatText(wf.Description),
		)
	}

	fmt.Fprintf(w, "\n%d %s found\n", len(workflows), plural(len(workflows), "workflow"))
	return len(workflows)
}

// FormatStats writes the dashboard summary. The maturity distribution is listed in lifecycle order.
func FormatStats(w io.Writer, stats model.DashboardStats) {
	fmt.Fprintf(w, "Patterns:        %d (%d active)\n", stats.TotalPatterns, stats.ActivePatterns)
	fmt.Fprintf(w, "Workflows:       %d\n", stats.TotalWorkflows)
	fmt.Fprintf(w, "Avg confidence:  %.2f\n", stats.AvgConfidence)
	fmt.Fprintln(w, "Maturity:")
	for _, m := range model.Maturities {
		fmt.Fprintf(w, "  %-10s %d\n", m, stats.MaturityDistribution[m])
	}
}

// FormatPatternDetail writes every field of one pattern in a human-readable layout.
func FormatPatternDetail(w io.Writer, p model.Pattern, now time.Time) {
	fmt.Fprintf(w, "%s\n", p.ID)
	fmt.Fprintf(w, "  %s\n\n", p.Description)
	fmt.Fprintf(w, "  Tier:        %s\n", p.Tier)
	fmt.Fprintf(w, "  Maturity:    %s\n", p.Maturity)
	fmt.Fprintf(w, "  Confidence:  %.2f\n", p.Confidence)
	fmt.Fprintf(w, "  Archived:    %t\n", p.IsArchived())
	fmt.Fprintf(w, "  Tags:        %s\n", joinOrDash(p.Tags))
	fmt.Fprintf(w, "  Triggers:    %s\n", joinOrDash(p.Triggers))
	if related, ok := p.Related.Get(); ok {
		fmt.Fprintf(w, "  Related:     %s\n", joinOrDash(related))
	}
	fmt.Fprintf(w, "  Injections:  %d (last used %s)\n", p.Stats.Injections, formatAge(p.Stats.LastUsed, now))
	fmt.Fprintf(w, "  Updated:     %s\n", formatAge(p.Stats.Updated, now))

	for i, ex := range p.Examples {
		fmt.Fprintf(w, "\n  Example %d (%s)", i+1, ex.Language)
		if ex.Description != "" {
			fmt.Fprintf(w, ": %s", ex.Description)
		}
		fmt.Fprintln(w)
		for _, line := range strings.Split(ex.Code, "\n") {
			fmt.Fprintf(w, "    %s\n", line)
		}
	}
}

// FormatWorkflowDetail writes one workflow with its numbered steps.
func FormatWorkflowDetail(w io.Writer, wf model.Workflow, now time.Time) {
	fmt.Fprintf(w, "%s (%s)\n", wf.Name, wf.ID)
	if wf.Description != "" {
		fmt.Fprintf(w, "  %s\n", wf.Description)
	}
	fmt.Fprintf(w, "  Updated: %s\n\n", formatAge(wf.Updated, now))
	if len(wf.Steps) == 0 {
		fmt.Fprintln(w, "  (no steps)")
		return
	}
	for i, step := range wf.Steps {
		fmt.Fprintf(w, "  %d. %s\n", i+1, lo.Ternary(step == "", "-", step))
	}
}

// FormatJSONL writes items as line-delimited JSON (JSONL) to the provided writer.
// Each item is written as a single JSON object on its own line.
func FormatJSONL[T any](w io.Writer, items []T) error {
	enc := json.NewEncoder(w)
	for _, item := range items {
		if err := enc.Encode(item); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}
	return nil
}

// FormatSingleJSON writes a single value as pretty-printed JSON to the provided writer.
func FormatSingleJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}

	fmt.Fprintln(w)
	return nil
}

// formatID marks archived patterns and truncates long ids.
func formatID(id string, archived bool) string {
	if archived {
		id = "~" + id
	}
	return truncate(id, 28)
}

// formatText truncates free text to its first non-empty line, max 40 characters.
// Empty text returns "-".
func formatText(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return truncate(trimmed, 40)
		}
	}
	return "-"
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max-3] + "..."
	}
	return s
}

// formatAge shows relative time like "2m ago", "1h ago", etc.
func formatAge(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}

	diff := now.Sub(t)
	switch {
	case diff < 0:
		return "just now"
	case diff < time.Minute:
		return fmt.Sprintf("%ds ago", int(diff.Seconds()))
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	}
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

func plural(n int, noun string) string {
	return lo.Ternary(n == 1, noun, noun+"s")
}
