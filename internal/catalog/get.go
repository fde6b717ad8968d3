package catalog

import (
	"fmt"
	"io"
	"time"

	"github.com/dyluth/murdash/internal/resolver"
	"github.com/dyluth/murdash/pkg/model"
)

// ShowPattern resolves query to a single pattern and writes it in detail.
// Resolution errors from the resolver package are returned unwrapped so callers can
// tell a missing pattern from an ambiguous prefix.
func ShowPattern(w io.Writer, patterns []model.Pattern, query string, asJSON bool, now time.Time) error {
	p, err := resolver.ResolvePattern(patterns, query)
	if err != nil {
		return err
	}

	if asJSON {
		if err := FormatSingleJSON(w, p); err != nil {
			return fmt.Errorf("failed to format pattern: %w", err)
		}
		return nil
	}

	FormatPatternDetail(w, p, now)
	return nil
}

// ShowWorkflow resolves query to a single workflow and writes it in detail.
func ShowWorkflow(w io.Writer, workflows []model.Workflow, query string, asJSON bool, now time.Time) error {
	wf, err := resolver.ResolveWorkflow(workflows, query)
	if err != nil {
		return err
	}

	if asJSON {
		if err := FormatSingleJSON(w, wf); err != nil {
			return fmt.Errorf("failed to format workflow: %w", err)
		}
		return nil
	}

	FormatWorkflowDetail(w, wf, now)
	return nil
}
