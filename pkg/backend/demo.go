package backend

import (
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/dyluth/murdash/pkg/adapter"
	"github.com/dyluth/murdash/pkg/model"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

//go:embed seed/patterns.json
var seedPatterns []byte

//go:embed seed/workflows.json
var seedWorkflows []byte

// SeedPatterns returns a fresh copy of the demo pattern dataset.
func SeedPatterns() []model.Pattern {
	patterns, skipped := adapter.DecodePatterns(seedPatterns)
	if len(skipped) > 0 {
		panic(fmt.Sprintf("corrupt demo pattern seed: %v", errors.Join(skipped...)))
	}
	return patterns
}

// SeedWorkflows returns a fresh copy of the demo workflow dataset.
func SeedWorkflows() []model.Workflow {
	workflows, skipped := adapter.DecodeWorkflows(seedWorkflows)
	if len(skipped) > 0 {
		panic(fmt.Sprintf("corrupt demo workflow seed: %v", errors.Join(skipped...)))
	}
	return workflows
}

// demoData is the in-memory dataset served in demo mode.
// Collections are never modified in place: every write swaps in a new slice, so a slice
// handed to a caller stays valid after later writes.
type demoData struct {
	patterns  []model.Pattern
	workflows []model.Workflow
}

func newDemoData() *demoData {
	return &demoData{
		patterns:  SeedPatterns(),
		workflows: SeedWorkflows(),
	}
}

func (d *demoData) findPattern(id string) (model.Pattern, bool) {
	return lo.Find(d.patterns, func(p model.Pattern) bool { return p.ID == id })
}

func (d *demoData) findWorkflow(id string) (model.Workflow, bool) {
	return lo.Find(d.workflows, func(w model.Workflow) bool { return w.ID == id })
}

func (d *demoData) createPattern(draft model.PatternDraft, now time.Time) model.Pattern {
	p := model.Pattern{
		ID:          newDemoID("pattern"),
		Description: draft.Description,
		Triggers:    lo.Ternary(draft.Triggers == nil, []string{}, draft.Triggers),
		Tags:        lo.Ternary(draft.Tags == nil, []string{}, draft.Tags),
		Tier:        draft.Tier,
		Maturity:    draft.Maturity,
		Confidence:  draft.Confidence,
		Examples:    lo.Ternary(draft.Examples == nil, []model.CodeExample{}, draft.Examples),
		Diagrams:    draft.Diagrams,
		Related:     draft.Related,
		Archived:    draft.Archived,
		Stats: model.PatternStats{
			Injections: 0,
			LastUsed:   now,
			Created:    now,
			Updated:    now,
		},
	}

	next := make([]model.Pattern, 0, len(d.patterns)+1)
	d.patterns = append(append(next, d.patterns...), p)
	return p
}

func (d *demoData) updatePattern(id string, u model.PatternUpdate, now time.Time) (model.Pattern, error) {
	current, ok := d.findPattern(id)
	if !ok {
		return model.Pattern{}, fmt.Errorf("pattern %s: %w", id, ErrNotFound)
	}

	updated := applyPatternUpdate(current, u)
	updated.Stats.Updated = now

	d.patterns = lo.Map(d.patterns, func(p model.Pattern, _ int) model.Pattern {
		if p.ID == id {
			return updated
		}
		return p
	})
	return updated, nil
}

func (d *demoData) deletePattern(id string) {
	d.patterns = lo.Filter(d.patterns, func(p model.Pattern, _ int) bool { return p.ID != id })
}

func (d *demoData) createWorkflow(draft model.WorkflowDraft, now time.Time) model.Workflow {
	w := model.Workflow{
		ID:          newDemoID("workflow"),
		Name:        draft.Name,
		Description: draft.Description,
		Steps:       lo.Ternary(draft.Steps == nil, []string{}, draft.Steps),
		Created:     now,
		Updated:     now,
	}

	next := make([]model.Workflow, 0, len(d.workflows)+1)
	d.workflows = append(append(next, d.workflows...), w)
	return w
}

func (d *demoData) updateWorkflow(id string, u model.WorkflowUpdate, now time.Time) (model.Workflow, error) {
	current, ok := d.findWorkflow(id)
	if !ok {
		return model.Workflow{}, fmt.Errorf("workflow %s: %w", id, ErrNotFound)
	}

	updated := current
	if u.Name != nil {
		updated.Name = *u.Name
	}
	if u.Description != nil {
		updated.Description = *u.Description
	}
	if u.Steps != nil {
		updated.Steps = *u.Steps
	}
	updated.Updated = now

	d.workflows = lo.Map(d.workflows, func(w model.Workflow, _ int) model.Workflow {
		if w.ID == id {
			return updated
		}
		return w
	})
	return updated, nil
}

func (d *demoData) deleteWorkflow(id string) {
	d.workflows = lo.Filter(d.workflows, func(w model.Workflow, _ int) bool { return w.ID != id })
}

func applyPatternUpdate(p model.Pattern, u model.PatternUpdate) model.Pattern {
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Triggers != nil {
		p.Triggers = *u.Triggers
	}
	if u.Tags != nil {
		p.Tags = *u.Tags
	}
	if u.Tier != nil {
		p.Tier = *u.Tier
	}
	if u.Maturity != nil {
		p.Maturity = *u.Maturity
	}
	if u.Confidence != nil {
		p.Confidence = *u.Confidence
	}
	if u.Examples != nil {
		p.Examples = *u.Examples
	}
	if u.Diagrams != nil {
		p.Diagrams = *u.Diagrams
	}
	if u.Related != nil {
		p.Related = model.Some(*u.Related)
	}
	if u.Archived != nil {
		p.Archived = model.Some(*u.Archived)
	}
	return p
}

// newDemoID returns a unique, time-ordered id such as pattern-0190c4e2-....
func newDemoID(prefix string) string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return prefix + "-" + id.String()
}
