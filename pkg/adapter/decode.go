package adapter

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/dyluth/murdash/pkg/model"
)

// DecodePatterns decodes a pattern list in either dialect.
// Items that fail to decode are skipped and reported in skipped; the rest are kept.
func DecodePatterns(body []byte) (patterns []model.Pattern, skipped []error) {
	decode := flatPattern
	if Envelope(body) {
		decode = envelopedPattern
	}

	patterns = []model.Pattern{}
	for i, raw := range UnwrapList(body) {
		p, err := decode(raw)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("pattern %d: %w", i, err))
			continue
		}
		patterns = append(patterns, p)
	}
	return patterns, skipped
}

// DecodePattern decodes a single pattern response in either dialect.
// An envelope whose data is not an object is an error.
func DecodePattern(body []byte) (model.Pattern, error) {
	if Envelope(body) {
		if !hasDataObject(body) {
			return model.Pattern{}, fmt.Errorf("failed to decode pattern: envelope has no data object")
		}
		return envelopedPattern(UnwrapOne(body))
	}
	return flatPattern(body)
}

// DecodeWorkflows decodes a workflow list in either dialect.
// Items that fail to decode are skipped and reported in skipped.
func DecodeWorkflows(body []byte) (workflows []model.Workflow, skipped []error) {
	decode := flatWorkflow
	if Envelope(body) {
		decode = envelopedWorkflow
	}

	workflows = []model.Workflow{}
	for i, raw := range UnwrapList(body) {
		w, err := decode(raw)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("workflow %d: %w", i, err))
			continue
		}
		workflows = append(workflows, w)
	}
	return workflows, skipped
}

// DecodeWorkflow decodes a single workflow response in either dialect.
// An envelope whose data is not an object is an error.
func DecodeWorkflow(body []byte) (model.Workflow, error) {
	if Envelope(body) {
		if !hasDataObject(body) {
			return model.Workflow{}, fmt.Errorf("failed to decode workflow: envelope has no data object")
		}
		return envelopedWorkflow(UnwrapOne(body))
	}
	return flatWorkflow(body)
}

func flatPattern(raw []byte) (model.Pattern, error) {
	var p model.Pattern
	if err := json.Unmarshal(raw, &p); err != nil {
		return model.Pattern{}, fmt.Errorf("failed to decode pattern: %w", err)
	}
	if p.Triggers == nil {
		p.Triggers = []string{}
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if p.Examples == nil {
		p.Examples = []model.CodeExample{}
	}
	p.Tier = MapTier(string(p.Tier))
	p.Maturity = MapMaturity(string(p.Maturity))
	return p, nil
}

func hasDataObject(body []byte) bool {
	return gjson.GetBytes(body, "data").IsObject()
}

func envelopedPattern(raw []byte) (model.Pattern, error) {
	var api APIPattern
	if err := json.Unmarshal(raw, &api); err != nil {
		return model.Pattern{}, fmt.Errorf("failed to decode pattern: %w", err)
	}
	return AdaptPattern(api), nil
}

func flatWorkflow(raw []byte) (model.Workflow, error) {
	var w model.Workflow
	if err := json.Unmarshal(raw, &w); err != nil {
		return model.Workflow{}, fmt.Errorf("failed to decode workflow: %w", err)
	}
	if w.Steps == nil {
		w.Steps = []string{}
	}
	return w, nil
}

func envelopedWorkflow(raw []byte) (model.Workflow, error) {
	var api APIWorkflow
	if err := json.Unmarshal(raw, &api); err != nil {
		return model.Workflow{}, fmt.Errorf("failed to decode workflow: %w", err)
	}
	return AdaptWorkflow(api), nil
}
