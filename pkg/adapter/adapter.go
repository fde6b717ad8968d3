// Package adapter translates backend wire representations into the murdash domain model.
//
// Two wire dialects exist. The flat dialect already speaks the domain shape; the
// enveloped dialect (mur serve v2) wraps payloads in {data, meta} and uses its own
// pattern and workflow schema. Callers never configure the dialect: it is sniffed from
// the payload shape.
//
// Every function here is pure and needs no network access.
package adapter

import (
	"strings"

	"github.com/dyluth/murdash/pkg/model"
)

// MapMaturity maps a free-text maturity case-insensitively to the closed enum.
// Unknown or empty input maps to Draft.
func MapMaturity(s string) model.Maturity {
	switch strings.ToLower(s) {
	case "emerging":
		return model.MaturityEmerging
	case "stable":
		return model.MaturityStable
	case "canonical":
		return model.MaturityCanonical
	default:
		return model.MaturityDraft
	}
}

// MapTier maps a free-text tier case-insensitively to the closed enum.
// "core" is a synonym for Global; anything unrecognized maps to Session.
func MapTier(s string) model.Tier {
	switch strings.ToLower(s) {
	case "project":
		return model.TierProject
	case "global", "core":
		return model.TierGlobal
	default:
		return model.TierSession
	}
}

// AdaptPattern converts an enveloped-dialect pattern into a domain Pattern.
//
// Examples are always empty: the enveloped dialect has no equivalent, so the mapping
// is lossy on purpose.
func AdaptPattern(api APIPattern) model.Pattern {
	tags := make([]string, 0, len(api.Tags.Topics)+len(api.Tags.Languages)+len(api.Tags.Frameworks))
	tags = append(tags, api.Tags.Topics...)
	tags = append(tags, api.Tags.Languages...)
	tags = append(tags, api.Tags.Frameworks...)

	triggers := api.Applies.Triggers
	if triggers == nil {
		triggers = []string{}
	}

	return model.Pattern{
		ID:          api.Name,
		Description: api.Description,
		Triggers:    triggers,
		Tags:        tags,
		Tier:        MapTier(api.Tier),
		Maturity:    MapMaturity(api.Lifecycle.Maturity),
		Confidence:  api.Confidence,
		Examples:    []model.CodeExample{},
		Related:     api.Links.Related,
		Archived:    api.Lifecycle.Archived,
		Stats: model.PatternStats{
			Injections: api.Evidence.InjectionCount.OrElse(0),
			LastUsed:   api.Evidence.LastInjected.OrElse(api.UpdatedAt),
			Created:    api.CreatedAt,
			Updated:    api.UpdatedAt,
		},
	}
}

// AdaptWorkflow converts an enveloped-dialect workflow into a domain Workflow.
// Each step becomes its description, falling back to its name, then to "".
func AdaptWorkflow(api APIWorkflow) model.Workflow {
	steps := make([]string, 0, len(api.Steps))
	for _, s := range api.Steps {
		switch {
		case s.Description != "":
			steps = append(steps, s.Description)
		case s.Name != "":
			steps = append(steps, s.Name)
		default:
			steps = append(steps, "")
		}
	}

	return model.Workflow{
		ID:          api.Name,
		Name:        api.Name,
		Description: api.Description,
		Steps:       steps,
		Created:     api.CreatedAt,
		Updated:     api.UpdatedAt,
	}
}
