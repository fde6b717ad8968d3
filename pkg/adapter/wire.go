package adapter

import (
	"time"

	"github.com/dyluth/murdash/pkg/model"
)

// APIPattern is a pattern as returned by the enveloped (mur serve v2) dialect.
type APIPattern struct {
	Schema      int          `json:"schema,omitempty"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Content     APIContent   `json:"content"`
	Tier        string       `json:"tier"`
	Importance  float64      `json:"importance,omitempty"`
	Confidence  float64      `json:"confidence"`
	Tags        APITags      `json:"tags"`
	Applies     APIApplies   `json:"applies"`
	Evidence    APIEvidence  `json:"evidence"`
	Links       APILinks     `json:"links"`
	Lifecycle   APILifecycle `json:"lifecycle"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// APIContent is the pattern body. Only one of the two layouts is set.
type APIContent struct {
	Plain     string        `json:"Plain,omitempty"`
	DualLayer *APIDualLayer `json:"DualLayer,omitempty"`
}

// APIDualLayer splits content into a technical and a principle layer.
type APIDualLayer struct {
	Technical string `json:"technical"`
	Principle string `json:"principle,omitempty"`
}

// APITags groups tags by category. Flattened in topics, languages, frameworks order.
type APITags struct {
	Topics     []string `json:"topics,omitempty"`
	Languages  []string `json:"languages,omitempty"`
	Frameworks []string `json:"frameworks,omitempty"`
}

// APIApplies describes when a pattern is injected.
type APIApplies struct {
	Triggers []string `json:"triggers,omitempty"`
}

// APIEvidence carries usage counters. Both fields may be absent.
type APIEvidence struct {
	InjectionCount model.Optional[int]       `json:"injection_count,omitzero"`
	LastInjected   model.Optional[time.Time] `json:"last_injected,omitzero"`
}

// APILinks carries weak references to other patterns.
type APILinks struct {
	Related model.Optional[[]string] `json:"related,omitzero"`
}

// APILifecycle carries the free-text maturity and the archived flag.
type APILifecycle struct {
	Maturity string               `json:"maturity,omitempty"`
	Archived model.Optional[bool] `json:"archived,omitzero"`
}

// APIWorkflow is a workflow as returned by the enveloped dialect.
type APIWorkflow struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Trigger     string    `json:"trigger,omitempty"`
	Tools       []string  `json:"tools,omitempty"`
	Steps       []APIStep `json:"steps,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// APIStep is one workflow step. Either field may be empty.
type APIStep struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

// Meta is the metadata block of an enveloped response.
type Meta struct {
	Source       string `json:"source"`
	Version      string `json:"version"`
	PatternCount int    `json:"pattern_count"`
}
