// Package model defines the domain entities shared by every murdash component:
// patterns, workflows, the derived dashboard statistics and the data-source mode.
// The types carry no behavior beyond validation and JSON encoding.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Tier is the declared scope of a pattern's applicability.
type Tier string

const (
	// TierSession applies to a single session
	TierSession Tier = "Session"

	// TierProject applies to every session in one project
	TierProject Tier = "Project"

	// TierGlobal applies everywhere
	TierGlobal Tier = "Global"
)

// Validate checks if the tier is one of the three known values.
func (t Tier) Validate() error {
	switch t {
	case TierSession, TierProject, TierGlobal:
		return nil
	default:
		return fmt.Errorf("invalid tier: %s", t)
	}
}

// Maturity is the confidence lifecycle stage of a pattern (Draft → Emerging → Stable → Canonical).
type Maturity string

const (
	MaturityDraft     Maturity = "Draft"
	MaturityEmerging  Maturity = "Emerging"
	MaturityStable    Maturity = "Stable"
	MaturityCanonical Maturity = "Canonical"
)

// Maturities lists every maturity stage in lifecycle order.
var Maturities = []Maturity{MaturityDraft, MaturityEmerging, MaturityStable, MaturityCanonical}

// Validate checks if the maturity is one of the four known stages.
func (m Maturity) Validate() error {
	for _, known := range Maturities {
		if m == known {
			return nil
		}
	}
	return fmt.Errorf("invalid maturity: %s", m)
}

// DataSource selects where the backend client routes requests.
type DataSource string

const (
	// DataSourceDemo serves the in-memory seed dataset, no network calls
	DataSourceDemo DataSource = "demo"

	// DataSourceLocal talks to a mur daemon on the loopback interface
	DataSourceLocal DataSource = "local"

	// DataSourceCloud talks to the hosted mur service
	DataSourceCloud DataSource = "cloud"
)

// ParseDataSource converts a user-supplied mode name into a DataSource.
func ParseDataSource(s string) (DataSource, error) {
	switch DataSource(strings.ToLower(strings.TrimSpace(s))) {
	case DataSourceDemo:
		return DataSourceDemo, nil
	case DataSourceLocal:
		return DataSourceLocal, nil
	case DataSourceCloud:
		return DataSourceCloud, nil
	default:
		return "", fmt.Errorf("invalid data source: %q (must be 'demo', 'local' or 'cloud')", s)
	}
}

// CodeExample is a code sample attached to a pattern.
type CodeExample struct {
	Language    string `json:"language"`
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
}

// PatternStats tracks usage of a pattern.
// Created is written once; Updated is refreshed on every successful mutation.
type PatternStats struct {
	Injections int       `json:"injections"`
	LastUsed   time.Time `json:"last_used"`
	Created    time.Time `json:"created"`
	Updated    time.Time `json:"updated"`
}

// Pattern is a reusable engineering insight.
type Pattern struct {
	ID          string             `json:"id"` // Stable, immutable after creation
	Description string             `json:"description"`
	Triggers    []string           `json:"triggers"` // Ordered matching phrases
	Tags        []string           `json:"tags"`     // Set-like, order irrelevant
	Tier        Tier               `json:"tier"`
	Maturity    Maturity           `json:"maturity"`
	Confidence  float64            `json:"confidence"` // In [0,1]
	Examples    []CodeExample      `json:"examples"`
	Diagrams    []string           `json:"diagrams,omitempty"`
	Related     Optional[[]string] `json:"related,omitzero"` // Weak references, dangling ids are tolerated
	Stats       PatternStats       `json:"stats"`
	Archived    Optional[bool]     `json:"archived,omitzero"`
}

// IsArchived reports whether the pattern is explicitly archived.
// An absent flag counts as not archived.
func (p Pattern) IsArchived() bool {
	return p.Archived.OrElse(false)
}

// PatternDraft is the caller-supplied part of a new pattern.
// The id and stats are assigned by whoever stores it.
type PatternDraft struct {
	Description string             `json:"description"`
	Triggers    []string           `json:"triggers"`
	Tags        []string           `json:"tags"`
	Tier        Tier               `json:"tier"`
	Maturity    Maturity           `json:"maturity"`
	Confidence  float64            `json:"confidence"`
	Examples    []CodeExample      `json:"examples"`
	Diagrams    []string           `json:"diagrams,omitempty"`
	Related     Optional[[]string] `json:"related,omitzero"`
	Archived    Optional[bool]     `json:"archived,omitzero"`
}

// Validate performs validation on a draft before it is created.
func (d *PatternDraft) Validate() error {
	if strings.TrimSpace(d.Description) == "" {
		return fmt.Errorf("description is required")
	}
	if err := d.Tier.Validate(); err != nil {
		return err
	}
	if err := d.Maturity.Validate(); err != nil {
		return err
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		return fmt.Errorf("confidence must be within [0,1], got %v", d.Confidence)
	}
	return nil
}

// PatternUpdate is a partial pattern. Nil fields are left unchanged.
// It has no ID field: a pattern's id never changes.
type PatternUpdate struct {
	Description *string        `json:"description,omitempty"`
	Triggers    *[]string      `json:"triggers,omitempty"`
	Tags        *[]string      `json:"tags,omitempty"`
	Tier        *Tier          `json:"tier,omitempty"`
	Maturity    *Maturity      `json:"maturity,omitempty"`
	Confidence  *float64       `json:"confidence,omitempty"`
	Examples    *[]CodeExample `json:"examples,omitempty"`
	Diagrams    *[]string      `json:"diagrams,omitempty"`
	Related     *[]string      `json:"related,omitempty"`
	Archived    *bool          `json:"archived,omitempty"`
}

// Workflow is a named, ordered sequence of human-readable steps.
type Workflow struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Steps       []string  `json:"steps"` // Order is significant and preserved verbatim
	Created     time.Time `json:"created"`
	Updated     time.Time `json:"updated"`
}

// WorkflowDraft is the caller-supplied part of a new workflow.
type WorkflowDraft struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Steps       []string `json:"steps"`
}

// Validate performs validation on a workflow draft.
func (d *WorkflowDraft) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}

// WorkflowUpdate is a partial workflow. Nil fields are left unchanged.
type WorkflowUpdate struct {
	Name        *string   `json:"name,omitempty"`
	Description *string   `json:"description,omitempty"`
	Steps       *[]string `json:"steps,omitempty"`
}

// DashboardStats is a derived aggregate over patterns and workflows.
// It is recomputed on demand and never cached on its own.
type DashboardStats struct {
	TotalPatterns        int              `json:"totalPatterns"`
	TotalWorkflows       int              `json:"totalWorkflows"`
	AvgConfidence        float64          `json:"avgConfidence"` // Over non-archived patterns, 2 decimal places
	ActivePatterns       int              `json:"activePatterns"`
	MaturityDistribution map[Maturity]int `json:"maturityDistribution"`
}
