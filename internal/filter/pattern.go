package filter

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/dyluth/murdash/pkg/model"
)

// Criteria defines filtering criteria for patterns.
// All filters are ANDed together - a pattern must match ALL criteria to pass.
type Criteria struct {
	Since           time.Time      // Lower bound on Stats.Updated, zero = no filter
	Until           time.Time      // Upper bound on Stats.Updated, zero = no filter
	TagGlob         string         // Glob matched against each tag, empty = no filter
	Tier            model.Tier     // Exact tier, empty = no filter
	Maturity        model.Maturity // Exact maturity, empty = no filter
	MinConfidence   float64        // Inclusive lower bound, 0 = no filter
	Search          string         // Case-insensitive substring of id, description or triggers
	IncludeArchived bool           // Archived patterns are hidden unless set
}

// Matches returns true if the pattern matches all filter criteria.
// Empty/zero criteria values are treated as "match all" for that criterion.
func (c *Criteria) Matches(p model.Pattern) bool {
	if !c.IncludeArchived && p.IsArchived() {
		return false
	}

	if !c.Since.IsZero() && p.Stats.Updated.Before(c.Since) {
		return false
	}
	if !c.Until.IsZero() && p.Stats.Updated.After(c.Until) {
		return false
	}

	if c.TagGlob != "" && !anyTagMatches(c.TagGlob, p.Tags) {
		return false
	}

	if c.Tier != "" && p.Tier != c.Tier {
		return false
	}
	if c.Maturity != "" && p.Maturity != c.Maturity {
		return false
	}

	if c.MinConfidence > 0 && p.Confidence < c.MinConfidence {
		return false
	}

	if c.Search != "" && !mentions(p, strings.ToLower(c.Search)) {
		return false
	}

	return true
}

// HasFilters returns true if any filters are active.
func (c *Criteria) HasFilters() bool {
	return !c.Since.IsZero() ||
		!c.Until.IsZero() ||
		c.TagGlob != "" ||
		c.Tier != "" ||
		c.Maturity != "" ||
		c.MinConfidence > 0 ||
		c.Search != "" ||
		c.IncludeArchived
}

func anyTagMatches(glob string, tags []string) bool {
	for _, tag := range tags {
		if matched, err := filepath.Match(glob, tag); err == nil && matched {
			return true
		}
	}
	return false
}

func mentions(p model.Pattern, needle string) bool {
	if strings.Contains(strings.ToLower(p.ID), needle) ||
		strings.Contains(strings.ToLower(p.Description), needle) {
		return true
	}
	for _, trigger := range p.Triggers {
		if strings.Contains(strings.ToLower(trigger), needle) {
			return true
		}
	}
	return false
}
