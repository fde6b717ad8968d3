package resolver

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/dyluth/murdash/pkg/model"
)

// MinPrefixLength is the minimum length of an id prefix.
// Exact ids of any length are always accepted.
const MinPrefixLength = 3

// maxListed caps how many candidates an ambiguity message lists.
const maxListed = 10

// Resolve resolves an id or id prefix against a set of known ids.
// An exact match always wins, even when it is also a prefix of other ids.
// Returns error if zero or multiple matches found.
func Resolve(kind string, ids []string, query string) (string, error) {
	if query == "" {
		return "", fmt.Errorf("%s id is required", kind)
	}

	if lo.Contains(ids, query) {
		return query, nil
	}

	if len(query) < MinPrefixLength {
		return "", fmt.Errorf("id prefix must be at least %d characters (got %d)", MinPrefixLength, len(query))
	}

	matches := lo.Filter(ids, func(id string, _ int) bool {
		return strings.HasPrefix(id, query)
	})

	switch len(matches) {
	case 0:
		return "", &NotFoundError{Kind: kind, Query: query}
	case 1:
		return matches[0], nil
	default:
		return "", &AmbiguousError{Kind: kind, Query: query, Matches: matches}
	}
}

// ResolvePattern finds the single pattern identified by query.
func ResolvePattern(patterns []model.Pattern, query string) (model.Pattern, error) {
	ids := lo.Map(patterns, func(p model.Pattern, _ int) string { return p.ID })
	id, err := Resolve("pattern", ids, query)
	if err != nil {
		return model.Pattern{}, err
	}
	p, _ := lo.Find(patterns, func(p model.Pattern) bool { return p.ID == id })
	return p, nil
}

// ResolveWorkflow finds the single workflow identified by query.
func ResolveWorkflow(workflows []model.Workflow, query string) (model.Workflow, error) {
	ids := lo.Map(workflows, func(w model.Workflow, _ int) string { return w.ID })
	id, err := Resolve("workflow", ids, query)
	if err != nil {
		return model.Workflow{}, err
	}
	w, _ := lo.Find(workflows, func(w model.Workflow) bool { return w.ID == id })
	return w, nil
}

// NotFoundError indicates no ids matched the query.
type NotFoundError struct {
	Kind  string
	Query string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no %ss found matching '%s'", e.Kind, e.Query)
}

// AmbiguousError indicates multiple ids matched the query.
type AmbiguousError struct {
	Kind    string
	Query   string
	Matches []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous %s id '%s' matches %d %ss", e.Kind, e.Query, len(e.Matches), e.Kind)
}

// FormatAmbiguousError creates a user-friendly error message for ambiguous prefixes.
// Lists all matching ids (up to 10, then "...and N more").
func FormatAmbiguousError(err *AmbiguousError) string {
	var b strings.Builder
	fmt.Fprintf(&b, "ambiguous %s id '%s' matches %d %ss:\n", err.Kind, err.Query, len(err.Matches), err.Kind)

	for _, id := range lo.Slice(err.Matches, 0, maxListed) {
		fmt.Fprintf(&b, "  %s\n", id)
	}

	if len(err.Matches) > maxListed {
		fmt.Fprintf(&b, "  ...and %d more\n", len(err.Matches)-maxListed)
	}

	fmt.Fprintf(&b, "\nUse a longer prefix to uniquely identify the %s.", err.Kind)
	return b.String()
}

// IsNotFoundError checks if an error is a NotFoundError.
func IsNotFoundError(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsAmbiguousError checks if an error is an AmbiguousError.
func IsAmbiguousError(err error) bool {
	var target *AmbiguousError
	return errors.As(err, &target)
}
