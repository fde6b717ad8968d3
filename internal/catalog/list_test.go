package catalog

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/murdash/internal/filter"
	"github.com/dyluth/murdash/internal/resolver"
	"github.com/dyluth/murdash/pkg/model"
)

func listFixture() []model.Pattern {
	return []model.Pattern{
		{ID: "b-pattern", Confidence: 0.5, Tier: model.TierProject, Stats: model.PatternStats{Injections: 1, Updated: testNow.Add(-time.Hour)}},
		{ID: "a-pattern", Confidence: 0.9, Tier: model.TierGlobal, Stats: model.PatternStats{Injections: 7, Updated: testNow.Add(-48 * time.Hour)}},
		{ID: "c-pattern", Confidence: 0.7, Tier: model.TierGlobal, Archived: model.Some(true)},
	}
}

func listedIDs(t *testing.T, out string) []string {
	t.Helper()
	var ids []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		var p model.Pattern
		require.NoError(t, json.Unmarshal([]byte(line), &p))
		ids = append(ids, p.ID)
	}
	return ids
}

func TestListPatterns(t *testing.T) {
	tests := []struct {
		name     string
		opts     ListOptions
		expected []string
	}{
		{name: "default hides archived, sorted by id", opts: ListOptions{}, expected: []string{"a-pattern", "b-pattern"}},
		{name: "by confidence", opts: ListOptions{Sort: SortByConfidence}, expected: []string{"a-pattern", "b-pattern"}},
		{name: "by updated", opts: ListOptions{Sort: SortByUpdated}, expected: []string{"b-pattern", "a-pattern"}},
		{name: "by usage", opts: ListOptions{Sort: SortByUsage}, expected: []string{"a-pattern", "b-pattern"}},
		{
			name:     "include archived",
			opts:     ListOptions{Sort: SortByConfidence, Criteria: &filter.Criteria{IncludeArchived: true}},
			expected: []string{"a-pattern", "c-pattern", "b-pattern"},
		},
		{
			name:     "tier filter",
			opts:     ListOptions{Criteria: &filter.Criteria{Tier: model.TierProject}},
			expected: []string{"b-pattern"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			patterns := listFixture()
			tt.opts.Format = OutputFormatJSONL
			tt.opts.Now = testNow

			var buf bytes.Buffer
			require.NoError(t, ListPatterns(&buf, patterns, tt.opts))
			assert.Equal(t, tt.expected, listedIDs(t, buf.String()))
			assert.Equal(t, "b-pattern", patterns[0].ID, "input must not be reordered")
		})
	}

	t.Run("unknown format", func(t *testing.T) {
		err := ListPatterns(&bytes.Buffer{}, listFixture(), ListOptions{Format: "xml"})
		assert.Error(t, err)
	})
}

func TestListWorkflows(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ListWorkflows(&buf, []model.Workflow{{ID: "2", Name: "Zeta"}, {ID: "1", Name: "Alpha"}}, OutputFormatDefault, testNow))
	out := buf.String()
	assert.Less(t, strings.Index(out, "Alpha"), strings.Index(out, "Zeta"))
}

func TestParseFlags(t *testing.T) {
	f, err := ParseOutputFormat("")
	require.NoError(t, err)
	assert.Equal(t, OutputFormatDefault, f)

	_, err = ParseOutputFormat("yaml")
	assert.Error(t, err)

	k, err := ParseSortKey("usage")
	require.NoError(t, err)
	assert.Equal(t, SortByUsage, k)

	_, err = ParseSortKey("random")
	assert.Error(t, err)
}

func TestShow(t *testing.T) {
	t.Run("pattern by prefix", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, ShowPattern(&buf, listFixture(), "a-p", false, testNow))
		assert.Contains(t, buf.String(), "a-pattern")
	})

	t.Run("pattern as json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, ShowPattern(&buf, listFixture(), "c-pattern", true, testNow))
		assert.Contains(t, buf.String(), `"archived": true`)
	})

	t.Run("ambiguous prefix", func(t *testing.T) {
		err := ShowPattern(&bytes.Buffer{}, listFixture(), "pat", false, testNow)
		assert.True(t, resolver.IsNotFoundError(err))

		err = ShowPattern(&bytes.Buffer{}, []model.Pattern{{ID: "go-a"}, {ID: "go-b"}}, "go-", false, testNow)
		assert.True(t, resolver.IsAmbiguousError(err))
	})

	t.Run("workflow", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, ShowWorkflow(&buf, []model.Workflow{{ID: "wf-release", Name: "Release", Steps: []string{"tag"}}}, "wf-rel", false, testNow))
		assert.Contains(t, buf.String(), "1. tag")
	})
}
