package adapter

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/dyluth/murdash/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapMaturity(t *testing.T) {
	testCases := []struct {
		input    string
		expected model.Maturity
	}{
		{"canonical", model.MaturityCanonical},
		{"CANONICAL", model.MaturityCanonical},
		{"Stable", model.MaturityStable},
		{"eMeRgInG", model.MaturityEmerging},
		{"draft", model.MaturityDraft},
		{"", model.MaturityDraft},
		{"ancient", model.MaturityDraft},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.expected, MapMaturity(tc.input))
		})
	}
}

func TestMapTier(t *testing.T) {
	testCases := []struct {
		input    string
		expected model.Tier
	}{
		{"core", model.TierGlobal},
		{"CORE", model.TierGlobal},
		{"Global", model.TierGlobal},
		{"project", model.TierProject},
		{"session", model.TierSession},
		{"", model.TierSession},
		{"team", model.TierSession},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.expected, MapTier(tc.input))
		})
	}
}

func TestAdaptPattern(t *testing.T) {
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	updated := created.Add(48 * time.Hour)

	t.Run("maps every field", func(t *testing.T) {
		injected := updated.Add(time.Hour)
		api := APIPattern{
			Name:        "retry-with-backoff",
			Description: "Retry transient failures",
			Tier:        "core",
			Confidence:  0.8,
			Tags:        APITags{Topics: []string{"a"}, Languages: []string{"b"}, Frameworks: []string{"c"}},
			Applies:     APIApplies{Triggers: []string{"retry", "backoff"}},
			Evidence:    APIEvidence{InjectionCount: model.Some(12), LastInjected: model.Some(injected)},
			Links:       APILinks{Related: model.Some([]string{"circuit-breaker"})},
			Lifecycle:   APILifecycle{Maturity: "stable", Archived: model.Some(true)},
			CreatedAt:   created,
			UpdatedAt:   updated,
		}

		p := AdaptPattern(api)

		assert.Equal(t, "retry-with-backoff", p.ID)
		assert.Equal(t, "Retry transient failures", p.Description)
		assert.Equal(t, model.TierGlobal, p.Tier)
		assert.Equal(t, model.MaturityStable, p.Maturity)
		assert.Equal(t, 0.8, p.Confidence)
		assert.Equal(t, []string{"a", "b", "c"}, p.Tags)
		assert.Equal(t, []string{"retry", "backoff"}, p.Triggers)
		assert.Empty(t, p.Examples)
		assert.NotNil(t, p.Examples)
		assert.Equal(t, []string{"circuit-breaker"}, p.Related.OrElse(nil))
		assert.True(t, p.IsArchived())
		assert.Equal(t, 12, p.Stats.Injections)
		assert.Equal(t, injected, p.Stats.LastUsed)
		assert.Equal(t, created, p.Stats.Created)
		assert.Equal(t, updated, p.Stats.Updated)
	})

	t.Run("missing optional sections fall back", func(t *testing.T) {
		p := AdaptPattern(APIPattern{Name: "bare", UpdatedAt: updated})

		assert.Equal(t, 0, p.Stats.Injections)
		assert.Equal(t, updated, p.Stats.LastUsed)
		assert.Equal(t, model.MaturityDraft, p.Maturity)
		assert.Equal(t, model.TierSession, p.Tier)
		assert.False(t, p.Related.IsSet())
		assert.False(t, p.Archived.IsSet())
		assert.Equal(t, []string{}, p.Tags)
		assert.Equal(t, []string{}, p.Triggers)
	})
}

func TestAdaptWorkflow(t *testing.T) {
	w := AdaptWorkflow(APIWorkflow{
		Name:        "release",
		Description: "Ship it",
		Steps: []APIStep{
			{Name: "build", Description: "Build artefacts"},
			{Name: "tag"},
			{},
		},
	})

	assert.Equal(t, "release", w.ID)
	assert.Equal(t, "release", w.Name)
	assert.Equal(t, "Ship it", w.Description)
	assert.Equal(t, []string{"Build artefacts", "tag", ""}, w.Steps)
}

func TestUnwrapList(t *testing.T) {
	testCases := []struct {
		name     string
		body     string
		expected int
	}{
		{"bare array", `[{"id":"a"},{"id":"b"}]`, 2},
		{"envelope", `{"data":[{"id":"a"}],"meta":{"source":"mur"}}`, 1},
		{"envelope with object data", `{"data":{"id":"a"}}`, 0},
		{"object without data", `{"id":"a"}`, 0},
		{"null", `null`, 0},
		{"number", `42`, 0},
		{"malformed", `{"data":[`, 0},
		{"empty", ``, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			items := UnwrapList([]byte(tc.body))
			require.NotNil(t, items)
			assert.Len(t, items, tc.expected)
		})
	}

	t.Run("preserves element order", func(t *testing.T) {
		items := UnwrapList([]byte(`{"data":[1,2,3]}`))
		require.Len(t, items, 3)
		assert.Equal(t, json.RawMessage("1"), items[0])
		assert.Equal(t, json.RawMessage("3"), items[2])
	})
}

func TestUnwrapOne(t *testing.T) {
	testCases := []struct {
		name     string
		body     string
		expected string
	}{
		{"truthy object data", `{"data":{"id":"a"}}`, `{"id":"a"}`},
		{"truthy string data", `{"data":"x"}`, `"x"`},
		{"null data", `{"data":null}`, `{"data":null}`},
		{"false data", `{"data":false}`, `{"data":false}`},
		{"zero data", `{"data":0}`, `{"data":0}`},
		{"empty string data", `{"data":""}`, `{"data":""}`},
		{"no data", `{"id":"a"}`, `{"id":"a"}`},
		{"array", `[1]`, `[1]`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, string(UnwrapOne([]byte(tc.body))))
		})
	}
}

func TestReadMeta(t *testing.T) {
	meta, ok := ReadMeta([]byte(`{"data":[],"meta":{"source":"mur","version":"2","pattern_count":7}}`))
	require.True(t, ok)
	assert.Equal(t, Meta{Source: "mur", Version: "2", PatternCount: 7}, meta)

	_, ok = ReadMeta([]byte(`[]`))
	assert.False(t, ok)
}

func TestDecodePatterns(t *testing.T) {
	t.Run("flat dialect", func(t *testing.T) {
		body := `[{"id":"a","description":"A","tier":"Project","maturity":"Stable","confidence":0.5,"stats":{"injections":3}}]`

		patterns, skipped := DecodePatterns([]byte(body))

		assert.Empty(t, skipped)
		require.Len(t, patterns, 1)
		assert.Equal(t, "a", patterns[0].ID)
		assert.Equal(t, model.TierProject, patterns[0].Tier)
		assert.Equal(t, 3, patterns[0].Stats.Injections)
		assert.NotNil(t, patterns[0].Triggers)
		assert.NotNil(t, patterns[0].Examples)
	})

	t.Run("enveloped dialect", func(t *testing.T) {
		body := `{"data":[{"name":"b","tier":"core","confidence":0.9,` +
			`"tags":{"topics":["x"],"languages":["go"]},"lifecycle":{"maturity":"CANONICAL"},` +
			`"created_at":"2025-01-01T00:00:00Z","updated_at":"2025-01-02T00:00:00Z"}],"meta":{"source":"mur"}}`

		patterns, skipped := DecodePatterns([]byte(body))

		assert.Empty(t, skipped)
		require.Len(t, patterns, 1)
		assert.Equal(t, "b", patterns[0].ID)
		assert.Equal(t, model.TierGlobal, patterns[0].Tier)
		assert.Equal(t, model.MaturityCanonical, patterns[0].Maturity)
		assert.Equal(t, []string{"x", "go"}, patterns[0].Tags)
		assert.Equal(t, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), patterns[0].Stats.LastUsed)
	})

	t.Run("skips malformed items", func(t *testing.T) {
		body := `[{"id":"good"},{"id":"bad","confidence":"high"}]`

		patterns, skipped := DecodePatterns([]byte(body))

		require.Len(t, patterns, 1)
		assert.Equal(t, "good", patterns[0].ID)
		assert.Len(t, skipped, 1)
	})

	t.Run("unrecognized body is empty", func(t *testing.T) {
		patterns, skipped := DecodePatterns([]byte(`{"error":"boom"}`))
		assert.Empty(t, skipped)
		assert.Equal(t, []model.Pattern{}, patterns)
	})
}

func TestDecodePattern(t *testing.T) {
	flat, err := DecodePattern([]byte(`{"id":"a","description":"A"}`))
	require.NoError(t, err)
	assert.Equal(t, "a", flat.ID)

	enveloped, err := DecodePattern([]byte(`{"data":{"name":"b","tier":"project"}}`))
	require.NoError(t, err)
	assert.Equal(t, "b", enveloped.ID)
	assert.Equal(t, model.TierProject, enveloped.Tier)

	_, err = DecodePattern([]byte(`not json`))
	assert.Error(t, err)
}

func TestDecodeRejectsEnvelopeWithoutDataObject(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{name: "null", body: `{"data":null,"meta":{"source":"mur"}}`},
		{name: "false", body: `{"data":false}`},
		{name: "zero", body: `{"data":0}`},
		{name: "empty string", body: `{"data":""}`},
		{name: "string", body: `{"data":"p1"}`},
		{name: "array", body: `{"data":[{"name":"p1"}]}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodePattern([]byte(tc.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "envelope has no data object")

			_, err = DecodeWorkflow([]byte(tc.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "envelope has no data object")
		})
	}
}

func TestDecodeFlatPatternNormalizesEnums(t *testing.T) {
	testCases := []struct {
		name             string
		body             string
		expectedTier     model.Tier
		expectedMaturity model.Maturity
	}{
		{name: "canonical casing kept", body: `{"id":"a","tier":"Global","maturity":"Canonical"}`, expectedTier: model.TierGlobal, expectedMaturity: model.MaturityCanonical},
		{name: "lowercase mapped", body: `{"id":"a","tier":"project","maturity":"stable"}`, expectedTier: model.TierProject, expectedMaturity: model.MaturityStable},
		{name: "core is global", body: `{"id":"a","tier":"core","maturity":"EMERGING"}`, expectedTier: model.TierGlobal, expectedMaturity: model.MaturityEmerging},
		{name: "unknown falls back", body: `{"id":"a","tier":"team","maturity":"ancient"}`, expectedTier: model.TierSession, expectedMaturity: model.MaturityDraft},
		{name: "missing falls back", body: `{"id":"a"}`, expectedTier: model.TierSession, expectedMaturity: model.MaturityDraft},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := DecodePattern([]byte(tc.body))
			require.NoError(t, err)
			assert.Equal(t, tc.expectedTier, p.Tier)
			assert.Equal(t, tc.expectedMaturity, p.Maturity)
			assert.NoError(t, p.Tier.Validate())
			assert.NoError(t, p.Maturity.Validate())
		})
	}

	patterns, skipped := DecodePatterns([]byte(`[{"id":"a","maturity":"stable"}]`))
	assert.Empty(t, skipped)
	require.Len(t, patterns, 1)
	assert.Equal(t, model.MaturityStable, patterns[0].Maturity)
}

func TestDecodeWorkflows(t *testing.T) {
	flat, skipped := DecodeWorkflows([]byte(`[{"id":"w1","name":"One","steps":["a","b"]}]`))
	assert.Empty(t, skipped)
	require.Len(t, flat, 1)
	assert.Equal(t, []string{"a", "b"}, flat[0].Steps)

	enveloped, skipped := DecodeWorkflows([]byte(`{"data":[{"name":"w2","steps":[{"name":"n"},{"description":"d"}]}]}`))
	assert.Empty(t, skipped)
	require.Len(t, enveloped, 1)
	assert.Equal(t, "w2", enveloped[0].ID)
	assert.Equal(t, []string{"n", "d"}, enveloped[0].Steps)

	one, err := DecodeWorkflow([]byte(`{"data":{"name":"w3"}}`))
	require.NoError(t, err)
	assert.Equal(t, "w3", one.Name)
	assert.Equal(t, []string{}, one.Steps)
}
