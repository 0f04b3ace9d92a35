package project

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatch_DecodeAndApply(t *testing.T) {
	var patch Patch
	require.NoError(t, json.Unmarshal([]byte(`{"name":"B","requirements":{"floors":2}}`), &patch))

	out := patch.Apply(Project{ID: "p1", Name: "A", Status: "draft", Requirements: map[string]any{"rooms": 4.0}})

	assert.Equal(t, "B", out.Name)
	assert.Equal(t, "draft", out.Status)
	assert.Equal(t, map[string]any{"floors": 2.0}, out.Requirements)
}

func TestPatch_IsEmpty(t *testing.T) {
	assert.True(t, Patch{}.IsEmpty())
	assert.False(t, Patch{Status: ptr("done")}.IsEmpty())
}

func TestPatch_ApplyDoesNotAlias(t *testing.T) {
	req := map[string]any{"nested": map[string]any{"a": 1.0}}
	patch := Patch{Requirements: req}

	out := patch.Apply(Project{ID: "p1"})
	req["nested"].(map[string]any)["a"] = 2.0

	assert.Equal(t, 1.0, out.Requirements["nested"].(map[string]any)["a"])
}

func TestProject_JSONShape(t *testing.T) {
	p := Project{
		ID:       "p1",
		Location: Location{Address: "1 Main St", Country: ptr("CA")},
		Designs:  &Designs{ThreeD: "mesh-ref", MEP: []any{"duct"}},
	}

	data, err := json.Marshal(p)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, map[string]any{"address": "1 Main St", "country": "CA"}, m["location"])
	assert.Equal(t, map[string]any{"3d": "mesh-ref", "mep": []any{"duct"}}, m["designs"])
	assert.NotContains(t, m, "portfolio")
	assert.Contains(t, m, "surfaceArea")
	assert.Contains(t, m, "createdAt")
}

func TestFillDefaults(t *testing.T) {
	now := time.Date(2026, 4, 5, 6, 7, 8, 0, time.FixedZone("CET", 3600))

	p := FillDefaults(Project{Name: "Library"}, now)
	_, err := uuid.Parse(p.ID)
	assert.NoError(t, err)
	assert.Equal(t, "2026-04-05T05:07:08Z", p.CreatedAt)
	assert.NotNil(t, p.Requirements)

	kept := FillDefaults(Project{ID: "p1", CreatedAt: "yesterday", Requirements: map[string]any{"a": 1.0}}, now)
	assert.Equal(t, "p1", kept.ID)
	assert.Equal(t, "yesterday", kept.CreatedAt)
	assert.Equal(t, map[string]any{"a": 1.0}, kept.Requirements)
}
