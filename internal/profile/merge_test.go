package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeepMerge_OverlayWinsOnScalars(t *testing.T) {
	t.Parallel()

	base := map[string]any{"a": 1, "b": "keep"}
	overlay := map[string]any{"a": 2}
	out := DeepMerge(base, overlay)

	assert.Equal(t, 2, out["a"])
	assert.Equal(t, "keep", out["b"])
}

func TestDeepMerge_RecursesIntoMaps(t *testing.T) {
	t.Parallel()

	base := map[string]any{
		"keys": map[string]any{
			"incident.name": map[string]any{"source": "mission", "desc": "base"},
		},
	}
	overlay := map[string]any{
		"keys": map[string]any{
			"incident.name": map[string]any{"desc": "child"},
		},
	}
	out := DeepMerge(base, overlay)

	entry := out["keys"].(map[string]any)["incident.name"].(map[string]any)
	assert.Equal(t, "mission", entry["source"])
	assert.Equal(t, "child", entry["desc"])
}

func TestDeepMerge_NonMapReplacesMap(t *testing.T) {
	t.Parallel()

	base := map[string]any{"a": map[string]any{"nested": true}}
	out := DeepMerge(base, map[string]any{"a": "flat"})
	assert.Equal(t, "flat", out["a"])
}

func TestDeepMerge_DoesNotMutateInputs(t *testing.T) {
	t.Parallel()

	base := map[string]any{"a": map[string]any{"x": 1}}
	overlay := map[string]any{"a": map[string]any{"y": 2}}
	_ = DeepMerge(base, overlay)

	assert.NotContains(t, base["a"].(map[string]any), "y")
	assert.NotContains(t, overlay["a"].(map[string]any), "x")
}

func TestDeepMerge_EmptyInputs(t *testing.T) {
	t.Parallel()

	assert.Empty(t, DeepMerge(nil, nil))
	assert.Equal(t, map[string]any{"a": 1}, DeepMerge(nil, map[string]any{"a": 1}))
	assert.Equal(t, map[string]any{"a": 1}, DeepMerge(map[string]any{"a": 1}, nil))
}
