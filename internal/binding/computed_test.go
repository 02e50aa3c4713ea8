package binding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputedRegistry_RegisterAndEval(t *testing.T) {
	t.Parallel()

	cr := NewComputedRegistry()
	require.NoError(t, cr.Register("header",
		`upper(mission.incident.name) + " / " + mission.incident.number`))

	v, err := cr.Eval("header", testContext().EnvMap())
	require.NoError(t, err)
	assert.Equal(t, "CREEK FIRE / CA-2025-001234", v)
}

func TestComputedRegistry_CompileError(t *testing.T) {
	t.Parallel()

	cr := NewComputedRegistry()
	err := cr.Register("bad", `1 +`)
	require.Error(t, err)
	assert.False(t, cr.Has("bad"))
}

func TestComputedRegistry_EvalUnregistered(t *testing.T) {
	t.Parallel()

	cr := NewComputedRegistry()
	_, err := cr.Eval("nope", map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
}

func TestComputedRegistry_MergeChildWins(t *testing.T) {
	t.Parallel()

	parent := NewComputedRegistry()
	require.NoError(t, parent.Register("greeting", `"hello"`))
	require.NoError(t, parent.Register("sign_off", `"regards"`))

	child := NewComputedRegistry()
	require.NoError(t, child.Register("greeting", `"howdy"`))

	merged := parent.Clone()
	merged.MergeFrom(child)

	v, err := merged.Eval("greeting", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "howdy", v)

	v, err = merged.Eval("sign_off", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "regards", v)
	assert.Equal(t, []string{"greeting", "sign_off"}, merged.Names())
}

func TestComputedRegistry_Helpers(t *testing.T) {
	t.Parallel()

	cr := NewComputedRegistry()
	require.NoError(t, cr.Register("joined", `join(parts, "-")`))
	require.NoError(t, cr.Register("fallback", `coalesce(missing, "", "third")`))

	v, err := cr.Eval("joined", map[string]any{"parts": []any{"a", "b", "c"}})
	require.NoError(t, err)
	assert.Equal(t, "a-b-c", v)

	v, err = cr.Eval("fallback", map[string]any{"missing": nil})
	require.NoError(t, err)
	assert.Equal(t, "third", v)
}

func TestComputedRegistry_EnvShadowsHelpers(t *testing.T) {
	t.Parallel()

	cr := NewComputedRegistry()
	require.NoError(t, cr.Register("v", `upper`))

	v, err := cr.Eval("v", map[string]any{"upper": "not a function"})
	require.NoError(t, err)
	assert.Equal(t, "not a function", v)
}
