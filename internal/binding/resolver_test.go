package binding

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext() *Context {
	return &Context{
		Constants: map[string]any{
			"agency": map[string]any{
				"name": "Pine Ridge District",
				"code": "PRD",
			},
		},
		Mission: map[string]any{
			"incident": map[string]any{
				"name":   "Creek Fire",
				"number": "CA-2025-001234",
			},
			"radios": []any{
				map[string]any{"channel": "CMD 1"},
				map[string]any{"channel": "TAC 4"},
			},
		},
		Personnel: map[string]any{
			"preparer": map[string]any{"name": "J. Alvarez"},
		},
	}
}

func TestResolvePath_NestedMaps(t *testing.T) {
	t.Parallel()

	ctx := testContext()
	v, err := ResolvePath(ctx.Mission, "incident.name")
	require.NoError(t, err)
	assert.Equal(t, "Creek Fire", v)
}

func TestResolvePath_ListIndex(t *testing.T) {
	t.Parallel()

	ctx := testContext()
	v, err := ResolvePath(ctx.Mission, "radios.1.channel")
	require.NoError(t, err)
	assert.Equal(t, "TAC 4", v)
}

func TestResolvePath_MissingKey(t *testing.T) {
	t.Parallel()

	_, err := ResolvePath(testContext().Mission, "incident.commander")
	var pathErr *PathError
	require.ErrorAs(t, err, &pathErr)
	assert.Equal(t, MissingKey, pathErr.Kind)
	assert.Equal(t, "commander", pathErr.Segment)
}

func TestResolvePath_WrongType(t *testing.T) {
	t.Parallel()

	// incident.name is a string; descending further is a type mismatch.
	_, err := ResolvePath(testContext().Mission, "incident.name.first")
	var pathErr *PathError
	require.ErrorAs(t, err, &pathErr)
	assert.Equal(t, WrongType, pathErr.Kind)
}

func TestResolvePath_ListIndexOutOfRange(t *testing.T) {
	t.Parallel()

	_, err := ResolvePath(testContext().Mission, "radios.7.channel")
	var pathErr *PathError
	require.ErrorAs(t, err, &pathErr)
	assert.Equal(t, MissingKey, pathErr.Kind)
}

func TestResolve_DefaultOnMiss(t *testing.T) {
	t.Parallel()

	r := NewResolver()
	v := r.Resolve(testContext(), "mission.incident.missing", "fallback")
	assert.Equal(t, "fallback", v)
}

func TestResolve_RegisteredFuncWins(t *testing.T) {
	t.Parallel()

	r := NewResolver()
	r.RegisterFunc("mission.incident.name", func(_ *Context) (any, error) {
		return "shadowed", nil
	})
	assert.Equal(t, "shadowed", r.Resolve(testContext(), "mission.incident.name", nil))
}

func TestResolve_FuncErrorYieldsDefault(t *testing.T) {
	t.Parallel()

	r := NewResolver()
	r.RegisterFunc("broken", func(_ *Context) (any, error) {
		return nil, errors.New("boom")
	})
	assert.Equal(t, "default", r.Resolve(testContext(), "broken", "default"))
}

func TestResolve_FuncPanicYieldsDefault(t *testing.T) {
	t.Parallel()

	r := NewResolver()
	r.RegisterFunc("panicky", func(_ *Context) (any, error) {
		panic("nope")
	})
	assert.Equal(t, 42, r.Resolve(testContext(), "panicky", 42))
}

func TestBindField_Sources(t *testing.T) {
	t.Parallel()

	r := NewResolver()
	ctx := testContext()

	assert.Equal(t, "PRD",
		r.BindField(ctx, FieldBinding{Source: SourceConstants, Key: "agency.code"}, nil))
	assert.Equal(t, "J. Alvarez",
		r.BindField(ctx, FieldBinding{Source: SourcePersonnel, Key: "preparer.name"}, nil))
	assert.Equal(t, "n/a",
		r.BindField(ctx, FieldBinding{Source: SourceEnv, Key: "anything"}, "n/a"))
	assert.Equal(t, "n/a",
		r.BindField(ctx, FieldBinding{Source: "bogus", Key: "x"}, "n/a"))
}

func TestBindField_ComputedWithoutRegistry(t *testing.T) {
	t.Parallel()

	r := NewResolver()
	v := r.BindField(testContext(), FieldBinding{Source: SourceComputed, Key: "header"}, "def")
	assert.Equal(t, "def", v)
}
