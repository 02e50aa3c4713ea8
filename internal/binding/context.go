// Package binding resolves dotted keys against a layered export context.
// A context carries the data buckets (constants, mission, personnel, env)
// plus the computed registry for the active profile chain.
package binding

// Well-known binding sources. A field binding names one of these to select
// which top-level context bucket its key is resolved against.
const (
	SourceConstants = "constants"
	SourceMission   = "mission"
	SourcePersonnel = "personnel"
	SourceEnv       = "env"
	SourceComputed  = "computed"
)

// Context is the layered runtime context supplied by the caller per export.
// It is not persisted; ownership stays with the caller.
type Context struct {
	Constants map[string]any
	Mission   map[string]any
	Personnel map[string]any
	Env       map[string]any
	Computed  *ComputedRegistry
}

// Bucket returns the data bucket for a binding source.
// The computed source has no bucket; callers dispatch it separately.
func (c *Context) Bucket(source string) (map[string]any, bool) {
	switch source {
	case SourceConstants:
		return c.Constants, true
	case SourceMission:
		return c.Mission, true
	case SourcePersonnel:
		return c.Personnel, true
	case SourceEnv:
		return c.Env, true
	default:
		return nil, false
	}
}

// EnvMap flattens the context into the environment map handed to computed
// expressions. Each bucket appears under its source name.
func (c *Context) EnvMap() map[string]any {
	return map[string]any{
		SourceConstants: c.Constants,
		SourceMission:   c.Mission,
		SourcePersonnel: c.Personnel,
		SourceEnv:       c.Env,
	}
}

// ValidSource reports whether source names a known binding source.
func ValidSource(source string) bool {
	switch source {
	case SourceConstants, SourceMission, SourcePersonnel, SourceEnv, SourceComputed:
		return true
	}
	return false
}
