package binding

import (
	"fmt"
	"strconv"
	"strings"
)

// MissKind distinguishes why a dotted-path walk stopped.
type MissKind string

const (
	// MissingKey means the segment was simply absent from a map or list.
	MissingKey MissKind = "missing_key"
	// WrongType means the walk hit a value that cannot be descended into.
	WrongType MissKind = "wrong_type"
)

// PathError reports a failed dotted-path resolution. It carries the full
// key, the segment that failed, and whether the failure was an absence or
// a type mismatch.
type PathError struct {
	Key     string
	Segment string
	Kind    MissKind
}

func (e *PathError) Error() string {
	return fmt.Sprintf("cannot resolve %q: segment %q: %s", e.Key, e.Segment, e.Kind)
}

// ResolverFunc derives a value from the full context. Registered funcs take
// precedence over dotted-path resolution for their exact key.
type ResolverFunc func(ctx *Context) (any, error)

// Resolver resolves dotted keys against context buckets. A compile-time
// table of ResolverFuncs can shadow individual keys.
type Resolver struct {
	funcs map[string]ResolverFunc
}

// NewResolver creates a resolver with an empty function table.
func NewResolver() *Resolver {
	return &Resolver{funcs: make(map[string]ResolverFunc)}
}

// RegisterFunc installs a resolver function for an exact key.
// Later registrations for the same key replace earlier ones.
func (r *Resolver) RegisterFunc(key string, fn ResolverFunc) {
	r.funcs[key] = fn
}

// Resolve resolves key against the full context. Resolution never raises
// past this boundary: any registered-function error or panic, and any path
// miss, yields def.
func (r *Resolver) Resolve(ctx *Context, key string, def any) (out any) {
	if fn, ok := r.funcs[key]; ok {
		defer func() {
			if rec := recover(); rec != nil {
				out = def
			}
		}()
		v, err := fn(ctx)
		if err != nil {
			return def
		}
		return v
	}

	v, err := ResolvePath(ctx.EnvMap(), key)
	if err != nil {
		return def
	}
	return v
}

// FieldBinding selects a source bucket and a key within it.
type FieldBinding struct {
	Source string `json:"source"`
	Key    string `json:"key"`
}

// BindField resolves a declared field binding against the context.
// The computed source dispatches to the context's computed registry; a
// missing or failing computed program yields def. Every other source
// resolves the key as a dotted path within its bucket.
func (r *Resolver) BindField(ctx *Context, b FieldBinding, def any) any {
	if b.Source == SourceComputed {
		if ctx.Computed == nil {
			return def
		}
		v, err := ctx.Computed.Eval(b.Key, ctx.EnvMap())
		if err != nil {
			return def
		}
		return v
	}

	bucket, ok := ctx.Bucket(b.Source)
	if !ok || bucket == nil {
		return def
	}
	v, err := ResolvePath(bucket, b.Key)
	if err != nil {
		return def
	}
	return v
}

// ResolvePath walks key split on "." through root. At each segment a map
// lookup is attempted first, then an integer index when the current value
// is a list. The function is total: it returns the value or a *PathError
// that distinguishes a missing key from a type mismatch.
func ResolvePath(root any, key string) (any, error) {
	current := root
	for _, seg := range strings.Split(key, ".") {
		switch v := current.(type) {
		case map[string]any:
			next, ok := v[seg]
			if !ok {
				return nil, &PathError{Key: key, Segment: seg, Kind: MissingKey}
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil {
				return nil, &PathError{Key: key, Segment: seg, Kind: WrongType}
			}
			if idx < 0 || idx >= len(v) {
				return nil, &PathError{Key: key, Segment: seg, Kind: MissingKey}
			}
			current = v[idx]
		default:
			return nil, &PathError{Key: key, Segment: seg, Kind: WrongType}
		}
	}
	return current, nil
}
