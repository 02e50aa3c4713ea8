package profile

import (
	"fmt"
	"strings"
)

// ManifestError indicates a manifest that could not be loaded or is
// structurally unusable. Bulk loads collect these into the LoadReport
// instead of failing the whole scan.
type ManifestError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ManifestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("manifest %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("manifest %s: %s", e.Path, e.Reason)
}

func (e *ManifestError) Unwrap() error {
	return e.Err
}

// CycleError indicates a cyclic inherits graph. It names the first profile
// id seen twice along the resolution path.
type CycleError struct {
	ProfileID string
	Path      []string
}

func (e *CycleError) Error() string {
	if len(e.Path) == 0 {
		return fmt.Sprintf("inheritance cycle detected at profile %q", e.ProfileID)
	}
	return fmt.Sprintf(
		"inheritance cycle detected at profile %q (chain: %s)",
		e.ProfileID, strings.Join(e.Path, " -> "),
	)
}

// UnknownProfileError indicates a profile id that is not registered.
type UnknownProfileError struct {
	ProfileID string
}

func (e *UnknownProfileError) Error() string {
	return fmt.Sprintf("unknown profile %q", e.ProfileID)
}

// ActivationError indicates a profile could not be activated because
// linting found ERROR-level issues. The active profile is left unchanged.
type ActivationError struct {
	ProfileID string
	Issues    []Issue
}

func (e *ActivationError) Error() string {
	n := 0
	for _, issue := range e.Issues {
		if issue.Level == LevelError {
			n++
		}
	}
	return fmt.Sprintf("cannot activate profile %q: %d error-level lint issue(s)", e.ProfileID, n)
}
