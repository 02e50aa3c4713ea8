package registry

import (
	"fmt"
	"strings"
)

// NotFoundError indicates a lookup miss. It carries up to three
// fuzzy-matched suggestions over known form ids, titles, and tags so the
// caller can show alternatives.
type NotFoundError struct {
	Query       string
	Suggestions []string
}

func (e *NotFoundError) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("template not found: %s", e.Query)
	}
	return fmt.Sprintf(
		"template not found: %s (did you mean: %s?)",
		e.Query, strings.Join(e.Suggestions, ", "),
	)
}

// DuplicateError indicates a re-registration of an existing
// (form_id, version) pair without an explicit replace.
type DuplicateError struct {
	FormID  string
	Version string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("template %s@%s is already registered (pass allow-replace to overwrite)", e.FormID, e.Version)
}

// ValidationError indicates a record or template failed registration checks.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid template: %s: %s", e.Field, e.Message)
}
