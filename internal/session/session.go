// Package session tracks one editing session of one template. A session
// binds a template identity plus user-entered value overrides, and moves
// through a one-way state machine: DRAFT while values are mutable,
// EXPORTED (terminal) after a successful export. Further edits require a
// new session, which guarantees an exported artifact corresponds to
// exactly one template snapshot.
package session

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/formdeck/formdeck/internal/registry"
)

// State is the session lifecycle state.
type State string

const (
	StateDraft    State = "draft"
	StateExported State = "exported"
)

// ErrExported is returned for any mutation or re-export attempt on a
// session that has already been exported.
var ErrExported = errors.New("session is exported and can no longer change; create a new session")

// FormSession is an immutable binding of one template snapshot plus
// user-entered value overrides. The template is snapshotted at creation
// time, so a hot reload cannot change what an in-flight session exports.
type FormSession struct {
	InstanceID  uuid.UUID
	TemplateUID string
	CreatedAt   time.Time
	LastSavedAt time.Time

	template *registry.Template
	values   map[string]any
	state    State
}

// New creates a DRAFT session over a snapshot of tpl with optional initial
// values.
func New(tpl *registry.Template, values map[string]any) *FormSession {
	now := time.Now().UTC()
	s := &FormSession{
		InstanceID:  uuid.New(),
		TemplateUID: tpl.TemplateUID,
		CreatedAt:   now,
		LastSavedAt: now,
		template:    tpl.Clone(),
		values:      make(map[string]any, len(values)),
		state:       StateDraft,
	}
	for k, v := range values {
		s.values[k] = v
	}
	return s
}

// Template returns the session's template snapshot.
func (s *FormSession) Template() *registry.Template {
	return s.template
}

// State returns the session's lifecycle state.
func (s *FormSession) State() State {
	return s.state
}

// Set stores one user-entered value. Only DRAFT sessions accept writes.
func (s *FormSession) Set(key string, value any) error {
	if s.state != StateDraft {
		return ErrExported
	}
	s.values[key] = value
	s.LastSavedAt = time.Now().UTC()
	return nil
}

// SetAll stores a batch of user-entered values.
func (s *FormSession) SetAll(values map[string]any) error {
	if s.state != StateDraft {
		return ErrExported
	}
	for k, v := range values {
		s.values[k] = v
	}
	s.LastSavedAt = time.Now().UTC()
	return nil
}

// Values returns a copy of the user-entered overrides.
func (s *FormSession) Values() map[string]any {
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// MarkExported transitions DRAFT -> EXPORTED. The transition is one-way.
func (s *FormSession) MarkExported() error {
	if s.state != StateDraft {
		return ErrExported
	}
	s.state = StateExported
	return nil
}
