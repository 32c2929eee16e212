package component

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vk/compreg/internal/storage"
	"github.com/vk/compreg/internal/typeid"
)

// Error kinds. Every error produced by a descriptor or the registry wraps
// exactly one of these, so callers can branch with errors.Is.
var (
	ErrDuplicateRegistration      = errors.New("duplicate registration")
	ErrUnknownComponentID         = errors.New("unknown component id")
	ErrMissingRequiredField       = errors.New("missing required field")
	ErrFieldTypeMismatch          = errors.New("field type mismatch")
	ErrManageOperationUnsupported = errors.New("manage operation unsupported")
	ErrUnresolvedReference        = errors.New("unresolved reference")
	ErrInvalidComponent           = errors.New("invalid component")
)

// Error is the structured failure of a descriptor or registry operation.
type Error struct {
	Op        string // "load", "manage", "register", ...
	Kind      error  // one of the Err* values above, or storage.ErrDeadEntity
	Component string
	ID        typeid.StableID
	Entity    storage.Entity // storage.Null when not entity specific
	Field     string         // dotted path, empty when not field specific; Err names it too
	Phase     Phase          // loader phase for Op == "load"
	Err       error          // underlying cause, may be nil
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Component != "" {
		fmt.Fprintf(&b, " %s (%s)", e.Component, e.ID)
	}
	if e.Entity != storage.Null {
		fmt.Fprintf(&b, " on %s", e.Entity)
	}
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// refError reports a name that could not be resolved against the Env.
type refError struct {
	Field string
	What  string
	Name  string
}

func (e *refError) Error() string {
	return fmt.Sprintf("field %q: %s %q not found", e.Field, e.What, e.Name)
}
