package component

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/vk/compreg/internal/ctxlog"
	"github.com/vk/compreg/internal/record"
	"github.com/vk/compreg/internal/storage"
	"github.com/vk/compreg/internal/typeid"
	"github.com/zclconf/go-cty/cty"
)

type options struct {
	typeName    string
	description string
}

// Option customises Define.
type Option func(*options)

// WithTypeName overrides the display label, which defaults to the Go type name.
func WithTypeName(name string) Option {
	return func(o *options) { o.typeName = name }
}

// WithDescription attaches a one-line description.
func WithDescription(desc string) Option {
	return func(o *options) { o.description = desc }
}

// Define builds the descriptor of the struct type T. Fields tagged `comp`
// are read from configuration records; untagged fields keep whatever
// SetDefaults gives them.
func Define[T any](namespace, name string, opts ...Option) (*Descriptor, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	t := reflect.TypeFor[T]()
	plan, err := buildPlan(t, nil)
	if err != nil {
		return nil, fmt.Errorf("component %q: %w", name, err)
	}

	canonical, id := typeid.Of(namespace, name)
	b := &binding[T]{plan: plan, name: canonical, id: id, tag: typeid.TagFor[T]()}
	spec := Spec{
		Namespace:   namespace,
		Name:        name,
		TypeName:    o.typeName,
		Description: o.description,
		Type:        t,
		Fields:      plan.specs(),
		Load:        b.load,
		IsPresent:   b.isPresent,
		Manage:      b.manage,
		Snapshot:    b.snapshot,
		Defaults:    b.defaults,
		Normalize:   b.normalize,
	}
	if t.Size() > 0 {
		spec.Read = b.read
	}
	return New(spec)
}

// MustDefine is like Define but panics on error. It is meant for package
// level descriptor variables.
func MustDefine[T any](namespace, name string, opts ...Option) *Descriptor {
	d, err := Define[T](namespace, name, opts...)
	if err != nil {
		panic(err)
	}
	return d
}

// binding holds the operations of a descriptor bound to the concrete type T.
type binding[T any] struct {
	plan *structPlan
	name string
	id   typeid.StableID
	tag  typeid.Tag
}

func (b *binding[T]) fail(op string, e storage.Entity, phase Phase, kind error, field string, err error) *Error {
	return &Error{Op: op, Kind: kind, Component: b.name, ID: b.id, Entity: e, Field: field, Phase: phase, Err: err}
}

// fieldError classifies a decoding failure.
func (b *binding[T]) fieldError(op string, e storage.Entity, err error) *Error {
	var (
		absent   *record.AbsentError
		mismatch *record.TypeError
		ref      *refError
	)
	switch {
	case errors.As(err, &absent):
		return b.fail(op, e, PhaseParsing, ErrMissingRequiredField, absent.Field, err)
	case errors.As(err, &ref):
		return b.fail(op, e, PhaseParsing, ErrUnresolvedReference, ref.Field, err)
	case errors.As(err, &mismatch):
		return b.fail(op, e, PhaseParsing, ErrFieldTypeMismatch, mismatch.Field, err)
	default:
		return b.fail(op, e, PhaseParsing, ErrFieldTypeMismatch, "", err)
	}
}

// zero returns a fresh instance holding the type's defaults, nested
// records included.
func (b *binding[T]) zero() *T {
	v := new(T)
	b.plan.applyDefaults(reflect.ValueOf(v).Elem())
	return v
}

func (b *binding[T]) load(ctx context.Context, env *Env, rec record.Record, e storage.Entity) error {
	logger := ctxlog.FromContext(ctx).With("component", b.name, "entity", e.String())
	if env == nil || env.World == nil {
		return b.fail("load", e, PhaseParsing, ErrInvalidComponent, "", errors.New("no world to load into"))
	}
	if !env.World.Alive(e) {
		return b.fail("load", e, PhaseParsing, storage.ErrDeadEntity, "", nil)
	}

	logger.Debug("Parsing component fields.", "phase", PhaseParsing, "keys", rec.Len())
	scratch := b.zero()
	if err := b.plan.decode(env, rec, reflect.ValueOf(scratch).Elem()); err != nil {
		return b.fieldError("load", e, err)
	}

	logger.Debug("Validating component.", "phase", PhaseValidating)
	if unknown := b.plan.unknownKeys(rec); len(unknown) > 0 {
		logger.Warn("Ignoring unknown component fields.", "fields", unknown)
	}
	return b.finish("load", logger, env.World, e, scratch)
}

// finish runs the validating, constructing and committing phases on a
// parsed instance. Only the commit touches w.
func (b *binding[T]) finish(op string, logger *slog.Logger, w *storage.World, e storage.Entity, scratch *T) error {
	if v, ok := any(scratch).(Validator); ok {
		if err := v.Validate(); err != nil {
			return b.fail(op, e, PhaseValidating, ErrInvalidComponent, "", err)
		}
	}

	logger.Debug("Constructing component.", "phase", PhaseConstructing)
	if f, ok := any(scratch).(Finalizer); ok {
		f.Finalize()
	}

	logger.Debug("Committing component.", "phase", PhaseCommitting)
	if err := w.SetTag(e, b.tag, scratch); err != nil {
		return b.fail(op, e, PhaseCommitting, storage.ErrDeadEntity, "", err)
	}
	return nil
}

func (b *binding[T]) read(w *storage.World, e storage.Entity) (any, bool) {
	ptr, ok := w.GetTag(e, b.tag)
	if !ok {
		return nil, false
	}
	return ptr.(*T), true
}

func (b *binding[T]) isPresent(w *storage.World, e storage.Entity) bool {
	return w.HasTag(e, b.tag)
}

func (b *binding[T]) manage(ctx context.Context, w *storage.World, e storage.Entity, op ManageOp) error {
	switch op {
	case Add:
		if b.plan.hasRequired() {
			return b.fail("manage", e, 0, ErrManageOperationUnsupported, "",
				fmt.Errorf("%s needs configuration for its required fields", op))
		}
		if !w.Alive(e) {
			return b.fail("manage", e, 0, storage.ErrDeadEntity, "", nil)
		}
		// Same path as loading an empty record.
		logger := ctxlog.FromContext(ctx).With("component", b.name, "entity", e.String())
		if err := b.finish("manage", logger, w, e, b.zero()); err != nil {
			return err
		}
		logger.Debug("Added component.")
		return nil
	case Remove:
		if w.RemoveTag(e, b.tag) {
			ctxlog.FromContext(ctx).Debug("Removed component.", "component", b.name, "entity", e.String())
		}
		return nil
	default:
		return b.fail("manage", e, 0, ErrManageOperationUnsupported, "", fmt.Errorf("unknown operation %s", op))
	}
}

func (b *binding[T]) snapshot(env *Env, e storage.Entity) (cty.Value, bool, error) {
	ptr, ok := env.World.GetTag(e, b.tag)
	if !ok {
		return cty.NilVal, false, nil
	}
	v, err := b.plan.encode(env, reflect.ValueOf(ptr.(*T)).Elem(), "")
	if err != nil {
		return cty.NilVal, true, b.fail("snapshot", e, 0, ErrInvalidComponent, "", err)
	}
	return v, true, nil
}

func (b *binding[T]) defaults() (cty.Value, error) {
	v, err := b.plan.encode(nil, reflect.ValueOf(b.zero()).Elem(), "")
	if err != nil {
		return cty.NilVal, b.fail("defaults", storage.Null, 0, ErrInvalidComponent, "", err)
	}
	return v, nil
}

func (b *binding[T]) normalize(env *Env, field string, v cty.Value) (cty.Value, error) {
	out, err := b.plan.normalize(env, field, v)
	if err != nil {
		return cty.NilVal, b.fieldError("normalize", storage.Null, err)
	}
	return out, nil
}
