// Package record provides the loosely typed configuration record handed to
// component loaders. A Record is a read-only view over a cty object or map.
// Every accessor reports a missing field (ErrFieldAbsent) distinctly from a
// field that is present but cannot be coerced (ErrTypeMismatch).
package record

import (
	"errors"
	"fmt"
	"sort"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

var (
	// ErrFieldAbsent matches errors for fields that are missing or null.
	ErrFieldAbsent = errors.New("field absent")
	// ErrTypeMismatch matches errors for fields holding the wrong kind of value.
	ErrTypeMismatch = errors.New("field type mismatch")
)

// AbsentError reports a missing field.
type AbsentError struct {
	Field string
}

func (e *AbsentError) Error() string {
	return fmt.Sprintf("field %q is absent", e.Field)
}

func (e *AbsentError) Is(target error) bool { return target == ErrFieldAbsent }

// TypeError reports a field whose value cannot be coerced to Want.
type TypeError struct {
	Field string
	Want  string
	Got   string
	Err   error
}

func (e *TypeError) Error() string {
	msg := fmt.Sprintf("field %q: cannot use %s as %s", e.Field, e.Got, e.Want)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TypeError) Is(target error) bool { return target == ErrTypeMismatch }

func (e *TypeError) Unwrap() error { return e.Err }

// Record is an immutable key/value view. The zero Record is empty.
type Record struct {
	val  cty.Value
	path string
}

// New wraps an object or map value. A null value yields an empty record.
func New(val cty.Value) (Record, error) {
	if val.IsNull() {
		return Record{}, nil
	}
	if !val.IsWhollyKnown() {
		return Record{}, errors.New("record value contains unknown values")
	}
	ty := val.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return Record{}, fmt.Errorf("record must be an object or map, got %s", ty.FriendlyName())
	}
	return Record{val: val}, nil
}

// MustNew is New that panics on error.
func MustNew(val cty.Value) Record {
	r, err := New(val)
	if err != nil {
		panic(err)
	}
	return r
}

// Empty returns a record with no fields.
func Empty() Record {
	return Record{}
}

// Value returns the underlying cty value (cty.NilVal for an empty record).
func (r Record) Value() cty.Value {
	return r.val
}

// Path is the dotted location of this record inside its root, empty for the root.
func (r Record) Path() string {
	return r.path
}

// FieldPath returns the dotted path of a field of this record.
func (r Record) FieldPath(name string) string {
	if r.path == "" {
		return name
	}
	return r.path + "." + name
}

func (r Record) attrs() map[string]cty.Value {
	if r.val.IsNull() {
		return nil
	}
	return r.val.AsValueMap()
}

// Keys returns the names of all non-null fields in sorted order.
func (r Record) Keys() []string {
	attrs := r.attrs()
	keys := make([]string, 0, len(attrs))
	for k, v := range attrs {
		if !v.IsNull() {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of non-null fields.
func (r Record) Len() int {
	return len(r.Keys())
}

// Has reports whether name is present and not null.
func (r Record) Has(name string) bool {
	v, ok := r.attrs()[name]
	return ok && !v.IsNull()
}

// Get returns the raw value of a field.
func (r Record) Get(name string) (cty.Value, error) {
	v, ok := r.attrs()[name]
	if !ok || v.IsNull() {
		return cty.NilVal, &AbsentError{Field: r.FieldPath(name)}
	}
	return v, nil
}

// Decode converts a field to ty and stores it into target (a pointer to a Go
// value compatible with ty, as understood by gocty).
func (r Record) Decode(name string, ty cty.Type, target any) error {
	v, err := r.Get(name)
	if err != nil {
		return err
	}
	return r.decodeValue(name, v, ty, target)
}

func (r Record) decodeValue(name string, v cty.Value, ty cty.Type, target any) error {
	return Coerce(r.FieldPath(name), v, ty, target)
}

// Coerce converts v to ty and stores it into target. Failures are reported
// as *TypeError for the field at path.
func Coerce(path string, v cty.Value, ty cty.Type, target any) error {
	converted, err := convert.Convert(v, ty)
	if err != nil {
		return &TypeError{Field: path, Want: ty.FriendlyName(), Got: v.Type().FriendlyName(), Err: err}
	}
	if err := gocty.FromCtyValue(converted, target); err != nil {
		return &TypeError{Field: path, Want: fmt.Sprintf("%T", target), Got: v.Type().FriendlyName(), Err: err}
	}
	return nil
}

// String returns a field as a string. Numbers and booleans are converted.
func (r Record) String(name string) (string, error) {
	var s string
	err := r.Decode(name, cty.String, &s)
	return s, err
}

// Int64 returns a field as a whole number. Fractional and out-of-range
// values are type mismatches.
func (r Record) Int64(name string) (int64, error) {
	var n int64
	err := r.Decode(name, cty.Number, &n)
	return n, err
}

// Uint64 returns a field as a non-negative whole number.
func (r Record) Uint64(name string) (uint64, error) {
	var n uint64
	err := r.Decode(name, cty.Number, &n)
	return n, err
}

// Float64 returns a field as a floating point number.
func (r Record) Float64(name string) (float64, error) {
	var f float64
	err := r.Decode(name, cty.Number, &f)
	return f, err
}

// Bool returns a field as a boolean. The strings "true" and "false" convert.
func (r Record) Bool(name string) (bool, error) {
	var b bool
	err := r.Decode(name, cty.Bool, &b)
	return b, err
}

// Record returns a nested record.
func (r Record) Record(name string) (Record, error) {
	v, err := r.Get(name)
	if err != nil {
		return Record{}, err
	}
	ty := v.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return Record{}, &TypeError{Field: r.FieldPath(name), Want: "object", Got: ty.FriendlyName()}
	}
	return Record{val: v, path: r.FieldPath(name)}, nil
}

// List returns the elements of a list, tuple or set field.
func (r Record) List(name string) ([]cty.Value, error) {
	v, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	ty := v.Type()
	if !ty.IsListType() && !ty.IsTupleType() && !ty.IsSetType() {
		return nil, &TypeError{Field: r.FieldPath(name), Want: "list", Got: ty.FriendlyName()}
	}
	out := make([]cty.Value, 0, v.LengthInt())
	for it := v.ElementIterator(); it.Next(); {
		_, elem := it.Element()
		out = append(out, elem)
	}
	return out, nil
}

// Element wraps one list element (as returned by List) so it can be decoded
// with the same error reporting as a named field. The element is addressed as
// "name[index]".
func (r Record) Element(name string, index int, elem cty.Value, ty cty.Type, target any) error {
	label := fmt.Sprintf("%s[%d]", name, index)
	if elem.IsNull() {
		return &AbsentError{Field: r.FieldPath(label)}
	}
	return r.decodeValue(label, elem, ty, target)
}

// ElementRecord wraps a list element that is itself an object.
func (r Record) ElementRecord(name string, index int, elem cty.Value) (Record, error) {
	label := fmt.Sprintf("%s[%d]", name, index)
	if elem.IsNull() {
		return Record{}, &AbsentError{Field: r.FieldPath(label)}
	}
	ty := elem.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return Record{}, &TypeError{Field: r.FieldPath(label), Want: "object", Got: ty.FriendlyName()}
	}
	return Record{val: elem, path: r.FieldPath(label)}, nil
}
