package component

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/vk/compreg/internal/record"
	"github.com/zclconf/go-cty/cty"
)

// TagName is the struct tag that marks a configurable field.
const TagName = "comp"

// FieldSpec describes one configurable field of a component type.
type FieldSpec struct {
	Name     string
	Kind     Kind
	Elem     Kind        // element kind when Kind is KindList
	Optional bool        // absent values keep the default
	Fields   []FieldSpec // nested fields of a record, or of list(record)
}

// TypeString renders the kind the way manifests spell it, for example
// "float" or "list(texture)".
func (f FieldSpec) TypeString() string {
	if f.Kind == KindList {
		return fmt.Sprintf("list(%s)", f.Elem)
	}
	return string(f.Kind)
}

type fieldPlan struct {
	spec   FieldSpec
	index  int
	codec  *codec      // scalar field or scalar list element
	nested *structPlan // record field or record list element
}

// structPlan is the compiled form of a tagged struct type.
type structPlan struct {
	typ    reflect.Type
	fields []fieldPlan
}

type fieldTag struct {
	name     string
	optional bool
	kind     Kind
	elem     Kind
}

func parseTag(raw string) (fieldTag, error) {
	parts := strings.Split(raw, ",")
	ft := fieldTag{name: strings.TrimSpace(parts[0])}
	for _, p := range parts[1:] {
		p = strings.TrimSpace(p)
		switch {
		case p == "optional":
			ft.optional = true
		case strings.HasPrefix(p, "kind="):
			ft.kind = Kind(strings.TrimPrefix(p, "kind="))
		case strings.HasPrefix(p, "elem="):
			ft.elem = Kind(strings.TrimPrefix(p, "elem="))
		case p == "":
		default:
			return ft, fmt.Errorf("unknown tag option %q", p)
		}
	}
	if ft.name == "" {
		return ft, errors.New("empty field name")
	}
	if strings.ContainsAny(ft.name, ".[] ") {
		return ft, fmt.Errorf("invalid field name %q", ft.name)
	}
	return ft, nil
}

func buildPlan(t reflect.Type, seen []reflect.Type) (*structPlan, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%s is not a struct", t)
	}
	if slices.Contains(seen, t) {
		return nil, fmt.Errorf("%s contains itself", t)
	}
	seen = append(seen, t)

	plan := &structPlan{typ: t}
	names := make(map[string]string)
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		raw, ok := sf.Tag.Lookup(TagName)
		if !ok || raw == "-" {
			continue
		}
		if !sf.IsExported() {
			return nil, fmt.Errorf("%s.%s: tagged field must be exported", t, sf.Name)
		}
		ft, err := parseTag(raw)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", t, sf.Name, err)
		}
		if other, dup := names[ft.name]; dup {
			return nil, fmt.Errorf("%s.%s: field name %q already used by %s", t, sf.Name, ft.name, other)
		}
		names[ft.name] = sf.Name

		fp, err := planField(sf.Type, ft, seen)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", t, sf.Name, err)
		}
		fp.index = i
		plan.fields = append(plan.fields, fp)
	}
	return plan, nil
}

func planField(t reflect.Type, ft fieldTag, seen []reflect.Type) (fieldPlan, error) {
	fp := fieldPlan{spec: FieldSpec{Name: ft.name, Kind: ft.kind, Optional: ft.optional}}
	if fp.spec.Kind == "" {
		k, ok := inferKind(t)
		if !ok {
			return fp, fmt.Errorf("unsupported field type %s", t)
		}
		fp.spec.Kind = k
	}

	switch fp.spec.Kind {
	case KindRecord:
		nested, err := buildPlan(t, seen)
		if err != nil {
			return fp, err
		}
		fp.nested = nested
		fp.spec.Fields = nested.specs()
		return fp, nil

	case KindList:
		if t.Kind() != reflect.Slice {
			return fp, fmt.Errorf("kind list needs a slice, got %s", t)
		}
		et := t.Elem()
		elem := ft.elem
		if elem == "" {
			k, ok := inferKind(et)
			if !ok {
				return fp, fmt.Errorf("unsupported list element type %s", et)
			}
			elem = k
		}
		fp.spec.Elem = elem
		switch elem {
		case KindList:
			return fp, errors.New("lists of lists are not supported")
		case KindRecord:
			nested, err := buildPlan(et, seen)
			if err != nil {
				return fp, err
			}
			fp.nested = nested
			fp.spec.Fields = nested.specs()
			return fp, nil
		}
		c, err := scalarCodec(elem, et)
		if err != nil {
			return fp, err
		}
		fp.codec = c
		return fp, nil
	}

	if ft.elem != "" {
		return fp, errors.New("elem= only applies to lists")
	}
	c, err := scalarCodec(fp.spec.Kind, t)
	if err != nil {
		return fp, err
	}
	fp.codec = c
	return fp, nil
}

func scalarCodec(k Kind, t reflect.Type) (*codec, error) {
	c, ok := codecs[k]
	if !ok {
		return nil, fmt.Errorf("unknown field kind %q", k)
	}
	if !c.accepts(t) {
		return nil, fmt.Errorf("kind %s cannot be stored in %s", k, t)
	}
	return c, nil
}

func (p *structPlan) specs() []FieldSpec {
	out := make([]FieldSpec, len(p.fields))
	for i, f := range p.fields {
		out[i] = f.spec
	}
	return out
}

func (p *structPlan) field(name string) (*fieldPlan, bool) {
	for i := range p.fields {
		if p.fields[i].spec.Name == name {
			return &p.fields[i], true
		}
	}
	return nil, false
}

func (p *structPlan) hasRequired() bool {
	for _, f := range p.fields {
		if !f.spec.Optional {
			return true
		}
	}
	return false
}

// applyDefaults fills dst with SetDefaults values, innermost records first
// so an outer Defaulter can override what its nested records chose. Lists
// stay empty; their elements get defaults when decoded.
func (p *structPlan) applyDefaults(dst reflect.Value) {
	for i := range p.fields {
		f := &p.fields[i]
		if f.spec.Kind == KindRecord {
			f.nested.applyDefaults(dst.Field(f.index))
		}
	}
	if d, ok := dst.Addr().Interface().(Defaulter); ok {
		d.SetDefaults()
	}
}

// decode reads every planned field of rec into dst, which must be an
// addressable value of p.typ already holding its defaults.
func (p *structPlan) decode(env *Env, rec record.Record, dst reflect.Value) error {
	for i := range p.fields {
		f := &p.fields[i]
		if !rec.Has(f.spec.Name) {
			if f.spec.Optional {
				continue
			}
			return &record.AbsentError{Field: rec.FieldPath(f.spec.Name)}
		}
		if err := f.decode(env, rec, dst.Field(f.index)); err != nil {
			return err
		}
	}
	return nil
}

func (f *fieldPlan) decode(env *Env, rec record.Record, dst reflect.Value) error {
	name := f.spec.Name
	switch {
	case f.spec.Kind == KindRecord:
		sub, err := rec.Record(name)
		if err != nil {
			return err
		}
		return f.nested.decode(env, sub, dst)

	case f.spec.Kind == KindList:
		elems, err := rec.List(name)
		if err != nil {
			return err
		}
		out := reflect.MakeSlice(dst.Type(), len(elems), len(elems))
		for i, ev := range elems {
			slot := out.Index(i)
			if f.nested != nil {
				f.nested.applyDefaults(slot)
				sub, err := rec.ElementRecord(name, i, ev)
				if err != nil {
					return err
				}
				if err := f.nested.decode(env, sub, slot); err != nil {
					return err
				}
				continue
			}
			path := rec.FieldPath(fmt.Sprintf("%s[%d]", name, i))
			if ev.IsNull() {
				return &record.AbsentError{Field: path}
			}
			if err := f.codec.decode(env, path, ev, slot); err != nil {
				return err
			}
		}
		dst.Set(out)
		return nil
	}

	v, err := rec.Get(name)
	if err != nil {
		return err
	}
	return f.codec.decode(env, rec.FieldPath(name), v, dst)
}

// unknownKeys lists record keys, as dotted paths, that no field reads.
func (p *structPlan) unknownKeys(rec record.Record) []string {
	var out []string
	p.collectUnknown(rec, &out)
	return out
}

func (p *structPlan) collectUnknown(rec record.Record, out *[]string) {
	for _, key := range rec.Keys() {
		f, ok := p.field(key)
		if !ok {
			*out = append(*out, rec.FieldPath(key))
			continue
		}
		if f.spec.Kind != KindRecord {
			continue
		}
		if sub, err := rec.Record(key); err == nil {
			f.nested.collectUnknown(sub, out)
		}
	}
}

// encode renders src as a cty object keyed by field name.
func (p *structPlan) encode(env *Env, src reflect.Value, path string) (cty.Value, error) {
	attrs := make(map[string]cty.Value, len(p.fields))
	for i := range p.fields {
		f := &p.fields[i]
		fpath := joinPath(path, f.spec.Name)
		v, err := f.encode(env, src.Field(f.index), fpath)
		if err != nil {
			return cty.NilVal, err
		}
		attrs[f.spec.Name] = v
	}
	if len(attrs) == 0 {
		return cty.EmptyObjectVal, nil
	}
	return cty.ObjectVal(attrs), nil
}

func (f *fieldPlan) encode(env *Env, src reflect.Value, path string) (cty.Value, error) {
	switch f.spec.Kind {
	case KindRecord:
		return f.nested.encode(env, src, path)
	case KindList:
		if src.Len() == 0 {
			return cty.EmptyTupleVal, nil
		}
		elems := make([]cty.Value, src.Len())
		for i := range elems {
			epath := fmt.Sprintf("%s[%d]", path, i)
			var (
				v   cty.Value
				err error
			)
			if f.nested != nil {
				v, err = f.nested.encode(env, src.Index(i), epath)
			} else {
				v, err = encodeScalar(f.codec, env, src.Index(i), epath)
			}
			if err != nil {
				return cty.NilVal, err
			}
			elems[i] = v
		}
		return cty.TupleVal(elems), nil
	}
	return encodeScalar(f.codec, env, src, path)
}

func encodeScalar(c *codec, env *Env, src reflect.Value, path string) (cty.Value, error) {
	v, err := c.encode(env, src)
	if err != nil {
		if te, ok := err.(*record.TypeError); ok && te.Field == "" {
			te.Field = path
		}
		return cty.NilVal, err
	}
	return v, nil
}

// normalize decodes v as the named top-level field and encodes it back, so
// that equivalent spellings ("1" and 1, a tuple and an object vector) compare
// equal.
func (p *structPlan) normalize(env *Env, name string, v cty.Value) (cty.Value, error) {
	f, ok := p.field(name)
	if !ok {
		return cty.NilVal, fmt.Errorf("unknown field %q", name)
	}
	if v.IsNull() {
		return v, nil
	}
	scratch := reflect.New(p.typ).Elem()
	rec, err := record.New(cty.ObjectVal(map[string]cty.Value{name: v}))
	if err != nil {
		return cty.NilVal, err
	}
	if err := f.decode(env, rec, scratch.Field(f.index)); err != nil {
		return cty.NilVal, err
	}
	return f.encode(env, scratch.Field(f.index), name)
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}
