package component

import (
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/vk/compreg/internal/record"
	"github.com/vk/compreg/internal/resource"
	"github.com/vk/compreg/internal/storage"
	"github.com/vk/compreg/internal/typeid"
	"github.com/zclconf/go-cty/cty"
)

// Kind names how a configurable field is read from a record. The names
// match the field types accepted in component manifests.
type Kind string

const (
	KindInt8         Kind = "int8"
	KindInt16        Kind = "int16"
	KindInt32        Kind = "int32"
	KindInt64        Kind = "int64"
	KindUint8        Kind = "uint8"
	KindUint16       Kind = "uint16"
	KindUint32       Kind = "uint32"
	KindUint64       Kind = "uint64"
	KindByte         Kind = "byte"
	KindFlags8       Kind = "flags8"
	KindFlags16      Kind = "flags16"
	KindFlags32      Kind = "flags32"
	KindFlags64      Kind = "flags64"
	KindFloat        Kind = "float"
	KindDouble       Kind = "double"
	KindBool         Kind = "bool"
	KindString       Kind = "string"
	KindHashedString Kind = "hashed-string"
	KindRef          Kind = "ref"
	KindSignal       Kind = "signal"
	KindVec2         Kind = "vec2"
	KindVec3         Kind = "vec3"
	KindVec4         Kind = "vec4"
	KindRGB          Kind = "rgb"
	KindRGBA         Kind = "rgba"
	KindResource     Kind = "resource"
	KindTexture      Kind = "texture"
	KindMesh         Kind = "mesh"
	KindEntity       Kind = "entity"
	KindUUID         Kind = "uuid"
	KindList         Kind = "list"
	KindRecord       Kind = "record"
)

var (
	vec2Type     = reflect.TypeFor[mgl32.Vec2]()
	vec3Type     = reflect.TypeFor[mgl32.Vec3]()
	vec4Type     = reflect.TypeFor[mgl32.Vec4]()
	hashedType   = reflect.TypeFor[typeid.HashedString]()
	stableIDType = reflect.TypeFor[typeid.StableID]()
	handleType   = reflect.TypeFor[resource.Handle]()
	entityType   = reflect.TypeFor[storage.Entity]()
	uuidType     = reflect.TypeFor[uuid.UUID]()
)

// codec reads and writes one scalar kind.
type codec struct {
	ty      cty.Type
	accepts func(t reflect.Type) bool
	decode  func(env *Env, path string, v cty.Value, dst reflect.Value) error
	encode  func(env *Env, src reflect.Value) (cty.Value, error)
}

var codecs = map[Kind]*codec{
	KindInt8:    numberCodec(reflect.Int8),
	KindInt16:   numberCodec(reflect.Int16),
	KindInt32:   numberCodec(reflect.Int32),
	KindInt64:   numberCodec(reflect.Int64, reflect.Int),
	KindUint8:   numberCodec(reflect.Uint8),
	KindUint16:  numberCodec(reflect.Uint16),
	KindUint32:  numberCodec(reflect.Uint32),
	KindUint64:  numberCodec(reflect.Uint64, reflect.Uint),
	KindByte:    numberCodec(reflect.Uint8),
	KindFlags8:  numberCodec(reflect.Uint8),
	KindFlags16: numberCodec(reflect.Uint16),
	KindFlags32: numberCodec(reflect.Uint32),
	KindFlags64: numberCodec(reflect.Uint64, reflect.Uint),
	KindFloat:   numberCodec(reflect.Float32, reflect.Float64),
	KindDouble:  numberCodec(reflect.Float64),

	KindBool:   primitiveCodec(cty.Bool, reflect.Bool),
	KindString: primitiveCodec(cty.String, reflect.String),

	KindHashedString: hashedStringCodec(),
	KindRef:          stableIDCodec(),
	KindSignal:       stableIDCodec(),

	KindVec2: vectorCodec("x", "y"),
	KindVec3: vectorCodec("x", "y", "z"),
	KindVec4: vectorCodec("x", "y", "z", "w"),
	KindRGB:  vectorCodec("r", "g", "b"),
	KindRGBA: vectorCodec("r", "g", "b", "a"),

	KindResource: resourceCodec(resource.KindAny),
	KindTexture:  resourceCodec(resource.KindTexture),
	KindMesh:     resourceCodec(resource.KindMesh),

	KindEntity: entityCodec(),
	KindUUID:   uuidCodec(),
}

// Kinds lists every scalar kind plus list and record.
func Kinds() []Kind {
	out := make([]Kind, 0, len(codecs)+2)
	for k := range codecs {
		out = append(out, k)
	}
	out = append(out, KindList, KindRecord)
	return out
}

// inferKind picks the kind for a Go field type when the tag does not name one.
func inferKind(t reflect.Type) (Kind, bool) {
	switch t {
	case vec2Type:
		return KindVec2, true
	case vec3Type:
		return KindVec3, true
	case vec4Type:
		return KindVec4, true
	case hashedType:
		return KindHashedString, true
	case stableIDType:
		return KindRef, true
	case handleType:
		return KindResource, true
	case entityType:
		return KindEntity, true
	case uuidType:
		return KindUUID, true
	}

	switch t.Kind() {
	case reflect.Int8:
		return KindInt8, true
	case reflect.Int16:
		return KindInt16, true
	case reflect.Int32:
		return KindInt32, true
	case reflect.Int64, reflect.Int:
		return KindInt64, true
	case reflect.Uint8:
		return KindUint8, true
	case reflect.Uint16:
		return KindUint16, true
	case reflect.Uint32:
		return KindUint32, true
	case reflect.Uint64, reflect.Uint:
		return KindUint64, true
	case reflect.Float32:
		return KindFloat, true
	case reflect.Float64:
		return KindDouble, true
	case reflect.Bool:
		return KindBool, true
	case reflect.String:
		return KindString, true
	case reflect.Struct:
		return KindRecord, true
	case reflect.Slice:
		return KindList, true
	}
	return "", false
}

func kindIn(t reflect.Type, kinds ...reflect.Kind) bool {
	for _, k := range kinds {
		if t.Kind() == k {
			return true
		}
	}
	return false
}

func numberCodec(kinds ...reflect.Kind) *codec {
	return &codec{
		ty:      cty.Number,
		accepts: func(t reflect.Type) bool { return kindIn(t, kinds...) },
		decode: func(_ *Env, path string, v cty.Value, dst reflect.Value) error {
			if dst.Kind() == reflect.Float32 {
				return decodeFloat(path, v, dst)
			}
			return record.Coerce(path, v, cty.Number, dst.Addr().Interface())
		},
		encode: func(_ *Env, src reflect.Value) (cty.Value, error) {
			return encodeNumber(src)
		},
	}
}

// decodeFloat stores v in a float field. gocty only range-checks against
// float64, so float32 overflow is caught here.
func decodeFloat(path string, v cty.Value, dst reflect.Value) error {
	var f float64
	if err := record.Coerce(path, v, cty.Number, &f); err != nil {
		return err
	}
	if dst.Kind() == reflect.Float32 && math.Abs(f) > math.MaxFloat32 {
		return &record.TypeError{Field: path, Want: "float32", Got: strconv.FormatFloat(f, 'g', -1, 64)}
	}
	dst.SetFloat(f)
	return nil
}

func encodeNumber(src reflect.Value) (cty.Value, error) {
	switch src.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return cty.NumberIntVal(src.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return cty.NumberUIntVal(src.Uint()), nil
	case reflect.Float32, reflect.Float64:
		f := src.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return cty.NilVal, &record.TypeError{Want: "finite number", Got: strconv.FormatFloat(f, 'g', -1, 64)}
		}
		bits := 64
		if src.Kind() == reflect.Float32 {
			// Shortest float32 text keeps 0.1 as 0.1 instead of 0.10000000149.
			bits = 32
		}
		return cty.ParseNumberVal(strconv.FormatFloat(f, 'g', -1, bits))
	}
	return cty.NilVal, &record.TypeError{Want: "number", Got: src.Type().String()}
}

func primitiveCodec(ty cty.Type, kind reflect.Kind) *codec {
	return &codec{
		ty:      ty,
		accepts: func(t reflect.Type) bool { return t.Kind() == kind },
		decode: func(_ *Env, path string, v cty.Value, dst reflect.Value) error {
			return record.Coerce(path, v, ty, dst.Addr().Interface())
		},
		encode: func(_ *Env, src reflect.Value) (cty.Value, error) {
			if kind == reflect.Bool {
				return cty.BoolVal(src.Bool()), nil
			}
			return cty.StringVal(src.String()), nil
		},
	}
}

func hashedStringCodec() *codec {
	return &codec{
		ty:      cty.String,
		accepts: func(t reflect.Type) bool { return t == hashedType },
		decode: func(_ *Env, path string, v cty.Value, dst reflect.Value) error {
			var s string
			if err := record.Coerce(path, v, cty.String, &s); err != nil {
				return err
			}
			dst.Set(reflect.ValueOf(typeid.NewHashedString(s)))
			return nil
		},
		encode: func(_ *Env, src reflect.Value) (cty.Value, error) {
			return cty.StringVal(src.Interface().(typeid.HashedString).Value), nil
		},
	}
}

// stableIDCodec hashes names. A number is taken as an already hashed id so
// snapshots can be fed back as configuration.
func stableIDCodec() *codec {
	return &codec{
		ty:      cty.String,
		accepts: func(t reflect.Type) bool { return t == stableIDType },
		decode: func(_ *Env, path string, v cty.Value, dst reflect.Value) error {
			if v.Type() == cty.Number {
				var raw uint32
				if err := record.Coerce(path, v, cty.Number, &raw); err != nil {
					return err
				}
				dst.SetUint(uint64(raw))
				return nil
			}
			var s string
			if err := record.Coerce(path, v, cty.String, &s); err != nil {
				return err
			}
			dst.SetUint(uint64(typeid.Hash(s)))
			return nil
		},
		encode: func(_ *Env, src reflect.Value) (cty.Value, error) {
			return cty.NumberUIntVal(src.Uint()), nil
		},
	}
}

func vectorCodec(components ...string) *codec {
	attrs := make(map[string]cty.Type, len(components))
	for _, c := range components {
		attrs[c] = cty.Number
	}
	n := len(components)
	return &codec{
		ty: cty.Object(attrs),
		accepts: func(t reflect.Type) bool {
			return t.Kind() == reflect.Array && t.Len() == n && kindIn(t.Elem(), reflect.Float32, reflect.Float64)
		},
		decode: func(_ *Env, path string, v cty.Value, dst reflect.Value) error {
			ty := v.Type()
			switch {
			case ty.IsObjectType() || ty.IsMapType():
				m := v.AsValueMap()
				for i, c := range components {
					cv, ok := m[c]
					if !ok || cv.IsNull() {
						return &record.AbsentError{Field: path + "." + c}
					}
					if err := decodeFloat(path+"."+c, cv, dst.Index(i)); err != nil {
						return err
					}
				}
				return nil
			case ty.IsTupleType() || ty.IsListType():
				if v.LengthInt() != n {
					return &record.TypeError{Field: path, Want: strconv.Itoa(n) + " components", Got: strconv.Itoa(v.LengthInt()) + " components"}
				}
				i := 0
				for it := v.ElementIterator(); it.Next(); i++ {
					_, ev := it.Element()
					if err := decodeFloat(path+"."+components[i], ev, dst.Index(i)); err != nil {
						return err
					}
				}
				return nil
			}
			return &record.TypeError{Field: path, Want: "object with " + strings.Join(components, ","), Got: ty.FriendlyName()}
		},
		encode: func(_ *Env, src reflect.Value) (cty.Value, error) {
			out := make(map[string]cty.Value, n)
			for i, c := range components {
				v, err := encodeNumber(src.Index(i))
				if err != nil {
					return cty.NilVal, err
				}
				out[c] = v
			}
			return cty.ObjectVal(out), nil
		},
	}
}

func resourceCodec(want resource.Kind) *codec {
	what := "resource"
	if want != resource.KindAny {
		what = string(want)
	}
	return &codec{
		ty:      cty.String,
		accepts: func(t reflect.Type) bool { return t == handleType },
		decode: func(env *Env, path string, v cty.Value, dst reflect.Value) error {
			var name string
			if err := record.Coerce(path, v, cty.String, &name); err != nil {
				return err
			}
			if env == nil || env.Resources == nil {
				return &refError{Field: path, What: what, Name: name}
			}
			entry, ok := env.Resources.FindByName(name)
			if !ok {
				return &refError{Field: path, What: what, Name: name}
			}
			if want != resource.KindAny && entry.Kind != resource.KindAny && entry.Kind != want {
				return &record.TypeError{Field: path, Want: what, Got: string(entry.Kind) + " " + strconv.Quote(name)}
			}
			dst.SetUint(uint64(entry.Handle))
			return nil
		},
		encode: func(env *Env, src reflect.Value) (cty.Value, error) {
			h := resource.Handle(src.Uint())
			if h == 0 {
				return cty.NullVal(cty.String), nil
			}
			if env != nil && env.Resources != nil {
				if entry, ok := env.Resources.Lookup(h); ok {
					return cty.StringVal(entry.Name), nil
				}
			}
			return cty.NullVal(cty.String), nil
		},
	}
}

func entityCodec() *codec {
	return &codec{
		ty:      cty.String,
		accepts: func(t reflect.Type) bool { return t == entityType },
		decode: func(env *Env, path string, v cty.Value, dst reflect.Value) error {
			var name string
			if err := record.Coerce(path, v, cty.String, &name); err != nil {
				return err
			}
			if env == nil || env.Entities == nil {
				return &refError{Field: path, What: "entity", Name: name}
			}
			e, ok := env.Entities.ResolveEntity(name)
			if !ok {
				return &refError{Field: path, What: "entity", Name: name}
			}
			dst.SetUint(uint64(e))
			return nil
		},
		encode: func(env *Env, src reflect.Value) (cty.Value, error) {
			e := storage.Entity(src.Uint())
			if e == storage.Null {
				return cty.NullVal(cty.String), nil
			}
			if env != nil && env.Entities != nil {
				if name, ok := env.Entities.EntityName(e); ok {
					return cty.StringVal(name), nil
				}
			}
			// Only names can be fed back as configuration.
			return cty.NullVal(cty.String), nil
		},
	}
}

func uuidCodec() *codec {
	return &codec{
		ty:      cty.String,
		accepts: func(t reflect.Type) bool { return t == uuidType },
		decode: func(_ *Env, path string, v cty.Value, dst reflect.Value) error {
			var s string
			if err := record.Coerce(path, v, cty.String, &s); err != nil {
				return err
			}
			id, err := uuid.Parse(s)
			if err != nil {
				return &record.TypeError{Field: path, Want: "uuid", Got: strconv.Quote(s), Err: err}
			}
			dst.Set(reflect.ValueOf(id))
			return nil
		},
		encode: func(_ *Env, src reflect.Value) (cty.Value, error) {
			return cty.StringVal(src.Interface().(uuid.UUID).String()), nil
		},
	}
}
