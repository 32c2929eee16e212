// Package component implements the type-erased component descriptor.
//
// A Descriptor carries a component type's identity (stable id, runtime tag,
// canonical name), its metadata and a fixed set of operations bound to the
// concrete Go type when the descriptor is built: Load, Read, IsPresent and
// Manage, plus Snapshot and Defaults for inspection. Callers that hold a
// Descriptor never need the concrete type.
//
// # Defining Components
//
// Define[T] reflects over a struct once and compiles a field plan from its
// `comp` tags:
//
//	type Position struct {
//		X float32 `comp:"x"`
//		Y float32 `comp:"y"`
//	}
//
//	var PositionDesc = component.MustDefine[Position]("core", "position")
//
// A tag is `comp:"name[,optional][,kind=<kind>][,elem=<kind>]"`. The kind is
// inferred from the Go type and only needs spelling out to pick between
// kinds sharing a representation, for example rgb versus vec3. Types may
// implement Defaulter, Validator and Finalizer to take part in loading.
//
// # Loader Protocol
//
// Load runs four phases: parsing fields into a scratch value, validating it,
// constructing the final instance and committing it to storage. Committing
// is the only step that mutates the world, so a failed load leaves the
// entity exactly as it was.
//
// Every failure is an *Error wrapping one of the Err* kinds.
package component
