// Package registry provides the central "glue" between component types and
// the engine core.
//
// The Registry maps stable ids (and, for in-process dispatch, runtime tags)
// to component descriptors. It is populated during startup by the modules
// compiled into the binary, checked against the component manifests loaded
// from disk, and only read afterwards. Registration and lookup may still
// race when modules are reloaded, so all access goes through a read-write
// mutex: writers exclude everyone, readers proceed concurrently.
//
// Duplicate registration fails unless the caller asks for Replace.
// Unregistering a component force-removes every instance of it from the
// world the caller names, and logs how many were dropped.
package registry
