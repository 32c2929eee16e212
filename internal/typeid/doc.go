// Package typeid provides the two identities every component type carries.
//
// A StableID is the FNV-1a 32-bit hash of the component's canonical name. It
// is deterministic across runs, builds and binaries, and is the only identity
// that may be persisted or exchanged between modules. Distinct names may
// collide; the risk is accepted and not handled.
//
// A Tag is a process-local token allocated for a Go type the first time it is
// seen. Tags are only meaningful inside one running process and are used for
// fast dispatch when the concrete type is known at the call site.
package typeid
