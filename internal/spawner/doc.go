// Package spawner turns entity definitions from the config model into live
// entities. It is the generic driver of the component registry: for every
// component block it looks the descriptor up by name and hands it the
// block's record, never touching a concrete component type.
//
// Spawning runs in two passes. The first creates one entity per definition
// and binds its name, so entity fields may refer to any entity of the same
// load regardless of order. The second loads components, one goroutine per
// entity, bounded by the configured worker count.
package spawner
