// Package app contains the core application logic. It wires the registry,
// the configuration loader, the world and the spawner together and runs one
// load, decoupled from any specific entrypoint like a CLI or server.
package app
