// Package cli is responsible for parsing command-line arguments, validating
// user input, and handling process-level concerns like exit codes. It layers
// CLI flags over the COMPREG_* environment to build the application's
// configuration.
package cli
