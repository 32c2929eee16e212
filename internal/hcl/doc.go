// Package hcl provides the HCL implementation of config.Loader.
//
// Loading runs in two passes. The first parses and decodes every file into
// the schema structs and collects resource and entity names. The second
// translates manifests and evaluates component bodies against an evaluation
// context where `resource.<name>` and `entity.<name>` resolve to those names
// and a few string and collection functions are available.
package hcl
