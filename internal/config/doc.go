// Package config defines the format-agnostic model of everything the
// application reads from disk: component manifests, resource declarations
// and entity definitions, along with the Loader interface implemented by
// format-specific packages such as hcl.
//
// Values in the model are already evaluated. Component bodies are cty
// objects ready to be wrapped in a record.Record, so nothing downstream of a
// Loader depends on the file format.
package config
