// Package param describes the typed parameters a pipeline node accepts and
// validates parameter bags against those descriptions.
//
// A node declares a Schema (name -> mandatory or optional-with-default
// Descriptor of a Kind) and receives a Resolved bag once Validate succeeds.
// Bags are plain name -> Value maps so pipelines can be described as data:
// FromAny converts decoded YAML/JSON maps and Parse converts command-line
// strings, both guided by the schema kinds.
//
// Key constructs:
// - IntRange, FloatRange, StringKind, BoolKind: parameter kinds
// - Mandatory/Optional: descriptors
// - Int, Float, String, Bool: values
// - ConfigError: every construction-time failure
package param
