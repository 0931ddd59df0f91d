// Package validation provides field-level validation helpers that report
// failures as structured prockit errors.
//
// Per-package Config structs use the fluent Validator to collect every
// problem before returning a single INVALID_CONFIGURATION error, and the
// struct_validator supports tag-based validation of whole config trees.
package validation
