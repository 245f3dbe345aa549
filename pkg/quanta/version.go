// Package quanta exposes module-level metadata.
package quanta

// Version is the semantic version of the Quanta module.
const Version = "0.3.0"
