// Package services defines the shared error taxonomy used across the
// docsplit pipeline.
//
// Errors are tagged with sentinel markers so front ends can classify a
// failure (missing input, integrity problem, partial archive write) without
// parsing message strings. Wrap composes the marker with stage and operation
// context into the single human-readable reason surfaced to the user.
package services
