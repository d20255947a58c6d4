// Package recovery rebuilds an export archive from a legacy workspace layout,
// where documents live under input/ and annotation state under output/. The
// result is a backup.zip in the standard export shape (images/, latest/,
// schema.json, split.csv) suitable for re-import.
//
// Normalization is the minimum needed for re-import: line numbers are made
// contiguous, scaled coordinate fields are dropped, and schema presentation
// fields are stripped. The output is not suitable for direct training use.
package recovery
