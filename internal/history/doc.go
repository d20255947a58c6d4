// Package history persists a record of completed and failed split runs in a
// SQLite database, so past runs can be listed and audited from the CLI.
package history
