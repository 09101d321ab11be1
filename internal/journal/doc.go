// Package journal records conversion runs in SQLite so operators can review
// history from the CLI or HTTP API.
//
// Only run metadata is stored: owner, source URL, state transitions, failure
// kind, the generated quiz title, and any cleanup error. Quiz documents are
// returned to the caller and never persisted here. MarkAbandoned turns rows
// left mid-pipeline by a crashed process into failures.
package journal
