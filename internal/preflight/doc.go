// Package preflight provides readiness checks for the external tools,
// services, and filesystem paths clipquiz depends on.
//
// These checks run in two contexts:
//   - "clipquiz serve" calls RunAll before accepting requests and refuses to
//     start when a required check fails.
//   - "clipquiz status" prints every result, including the optional NATS and
//     ntfy checks from runtime_status.go.
package preflight
