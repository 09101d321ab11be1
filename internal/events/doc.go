// Package events publishes conversion outcomes to NATS so downstream services
// (quiz persistence, analytics, UIs) can react without polling.
//
// Publishing is best effort: callers log a failed publish and carry on, the
// conversion result is never affected. When no NATS URL is configured a no-op
// publisher is returned.
package events
