// Package notifications delivers conversion milestones via ntfy.
//
// The default implementation publishes to the ntfy topic configured in
// config.toml and degrades to a no-op when notifications are disabled.
// Unknown events are ignored so callers can publish freely.
package notifications
