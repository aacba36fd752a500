// Package notifications delivers tracker events via ntfy.
//
// NewService publishes to the topic configured in config.toml and degrades to
// a no-op when no topic is set. Per-event switches in the [notifications]
// section suppress timer start or stop messages without disabling the rest.
package notifications
