// Package notifications delivers job events to ntfy.
//
// NewService returns a no-op Service when no topic is configured, so the job
// runner publishes unconditionally. Completion and error events can be
// switched off individually in the [notifications] config section.
package notifications
