// Package notifications delivers export outcomes via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// the [notifications] section and degrades to a no-op when no topic is set.
// Callers publish an Event with a Payload; the service owns the wording so
// every worker sends consistent messages.
package notifications
