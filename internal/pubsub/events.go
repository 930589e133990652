// Package pubsub provides a small generic publish/subscribe broker used to
// fan out log entries and registry change notifications.
package pubsub

import (
	"context"
	"time"
)

// EventType labels what happened to the payload.
type EventType string

const (
	// LoggedEvent carries a formatted log entry.
	LoggedEvent EventType = "logged"
	// RealizedEvent fires when a lazy registry entry is loaded from disk.
	RealizedEvent EventType = "realized"
	// ArchivedEvent fires when an experiment is replaced by an archive marker.
	ArchivedEvent EventType = "archived"
	// SavedEvent fires after a registry persists itself.
	SavedEvent EventType = "saved"
)

// Event is a published event with a typed payload.
type Event[T any] struct {
	Type      EventType
	Payload   T
	Timestamp time.Time
}

// Subscriber hands out subscription channels.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context) <-chan Event[T]
}

// Publisher delivers events to all subscribers.
type Publisher[T any] interface {
	Publish(eventType EventType, payload T)
}
