// Package outbox defines how committed order and payment changes are announced.
//
// Events are published after the change they describe has been stored. A publish failure never
// undoes the change and is never retried by the core.
package outbox

import "context"

// Event is a past-tense fact about one aggregate, e.g. "order.canceled".
type Event interface {
	EventName() string
	// AggregateID keys the event so consumers see one aggregate's events in order.
	AggregateID() string
}

type Handler func(ctx context.Context, e Event) error

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}
