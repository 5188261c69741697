package messaging

import (
	"context"
)

// Subjects for subscriber lifecycle events.
const (
	SubscribersAddedSubject   = "subscribers.added"
	SubscribersRemovedSubject = "subscribers.removed"
)

type Event interface {
	Subject() string
	Payload() ([]byte, error)
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}
