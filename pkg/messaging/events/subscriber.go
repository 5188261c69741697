package events

import (
	"encoding/json"
	"time"

	"github.com/mbocharov/gumhook/pkg/messaging"
)

// SubscriberAddedEvent is emitted after an email joins a product's subscriber set.
type SubscriberAddedEvent struct {
	Product    string    `json:"product"`
	Email      string    `json:"email"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (e SubscriberAddedEvent) Subject() string {
	return messaging.SubscribersAddedSubject
}

func (e SubscriberAddedEvent) Payload() ([]byte, error) {
	return json.Marshal(e)
}

// SubscriberRemovedEvent is emitted after an email leaves a product's subscriber set.
type SubscriberRemovedEvent struct {
	Product    string    `json:"product"`
	Email      string    `json:"email"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (e SubscriberRemovedEvent) Subject() string {
	return messaging.SubscribersRemovedSubject
}

func (e SubscriberRemovedEvent) Payload() ([]byte, error) {
	return json.Marshal(e)
}
