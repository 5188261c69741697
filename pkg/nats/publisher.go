package nats

import (
	"context"
	"fmt"

	"github.com/mbocharov/gumhook/pkg/messaging"
	"github.com/nats-io/nats.go/jetstream"
)

// NatsPublisher emits subscriber change events on their JetStream subjects.
// Callers treat publishing as best effort; a broker failure is surfaced as
// an error and logged, never propagated to the webhook sender.
type NatsPublisher struct {
	js jetstream.JetStream
}

func NewNatsPublisher(js jetstream.JetStream) *NatsPublisher {
	return &NatsPublisher{js: js}
}

// Publish serializes the event and sends it on the event's own subject.
func (p *NatsPublisher) Publish(ctx context.Context, event messaging.Event) error {
	data, err := event.Payload()
	if err != nil {
		return fmt.Errorf("failed to serialize %s event: %w", event.Subject(), err)
	}
	if _, err := p.js.Publish(ctx, event.Subject(), data); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Subject(), err)
	}
	return nil
}
