// Package nats connects the service to the broker carrying subscriber
// lifecycle events. It is only wired when event publishing is enabled.
package nats

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NewClient dials the broker with the configured timeout.
func NewClient(url string, timeout time.Duration) (*nats.Conn, error) {
	nc, err := nats.Connect(url, nats.Timeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return nc, nil
}

// NewJetStreamContext wraps an established connection in a JetStream
// context. The connection is closed on failure so callers cannot leak it.
func NewJetStreamContext(nc *nats.Conn) (jetstream.JetStream, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}
	return js, nil
}
