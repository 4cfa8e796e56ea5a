package messaging

import (
	"context"
)

// Broker defines the interface for message brokers. Subscribe channels
// deliver payloads in publish order per channel.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
