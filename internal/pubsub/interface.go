package pubsub

import "context"

// PubSubClient publishes match events and decodes pushed messages.
type PubSubClient interface {
	SendMessage(ctx context.Context, topic EventType, data any) error
	ProcessMessage(data []byte, returnValue any) error
	Close() error
}
