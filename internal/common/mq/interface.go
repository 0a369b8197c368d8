// Package mq abstracts the message broker carrying submission events.
package mq

import (
	"context"
	"time"
)

// MessageQueue is the broker contract. Business code never talks to a
// concrete broker client directly.
type MessageQueue interface {
	Producer
	Consumer

	// Ping verifies the broker connection is alive
	Ping(ctx context.Context) error

	// Close closes the broker connection
	Close() error
}

// Producer publishes messages.
type Producer interface {
	// Publish publishes a message to the given topic
	Publish(ctx context.Context, topic string, message *Message) error
}

// Consumer delivers messages to handlers.
type Consumer interface {
	// Subscribe registers a handler for a topic. Handlers returning an
	// error cause the message to be retried up to its MaxRetries.
	Subscribe(ctx context.Context, topic string, handler HandlerFunc) error

	// Start starts consuming registered subscriptions
	Start() error

	// Stop gracefully stops consuming
	Stop() error
}

// Message is one unit on the wire.
type Message struct {
	ID         string            `json:"id"`
	Body       []byte            `json:"body"`
	Headers    map[string]string `json:"headers"`
	Timestamp  time.Time         `json:"timestamp"`
	RetryCount int               `json:"retry_count"`
	MaxRetries int               `json:"max_retries"`
}

// HandlerFunc processes one message. A nil return acknowledges it.
type HandlerFunc func(ctx context.Context, message *Message) error

// NewMessage builds a message around a payload with a fresh timestamp.
func NewMessage(body []byte) *Message {
	return &Message{
		Body:       body,
		Headers:    make(map[string]string),
		Timestamp:  time.Now(),
		MaxRetries: 3,
	}
}
