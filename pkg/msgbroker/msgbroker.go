package msgbroker

import "errors"

// ErrNoRecipients is returned by Publish when nobody listens on the channel
var ErrNoRecipients = errors.New("no recipients")

// MessageBroker publishes room events for external consumers
type MessageBroker interface {
	// Publish sends msg to channel
	Publish(msg []byte, channel string) error
	// Close releases the broker
	Close() error
}
