package msgbroker

import (
	"github.com/go-redis/redis/v7"
)

// redisBroker is the implementation of MessageBroker using Redis PUBLISH
type redisBroker struct {
	client *redis.Client
}

// NewRedisBroker returns a implementation of MessageBroker using Redis.
// The client is owned by the caller.
func NewRedisBroker(r *redis.Client) MessageBroker {
	return &redisBroker{client: r}
}

func (rb *redisBroker) Publish(msg []byte, channel string) error {
	n, err := rb.client.Publish(channel, string(msg)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoRecipients
	}
	return nil
}

func (rb *redisBroker) Close() error {
	return nil
}
