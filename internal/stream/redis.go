package stream

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/davidfries/hooky/internal/logging"
	"github.com/davidfries/hooky/internal/models"
)

// RedisFanout relays publishes through Redis pub/sub so a subscriber attached
// to any process instance backed by the same Redis receives the event. Local
// delivery also travels through Redis: the relay goroutine feeds the embedded
// broker, which keeps ordering identical for local and remote subscribers.
type RedisFanout struct {
	client *redis.Client
	local  *Broker
	logger *logging.Logger

	mu     sync.Mutex
	relays map[string]*relay
}

// relay is one reference-counted Redis subscription per endpoint channel.
type relay struct {
	pubsub *redis.PubSub
	refs   int
}

// NewRedisFanout wraps the shared Redis connection.
func NewRedisFanout(client *redis.Client, logger *logging.Logger) *RedisFanout {
	return &RedisFanout{
		client: client,
		local:  NewBroker(),
		logger: logger,
		relays: make(map[string]*relay),
	}
}

func channelFor(endpointID string) string {
	return "endpoint:" + endpointID + ":events"
}

func (f *RedisFanout) Publish(ctx context.Context, endpointID string, req *models.CapturedRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	return f.client.Publish(ctx, channelFor(endpointID), data).Err()
}

// Subscribe attaches a local subscription and ensures a single Redis
// subscription exists for the endpoint's channel, shared by reference count
// across all local subscribers.
func (f *RedisFanout) Subscribe(ctx context.Context, endpointID string) (*Subscription, error) {
	f.mu.Lock()
	rl, exists := f.relays[endpointID]
	if !exists {
		pubsub := f.client.Subscribe(context.Background(), channelFor(endpointID))
		rl = &relay{pubsub: pubsub}
		f.relays[endpointID] = rl
		go f.pump(endpointID, pubsub)
	}
	rl.refs++
	f.mu.Unlock()

	sub, err := f.local.Subscribe(ctx, endpointID)
	if err != nil {
		f.release(endpointID)
		return nil, err
	}
	sub.OnClose(func() { f.release(endpointID) })
	return sub, nil
}

func (f *RedisFanout) DropEndpoint(endpointID string) {
	// closing the local subscriptions drains the relay refcount
	f.local.DropEndpoint(endpointID)
}

func (f *RedisFanout) Close() error {
	return f.local.Close()
}

// pump copies messages from the Redis channel into the local broker until the
// pubsub is closed.
func (f *RedisFanout) pump(endpointID string, pubsub *redis.PubSub) {
	for msg := range pubsub.Channel() {
		var req models.CapturedRequest
		if err := json.Unmarshal([]byte(msg.Payload), &req); err != nil {
			f.logger.Warn("dropping malformed stream payload",
				logging.EndpointID(endpointID),
				logging.Error(err))
			continue
		}
		f.local.Publish(context.Background(), endpointID, &req)
	}
}

func (f *RedisFanout) release(endpointID string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rl, exists := f.relays[endpointID]
	if !exists {
		return
	}
	rl.refs--
	if rl.refs > 0 {
		return
	}
	delete(f.relays, endpointID)
	// Close terminates the pump goroutine by closing its message channel.
	if err := rl.pubsub.Close(); err != nil {
		f.logger.Warn("failed to close redis subscription",
			logging.EndpointID(endpointID),
			logging.Error(err))
	}
}
