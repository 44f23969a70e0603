// Package stream fans captured requests out to live-stream subscribers.
//
// Broker is the in-process publish/subscribe core used directly in fallback
// mode. RedisFanout layers the durable backend's pub/sub on top of it so that
// subscribers attached to any process sharing the same Redis see every event.
package stream

import (
	"context"
	"sync"

	"github.com/davidfries/hooky/internal/metrics"
	"github.com/davidfries/hooky/internal/models"
)

// subscriptionBuffer is the per-subscriber channel capacity. Publishes never
// block: when a subscriber falls this far behind, events are dropped for it.
const subscriptionBuffer = 64

// Fanout is the fan-out contract shared by both backend modes.
type Fanout interface {
	// Subscribe registers interest in future events for an endpoint. Each call
	// yields an independent subscription; closing one never affects another.
	Subscribe(ctx context.Context, endpointID string) (*Subscription, error)
	// Publish delivers the event to every current subscriber, best-effort and
	// non-blocking from the publisher's point of view.
	Publish(ctx context.Context, endpointID string, req *models.CapturedRequest) error
	// DropEndpoint closes every subscription attached to the endpoint. Called
	// on deletion and expiry.
	DropEndpoint(endpointID string)
	Close() error
}

// Subscription is one live listener's handle. Events arrive on C in append
// order; C is closed when the subscription ends.
type Subscription struct {
	C <-chan *models.CapturedRequest

	endpointID string
	ch         chan *models.CapturedRequest
	once       sync.Once
	closers    []func()
}

// EndpointID returns the endpoint this subscription is attached to.
func (s *Subscription) EndpointID() string {
	return s.endpointID
}

// OnClose registers fn to run when the subscription closes. It must be called
// before the subscription is handed to a consumer.
func (s *Subscription) OnClose(fn func()) {
	s.closers = append(s.closers, fn)
}

// Close releases the subscription. Idempotent; safe to call from any
// goroutine, including concurrently with an in-flight publish.
func (s *Subscription) Close() {
	s.once.Do(func() {
		for _, fn := range s.closers {
			fn()
		}
	})
}

// Broker is process-local pub/sub keyed by endpoint ID.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[*Subscription]struct{})}
}

func (b *Broker) Subscribe(ctx context.Context, endpointID string) (*Subscription, error) {
	ch := make(chan *models.CapturedRequest, subscriptionBuffer)
	sub := &Subscription{C: ch, ch: ch, endpointID: endpointID}
	sub.OnClose(func() { b.remove(sub) })

	b.mu.Lock()
	defer b.mu.Unlock()

	set, exists := b.subs[endpointID]
	if !exists {
		set = make(map[*Subscription]struct{})
		b.subs[endpointID] = set
	}
	set[sub] = struct{}{}
	return sub, nil
}

func (b *Broker) Publish(ctx context.Context, endpointID string, req *models.CapturedRequest) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs[endpointID] {
		select {
		case sub.ch <- req:
		default:
			// slow subscriber, drop rather than stall the capture path
			metrics.EventsDropped.Inc()
		}
	}
	return nil
}

// DropEndpoint closes all subscriptions for an endpoint. Subscriptions are
// collected first and closed outside the lock, since Close re-enters the
// broker to unregister.
func (b *Broker) DropEndpoint(endpointID string) {
	b.mu.RLock()
	subs := make([]*Subscription, 0, len(b.subs[endpointID]))
	for sub := range b.subs[endpointID] {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	for _, sub := range subs {
		sub.Close()
	}
}

// Subscribers reports how many subscriptions are attached to an endpoint.
func (b *Broker) Subscribers(endpointID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[endpointID])
}

// Close drops every endpoint's subscriptions.
func (b *Broker) Close() error {
	b.mu.RLock()
	ids := make([]string, 0, len(b.subs))
	for id := range b.subs {
		ids = append(ids, id)
	}
	b.mu.RUnlock()

	for _, id := range ids {
		b.DropEndpoint(id)
	}
	return nil
}

// remove unregisters the subscription and closes its channel. The channel is
// closed under the write lock, after which no publisher can hold a reference
// to it, so send-on-closed-channel races are excluded.
func (b *Broker) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	set, exists := b.subs[sub.endpointID]
	if !exists {
		return
	}
	if _, registered := set[sub]; !registered {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(b.subs, sub.endpointID)
	}
	close(sub.ch)
}
