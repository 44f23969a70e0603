// Package store persists webhook endpoints and their captured requests.
//
// Two implementations share one contract: RedisStore, which leans on Redis
// native key expiry and atomic list operations, and MemoryStore, an in-process
// fallback used when Redis is unreachable at startup. The backend is chosen
// exactly once per process by Open; the observable behavior of both is
// identical.
package store

import (
	"context"
	"errors"

	"github.com/davidfries/hooky/internal/models"
)

// ErrEndpointNotFound is returned when no record exists for an endpoint ID.
var ErrEndpointNotFound = errors.New("endpoint not found")

// MaxRequests caps the number of captured requests retained per endpoint.
// Appends beyond the cap evict the oldest entries.
const MaxRequests = 100

// Store is the persistence contract shared by both backends.
//
// GetEndpoint and ListEndpoints return records as stored, including records
// whose TTL has logically elapsed but which have not been swept yet; liveness
// is judged from ExpiresAt by the caller. AppendRequest reports whether the
// endpoint existed at append time; the push and trim are applied atomically so
// the log never exceeds MaxRequests even under concurrent appends.
type Store interface {
	CreateEndpoint(ctx context.Context, ep *models.Endpoint) error
	GetEndpoint(ctx context.Context, id string) (*models.Endpoint, error)
	ListEndpoints(ctx context.Context) ([]*models.Endpoint, error)
	// DeleteEndpoint removes the record, its request log, and its index entry
	// in one atomic step. It reports whether a record existed.
	DeleteEndpoint(ctx context.Context, id string) (bool, error)

	AppendRequest(ctx context.Context, id string, req *models.CapturedRequest) (bool, error)
	ListRequests(ctx context.Context, id string) ([]*models.CapturedRequest, error)
	CountRequests(ctx context.Context, id string) (int, error)

	// Sweep removes expired bookkeeping and returns the IDs of endpoints that
	// were pruned, so callers can release any live subscriptions for them.
	Sweep(ctx context.Context) ([]string, error)

	Close() error
}
