// Package service implements the endpoint registry and capture flow on top of
// whichever store backend the process committed to at startup. Liveness is
// enforced here, at read time, for both backends: the reaper only prunes
// bookkeeping and is never the authority on expiry.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/davidfries/hooky/internal/logging"
	"github.com/davidfries/hooky/internal/metrics"
	"github.com/davidfries/hooky/internal/models"
	"github.com/davidfries/hooky/internal/store"
	"github.com/davidfries/hooky/internal/stream"
	"github.com/davidfries/hooky/pkg/token"
)

// ErrEndpointExpired is returned for operations against an endpoint whose TTL
// has elapsed. It is distinct from not-found so callers can report the cause.
var ErrEndpointExpired = errors.New("endpoint expired")

// DefaultTTL applies when a caller omits the TTL or supplies a non-positive
// one.
const DefaultTTL = time.Hour

// Service orchestrates endpoint CRUD, request capture, and live streaming.
type Service struct {
	store  store.Store
	fanout stream.Fanout
	logger *logging.Logger
}

// New wires the service to the selected store and fan-out.
func New(st store.Store, fanout stream.Fanout, logger *logging.Logger) *Service {
	return &Service{store: st, fanout: fanout, logger: logger}
}

// CreateEndpoint provisions a fresh receiver. Non-positive TTLs normalize to
// DefaultTTL rather than failing.
func (s *Service) CreateEndpoint(ctx context.Context, ttl time.Duration) (*models.Endpoint, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	now := time.Now().UTC()
	ep := &models.Endpoint{
		ID:        token.New(),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	if err := s.store.CreateEndpoint(ctx, ep); err != nil {
		return nil, err
	}

	metrics.EndpointsCreated.Inc()
	s.logger.InfoContext(ctx, "endpoint created",
		logging.EndpointID(ep.ID),
		slog.Duration("ttl", ttl))
	return ep, nil
}

// GetEndpoint returns the record for a live endpoint. Expired records behave
// as not-found, matching the durable backend's native expiry even when the
// fallback store still holds the entry.
func (s *Service) GetEndpoint(ctx context.Context, id string) (*models.Endpoint, error) {
	ep, err := s.store.GetEndpoint(ctx, id)
	if err != nil {
		return nil, err
	}
	if ep.Expired(time.Now()) {
		return nil, store.ErrEndpointNotFound
	}
	return ep, nil
}

// ListEndpoints returns all live endpoints, newest first.
func (s *Service) ListEndpoints(ctx context.Context) ([]*models.Endpoint, error) {
	all, err := s.store.ListEndpoints(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	live := make([]*models.Endpoint, 0, len(all))
	for _, ep := range all {
		if !ep.Expired(now) {
			live = append(live, ep)
		}
	}
	sort.Slice(live, func(i, j int) bool {
		return live[i].CreatedAt.After(live[j].CreatedAt)
	})
	return live, nil
}

// DeleteEndpoint removes the endpoint, its captured requests, and every live
// subscription attached to it. It reports whether anything existed to delete.
func (s *Service) DeleteEndpoint(ctx context.Context, id string) (bool, error) {
	removed, err := s.store.DeleteEndpoint(ctx, id)
	if err != nil {
		return false, err
	}
	if removed {
		s.fanout.DropEndpoint(id)
		metrics.EndpointsDeleted.Inc()
		s.logger.InfoContext(ctx, "endpoint deleted", logging.EndpointID(id))
	}
	return removed, nil
}

// Capture records one inbound request under a live endpoint and publishes it
// to the endpoint's subscribers. The not-found/expired distinction is made
// here, before the append; the append itself re-checks existence atomically so
// a delete racing with this call cannot leave a partial write.
func (s *Service) Capture(ctx context.Context, id string, req *models.CapturedRequest) (*models.CapturedRequest, error) {
	ep, err := s.store.GetEndpoint(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrEndpointNotFound) {
			metrics.CapturesRejected.WithLabelValues("not_found").Inc()
		}
		return nil, err
	}
	if ep.Expired(time.Now()) {
		metrics.CapturesRejected.WithLabelValues("expired").Inc()
		return nil, ErrEndpointExpired
	}

	req.ID = uuid.New().String()
	req.EndpointID = id
	req.Timestamp = time.Now().UTC()

	appended, err := s.store.AppendRequest(ctx, id, req)
	if err != nil {
		return nil, err
	}
	if !appended {
		// endpoint deleted between the liveness check and the append
		metrics.CapturesRejected.WithLabelValues("not_found").Inc()
		return nil, store.ErrEndpointNotFound
	}

	// Fan-out is best-effort; a publish failure never fails the capture.
	if err := s.fanout.Publish(ctx, id, req); err != nil {
		s.logger.WarnContext(ctx, "failed to publish captured request",
			logging.EndpointID(id),
			logging.CaptureID(req.ID),
			logging.Error(err))
	}

	metrics.RequestsCaptured.Inc()
	s.logger.DebugContext(ctx, "request captured",
		logging.EndpointID(id),
		logging.CaptureID(req.ID),
		logging.Method(req.Method))
	return req, nil
}

// ListRequests returns the endpoint's captured requests, newest first, up to
// the retention cap. An expired endpoint reports not-found.
func (s *Service) ListRequests(ctx context.Context, id string) ([]*models.CapturedRequest, error) {
	if _, err := s.GetEndpoint(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListRequests(ctx, id)
}

// CountRequests reports how many captured requests an endpoint currently
// retains.
func (s *Service) CountRequests(ctx context.Context, id string) (int, error) {
	return s.store.CountRequests(ctx, id)
}

// Subscribe attaches a live-stream subscription to an endpoint. The caller
// must Close the subscription when the consuming connection ends.
func (s *Service) Subscribe(ctx context.Context, id string) (*stream.Subscription, error) {
	if _, err := s.GetEndpoint(ctx, id); err != nil {
		return nil, err
	}

	sub, err := s.fanout.Subscribe(ctx, id)
	if err != nil {
		return nil, err
	}
	metrics.LiveSubscribers.Inc()
	sub.OnClose(func() { metrics.LiveSubscribers.Dec() })
	return sub, nil
}
