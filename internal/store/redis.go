package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/davidfries/hooky/internal/models"
)

// expiryGrace is added on top of the endpoint TTL when setting the Redis key
// expiry. The record itself carries ExpiresAt and liveness is always judged
// from that field, so the grace window lets captures shortly after expiry be
// distinguished as expired rather than not found. Once Redis garbage-collects
// the key the endpoint degrades to not found.
const expiryGrace = 10 * time.Minute

const endpointIndexKey = "endpoints"

// appendScript atomically checks that the endpoint record still exists, pushes
// the captured request, trims the log to the cap, and aligns the log's expiry
// with the record's. Returns 1 when appended, 0 when the endpoint is gone.
const appendScript = `
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
redis.call('LPUSH', KEYS[2], ARGV[1])
redis.call('LTRIM', KEYS[2], 0, tonumber(ARGV[2]) - 1)
local ttl = redis.call('PTTL', KEYS[1])
if ttl > 0 then
	redis.call('PEXPIRE', KEYS[2], ttl)
end
return 1
`

// RedisStore is the durable backend. Record keys expire natively, appends are
// applied through a Lua script so push and trim are atomic per endpoint, and a
// secondary index set supports enumeration.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an already-connected client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Client exposes the underlying connection for components that share it, such
// as the pub/sub fan-out.
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

func endpointKey(id string) string {
	return "endpoint:" + id
}

func requestsKey(id string) string {
	return "endpoint:" + id + ":requests"
}

func (s *RedisStore) CreateEndpoint(ctx context.Context, ep *models.Endpoint) error {
	data, err := json.Marshal(ep)
	if err != nil {
		return fmt.Errorf("failed to marshal endpoint: %w", err)
	}

	ttl := time.Until(ep.ExpiresAt) + expiryGrace

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, endpointKey(ep.ID), data, ttl)
	pipe.SAdd(ctx, endpointIndexKey, ep.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to create endpoint: %w", err)
	}
	return nil
}

func (s *RedisStore) GetEndpoint(ctx context.Context, id string) (*models.Endpoint, error) {
	data, err := s.client.Get(ctx, endpointKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrEndpointNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get endpoint: %w", err)
	}

	var ep models.Endpoint
	if err := json.Unmarshal([]byte(data), &ep); err != nil {
		return nil, fmt.Errorf("failed to unmarshal endpoint: %w", err)
	}
	return &ep, nil
}

// ListEndpoints resolves the index set; stale index entries whose record has
// already expired are dropped on the way through.
func (s *RedisStore) ListEndpoints(ctx context.Context) ([]*models.Endpoint, error) {
	ids, err := s.client.SMembers(ctx, endpointIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list endpoint index: %w", err)
	}

	endpoints := make([]*models.Endpoint, 0, len(ids))
	for _, id := range ids {
		ep, err := s.GetEndpoint(ctx, id)
		if errors.Is(err, ErrEndpointNotFound) {
			// self-healing index
			s.client.SRem(ctx, endpointIndexKey, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		endpoints = append(endpoints, ep)
	}
	return endpoints, nil
}

func (s *RedisStore) DeleteEndpoint(ctx context.Context, id string) (bool, error) {
	pipe := s.client.TxPipeline()
	delRecord := pipe.Del(ctx, endpointKey(id))
	pipe.Del(ctx, requestsKey(id))
	pipe.SRem(ctx, endpointIndexKey, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to delete endpoint: %w", err)
	}
	return delRecord.Val() > 0, nil
}

func (s *RedisStore) AppendRequest(ctx context.Context, id string, req *models.CapturedRequest) (bool, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return false, fmt.Errorf("failed to marshal captured request: %w", err)
	}

	keys := []string{endpointKey(id), requestsKey(id)}
	result, err := s.client.Eval(ctx, appendScript, keys, data, MaxRequests).Int()
	if err != nil {
		return false, fmt.Errorf("failed to append request: %w", err)
	}
	return result == 1, nil
}

func (s *RedisStore) ListRequests(ctx context.Context, id string) ([]*models.CapturedRequest, error) {
	exists, err := s.client.Exists(ctx, endpointKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to check endpoint: %w", err)
	}
	if exists == 0 {
		return nil, ErrEndpointNotFound
	}

	items, err := s.client.LRange(ctx, requestsKey(id), 0, int64(MaxRequests)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}

	requests := make([]*models.CapturedRequest, 0, len(items))
	for _, item := range items {
		var req models.CapturedRequest
		if err := json.Unmarshal([]byte(item), &req); err != nil {
			return nil, fmt.Errorf("failed to unmarshal captured request: %w", err)
		}
		requests = append(requests, &req)
	}
	return requests, nil
}

func (s *RedisStore) CountRequests(ctx context.Context, id string) (int, error) {
	exists, err := s.client.Exists(ctx, endpointKey(id)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to check endpoint: %w", err)
	}
	if exists == 0 {
		return 0, ErrEndpointNotFound
	}

	n, err := s.client.LLen(ctx, requestsKey(id)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count requests: %w", err)
	}
	return int(n), nil
}

// Sweep prunes index entries whose record Redis has already expired. The data
// itself needs no explicit deletion; only bookkeeping is removed.
func (s *RedisStore) Sweep(ctx context.Context) ([]string, error) {
	ids, err := s.client.SMembers(ctx, endpointIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list endpoint index: %w", err)
	}

	var removed []string
	for _, id := range ids {
		exists, err := s.client.Exists(ctx, endpointKey(id)).Result()
		if err != nil {
			return removed, fmt.Errorf("failed to check endpoint: %w", err)
		}
		if exists > 0 {
			continue
		}

		pipe := s.client.TxPipeline()
		pipe.SRem(ctx, endpointIndexKey, id)
		pipe.Del(ctx, requestsKey(id))
		if _, err := pipe.Exec(ctx); err != nil {
			return removed, fmt.Errorf("failed to prune endpoint %s: %w", id, err)
		}
		removed = append(removed, id)
	}
	return removed, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
