package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestRedisStore_Integration runs the store against a real Redis server. It
// needs Docker, so it is skipped in -short mode and when no container runtime
// is available.
func TestRedisStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("could not start redis container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	t.Cleanup(func() { client.Close() })
	require.NoError(t, client.Ping(ctx).Err())

	s := NewRedisStore(client)

	ep := testEndpoint("itg1", time.Hour)
	require.NoError(t, s.CreateEndpoint(ctx, ep))

	total := MaxRequests + 5
	for i := 0; i < total; i++ {
		appended, err := s.AppendRequest(ctx, ep.ID, testRequest(fmt.Sprintf("/r/%d", i)))
		require.NoError(t, err)
		require.True(t, appended)
	}

	requests, err := s.ListRequests(ctx, ep.ID)
	require.NoError(t, err)
	require.Len(t, requests, MaxRequests)
	assert.Equal(t, fmt.Sprintf("/r/%d", total-1), requests[0].Path)

	removed, err := s.DeleteEndpoint(ctx, ep.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	appended, err := s.AppendRequest(ctx, ep.ID, testRequest("/late"))
	require.NoError(t, err)
	assert.False(t, appended)
}
