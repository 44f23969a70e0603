package reaper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidfries/hooky/internal/logging"
	"github.com/davidfries/hooky/internal/models"
	"github.com/davidfries/hooky/internal/store"
	"github.com/davidfries/hooky/internal/stream"
)

func TestReaper_SweepsExpired(t *testing.T) {
	st := store.NewMemoryStore()
	defer st.Close()
	broker := stream.NewBroker()
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, st.CreateEndpoint(ctx, &models.Endpoint{
		ID:        "dead",
		CreatedAt: now,
		ExpiresAt: now.Add(10 * time.Millisecond),
	}))
	require.NoError(t, st.CreateEndpoint(ctx, &models.Endpoint{
		ID:        "live",
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}))

	sub, err := broker.Subscribe(ctx, "dead")
	require.NoError(t, err)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	r := New(st, broker, 10*time.Millisecond, logging.Default())
	go r.Run(runCtx)

	// the expired record is pruned and its subscription released
	require.Eventually(t, func() bool {
		_, err := st.GetEndpoint(ctx, "dead")
		return err != nil
	}, time.Second, 10*time.Millisecond)

	select {
	case _, open := <-sub.C:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("subscription was not closed by the sweep")
	}

	_, err = st.GetEndpoint(ctx, "live")
	assert.NoError(t, err)
}

func TestReaper_StopsOnCancel(t *testing.T) {
	st := store.NewMemoryStore()
	defer st.Close()

	r := New(st, stream.NewBroker(), 5*time.Millisecond, logging.Default())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop on context cancellation")
	}
}

func TestNew_IntervalFallback(t *testing.T) {
	r := New(store.NewMemoryStore(), stream.NewBroker(), 0, logging.Default())
	assert.Equal(t, DefaultInterval, r.interval)
}
