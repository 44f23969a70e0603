package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidfries/hooky/internal/logging"
)

func TestOpen_Disabled(t *testing.T) {
	s, mode := Open(context.Background(), Options{Enabled: false}, logging.Default())
	defer s.Close()

	assert.Equal(t, ModeMemory, mode)
	assert.IsType(t, &MemoryStore{}, s)
}

func TestOpen_Unreachable(t *testing.T) {
	opts := Options{
		URL:         "redis://127.0.0.1:1/0",
		Enabled:     true,
		DialTimeout: 200 * time.Millisecond,
	}
	s, mode := Open(context.Background(), opts, logging.Default())
	defer s.Close()

	assert.Equal(t, ModeMemory, mode)
}

func TestOpen_BadURL(t *testing.T) {
	s, mode := Open(context.Background(), Options{URL: "not a url", Enabled: true}, logging.Default())
	defer s.Close()

	assert.Equal(t, ModeMemory, mode)
}

func TestOpen_Redis(t *testing.T) {
	mr := miniredis.RunT(t)

	opts := Options{
		URL:     "redis://" + mr.Addr() + "/0",
		Enabled: true,
	}
	s, mode := Open(context.Background(), opts, logging.Default())
	defer s.Close()

	require.Equal(t, ModeRedis, mode)
	assert.IsType(t, &RedisStore{}, s)
}
