package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/davidfries/hooky/internal/logging"
)

// Mode identifies which backend the process committed to at startup.
type Mode string

const (
	ModeRedis  Mode = "redis"
	ModeMemory Mode = "memory"
)

// Options configures backend selection.
type Options struct {
	// URL is the Redis connection string, e.g. redis://localhost:6379/0.
	URL string
	// Enabled forces the in-memory fallback without attempting a connection
	// when false. Test harnesses use this.
	Enabled bool
	// DialTimeout bounds the single connectivity attempt.
	DialTimeout time.Duration
}

// Open selects the backend for the lifetime of the process. Exactly one
// connectivity attempt is made: success commits to Redis, any failure commits
// to the in-memory fallback. There is no mid-run mode switching, so callers
// can branch on the returned Mode as a stable fact.
func Open(ctx context.Context, opts Options, logger *logging.Logger) (Store, Mode) {
	if !opts.Enabled {
		logger.Info("redis disabled, using in-memory store",
			slog.String(logging.FieldBackend, string(ModeMemory)))
		return NewMemoryStore(), ModeMemory
	}

	client, err := connect(ctx, opts)
	if err != nil {
		logger.Warn("redis unreachable, falling back to in-memory store",
			slog.String(logging.FieldBackend, string(ModeMemory)),
			slog.String("redis_url", opts.URL),
			slog.String(logging.FieldError, err.Error()))
		return NewMemoryStore(), ModeMemory
	}

	logger.Info("connected to redis",
		slog.String(logging.FieldBackend, string(ModeRedis)),
		slog.String("redis_url", opts.URL))
	return NewRedisStore(client), ModeRedis
}

func connect(ctx context.Context, opts Options) (*redis.Client, error) {
	opt, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)

	timeout := opts.DialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}
