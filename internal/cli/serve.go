package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/davidfries/hooky/internal/config"
	"github.com/davidfries/hooky/internal/handlers"
	"github.com/davidfries/hooky/internal/logging"
	"github.com/davidfries/hooky/internal/reaper"
	"github.com/davidfries/hooky/internal/server"
	"github.com/davidfries/hooky/internal/service"
	"github.com/davidfries/hooky/internal/store"
	"github.com/davidfries/hooky/internal/stream"
)

var serveConfigPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the hooky server in the foreground",
	Long: `Starts the webhook receiver server. At startup one attempt is made to
reach Redis; if it fails, the server commits to an in-process store for its
lifetime and captured data will not survive a restart.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "path to server config file")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(serveConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.New(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	).With(logging.Service("hooky"))
	logging.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Backend selection happens exactly once, here. Every component below
	// branches on the returned mode and nothing switches it mid-run.
	st, mode := store.Open(ctx, store.Options{
		URL:         cfg.Redis.URL,
		Enabled:     cfg.Redis.Enabled,
		DialTimeout: cfg.Redis.DialTimeout,
	}, logger)
	defer st.Close()

	var fanout stream.Fanout
	if rs, ok := st.(*store.RedisStore); ok {
		fanout = stream.NewRedisFanout(rs.Client(), logger)
	} else {
		fanout = stream.NewBroker()
	}
	defer fanout.Close()

	svc := service.New(st, fanout, logger)

	rp := reaper.New(st, fanout, cfg.Reaper.Interval, logger)
	go rp.Run(ctx)

	handler := handlers.New(svc, logger, cfg.Server.BaseURL, cfg.Capture.MaxBodySize, mode)
	router := server.NewRouter(handler)

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:     router,
		ReadTimeout: cfg.Server.ReadTimeout,
		// WriteTimeout stays zero so live streams are never severed
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("hooky listening",
			logging.Backend(string(mode)),
			slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
