package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/bsm/redislock"
	"github.com/imobgestao/locacoes/backend/config"
	"github.com/imobgestao/locacoes/backend/handler"
	"github.com/imobgestao/locacoes/backend/reconcile"
	"github.com/imobgestao/locacoes/backend/service"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the reconcile scheduler",
		RunE:  runServe,
	}
	cmd.Flags().Int("port", 0, "override server.port")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		cfg.Server.Port = port
	}
	slog.Info("configuration loaded", "store", cfg.Store.Driver)

	store, err := service.NewStore(&cfg.Store)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	var locker reconcile.Locker
	if cfg.Redis.Addr != "" {
		client := newRedisClient(&cfg.Redis)
		defer client.Close()
		locker = reconcile.NewRedisLocker(redislock.New(client))
	}

	// Scheduler runs and dispatched syncs finish before the store and the
	// redis client close
	var background taskGroup
	defer background.Wait()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	documents, err := openDocuments(ctx, &cfg.Minio)
	if err != nil {
		return err
	}

	reconciler := reconcile.New(newSyncer(cfg, store),
		reconcile.WithDispatcher(background.Go),
		reconcile.WithSyncTimeout(time.Duration(cfg.Reconcile.SyncTimeoutSeconds)*time.Second),
	)

	router, err := handler.NewRouter(handler.RouterDeps{
		Config:     cfg,
		Store:      store,
		Documents:  documents,
		Reconciler: reconciler,
	})
	if err != nil {
		return fmt.Errorf("failed to build router: %w", err)
	}

	if cfg.Reconcile.IntervalMinutes > 0 {
		scheduler := reconcile.NewScheduler(reconciler, service.StoreSource(store.Contracts),
			time.Duration(cfg.Reconcile.IntervalMinutes)*time.Minute)
		if locker != nil {
			scheduler.WithLocker(locker, time.Duration(cfg.Reconcile.LockTTLSeconds)*time.Second)
		}
		background.Go(func() { scheduler.Run(ctx) })
	}

	timeout := time.Duration(cfg.Server.TimeoutSeconds) * time.Second
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		IdleTimeout:  2 * timeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}
	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("server exited gracefully")
	return nil
}

// openDocuments returns nil when MinIO is not configured
func openDocuments(ctx context.Context, cfg *config.MinioConfig) (handler.DocumentStore, error) {
	if !cfg.Enabled() {
		slog.Info("document storage disabled")
		return nil, nil
	}

	storage, err := service.NewDocumentStorage(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize document storage: %w", err)
	}
	if err := storage.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure document bucket: %w", err)
	}
	return storage, nil
}

// newSyncer writes derived statuses to the local store, and to the REST
// backend as well when one is configured
func newSyncer(cfg *config.Config, store *service.Store) reconcile.StatusSyncer {
	local := service.NewStoreSyncer(store.Contracts)
	if cfg.Backend.APIURL == "" {
		return local
	}
	return service.MultiSyncer{local, service.NewBackendClient(&cfg.Backend)}
}

// taskGroup runs background work that shutdown waits for
type taskGroup struct {
	wg sync.WaitGroup
}

func (g *taskGroup) Go(task func()) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		task()
	}()
}

func (g *taskGroup) Wait() {
	g.wg.Wait()
}

func newRedisClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}
