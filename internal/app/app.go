package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/MrSnakeDoc/pinmap/internal/bookmarks"
	"github.com/MrSnakeDoc/pinmap/internal/config"
	"github.com/MrSnakeDoc/pinmap/internal/httpserver"
	"github.com/MrSnakeDoc/pinmap/internal/httpserver/deps"
	"github.com/MrSnakeDoc/pinmap/internal/httpserver/mw"
	"github.com/MrSnakeDoc/pinmap/internal/logger"
	"github.com/MrSnakeDoc/pinmap/internal/metrics"
	"github.com/MrSnakeDoc/pinmap/internal/redis"
	"github.com/MrSnakeDoc/pinmap/internal/retry"
	"github.com/MrSnakeDoc/pinmap/internal/scheduler"
	"github.com/MrSnakeDoc/pinmap/internal/sources/seed"
	"github.com/MrSnakeDoc/pinmap/internal/store"
	filestore "github.com/MrSnakeDoc/pinmap/internal/store/file"
	"github.com/MrSnakeDoc/pinmap/internal/store/memory"
	mongostore "github.com/MrSnakeDoc/pinmap/internal/store/mongo"
	redisstore "github.com/MrSnakeDoc/pinmap/internal/store/redis"
	"github.com/MrSnakeDoc/pinmap/internal/version"
)

type App struct {
	cfg     *config.Config
	logger  logger.Logger
	server  *httpserver.Server
	service *bookmarks.Service
	closers []closer
}

// closer releases a backend connection on shutdown.
type closer struct {
	name  string
	close func(ctx context.Context) error
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Storage is opened early - fail fast if unavailable
	backend, closers, err := openBackend(context.Background(), cfg, loggerClient)
	if err != nil {
		loggerClient.Errorf("Failed to open %s storage: %v", cfg.StorageBackend, err)
		os.Exit(1)
	}
	loggerClient.Info("bookmark storage initialized",
		logger.String("backend", backend.Name()))

	service := bookmarks.NewService(backend, loggerClient)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics.RegisterCollectors(reg)

	// Dependencies passed to routes (extend as needed).
	d := deps.Deps{
		Logger:         loggerClient,
		StartTime:      time.Now(),
		Version:        version.Version,
		Commit:         version.Commit,
		BuildDate:      version.BuildDate,
		GoVersion:      version.GoVersion,
		TimeNow:        time.Now,
		AllowedHosts:   cfg.AllowedHosts,
		AllowedCIDRS:   cfg.AllowedCIDRS,
		TrustProxy:     cfg.TrustProxy,
		Bookmarks:      service,
		Gatherer:       reg,
		MaxBodyBytes:   cfg.MaxBodyBytes,
		RequestTimeout: cfg.RequestTimeout,
		ReadyTimeout:   cfg.ReadyTimeout,
		RateLimit: mw.RateLimitConfig{
			Burst:             cfg.RateLimitBurst,
			RefillPerIPPerMin: cfg.RateLimitPerMinute,
			MaxEntries:        cfg.RateLimitMaxIPs,
			TrustProxy:        cfg.TrustProxy,
		},
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:     cfg,
		logger:  loggerClient,
		server:  server,
		service: service,
		closers: closers,
	}
}

// openBackend builds the snapshot backend selected by cfg.StorageBackend.
func openBackend(ctx context.Context, cfg *config.Config, log logger.Logger) (store.Snapshotter, []closer, error) {
	switch cfg.StorageBackend {
	case config.BackendMemory:
		log.Warn("memory storage selected, bookmarks are lost on restart")
		return memory.NewStore(), nil, nil

	case config.BackendRedis:
		client, err := redis.Connect(ctx, redis.ConnectOptions{
			Addr:         cfg.RedisAddr,
			User:         cfg.RedisUser,
			Password:     cfg.RedisPassword,
			RedisDB:      cfg.RedisDB,
			DialTimeout:  cfg.RedisDT,
			ReadTimeout:  cfg.RedisRT,
			WriteTimeout: cfg.RedisWT,
			PoolSize:     cfg.RedisPoolSize,
			Retry: retry.Policy{
				Timeout:       cfg.RedisConnectTimeout,
				Initial:       cfg.RedisRetryInterval,
				MaxWait:       cfg.RedisMaxWait,
				PingTimeout:   cfg.RedisPingTimeout,
				WarnThreshold: cfg.RedisWarnThreshold,
			},
		}, log)
		if err != nil {
			return nil, nil, err
		}
		return redisstore.NewStore(client), []closer{{
			name:  "redis",
			close: func(context.Context) error { return client.Close() },
		}}, nil

	case config.BackendMongo:
		client, err := mongostore.Connect(ctx, cfg.MongoURI, retry.Policy{
			Timeout:       cfg.MongoConnectTimeout,
			Initial:       time.Second,
			MaxWait:       5 * time.Second,
			PingTimeout:   min(3*time.Second, cfg.MongoConnectTimeout),
			WarnThreshold: 3,
		}, log)
		if err != nil {
			return nil, nil, err
		}
		col := client.Database(cfg.MongoDatabase).Collection(cfg.MongoCollection)
		return mongostore.NewStore(col), []closer{{
			name:  "mongo",
			close: client.Disconnect,
		}}, nil

	default:
		log.Info("file storage selected", logger.String("path", cfg.DataFile))
		return filestore.NewStore(cfg.DataFile), nil, nil
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting pinmap v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Info(version.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.cfg.SeedFile != "" {
		n, err := seed.NewImporter(a.cfg.SeedFile, a.service, a.logger).Run(ctx)
		if err != nil {
			// The service is still usable without its seed.
			a.logger.Warn("seed import failed",
				logger.String("file", a.cfg.SeedFile),
				logger.Error(err))
		} else if n > 0 {
			a.logger.Info("seed import done", logger.Int("count", n))
		}
	}

	if a.cfg.BackupFile != "" {
		backup := scheduler.NewBackup(a.service.Backend(), filestore.NewStore(a.cfg.BackupFile), a.logger, a.cfg.BackupInterval)
		backup.Start(ctx)
		defer backup.Stop()
		a.logger.Info("bookmark backups enabled",
			logger.String("file", a.cfg.BackupFile),
			logger.Duration("interval", a.cfg.BackupInterval))
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		a.closeBackends()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	a.closeBackends()

	a.logger.Info("✅ pinmap stopped cleanly")
	_ = a.logger.Sync()
	return nil
}

func (a *App) closeBackends() {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	for _, c := range a.closers {
		if err := c.close(ctx); err != nil {
			a.logger.Warnf("failed to close %s: %v", c.name, err)
			continue
		}
		a.logger.Infof("✅ %s closed cleanly", c.name)
	}
}
