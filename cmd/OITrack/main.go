package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ZJUSCT/OITrack/internal/api/admin"
	"github.com/ZJUSCT/OITrack/internal/api/user"
	"github.com/ZJUSCT/OITrack/internal/catalog"
	"github.com/ZJUSCT/OITrack/internal/config"
	"github.com/ZJUSCT/OITrack/internal/database"
	"github.com/ZJUSCT/OITrack/internal/platform"
	"github.com/ZJUSCT/OITrack/internal/pubsub"
	"github.com/ZJUSCT/OITrack/internal/virtual"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var Version = "dev-build"

func main() {

	fmt.Fprintf(os.Stderr, "ZJUSCT OITrack %s - Olympiad Virtual Contest Tracker\n\n", Version)

	// config
	var configPath string
	flag.StringVar(&configPath, "c", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// logger
	logger, err := newLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	// database
	db, err := database.Init(cfg.Storage)
	if err != nil {
		zap.S().Fatalf("failed to initialize database: %v", err)
	}
	zap.S().Info("database initialized successfully")

	// contest catalogue
	published, err := catalog.Reload(db, cfg.Catalog.Root)
	if err != nil {
		zap.S().Fatalf("failed to load contest catalog: %v", err)
	}
	zap.S().Infof("published %d contests from %s", published, cfg.Catalog.Root)

	// score sync
	registry := platform.NewRegistryFromConfig(cfg.Sync.Platforms)
	zap.S().Infof("registered score providers: %v", registry.Names())

	locker, err := newLocker(cfg)
	if err != nil {
		zap.S().Fatalf("failed to initialize session lock: %v", err)
	}

	broker := pubsub.GetBroker()
	syncer := virtual.NewSyncer(
		registry,
		locker,
		platform.NewDBCredentialStore(db),
		broker,
		time.Duration(cfg.Sync.ProviderTimeoutSeconds)*time.Second,
	)
	service := virtual.NewService(db, syncer, virtual.NewContextRegistry(cfg.Contexts))

	// API routers
	userEngine := user.NewUserRouter(cfg, db, service, broker, registry.Names())
	adminEngine := admin.NewAdminRouter(cfg, db, service, broker)

	// start servers
	servers := []*http.Server{{Addr: cfg.Listen, Handler: userEngine}}
	if cfg.Admin.Enabled {
		servers = append(servers, &http.Server{Addr: cfg.Admin.Listen, Handler: adminEngine})
	}
	for _, srv := range servers {
		go func(srv *http.Server) {
			zap.S().Infof("starting server at %s", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				zap.S().Fatalf("failed to start server at %s: %v", srv.Addr, err)
			}
		}(srv)
	}

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.S().Info("shutting down server...")

	// An in-flight end request may still be waiting on providers.
	timeout := time.Duration(cfg.Sync.ProviderTimeoutSeconds+5) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(ctx); err != nil {
			zap.S().Errorf("server at %s forced to shut down: %v", srv.Addr, err)
		}
	}
}

func newLogger(cfg config.Logger) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.Level == "debug" {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	if cfg.File != "" {
		zcfg.OutputPaths = append(zcfg.OutputPaths, cfg.File)
	}
	return zcfg.Build()
}

func newLocker(cfg *config.Config) (platform.Locker, error) {
	switch cfg.Sync.Lock {
	case "", "local":
		return platform.NewLocalLocker(), nil
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		zap.S().Infof("using redis session lock at %s", cfg.Redis.Addr)
		return platform.NewRedisLocker(rdb, time.Duration(cfg.Redis.LockTTLSecond)*time.Second), nil
	default:
		return nil, fmt.Errorf("unknown lock backend %q", cfg.Sync.Lock)
	}
}
