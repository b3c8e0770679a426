package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/rl1809/aircraft-factory/internal/adapter/auth"
	"github.com/rl1809/aircraft-factory/internal/adapter/handler"
	"github.com/rl1809/aircraft-factory/internal/adapter/handler/rpc"
	"github.com/rl1809/aircraft-factory/internal/adapter/storage"
	"github.com/rl1809/aircraft-factory/internal/config"
	"github.com/rl1809/aircraft-factory/internal/core/service"
	"github.com/rl1809/aircraft-factory/internal/port"
)

const shutdownTimeout = 5 * time.Second

type rootOptions struct {
	configPath string
	verbose    bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "aircraft",
		Short:         "Aircraft production tracking server",
		SilenceUsage:  true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to a YAML config file")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newSeedCommand(opts))
	cmd.AddCommand(newReconcileCommand(opts))
	return cmd
}

// app holds what every command needs: validated config, a logger and an
// open store.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	store  *storage.SQLStore
}

func (o *rootOptions) open(ctx context.Context) (*app, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	logger := newLogger(cfg.Log, o.verbose)
	slog.SetDefault(logger)

	store, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN, storage.PoolOptions{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("connected to database", slog.String("driver", store.Dialect().Name))
	return &app{cfg: cfg, logger: logger, store: store}, nil
}

func newLogger(cfg config.LogConfig, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// openCache returns Redis when configured, otherwise the in-process cache.
// The returned close func is never nil.
func (a *app) openCache(ctx context.Context) (port.CacheRepository, func() error, error) {
	if a.cfg.Redis.Addr == "" {
		a.logger.Warn("redis not configured, using in-process cache")
		return storage.NewMemoryCache(), func() error { return nil }, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
		PoolSize: 100,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	a.logger.Info("connected to redis", slog.String("addr", a.cfg.Redis.Addr))
	return storage.NewRedisAdapter(rdb), rdb.Close, nil
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and gRPC servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), opts, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "apply the schema before serving")
	return cmd
}

func serve(ctx context.Context, opts *rootOptions, migrate bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a, err := opts.open(ctx)
	if err != nil {
		return err
	}
	defer a.store.Close()
	logger := a.logger

	if migrate {
		if err := a.store.Migrate(ctx); err != nil {
			return err
		}
	}

	cache, closeCache, err := a.openCache(ctx)
	if err != nil {
		return err
	}
	defer closeCache()

	tokens := auth.NewJWTService(a.cfg.Auth.Secret, a.cfg.Auth.AccessTTL, a.cfg.Auth.RefreshTTL)
	hasher := auth.BcryptHasher{Cost: a.cfg.Auth.BcryptCost}
	services := handler.Services{
		Accounts:   service.NewAccountService(a.store, cache, tokens, hasher),
		Parts:      service.NewPartService(a.store),
		Inventory:  service.NewInventoryService(a.store),
		Assemblies: service.NewAssemblyService(a.store, cache),
		Catalog:    service.NewCatalogService(a.store),
	}
	metrics := handler.NewMetrics()

	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(
		handler.LoggingInterceptor(logger),
		handler.AuthInterceptor(services.Accounts),
	))
	rpc.RegisterAssemblyServiceServer(grpcServer, handler.NewGRPCHandler(services.Assemblies, logger, metrics))

	lis, err := net.Listen("tcp", a.cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.cfg.GRPCAddr, err)
	}
	go func() {
		logger.Info("gRPC server listening", slog.String("addr", a.cfg.GRPCAddr))
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC server error", slog.Any("error", err))
		}
	}()

	httpHandler := handler.NewHTTPHandler(services, handler.Options{
		AccessTTL: tokens.AccessTTL(),
	}, logger, metrics)
	httpServer := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           httpHandler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("HTTP server listening", slog.String("addr", a.cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", slog.Any("error", err))
			cancel()
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown", slog.Any("error", err))
	}
	logger.Info("HTTP server stopped")

	grpcServer.GracefulStop()
	logger.Info("gRPC server stopped")
	return nil
}
