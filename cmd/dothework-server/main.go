package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	dotheworkv1 "dothework/internal/api/dothework/v1"
	"dothework/internal/auth"
	"dothework/internal/calendar"
	"dothework/internal/config"
	"dothework/internal/notify"
	"dothework/internal/receipt"
	"dothework/internal/service/bookings"
	"dothework/internal/service/catalog"
	"dothework/internal/store"
	"dothework/internal/store/cache"
	"dothework/internal/store/postgres"
	grpcTransport "dothework/internal/transport/grpc"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With(
		slog.String("service", "dothework-server"),
	)
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)})).With(
		slog.String("service", "dothework-server"),
	)
	slog.SetDefault(log)

	log.Info("starting", slog.String("grpc_addr", cfg.GRPCAddr()), slog.String("log_level", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("connecting to database", databaseLogArgs(cfg.DatabaseURL)...)
	db, err := postgres.Open(ctx, cfg.DatabaseURL, postgres.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	})
	if err != nil {
		args := append([]any{slog.Any("err", err)}, databaseLogArgs(cfg.DatabaseURL)...)
		log.Error("database connection failed", args...)
		os.Exit(1)
	}
	defer func() {
		if err := postgres.Close(db); err != nil {
			log.Warn("database close failed", slog.Any("err", err))
		}
	}()

	if cfg.DBAutoMigrate {
		applied, err := postgres.Migrate(ctx, db)
		if err != nil {
			log.Error("database migration failed", slog.Any("err", err))
			os.Exit(1)
		}
		log.Info("database migrated", slog.Any("applied", applied))
	}

	loc, err := time.LoadLocation(cfg.Booking.TimeZone)
	if err != nil {
		log.Error("time zone load failed", slog.Any("err", err), slog.String("time_zone", cfg.Booking.TimeZone))
		os.Exit(1)
	}

	bookingRepo := postgres.NewBookingRepo(db)
	var serviceRepo store.ServiceRepository = postgres.NewServiceRepo(db)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Warn("redis close failed", slog.Any("err", err))
			}
		}()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis unavailable; catalog reads fall through to postgres", slog.Any("err", err), slog.String("redis_addr", cfg.Redis.Addr))
		}
		serviceRepo = cache.NewServiceCache(serviceRepo, rdb, cfg.Redis.CacheTTL, log)
		log.Info("catalog cache enabled", slog.String("redis_addr", cfg.Redis.Addr), slog.Duration("ttl", cfg.Redis.CacheTTL))
	}

	var sender notify.Sender = notify.NoopSender{Log: log}
	if cfg.Email.ResendAPIKey != "" {
		sender = notify.NewResendSender(cfg.Email.ResendAPIKey, cfg.Email.From)
		log.Info("email notifications enabled", slog.String("from", cfg.Email.From))
	}

	cal := calendar.New(calendar.Config{Location: loc})
	validator := bookings.NewValidator(bookingRepo, bookings.SystemClock{}, bookings.Rules{
		MinNotice:  cfg.Booking.MinNotice,
		MaxHorizon: cfg.Booking.MaxHorizon,
		Location:   loc,
	}, log)

	bookingSvc := bookings.NewService(bookings.Deps{
		Bookings:  bookingRepo,
		Services:  serviceRepo,
		Validator: validator,
		Calendar:  cal,
		Sender:    sender,
		Composer:  notify.NewComposer(cfg.Email.From, cfg.BusinessName, cal),
		Receipts:  receipt.New(cfg.BusinessName, cal),
		Log:       log,
	})
	catalogSvc := catalog.NewService(serviceRepo, log)

	verifier := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	if !verifier.Enabled() {
		log.Warn("no jwt secret configured; every caller is anonymous")
	}
	limiter := grpcTransport.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			grpcTransport.RecoveryInterceptor(log),
			grpcTransport.RequestTimeoutInterceptor(cfg.GRPCRequestTimeout),
			limiter.FailedAuthInterceptor(),
			grpcTransport.AuthInterceptor(verifier, log),
			limiter.UnaryInterceptor(),
		),
	)
	dotheworkv1.RegisterBookingsServiceServer(grpcServer, grpcTransport.NewBookingsServer(bookingSvc, catalogSvc, cal, log))

	healthSrv := health.NewServer()
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthSrv.SetServingStatus(dotheworkv1.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthSrv)

	lis, err := net.Listen("tcp", cfg.GRPCAddr())
	if err != nil {
		log.Error("grpc listen failed", slog.Any("err", err), slog.String("grpc_addr", cfg.GRPCAddr()))
		os.Exit(1)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- grpcServer.Serve(lis)
	}()

	log.Info("grpc server started", slog.String("grpc_addr", cfg.GRPCAddr()))

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
		healthSrv.Shutdown()
		shutdown(log, grpcServer, cfg.ShutdownTimeout)
	case err := <-errCh:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			log.Error("grpc server stopped with error", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

func shutdown(log *slog.Logger, s *grpc.Server, timeout time.Duration) {
	log.Info("shutting down grpc server", slog.Duration("timeout", timeout))

	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		log.Info("grpc server stopped")
	case <-timer.C:
		log.Warn("grpc graceful shutdown timed out; forcing stop")
		s.Stop()
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func databaseLogArgs(databaseURL string) []any {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return []any{slog.String("db_url", "invalid")}
	}
	name := strings.TrimPrefix(u.Path, "/")
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "default"
	}
	if host == "" {
		host = "unknown"
	}
	if name == "" {
		name = "unknown"
	}
	return []any{
		slog.String("db_host", host),
		slog.String("db_port", port),
		slog.String("db_name", name),
	}
}
