package main

import (
	"context"
	"log"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"gigachat/backend/internal/audit"
	authservice "gigachat/backend/internal/auth/service"
	"gigachat/backend/internal/config"
	"gigachat/backend/internal/db"
	"gigachat/backend/internal/lockout"
	"gigachat/backend/internal/password"
	"gigachat/backend/internal/security"
	"gigachat/backend/internal/server"
	"gigachat/backend/internal/server/interceptors"
	sessionservice "gigachat/backend/internal/session/service"
	"gigachat/backend/internal/store"
	"gigachat/backend/internal/telemetry"
	telemetryotel "gigachat/backend/internal/telemetry/otel"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()

	providers, err := telemetryotel.NewProviders(ctx, cfg.OTLPEndpoint, "gigachat-backend", cfg.Env != "production")
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()

	var logger *slog.Logger
	if cfg.OTLPEndpoint != "" {
		logger = slog.New(otelslog.NewHandler("gigachat-backend", otelslog.WithLoggerProvider(providers.LoggerProvider)))
	} else {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	slog.SetDefault(logger)

	sqlDB, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Error("database connect failed", "error", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	st := store.NewPostgresStore(sqlDB)

	tokens, err := security.NewTokenProvider([]byte(cfg.TokenSecret), cfg.TokenIssuer, cfg.TokenAudience, cfg.AccessTTL(), cfg.Leeway())
	if err != nil {
		logger.Error("token provider init failed", "error", err)
		os.Exit(1)
	}
	hasher := security.NewHasher(cfg.PasswordPepper, cfg.BcryptCost)

	var breach password.BreachChecker
	if cfg.HIBPAPIKey != "" {
		breach = password.NewHIBPClient(cfg.HIBPBaseURL, cfg.HIBPAPIKey, cfg.BreachCheckTimeout(), 2)
	}
	policy := password.NewPolicy(cfg.MinPasswordLength, breach, logger)

	lockoutPolicy := lockout.NewPolicy(lockout.Config{
		Threshold: cfg.LockoutThreshold,
		Window:    cfg.LockoutWindowDuration(),
		Duration:  cfg.LockoutLockDuration(),
	})

	auditl := audit.NewLogger(st.Repos().Audit, interceptors.ClientIP, logger)

	sessions := sessionservice.NewManager(st, sessionservice.Config{
		MaxConcurrent: cfg.MaxConcurrentSessions,
		TTL:           cfg.RefreshTTL(),
	}, auditl, logger)

	metrics, err := telemetry.NewAuthMetrics()
	if err != nil {
		logger.Error("metrics init failed", "error", err)
		os.Exit(1)
	}

	auth := authservice.NewAuthService(st, hasher, tokens, policy, lockoutPolicy, sessions, auditl, metrics, logger, cfg.AccessTTL())

	srv, healthSrv := server.New(server.Deps{
		Tokens:           tokens,
		SessionValidator: auth.ValidateSession,
		AuditRepo:        st.Repos().Audit,
		Logger:           logger,
	})

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		logger.Error("listen failed", "addr", cfg.GRPCAddr, "error", err)
		os.Exit(1)
	}
	defer lis.Close()

	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	go func() {
		logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
		if err := srv.Serve(lis); err != nil {
			logger.Error("serve failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down gRPC server")
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	srv.GracefulStop()
	logger.Info("gRPC server stopped")
}
