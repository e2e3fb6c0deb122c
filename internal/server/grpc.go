// Package server assembles the gRPC server: interceptor chain, health
// service, and OpenTelemetry instrumentation.
package server

import (
	"log/slog"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	auditrepo "gigachat/backend/internal/audit/repository"
	"gigachat/backend/internal/security"
	"gigachat/backend/internal/server/interceptors"
)

// PublicMethods are the full method names reachable without a Bearer token.
var PublicMethods = map[string]bool{
	"/gigachat.auth.v1.AuthService/Register": true,
	"/gigachat.auth.v1.AuthService/Login":    true,
	"/grpc.health.v1.Health/Check":           true,
	"/grpc.health.v1.Health/Watch":           true,
}

// skipMethods are not audited or request-logged (high-frequency probes).
var skipMethods = map[string]bool{
	"/grpc.health.v1.Health/Check": true,
	"/grpc.health.v1.Health/Watch": true,
}

// Deps holds the dependencies the server wires into its interceptor chain.
type Deps struct {
	// Tokens verifies Bearer tokens on protected RPCs.
	Tokens *security.TokenProvider
	// SessionValidator rejects tokens whose session is gone. May be nil.
	SessionValidator interceptors.SessionValidator
	// AuditRepo records authenticated RPCs. If nil, no RPCs are audited.
	AuditRepo auditrepo.Repository
	// Logger receives per-RPC request logs. May be nil.
	Logger *slog.Logger
}

// New builds the gRPC server with the auth, audit, and logging interceptors
// and a standard health service. Callers register their domain services on the
// returned server before Serve.
func New(deps Deps) (*grpc.Server, *health.Server) {
	chain := []grpc.UnaryServerInterceptor{
		interceptors.LoggingUnary(deps.Logger, skipMethods),
		interceptors.AuthUnary(deps.Tokens, PublicMethods, deps.SessionValidator),
	}
	if deps.AuditRepo != nil {
		chain = append(chain, interceptors.AuditUnary(deps.AuditRepo, skipMethods))
	}

	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(chain...),
	)

	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(srv, healthSrv)
	return srv, healthSrv
}
