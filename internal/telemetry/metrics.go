package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AuthMetrics counts authentication outcomes. A nil *AuthMetrics is a valid
// no-op receiver, so services can run without metrics wired.
type AuthMetrics struct {
	registrations metric.Int64Counter
	loginSuccess  metric.Int64Counter
	loginFailure  metric.Int64Counter
	lockouts      metric.Int64Counter
}

// NewAuthMetrics registers the auth counters on the global meter provider.
func NewAuthMetrics() (*AuthMetrics, error) {
	meter := otel.Meter("gigachat/backend/auth")

	registrations, err := meter.Int64Counter("auth.registrations",
		metric.WithDescription("Accounts registered"))
	if err != nil {
		return nil, err
	}
	loginSuccess, err := meter.Int64Counter("auth.login.success",
		metric.WithDescription("Successful logins"))
	if err != nil {
		return nil, err
	}
	loginFailure, err := meter.Int64Counter("auth.login.failure",
		metric.WithDescription("Failed login attempts"))
	if err != nil {
		return nil, err
	}
	lockouts, err := meter.Int64Counter("auth.lockouts",
		metric.WithDescription("Accounts locked after repeated failures"))
	if err != nil {
		return nil, err
	}

	return &AuthMetrics{
		registrations: registrations,
		loginSuccess:  loginSuccess,
		loginFailure:  loginFailure,
		lockouts:      lockouts,
	}, nil
}

func (m *AuthMetrics) Registration(ctx context.Context) {
	if m != nil {
		m.registrations.Add(ctx, 1)
	}
}

func (m *AuthMetrics) LoginSuccess(ctx context.Context) {
	if m != nil {
		m.loginSuccess.Add(ctx, 1)
	}
}

func (m *AuthMetrics) LoginFailure(ctx context.Context) {
	if m != nil {
		m.loginFailure.Add(ctx, 1)
	}
}

func (m *AuthMetrics) Lockout(ctx context.Context) {
	if m != nil {
		m.lockouts.Add(ctx, 1)
	}
}
