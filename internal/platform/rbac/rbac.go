// Package rbac maps roles to permissions with a closed, static policy. Roles
// and permissions are fixed at compile time; there is no runtime policy
// loading, so an authorization decision can never change under a running
// process.
package rbac

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"gigachat/backend/internal/account/domain"
	"gigachat/backend/internal/server/interceptors"
)

// Permission names an operation a role may perform.
type Permission string

const (
	PermSendMessage      Permission = "message:send"
	PermDeleteOwnMessage Permission = "message:delete_own"
	PermDeleteAnyMessage Permission = "message:delete_any"
	PermMuteAccount      Permission = "account:mute"
	PermBanAccount       Permission = "account:ban"
	PermViewAuditLog     Permission = "audit:view"
	PermManageAccounts   Permission = "account:manage"
)

// rolePermissions is the complete policy. Unknown roles have no permissions.
var rolePermissions = map[domain.Role]map[Permission]bool{
	domain.RoleUser: {
		PermSendMessage:      true,
		PermDeleteOwnMessage: true,
	},
	domain.RoleModerator: {
		PermSendMessage:      true,
		PermDeleteOwnMessage: true,
		PermDeleteAnyMessage: true,
		PermMuteAccount:      true,
	},
	domain.RoleAdmin: {
		PermSendMessage:      true,
		PermDeleteOwnMessage: true,
		PermDeleteAnyMessage: true,
		PermMuteAccount:      true,
		PermBanAccount:       true,
		PermViewAuditLog:     true,
		PermManageAccounts:   true,
	},
}

// Can reports whether role grants the permission.
func Can(role domain.Role, p Permission) bool {
	return rolePermissions[role][p]
}

// Require checks that the authenticated caller's role grants the permission.
// Returns (accountID, nil) on success; returns a gRPC error (Unauthenticated
// or PermissionDenied) on failure.
func Require(ctx context.Context, p Permission) (accountID string, err error) {
	accountID, okAcc := interceptors.GetAccountID(ctx)
	role, okRole := interceptors.GetRole(ctx)
	if !okAcc || accountID == "" || !okRole || role == "" {
		return "", status.Error(codes.Unauthenticated, "authentication required")
	}
	if !Can(domain.Role(role), p) {
		return "", status.Error(codes.PermissionDenied, "insufficient role")
	}
	return accountID, nil
}
