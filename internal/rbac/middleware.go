// Package rbac gates API routes by role. The back-office UI authenticates its
// users elsewhere and calls this service with a role-scoped bearer token, so
// authorization here reduces to two tiers: staff and manager.
package rbac

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/ovenline-erp/ovenline-erp/internal/platform/httpx"
)

// Role identifies an access tier.
type Role string

const (
	RoleStaff   Role = "staff"
	RoleManager Role = "manager"
)

type contextKey struct{ name string }

var (
	roleContextKey  = contextKey{"rbac.role"}
	actorContextKey = contextKey{"rbac.actor"}
)

// Middleware authorizes requests against bcrypt-hashed role tokens.
type Middleware struct {
	StaffTokenHash   string
	ManagerTokenHash string
	Logger           *slog.Logger
}

// Require returns a middleware admitting only the given role or higher.
// Manager tokens satisfy staff-level routes.
func (m Middleware) Require(role Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				httpx.Fail(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			granted, ok := m.resolveRole(token)
			if !ok {
				if m.Logger != nil {
					m.Logger.Warn("rejected token", slog.String("path", r.URL.Path))
				}
				httpx.Fail(w, http.StatusUnauthorized, "invalid bearer token")
				return
			}
			if role == RoleManager && granted != RoleManager {
				httpx.Fail(w, http.StatusForbidden, "manager role required")
				return
			}
			ctx := context.WithValue(r.Context(), roleContextKey, granted)
			if actor, err := strconv.ParseInt(r.Header.Get("X-Actor-ID"), 10, 64); err == nil {
				ctx = context.WithValue(ctx, actorContextKey, actor)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (m Middleware) resolveRole(token string) (Role, bool) {
	if m.ManagerTokenHash != "" && bcrypt.CompareHashAndPassword([]byte(m.ManagerTokenHash), []byte(token)) == nil {
		return RoleManager, true
	}
	if m.StaffTokenHash != "" && bcrypt.CompareHashAndPassword([]byte(m.StaffTokenHash), []byte(token)) == nil {
		return RoleStaff, true
	}
	return "", false
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// RoleFromContext returns the authorized role, if any.
func RoleFromContext(ctx context.Context) (Role, bool) {
	role, ok := ctx.Value(roleContextKey).(Role)
	return role, ok
}

// ActorFromContext returns the acting back-office user id, zero when absent.
func ActorFromContext(ctx context.Context) int64 {
	actor, _ := ctx.Value(actorContextKey).(int64)
	return actor
}
