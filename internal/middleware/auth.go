package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"carwash-backend/internal/apperr"
	"carwash-backend/internal/auth"
	"carwash-backend/internal/models"
	"carwash-backend/pkg/utils"
)

type contextKey string

const CallerKey contextKey = "caller"

// CallerResolver loads the live user and branch behind verified claims.
type CallerResolver interface {
	ResolveCaller(ctx context.Context, claims *auth.Claims, requestedBranch *int) (*models.Caller, error)
}

type AuthMiddleware struct {
	jwtManager *auth.JWTManager
	resolver   CallerResolver
}

func NewAuthMiddleware(jwtManager *auth.JWTManager, resolver CallerResolver) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager: jwtManager,
		resolver:   resolver,
	}
}

// bearerToken reads "Authorization: Bearer <token>", falling back to the
// token query parameter used by websocket clients.
func bearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if t := r.URL.Query().Get("token"); t != "" {
			return t, nil
		}
		return "", apperr.Unauthorized("authorization header required")
	}

	// Extract token from "Bearer <token>"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", apperr.Unauthorized("invalid authorization format")
	}
	return parts[1], nil
}

// requestedBranch parses the optional branch_id query parameter
func requestedBranch(r *http.Request) (*int, error) {
	raw := r.URL.Query().Get("branch_id")
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return nil, apperr.Validation("invalid branch_id")
	}
	return &id, nil
}

// Authenticate validates the JWT and stores the resolved Caller in the
// request context. User state is reloaded on every request so disabling an
// account takes effect immediately.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r)
		if err != nil {
			utils.WriteError(w, err)
			return
		}

		claims, err := m.jwtManager.ValidateToken(token)
		if err != nil {
			utils.WriteError(w, apperr.Unauthorized("invalid or expired token"))
			return
		}

		branchID, err := requestedBranch(r)
		if err != nil {
			utils.WriteError(w, err)
			return
		}

		caller, err := m.resolver.ResolveCaller(r.Context(), claims, branchID)
		if err != nil {
			utils.WriteError(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
	})
}

// RequireRole ensures the authenticated caller has one of the allowed roles.
// It must run after Authenticate.
func (m *AuthMiddleware) RequireRole(allowedRoles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, ok := CallerFromContext(r.Context())
			if !ok {
				utils.WriteError(w, apperr.Unauthorized("authentication required"))
				return
			}
			if err := caller.RequireRole(allowedRoles...); err != nil {
				utils.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin is a middleware that ensures the user has admin role
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return m.RequireRole(models.RoleAdmin)(next)
}

func WithCaller(ctx context.Context, caller *models.Caller) context.Context {
	return context.WithValue(ctx, CallerKey, caller)
}

// CallerFromContext extracts the caller from request context
func CallerFromContext(ctx context.Context) (*models.Caller, bool) {
	caller, ok := ctx.Value(CallerKey).(*models.Caller)
	return caller, ok && caller != nil
}
