package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go-auth-service/internal/logger"
	"go-auth-service/internal/token"
	"go-auth-service/pkg/apierror"
)

type tokenValidator interface {
	ValidateToken(ctx context.Context, tokenString string, kind token.Kind) (*token.Claims, error)
}

type contextKey string

const authClaimsContextKey contextKey = "auth_claims"

type AuthMiddleware struct {
	validator tokenValidator
}

func NewAuthMiddleware(validator tokenValidator) *AuthMiddleware {
	return &AuthMiddleware{validator: validator}
}

// RequireAuth admits requests carrying a valid, unrevoked access token and attaches its claims.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			writeAPIError(w, apierror.Unauthorized("missing or invalid authorization header"))
			return
		}

		claims, err := m.validator.ValidateToken(r.Context(), raw, token.KindAccess)
		if err != nil {
			var apiErr *apierror.APIError
			if errors.As(err, &apiErr) {
				writeAPIError(w, apiErr)
				return
			}
			logger.From(r.Context()).Error("token validation failed", "error", err)
			writeAPIError(w, apierror.Internal())
			return
		}

		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

// RoleRequirement is the set of roles a route accepts. Any one of them is enough.
type RoleRequirement struct {
	roles []string
}

func Roles(roles ...string) RoleRequirement {
	cleaned := make([]string, 0, len(roles))
	for _, role := range roles {
		if role = strings.TrimSpace(role); role != "" {
			cleaned = append(cleaned, role)
		}
	}
	return RoleRequirement{roles: cleaned}
}

// Allows reports whether claims hold at least one required role. An empty requirement admits nobody.
func (req RoleRequirement) Allows(claims *token.Claims) bool {
	return claims != nil && claims.HasAnyRole(req.roles)
}

// RequireRoles must run after RequireAuth.
func (m *AuthMiddleware) RequireRoles(req RoleRequirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeAPIError(w, apierror.Unauthorized("authentication required"))
				return
			}

			if !req.Allows(claims) {
				logger.From(r.Context()).Warn("role check failed", "user_id", claims.Subject, "roles", claims.Roles)
				writeAPIError(w, apierror.Forbidden())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func WithClaims(ctx context.Context, claims *token.Claims) context.Context {
	return context.WithValue(ctx, authClaimsContextKey, claims)
}

func ClaimsFromContext(ctx context.Context) (*token.Claims, bool) {
	claims, ok := ctx.Value(authClaimsContextKey).(*token.Claims)
	return claims, ok && claims != nil
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(header[7:])
	return raw, raw != ""
}
