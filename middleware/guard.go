// Package middleware provides net/http guards over the auth core: bearer
// authentication and per-route permission checks.
package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/stratumhq/adminauth"
	"github.com/stratumhq/adminauth/permission"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code adminauth.Code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: msg, Code: string(code)})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

// Guard verifies the bearer access token and stores the derived identity in
// the request context. A missing or invalid token is 401; downstream
// permission failures are 403, drawn by the Require guards.
func Guard(engine *adminauth.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, adminauth.CodeUnauthenticated, "missing bearer token")
				return
			}
			id, err := engine.VerifyAccess(r.Context(), token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, adminauth.CodeUnauthenticated, "invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(adminauth.ContextWithIdentity(r.Context(), id)))
		})
	}
}

func deny(w http.ResponseWriter, err error) {
	switch adminauth.CodeOf(err) {
	case adminauth.CodeUnauthenticated:
		writeError(w, http.StatusUnauthorized, adminauth.CodeUnauthenticated, "authentication required")
	case adminauth.CodeForbidden:
		writeError(w, http.StatusForbidden, adminauth.CodeForbidden, "permission denied")
	default:
		writeError(w, http.StatusInternalServerError, adminauth.CodeInternal, "authorization unavailable")
	}
}

// Require gates the route on one (module, action) pair. It expects Guard to
// have run first.
func Require(engine *adminauth.Engine, module, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := adminauth.IdentityFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, adminauth.CodeUnauthenticated, "authentication required")
				return
			}
			if err := engine.Authorize(r.Context(), id, module, action); err != nil {
				deny(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAny passes when the identity holds at least one of the pairs.
func RequireAny(engine *adminauth.Engine, perms ...permission.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := adminauth.IdentityFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, adminauth.CodeUnauthenticated, "authentication required")
				return
			}
			if err := engine.AuthorizeAny(r.Context(), id, perms...); err != nil {
				deny(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAll passes only when the identity holds every pair.
func RequireAll(engine *adminauth.Engine, perms ...permission.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := adminauth.IdentityFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, adminauth.CodeUnauthenticated, "authentication required")
				return
			}
			if err := engine.AuthorizeAll(r.Context(), id, perms...); err != nil {
				deny(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireTenant enforces tenant scoping against a tenant id extracted from
// the request, independently of permission grants.
func RequireTenant(engine *adminauth.Engine, tenantFromRequest func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := adminauth.IdentityFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, adminauth.CodeUnauthenticated, "authentication required")
				return
			}
			if err := engine.RequireTenant(id, tenantFromRequest(r)); err != nil {
				deny(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
