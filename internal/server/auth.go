package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"bobemploi/internal/engine/auth"
)

type principalKey struct{}

func withPrincipal(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, principalKey{}, userID)
}

func principalFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(principalKey{}).(string)
	return id, ok && id != ""
}

// requireUser checks that the request carries a token for userID.
func requireUser(ctx context.Context, userID string) error {
	principal, ok := principalFromContext(ctx)
	if !ok {
		return newAPIError(http.StatusUnauthorized, "authentication required")
	}
	if strings.TrimSpace(userID) == "" {
		return newAPIError(http.StatusBadRequest, "userId is required")
	}
	if principal != userID {
		return auth.ForbiddenError{UserID: userID}
	}
	return nil
}

func bearerToken(authz string) (string, bool) {
	parts := strings.Fields(authz)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

// newAuthMiddleware resolves the bearer token of API requests. Requests
// without a token go through anonymous; handlers decide what needs one.
func newAuthMiddleware(basePath, secret string, now func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if !strings.HasPrefix(req.URL.Path, basePath) {
				next.ServeHTTP(w, req)
				return
			}
			authz := strings.TrimSpace(req.Header.Get("Authorization"))
			if authz == "" {
				next.ServeHTTP(w, req)
				return
			}
			token, ok := bearerToken(authz)
			if !ok {
				respondStatusError(w, newAPIError(http.StatusUnauthorized, "invalid credentials"))
				return
			}
			userID, err := auth.ParseToken(secret, token, now())
			if err != nil {
				respondStatusError(w, newAPIError(http.StatusUnauthorized, "invalid credentials"))
				return
			}
			next.ServeHTTP(w, req.WithContext(withPrincipal(req.Context(), userID)))
		})
	}
}

func respondStatusError(w http.ResponseWriter, err huma.StatusError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.GetStatus())
	_ = json.NewEncoder(w).Encode(err)
}
