package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/xenking/checkout-core/internal/domain/auth"
)

type identityKey struct{}

// IdentityFromContext returns the verified identity stored by Authenticate,
// or nil when the request was not authenticated.
func IdentityFromContext(ctx context.Context) *auth.Identity {
	id, _ := ctx.Value(identityKey{}).(*auth.Identity)
	return id
}

// Authenticate verifies the bearer credential and stores the resulting
// identity in the request context. Requests without a valid credential get
// 401; credentials are never inspected beyond the verifier.
func (h *Handler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(r.Context(), w, http.StatusUnauthorized, codeUnauth, "missing credentials")
			return
		}

		id, err := h.verifier.Verify(r.Context(), token)
		if err != nil {
			writeError(r.Context(), w, http.StatusUnauthorized, codeUnauth, "unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), identityKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin rejects authenticated requests whose identity lacks the admin
// scope.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := IdentityFromContext(r.Context())
		if id == nil || !id.HasScope(auth.ScopeAdmin) {
			writeError(r.Context(), w, http.StatusForbidden, codeForbidden, "admin scope required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
