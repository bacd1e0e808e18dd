package httpapi

import (
	"errors"
	"net/http"

	"taskmanager.org/internal/auth"
	"taskmanager.org/internal/obs"
)

const authHeader = "Authorization"

// withAuth resolves the bearer token into a principal. It never rejects a
// request: failures continue anonymously and RequireRole decides later.
func (a *API) withAuth(next http.Handler) http.Handler {
	if a == nil || a.authn == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.authn.ShouldSkip(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		// An identity established earlier in the chain is left untouched.
		if _, ok := auth.PrincipalFromContext(r.Context()); ok {
			next.ServeHTTP(w, r)
			return
		}

		switch out := a.authn.Authenticate(r.Context(), r.Header.Get(authHeader)).(type) {
		case auth.Authenticated:
			obs.ObserveGate("authenticated")
			r = r.WithContext(auth.ContextWithPrincipal(r.Context(), out.Principal))
		case auth.Anonymous:
			kind := rejectionKind(out.Reason())
			obs.ObserveGate(kind)
			if kind != "no_credentials" {
				obs.Logger().DebugContext(r.Context(), "bearer token rejected",
					"reason", kind,
					"request_id", RequestIDFromContext(r.Context()),
				)
			}
		}
		next.ServeHTTP(w, r)
	})
}

func rejectionKind(err error) string {
	switch {
	case errors.Is(err, auth.ErrNoCredentials):
		return "no_credentials"
	case errors.Is(err, auth.ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, auth.ErrTokenSignatureMismatch):
		return "signature_mismatch"
	case errors.Is(err, auth.ErrTokenExpired):
		return "expired"
	case errors.Is(err, auth.ErrAccountNotFound):
		return "account_not_found"
	default:
		return "error"
	}
}

// RequireRole admits requests whose principal holds any of roles. Anonymous
// requests and principals without a matching role get 403.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := auth.PrincipalFromContext(r.Context())
			if !ok || !p.HasAnyAuthority(roles...) {
				w.Header().Set("WWW-Authenticate", `Bearer realm="taskmanager"`)
				writeError(w, r, http.StatusForbidden, "access denied")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
