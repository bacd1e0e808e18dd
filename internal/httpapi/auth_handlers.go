package httpapi

import (
	"errors"
	"net/http"

	"taskmanager.org/internal/audit"
	"taskmanager.org/internal/auth"
	"taskmanager.org/internal/obs"
)

const msgInvalidLogin = "invalid login credentials"

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expiresIn"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if a.svc == nil {
		writeError(w, r, http.StatusServiceUnavailable, "authentication unavailable")
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		obs.ObserveLogin("bad_request")
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	res, err := a.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		// Both login failures look the same to the client.
		if errors.Is(err, auth.ErrInvalidCredentials) || errors.Is(err, auth.ErrAccountNotFound) {
			obs.ObserveLogin("invalid_credentials")
			_ = audit.LogEvent(r.Context(), audit.EventLoginFailed, nil)
			writeError(w, r, http.StatusUnauthorized, msgInvalidLogin)
			return
		}
		obs.ObserveLogin("error")
		obs.Logger().ErrorContext(r.Context(), "login failed", "error", err, "request_id", RequestIDFromContext(r.Context()))
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	obs.ObserveLogin("success")
	_ = audit.LogEvent(r.Context(), audit.EventLoginSucceeded, map[string]any{
		"subject": res.Account.Subject,
	})
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     res.Token,
		ExpiresIn: res.ExpiresInMillis,
	})
}
