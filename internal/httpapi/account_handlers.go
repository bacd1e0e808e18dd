package httpapi

import (
	"errors"
	"net/http"

	"taskmanager.org/internal/audit"
	"taskmanager.org/internal/auth"
	"taskmanager.org/internal/obs"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type accountResponse struct {
	ID    string   `json:"id,omitempty"`
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	acc, err := a.registrar.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		handleAccountError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), audit.EventAccountRegistered, map[string]any{
		"subject": acc.Subject,
	})
	writeJSON(w, http.StatusCreated, accountResponse{
		ID:    acc.ID,
		Email: acc.Subject,
		Roles: acc.Roles,
	})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	p, _ := auth.PrincipalFromContext(r.Context())
	writeJSON(w, http.StatusOK, accountResponse{
		Email: p.Subject,
		Roles: p.Authorities,
	})
}

func (a *API) handleAdminPing(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	p, _ := auth.PrincipalFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"subject": p.Subject,
	})
}

func handleAccountError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrAlreadyExists):
		writeError(w, r, http.StatusConflict, "account already exists")
	default:
		obs.Logger().ErrorContext(r.Context(), "account operation failed", "error", err, "request_id", RequestIDFromContext(r.Context()))
		writeError(w, r, http.StatusInternalServerError, "account operation failed")
	}
}
