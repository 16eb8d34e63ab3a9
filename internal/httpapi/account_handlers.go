package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"wordsofdeath.app/internal/accounts"
	"wordsofdeath.app/internal/audit"
)

type whitelistRequest struct {
	Username string `json:"username"`
}

type badgeRequest struct {
	Role string `json:"role"`
}

func (a *API) handleUserByID(w http.ResponseWriter, r *http.Request) {
	user, err := a.accounts.UserByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleAccountsError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *API) handleUserByUsername(w http.ResponseWriter, r *http.Request) {
	user, err := a.accounts.UserByUsername(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		handleAccountsError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *API) handleWhitelistList(w http.ResponseWriter, r *http.Request) {
	list, err := a.accounts.ListWhitelist(r.Context())
	if err != nil {
		handleAccountsError(w, r, err)
		return
	}
	if list == nil {
		list = []accounts.WhitelistEntry{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) handleWhitelistAdd(w http.ResponseWriter, r *http.Request) {
	var req whitelistRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	entry, err := a.accounts.AddToWhitelist(r.Context(), req.Username)
	if err != nil {
		handleAccountsError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "whitelist.add", map[string]any{
		"username": entry.Username,
	})
	writeJSON(w, http.StatusCreated, entry)
}

func (a *API) handleWhitelistRemove(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if err := a.accounts.RemoveFromWhitelist(r.Context(), username); err != nil {
		handleAccountsError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "whitelist.remove", map[string]any{
		"username": username,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleBadgesList(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	roles, err := a.accounts.ListRoles(r.Context(), username)
	if err != nil {
		handleAccountsError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"username": username,
		"roles":    roles,
	})
}

func (a *API) handleBadgeAdd(w http.ResponseWriter, r *http.Request) {
	a.handleBadgeMutation(w, r, "badge.add", a.accounts.AddRole)
}

func (a *API) handleBadgeRemove(w http.ResponseWriter, r *http.Request) {
	a.handleBadgeMutation(w, r, "badge.remove", a.accounts.RemoveRole)
}

func (a *API) handleBadgeMutation(w http.ResponseWriter, r *http.Request, event string,
	mutate func(ctx context.Context, username, role string) (accounts.User, error)) {
	username := chi.URLParam(r, "username")
	var req badgeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Role) == "" {
		writeError(w, r, http.StatusBadRequest, "role is required")
		return
	}
	user, err := mutate(r.Context(), username, req.Role)
	if err != nil {
		handleAccountsError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), event, map[string]any{
		"username": username,
		"role":     req.Role,
	})
	writeJSON(w, http.StatusOK, user)
}

// handleCheckAdmin runs behind the full guard: reaching it means the
// fresh role lookup already admitted an admin or owner, so anyone else
// got a 403 before this point.
func (a *API) handleCheckAdmin(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"isAdmin": true})
}

func handleAccountsError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, accounts.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, strings.TrimPrefix(err.Error(), "accounts: "))
	case errors.Is(err, accounts.ErrConflict):
		writeError(w, r, http.StatusConflict, "already exists")
	case errors.Is(err, accounts.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not found")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
