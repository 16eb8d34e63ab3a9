package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"wordsofdeath.app/internal/audit"
	"wordsofdeath.app/internal/auth"
	"wordsofdeath.app/internal/entries"
)

func (a *API) handleEntriesList(w http.ResponseWriter, r *http.Request) {
	list, err := a.entries.List(r.Context())
	if err != nil {
		handleEntriesError(w, r, err)
		return
	}
	if list == nil {
		list = []entries.Entry{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) handleEntryCreate(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "missing credentials")
		return
	}
	var in entries.CreateInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	entry, err := a.entries.Create(r.Context(), claims.Username, claims.DiscordID(), in)
	if err != nil {
		handleEntriesError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/entries/"+entry.ID)
	writeJSON(w, http.StatusCreated, entry)
}

func (a *API) handleEntryGet(w http.ResponseWriter, r *http.Request) {
	entry, err := a.entries.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleEntriesError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (a *API) handleEntriesByAuthor(w http.ResponseWriter, r *http.Request) {
	list, err := a.entries.ByAuthor(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		handleEntriesError(w, r, err)
		return
	}
	if list == nil {
		list = []entries.Entry{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) handleCategory(w http.ResponseWriter, r *http.Request) {
	list, err := a.entries.ByCategory(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		handleEntriesError(w, r, err)
		return
	}
	if list == nil {
		list = []entries.Entry{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) handleSearch(w http.ResponseWriter, r *http.Request) {
	result, err := a.entries.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		handleEntriesError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleEntryDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.entries.Delete(r.Context(), id); err != nil {
		handleEntriesError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "entry.delete", map[string]any{
		"entry_id": id,
	})
	w.WriteHeader(http.StatusNoContent)
}

func handleEntriesError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, entries.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, strings.TrimPrefix(err.Error(), "entries: "))
	case errors.Is(err, entries.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not found")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
