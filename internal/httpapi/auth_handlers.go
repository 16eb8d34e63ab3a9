package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"wordsofdeath.app/internal/accounts"
	"wordsofdeath.app/internal/audit"
	"wordsofdeath.app/internal/discord"
	"wordsofdeath.app/internal/obs"
)

const stateCookie = "wod_oauth_state"

// handleDiscordLogin starts the authorization-code flow. The random state
// rides in a short-lived cookie and is checked on the way back.
func (a *API) handleDiscordLogin(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   a.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, a.identity.AuthURL(state), http.StatusFound)
}

func (a *API) handleDiscordCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if errCode := query.Get("error"); errCode != "" {
		obs.CountLogin("error")
		msg := "discord authorization failed: " + errCode
		if desc := query.Get("error_description"); desc != "" {
			msg += ": " + desc
		}
		writeError(w, r, http.StatusForbidden, msg)
		return
	}
	code := query.Get("code")
	if code == "" {
		writeError(w, r, http.StatusBadRequest, "missing authorization code")
		return
	}
	if !a.stateMatches(r, query.Get("state")) {
		writeError(w, r, http.StatusBadRequest, "state mismatch")
		return
	}
	clearStateCookie(w, a.secureCookies)

	profile, err := a.identity.ExchangeCode(r.Context(), code)
	if err != nil {
		obs.CountLogin("error")
		var exErr *discord.ExchangeError
		if errors.As(err, &exErr) {
			writeError(w, r, http.StatusBadGateway, "discord exchange failed")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "login failed")
		return
	}

	user, err := a.accounts.Provision(r.Context(), profile.ID, profile.Username, profile.Avatar)
	if err != nil {
		switch {
		case errors.Is(err, accounts.ErrNotWhitelisted):
			obs.CountLogin("denied")
			_ = audit.LogEvent(r.Context(), "auth.login.denied", map[string]any{
				"username": profile.Username,
			})
			http.Redirect(w, r, a.accessDeniedURL, http.StatusFound)
		case errors.Is(err, accounts.ErrConflict):
			obs.CountLogin("error")
			writeError(w, r, http.StatusConflict, "username already claimed by another account")
		default:
			obs.CountLogin("error")
			writeError(w, r, http.StatusInternalServerError, "login failed")
		}
		return
	}

	token, expiresAt, err := a.sessions.Issue(user.DiscordID, user.Username, user.Avatar)
	if err != nil {
		obs.CountLogin("error")
		writeError(w, r, http.StatusInternalServerError, "session issue failed")
		return
	}

	cookie := &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   a.secureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	if !expiresAt.IsZero() {
		cookie.Expires = expiresAt
	}
	http.SetCookie(w, cookie)

	obs.CountLogin("success")
	_ = audit.LogEvent(r.Context(), "auth.login.success", map[string]any{
		"username": user.Username,
	})
	http.Redirect(w, r, a.clientURL, http.StatusFound)
}

func (a *API) stateMatches(r *http.Request, state string) bool {
	if state == "" {
		return false
	}
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" {
		return false
	}
	return cookie.Value == state
}

func clearStateCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
