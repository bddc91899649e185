package web

import (
	"log"
	"net/http"

	"github.com/google/uuid"

	"reflection-portal/internal/auth"
)

const stateCookie = "oauth_state"

// --- GET /login ---

func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if h.sessions.UserFromRequest(r) != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.render(w, "login", h.newPage(w, r, "Sign In", "login"))
}

// --- GET /auth/login ---
// Starts the provider redirect flow. A single-use state token in a
// short-lived cookie ties the callback to this browser.

func (h *Handler) StartLogin(w http.ResponseWriter, r *http.Request) {
	state := uuid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
	})
	http.Redirect(w, r, h.provider.LoginURL(state), http.StatusSeeOther)
}

// --- GET /auth/callback ---

func (h *Handler) AuthCallback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		http.Error(w, "login state mismatch", http.StatusBadRequest)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Path: "/", MaxAge: -1, HttpOnly: true})

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing authorization code", http.StatusBadRequest)
		return
	}

	accessToken, err := h.provider.Exchange(r.Context(), code)
	if err != nil {
		log.Printf("Error exchanging authorization code: %v", err)
		http.Error(w, "sign-in failed", http.StatusBadGateway)
		return
	}
	user, err := h.provider.UserInfo(r.Context(), accessToken)
	if err != nil {
		log.Printf("Error fetching user info: %v", err)
		http.Error(w, "sign-in failed", http.StatusBadGateway)
		return
	}

	session, err := h.sessions.Issue(*user)
	if err != nil {
		log.Printf("Error issuing session: %v", err)
		http.Error(w, "sign-in failed", http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    session,
		Path:     "/",
		MaxAge:   30 * 24 * 60 * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// --- POST /auth/logout ---

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// --- GET /session ---
// JSON current-user readout for the navigation bar. Sits outside the page
// guard so it can answer 401 instead of redirecting.

func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	user := h.sessions.UserFromRequest(r)
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	writeJSON(w, http.StatusOK, user)
}
