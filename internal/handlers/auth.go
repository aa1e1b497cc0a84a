package handlers

import (
	"net/http"

	"github.com/abrezinsky/rollcall/internal/auth"
)

// LoginPageData holds data for the login template
type LoginPageData struct {
	Error string
	// Next is the organizer page to return to after signing in
	Next string
}

func (h *Handlers) renderLogin(w http.ResponseWriter, status int, data LoginPageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	h.templates.AdminLogin.Execute(w, data)
}

// handleLoginPage renders the login form
func (h *Handlers) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	next := auth.SafeNext(r.URL.Query().Get("next"))
	if h.Auth.GetSessionFromRequest(r) {
		http.Redirect(w, r, next, http.StatusFound)
		return
	}
	h.renderLogin(w, http.StatusOK, LoginPageData{Next: next})
}

// handleLogin checks the organizer password and starts a session
func (h *Handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	next := auth.SafeNext(r.FormValue("next"))

	token, ok := h.Auth.Login(r.FormValue("password"))
	if !ok {
		h.renderLogin(w, http.StatusUnauthorized, LoginPageData{Error: "Invalid password", Next: next})
		return
	}

	auth.SetSessionCookie(w, token)
	http.Redirect(w, r, next, http.StatusFound)
}

// handleLogout clears the session and redirects to login
func (h *Handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.CookieName); err == nil {
		h.Auth.Logout(cookie.Value)
	}

	auth.ClearSessionCookie(w)
	http.Redirect(w, r, "/admin/login", http.StatusFound)
}
