package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// conditionalHTTPLogger only logs HTTP requests when HTTP logging is enabled
func (h *Handlers) conditionalHTTPLogger(next http.Handler) http.Handler {
	logger := middleware.Logger(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Log != nil && h.Log.IsHTTPLoggingEnabled() {
			logger.ServeHTTP(w, r)
		} else {
			next.ServeHTTP(w, r)
		}
	})
}

// Router returns a configured chi router with all routes
func (h *Handlers) Router() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.conditionalHTTPLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RedirectSlashes)
	r.Use(middleware.Timeout(60 * time.Second))

	// Static files (served from embedded filesystem)
	r.Handle("/static/*", http.StripPrefix("/static/", h.staticServer))

	r.Get("/", h.handleIndex)

	// Check-in pages (public)
	r.Get("/checkin/{eventID}", h.handleCheckInPage)
	r.Post("/checkin/{eventID}", h.handleCheckInPost)
	r.Post("/checkin/{eventID}/location", h.handleCheckInLocation)

	// Check-in API (public)
	r.Get("/api/events/{id}/public", h.handleGetPublicEvent)
	r.Post("/api/checkin", h.handleSubmitCheckIn)

	// Auth routes (public)
	r.Get("/admin/login", h.handleLoginPage)
	r.Post("/admin/login", h.handleLogin)
	r.Post("/admin/logout", h.handleLogout)

	// Admin pages (protected)
	r.Group(func(r chi.Router) {
		r.Use(h.Auth.RequireAuth)
		r.Get("/admin", h.handleAdminDashboard)
		r.Get("/admin/events", h.handleAdminEvents)
		r.Get("/admin/templates", h.handleAdminTemplates)
		r.Get("/admin/settings", h.handleAdminSettings)
	})

	// Admin API (protected)
	r.Group(func(r chi.Router) {
		r.Use(h.Auth.RequireAuthAPI)

		// Live feed
		r.Get("/ws", h.Hub.ServeWs)

		// Events
		r.Get("/api/admin/events", h.handleGetEvents)
		r.Post("/api/admin/events", h.handleCreateEvent)
		r.Get("/api/admin/events/{id}", h.handleGetEvent)
		r.Put("/api/admin/events/{id}", h.handleUpdateEvent)
		r.Delete("/api/admin/events/{id}", h.handleDeleteEvent)
		r.Put("/api/admin/events/{id}/fields", h.handleReplaceFields)
		r.Post("/api/admin/events/{id}/checkin-control", h.handleSetCheckInEnabled)
		r.Put("/api/admin/events/{id}/deadline", h.handleSetDeadline)
		r.Get("/api/admin/events/{id}/url", h.handleGetCheckInURL)
		r.Get("/api/admin/events/{id}/qr", h.handleGetQRImage)
		r.Get("/api/admin/events/{id}/checkins", h.handleGetCheckIns)
		r.Get("/api/admin/events/{id}/stats", h.handleGetStats)

		// Templates
		r.Get("/api/admin/templates", h.handleGetTemplates)
		r.Post("/api/admin/templates", h.handleCreateTemplate)
		r.Get("/api/admin/templates/{id}", h.handleGetTemplate)
		r.Put("/api/admin/templates/{id}", h.handleUpdateTemplate)
		r.Delete("/api/admin/templates/{id}", h.handleDeleteTemplate)

		// Settings
		r.Get("/api/admin/settings", h.handleGetSettings)
		r.Post("/api/admin/settings", h.handleUpdateSettings)
		r.Put("/api/admin/settings", h.handleUpdateSettings)
		r.Get("/api/admin/overview", h.handleGetOverview)

		// Database Management
		r.Post("/api/admin/reset-database", h.handleResetDatabase)
	})

	return r
}
