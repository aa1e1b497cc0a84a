package handlers

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/abrezinsky/rollcall/internal/auth"
	"github.com/abrezinsky/rollcall/internal/checkin"
	"github.com/abrezinsky/rollcall/internal/logger"
	"github.com/abrezinsky/rollcall/internal/services"
	"github.com/abrezinsky/rollcall/internal/websocket"
)

// NewStaticServer creates a static file server from an fs.FS
func NewStaticServer(staticFS fs.FS) http.Handler {
	return http.FileServer(http.FS(staticFS))
}

// AdminPageData holds the data passed to admin templates
type AdminPageData struct {
	Title     string
	PageTitle string
	ActiveNav string
}

// Templates holds all parsed HTML templates
type Templates struct {
	Index              *template.Template
	CheckIn            *template.Template
	CheckInDone        *template.Template
	CheckInUnavailable *template.Template
	AdminLogin         *template.Template
	AdminDashboard     *template.Template
	AdminEvents        *template.Template
	AdminTemplates     *template.Template
	AdminSettings      *template.Template
}

// Services groups the business services the handlers call
type Services struct {
	Events    services.EventServicer
	Templates services.TemplateServicer
	CheckIn   services.CheckInServicer
	Settings  services.SettingsServicer
}

// Handlers holds all HTTP handler dependencies
type Handlers struct {
	Events       services.EventServicer
	Templates    services.TemplateServicer
	CheckIn      services.CheckInServicer
	Settings     services.SettingsServicer
	Flow         *checkin.Flow
	Sessions     *checkin.Store
	IPLookup     checkin.PublicIPLookup
	Auth         *auth.Auth
	Hub          *websocket.Hub
	Log          HTTPLogger
	templates    *Templates
	staticServer http.Handler
}

// HTTPLogger is an interface for loggers that support HTTP logging control
type HTTPLogger interface {
	IsHTTPLoggingEnabled() bool
	Debug(msg string, args ...any)
}

// New creates a new Handlers instance with all dependencies
func New(
	svc Services,
	flow *checkin.Flow,
	sessions *checkin.Store,
	ipLookup checkin.PublicIPLookup,
	templatesFS fs.FS,
	staticServer http.Handler,
	adminAuth *auth.Auth,
	hub *websocket.Hub,
	log HTTPLogger,
) (*Handlers, error) {
	templates, err := loadTemplates(templatesFS)
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	return &Handlers{
		Events:       svc.Events,
		Templates:    svc.Templates,
		CheckIn:      svc.CheckIn,
		Settings:     svc.Settings,
		Flow:         flow,
		Sessions:     sessions,
		IPLookup:     ipLookup,
		Auth:         adminAuth,
		Hub:          hub,
		Log:          log,
		templates:    templates,
		staticServer: staticServer,
	}, nil
}

// NoopHTTPLogger is a test logger that always returns false for HTTP logging
type NoopHTTPLogger struct{}

func (NoopHTTPLogger) IsHTTPLoggingEnabled() bool { return false }

func (NoopHTTPLogger) Debug(string, ...any) {}

func (h *Handlers) debug(msg string, args ...any) {
	if h.Log != nil {
		h.Log.Debug(msg, args...)
	}
}

// NewForTesting creates a Handlers instance without loading templates (for testing API endpoints)
func NewForTesting(svc Services) *Handlers {
	// Create a test auth with a known password
	testAuth := auth.New("test-password")
	return &Handlers{
		Events:    svc.Events,
		Templates: svc.Templates,
		CheckIn:   svc.CheckIn,
		Settings:  svc.Settings,
		Flow:      checkin.NewFlow(logger.Nop{}, checkin.NewLocal(svc.CheckIn), checkin.Options{}),
		Sessions:  checkin.NewStore(0),
		Auth:      testAuth,
		Log:       NoopHTTPLogger{},
		// templates left nil - API endpoints don't use templates
	}
}

// loadTemplates parses all templates once at startup
func loadTemplates(templatesFS fs.FS) (*Templates, error) {
	t := &Templates{}
	var err error

	if t.Index, err = template.ParseFS(templatesFS, "index.html"); err != nil {
		return nil, fmt.Errorf("index template: %w", err)
	}
	if t.CheckIn, err = template.ParseFS(templatesFS, "checkin/layout.html", "checkin/form.html"); err != nil {
		return nil, fmt.Errorf("checkin form template: %w", err)
	}
	if t.CheckInDone, err = template.ParseFS(templatesFS, "checkin/layout.html", "checkin/done.html"); err != nil {
		return nil, fmt.Errorf("checkin done template: %w", err)
	}
	if t.CheckInUnavailable, err = template.ParseFS(templatesFS, "checkin/layout.html", "checkin/unavailable.html"); err != nil {
		return nil, fmt.Errorf("checkin unavailable template: %w", err)
	}
	if t.AdminLogin, err = template.ParseFS(templatesFS, "admin/login.html"); err != nil {
		return nil, fmt.Errorf("admin login template: %w", err)
	}
	if t.AdminDashboard, err = template.ParseFS(templatesFS, "admin/layout.html", "admin/dashboard.html"); err != nil {
		return nil, fmt.Errorf("admin dashboard template: %w", err)
	}
	if t.AdminEvents, err = template.ParseFS(templatesFS, "admin/layout.html", "admin/events.html"); err != nil {
		return nil, fmt.Errorf("admin events template: %w", err)
	}
	if t.AdminTemplates, err = template.ParseFS(templatesFS, "admin/layout.html", "admin/templates.html"); err != nil {
		return nil, fmt.Errorf("admin templates template: %w", err)
	}
	if t.AdminSettings, err = template.ParseFS(templatesFS, "admin/layout.html", "admin/settings.html"); err != nil {
		return nil, fmt.Errorf("admin settings template: %w", err)
	}

	return t, nil
}
