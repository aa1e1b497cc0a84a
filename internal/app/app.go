package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/abrezinsky/rollcall/internal/auth"
	"github.com/abrezinsky/rollcall/internal/browser"
	"github.com/abrezinsky/rollcall/internal/checkin"
	"github.com/abrezinsky/rollcall/internal/config"
	"github.com/abrezinsky/rollcall/internal/handlers"
	"github.com/abrezinsky/rollcall/internal/logger"
	"github.com/abrezinsky/rollcall/internal/repository"
	"github.com/abrezinsky/rollcall/internal/services"
	"github.com/abrezinsky/rollcall/internal/websocket"
	"github.com/abrezinsky/rollcall/pkg/iplookup"
)

// Background sweep intervals
const (
	deadlineSweepInterval = 15 * time.Second
	sessionSweepInterval  = time.Minute
	authPruneInterval     = 10 * time.Minute
)

// App holds all application dependencies
type App struct {
	cfg      config.Config
	log      logger.Logger
	handlers *handlers.Handlers
	repo     *repository.Repository
	settings *services.SettingsService
	auth     *auth.Auth

	mu      sync.Mutex
	baseURL string
	server  *http.Server
	closed  bool

	stop context.CancelFunc
}

// New creates and initializes a new application instance
func New(cfg config.Config, log logger.Logger, templatesFS, staticFS fs.FS, adminAuth *auth.Auth) (*App, error) {
	repo, err := repository.New(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	// Initialize services
	settingsService := services.NewSettingsService(log, repo)
	templateService := services.NewTemplateService(log, repo)
	eventService := services.NewEventService(log, repo, templateService, settingsService)
	checkInService := services.NewCheckInService(log, repo)

	// Live feed for organizers
	hub := websocket.New(log, eventService)
	hub.Start()
	eventService.SetBroadcaster(hub)
	checkInService.SetBroadcaster(hub)

	flow := checkin.NewFlow(log, checkin.NewLocal(checkInService), checkin.Options{
		GeoTimeout: cfg.GeoTimeout,
		IPTimeout:  cfg.IPTimeout,
	})
	sessions := checkin.NewStore(cfg.SessionTTL)
	ipLookup := iplookup.NewHTTPClient(cfg.IPLookupURL, log)

	h, err := handlers.New(
		handlers.Services{
			Events:    eventService,
			Templates: templateService,
			CheckIn:   checkInService,
			Settings:  settingsService,
		},
		flow,
		sessions,
		ipLookup,
		templatesFS,
		handlers.NewStaticServer(staticFS),
		adminAuth,
		hub,
		log,
	)
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	// Background sweeps stop with Close
	ctx, cancel := context.WithCancel(context.Background())
	go hub.StartDeadlineWatcher(ctx, deadlineSweepInterval)
	go sessions.Run(ctx, sessionSweepInterval)
	go pruneAuthSessions(ctx, adminAuth, authPruneInterval)

	return &App{
		cfg:      cfg,
		log:      log,
		handlers: h,
		repo:     repo,
		settings: settingsService,
		auth:     adminAuth,
		stop:     cancel,
	}, nil
}

// Router returns the configured HTTP router
func (a *App) Router() chi.Router {
	return a.handlers.Router()
}

// BaseURL returns the address participants and organizers reach the server
// at. It is empty until Run has resolved it.
func (a *App) BaseURL() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.baseURL
}

// Close stops the background sweeps, the HTTP server and the database
func (a *App) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.closed = true

	if a.stop != nil {
		a.stop()
	}
	if a.server != nil {
		a.server.Close()
	}
	if err := a.repo.Close(); err != nil {
		a.log.Warn("Failed to close database", "error", err)
	}
}

// Run starts the HTTP server
func (a *App) Run(addr string) error {
	baseURL := a.resolveBaseURL(addr)

	a.log.Info("Server starting", "url", baseURL)
	a.log.Info("Admin URL", "url", browser.DashboardURL(baseURL))

	server := &http.Server{
		Addr:              addr,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.server = server
	a.baseURL = baseURL
	a.mu.Unlock()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// resolveBaseURL stores the configured base URL, or detects a LAN address
// when none was configured
func (a *App) resolveBaseURL(addr string) string {
	if a.cfg.BaseURL != "" {
		baseURL := strings.TrimSuffix(a.cfg.BaseURL, "/")
		if err := a.settings.SetBaseURL(context.Background(), baseURL); err != nil {
			a.log.Warn("Failed to save configured base_url", "error", err)
		}
		return baseURL
	}

	ip := getPreferredIP(realNetworkProvider{})
	return a.setDefaultBaseURL(fmt.Sprintf("http://%s%s", ip, addr))
}

// setDefaultBaseURL sets the base URL setting if not already configured
// or if current value uses localhost (which isn't useful for QR codes).
// It returns the base URL in effect afterwards.
func (a *App) setDefaultBaseURL(baseURL string) string {
	ctx := context.Background()
	existing, _ := a.settings.GetBaseURL(ctx)

	// Set default if empty or if current value uses localhost
	if existing != "" && !strings.Contains(existing, "localhost") {
		return existing
	}
	if err := a.settings.SetBaseURL(ctx, baseURL); err != nil {
		a.log.Warn("Failed to set default base_url", "error", err)
	} else {
		a.log.Info("Default base URL set", "url", baseURL)
	}
	return baseURL
}

func pruneAuthSessions(ctx context.Context, a *auth.Auth, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.PruneExpired()
		}
	}
}

// networkInterface wraps net.Interface for testing
type networkInterface interface {
	Flags() net.Flags
	Addrs() ([]net.Addr, error)
}

// realInterface wraps a real net.Interface
type realInterface struct {
	iface net.Interface
}

func (r realInterface) Flags() net.Flags {
	return r.iface.Flags
}

func (r realInterface) Addrs() ([]net.Addr, error) {
	return r.iface.Addrs()
}

// networkProvider is an interface for getting network interfaces (for testing)
type networkProvider interface {
	Interfaces() ([]networkInterface, error)
}

// realNetworkProvider implements networkProvider using actual net package
type realNetworkProvider struct{}

func (realNetworkProvider) Interfaces() ([]networkInterface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	result := make([]networkInterface, len(ifaces))
	for i, iface := range ifaces {
		result[i] = realInterface{iface: iface}
	}
	return result, nil
}

// getPreferredIP returns the best IP address for LAN access.
// Prefers private network addresses (192.168.x.x, 10.x.x.x, 172.16-31.x.x).
// Falls back to localhost if no suitable address is found.
func getPreferredIP(provider networkProvider) string {
	ifaces, err := provider.Interfaces()
	if err != nil {
		return "localhost"
	}

	var candidates []net.IP

	for _, iface := range ifaces {
		// Skip down, loopback, and point-to-point interfaces
		flags := iface.Flags()
		if flags&net.FlagUp == 0 || flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}

			// Only consider IPv4 addresses
			if ip == nil || ip.To4() == nil {
				continue
			}

			// Skip loopback
			if ip.IsLoopback() {
				continue
			}

			candidates = append(candidates, ip)
		}
	}

	// Prefer private network addresses
	for _, ip := range candidates {
		ipStr := ip.String()
		if strings.HasPrefix(ipStr, "192.168.") ||
			strings.HasPrefix(ipStr, "10.") ||
			isPrivate172(ip) {
			return ipStr
		}
	}

	// Fall back to any non-loopback if no private address found
	if len(candidates) > 0 {
		return candidates[0].String()
	}

	return "localhost"
}

// isPrivate172 checks if IP is in 172.16.0.0/12 range
func isPrivate172(ip net.IP) bool {
	if ip4 := ip.To4(); ip4 != nil {
		return ip4[0] == 172 && ip4[1] >= 16 && ip4[1] <= 31
	}
	return false
}
