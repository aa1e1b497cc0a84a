// Package config assembles runtime configuration from defaults, an optional
// .env file, ROLLCALL_* environment variables and command-line flags, each
// overriding the one before.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/abrezinsky/rollcall/internal/checkin"
	"github.com/abrezinsky/rollcall/pkg/iplookup"
)

// Environment variable names
const (
	EnvFile        = "ROLLCALL_ENV_FILE"
	EnvPort        = "ROLLCALL_PORT"
	EnvDB          = "ROLLCALL_DB"
	EnvAdminPW     = "ROLLCALL_ADMIN_PASSWORD"
	EnvLogLevel    = "ROLLCALL_LOG_LEVEL"
	EnvBaseURL     = "ROLLCALL_BASE_URL"
	EnvIPLookupURL = "ROLLCALL_IP_LOOKUP_URL"
	EnvGeoTimeout  = "ROLLCALL_GEO_TIMEOUT"
	EnvIPTimeout   = "ROLLCALL_IP_TIMEOUT"
	EnvSessionTTL  = "ROLLCALL_SESSION_TTL"
)

// ErrHelp is returned when -help was requested
var ErrHelp = flag.ErrHelp

// Config holds everything the server needs at startup
type Config struct {
	Port          int
	DBPath        string
	AdminPassword string
	LogLevel      string
	BaseURL       string
	IPLookupURL   string
	GeoTimeout    time.Duration
	IPTimeout     time.Duration
	SessionTTL    time.Duration
	NoKeyboard    bool
	NoAnimate     bool
	ShowVersion   bool
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Port:        8080,
		DBPath:      "rollcall.db",
		LogLevel:    "info",
		IPLookupURL: iplookup.DefaultURL,
		GeoTimeout:  checkin.DefaultGeoTimeout,
		IPTimeout:   checkin.DefaultIPTimeout,
		SessionTTL:  checkin.DefaultSessionTTL,
	}
}

// Load reads configuration for the process: the .env file named by
// ROLLCALL_ENV_FILE (default ".env"), the process environment and args.
func Load(args []string, usage io.Writer) (*Config, error) {
	envFile := os.Getenv(EnvFile)
	if envFile == "" {
		envFile = ".env"
	}
	return LoadFrom(args, envFile, os.LookupEnv, usage)
}

// LoadFrom is Load with an explicit env file and environment lookup. A
// missing env file is not an error; variables from the environment win over
// the file.
func LoadFrom(args []string, envFile string, lookup func(string) (string, bool), usage io.Writer) (*Config, error) {
	fileVars := map[string]string{}
	if envFile != "" {
		vars, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			fileVars = vars
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("reading %s: %w", envFile, err)
		}
	}
	get := func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}
		v, ok := fileVars[key]
		return v, ok
	}

	cfg := Default()
	if err := cfg.applyEnv(get); err != nil {
		return nil, err
	}
	if err := cfg.applyFlags(args, usage); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv(get func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := get(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str(EnvDB, &c.DBPath)
	str(EnvAdminPW, &c.AdminPassword)
	str(EnvLogLevel, &c.LogLevel)
	str(EnvBaseURL, &c.BaseURL)
	str(EnvIPLookupURL, &c.IPLookupURL)

	if v, ok := get(EnvPort); ok && strings.TrimSpace(v) != "" {
		port, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPort, err)
		}
		c.Port = port
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{EnvGeoTimeout, &c.GeoTimeout},
		{EnvIPTimeout, &c.IPTimeout},
		{EnvSessionTTL, &c.SessionTTL},
	}
	for _, d := range durations {
		v, ok := get(d.key)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		parsed, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}
		*d.dst = parsed
	}
	return nil
}

func (c *Config) applyFlags(args []string, usage io.Writer) error {
	fsFlags := flag.NewFlagSet("rollcall", flag.ContinueOnError)
	fsFlags.SetOutput(usage)
	fsFlags.Usage = func() { fmt.Fprint(usage, Usage) }

	fsFlags.IntVar(&c.Port, "port", c.Port, "HTTP server port")
	fsFlags.StringVar(&c.DBPath, "db", c.DBPath, "SQLite database path")
	fsFlags.StringVar(&c.AdminPassword, "adminpw", c.AdminPassword, "Organizer password (auto-generated if not set)")
	fsFlags.StringVar(&c.LogLevel, "loglevel", c.LogLevel, "Log level (debug, info, warn, error)")
	fsFlags.StringVar(&c.BaseURL, "baseurl", c.BaseURL, "Public base URL used in check-in links")
	fsFlags.StringVar(&c.IPLookupURL, "iplookup", c.IPLookupURL, "Public IP lookup service URL")
	fsFlags.DurationVar(&c.GeoTimeout, "geotimeout", c.GeoTimeout, "How long to wait for browser geolocation")
	fsFlags.DurationVar(&c.IPTimeout, "iptimeout", c.IPTimeout, "How long to wait for the IP lookup")
	fsFlags.DurationVar(&c.SessionTTL, "sessionttl", c.SessionTTL, "Idle lifetime of a check-in form session")
	fsFlags.BoolVar(&c.NoKeyboard, "nokeyboard", c.NoKeyboard, "Disable keyboard shortcuts")
	fsFlags.BoolVar(&c.NoAnimate, "noanimate", c.NoAnimate, "Skip the startup animation")
	fsFlags.BoolVar(&c.ShowVersion, "version", c.ShowVersion, "Show version and exit")

	return fsFlags.Parse(args)
}

// Validate rejects values the server cannot start with
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return errors.New("database path is required")
	}
	for name, d := range map[string]time.Duration{
		"geo timeout": c.GeoTimeout,
		"ip timeout":  c.IPTimeout,
		"session ttl": c.SessionTTL,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	return nil
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Usage is the -help text
const Usage = `Rollcall - Event Check-in Server

Usage:
  rollcall [options]

Options:
  -port int          HTTP server port (default 8080)
  -db string         SQLite database path (default "rollcall.db")
  -adminpw str       Organizer password (auto-generated if not set)
  -loglevel str      Log level: debug, info, warn, error (default "info")
  -baseurl str       Public base URL used in check-in links and QR codes
  -iplookup str      Public IP lookup service URL
  -geotimeout dur    Browser geolocation timeout (default 10s)
  -iptimeout dur     IP lookup timeout (default 5s)
  -sessionttl dur    Check-in form session idle lifetime (default 30m)
  -noanimate         Skip the startup animation
  -nokeyboard        Disable keyboard shortcuts
  -version           Show version and exit
  -help              Show this help message

Environment (overridden by flags; a .env file is read too):
  ROLLCALL_PORT ROLLCALL_DB ROLLCALL_ADMIN_PASSWORD ROLLCALL_LOG_LEVEL
  ROLLCALL_BASE_URL ROLLCALL_IP_LOOKUP_URL ROLLCALL_GEO_TIMEOUT
  ROLLCALL_IP_TIMEOUT ROLLCALL_SESSION_TTL ROLLCALL_ENV_FILE

Keyboard Shortcuts (when enabled):
  a              Open organizer dashboard in browser
  h              Toggle HTTP request logging
  l              Cycle log level (debug → info → warn → error)
  q              Quit server
  ?              Show keyboard help

Examples:
  rollcall                                   # Run on port 8080 with rollcall.db
  rollcall -port 9000                        # Run on port 9000
  rollcall -baseurl http://192.168.1.20:8080 # LAN address for QR codes
  ROLLCALL_ADMIN_PASSWORD=secret rollcall    # Password from the environment

`
