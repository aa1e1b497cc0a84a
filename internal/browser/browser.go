// Package browser opens the organizer dashboard in the local browser.
package browser

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
	"strings"
)

// Commander is an interface for executing commands (for testing)
type Commander interface {
	Start(name string, args ...string) error
}

// RealCommander executes actual commands
type RealCommander struct{}

// Start executes a command and starts it
func (RealCommander) Start(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	return cmd.Start()
}

var defaultCommander Commander = RealCommander{}

// Open opens the specified URL in the default browser
func Open(rawURL string) error {
	return OpenWithCommander(rawURL, defaultCommander, runtime.GOOS)
}

// DashboardURL returns the organizer dashboard address under baseURL
func DashboardURL(baseURL string) string {
	return strings.TrimSuffix(baseURL, "/") + "/admin"
}

// CheckInURL returns the public check-in page of an event under baseURL
func CheckInURL(baseURL, eventID string) string {
	return strings.TrimSuffix(baseURL, "/") + "/checkin/" + url.PathEscape(eventID)
}

// OpenWithCommander opens the URL using the specified commander and OS (for
// testing). Only absolute http and https URLs are handed to the OS.
func OpenWithCommander(rawURL string, commander Commander, goos string) error {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("refusing to open %q: not an http(s) URL", rawURL)
	}

	var name string
	var args []string

	switch goos {
	case "linux", "freebsd", "openbsd", "netbsd":
		name = "xdg-open"
		args = []string{rawURL}
	case "darwin": // macOS
		name = "open"
		args = []string{rawURL}
	case "windows":
		name = "rundll32"
		args = []string{"url.dll,FileProtocolHandler", rawURL}
	default:
		return fmt.Errorf("unsupported platform: %s", goos)
	}

	return commander.Start(name, args...)
}
