// Package iplookup provides a client for public-IP echo services such as
// ipify, which report the address a request arrived from.
package iplookup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/abrezinsky/rollcall/internal/logger"
)

// DefaultURL answers with {"ip": "..."}
const DefaultURL = "https://api.ipify.org?format=json"

// maxBody bounds how much of a response is read
const maxBody = 1 << 10

// Client defines the interface for public IP lookups
type Client interface {
	// PublicIP returns the public address the lookup service sees
	PublicIP(ctx context.Context) (string, error)
	// BaseURL returns the configured lookup URL
	BaseURL() string
	// SetBaseURL updates the lookup URL
	SetBaseURL(url string)
}

// Response is the JSON form of a lookup answer
type Response struct {
	IP string `json:"ip"`
}

// HTTPClient is a real HTTP client for a lookup service
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	log        logger.Logger
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a new lookup client. An empty baseURL means DefaultURL.
func NewHTTPClient(baseURL string, log logger.Logger) *HTTPClient {
	return NewHTTPClientWithHTTPClient(baseURL, &http.Client{Timeout: 5 * time.Second}, log)
}

// NewHTTPClientWithHTTPClient creates a new lookup client with a custom http.Client
func NewHTTPClientWithHTTPClient(baseURL string, httpClient *http.Client, log logger.Logger) *HTTPClient {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return &HTTPClient{
		baseURL:    baseURL,
		httpClient: httpClient,
		log:        log,
	}
}

// BaseURL returns the configured lookup URL
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// SetBaseURL updates the lookup URL
func (c *HTTPClient) SetBaseURL(url string) {
	c.baseURL = url
}

// PublicIP asks the lookup service for the caller's address. Both JSON
// ({"ip": "..."}) and plain-text answers are accepted.
func (c *HTTPClient) PublicIP(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json, text/plain")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to reach IP lookup service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	c.log.Debug("IP lookup response", "status", resp.StatusCode, "body", string(body))

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("IP lookup returned status %d", resp.StatusCode)
	}

	text := strings.TrimSpace(string(body))
	if strings.HasPrefix(text, "{") {
		var r Response
		if err := json.Unmarshal(body, &r); err != nil {
			return "", fmt.Errorf("failed to parse response: %w", err)
		}
		text = strings.TrimSpace(r.IP)
	}

	addr, err := netip.ParseAddr(text)
	if err != nil {
		return "", fmt.Errorf("IP lookup returned %q: %w", text, err)
	}
	return addr.Unmap().String(), nil
}
