package iplookup

import "context"

// MockClient is a mock lookup client for testing
type MockClient struct {
	ip      string
	err     error
	baseURL string
	calls   int
}

var _ Client = (*MockClient)(nil)

// MockOption configures the mock client
type MockOption func(*MockClient)

// WithIP sets the address to return
func WithIP(ip string) MockOption {
	return func(m *MockClient) {
		m.ip = ip
	}
}

// WithError sets an error to return from PublicIP
func WithError(err error) MockOption {
	return func(m *MockClient) {
		m.err = err
	}
}

// NewMockClient creates a mock that answers with a documentation address
func NewMockClient(opts ...MockOption) *MockClient {
	m := &MockClient{
		ip:      "203.0.113.10",
		baseURL: "http://mock-iplookup",
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// PublicIP returns the configured address or error
func (m *MockClient) PublicIP(ctx context.Context) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return m.ip, nil
}

// Calls returns how many lookups were made
func (m *MockClient) Calls() int {
	return m.calls
}

// BaseURL returns the mock URL
func (m *MockClient) BaseURL() string {
	return m.baseURL
}

// SetBaseURL updates the mock URL
func (m *MockClient) SetBaseURL(url string) {
	m.baseURL = url
}
