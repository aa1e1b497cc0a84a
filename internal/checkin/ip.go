package checkin

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"strings"
)

var errNoIP = errors.New("no usable IP address")

// IPResolver resolves the participant's IP address
type IPResolver interface {
	ResolveIP(ctx context.Context) (string, error)
}

// PublicIPLookup asks an external service for the caller's public address
type PublicIPLookup interface {
	PublicIP(ctx context.Context) (string, error)
}

// RequestIPResolver resolves from the participant's request address. A
// private or loopback address means the participant shares the server's
// network, so the external lookup is tried before settling for it.
type RequestIPResolver struct {
	RemoteAddr string
	Lookup     PublicIPLookup
}

var _ IPResolver = RequestIPResolver{}

// ResolveIP returns the best address available
func (r RequestIPResolver) ResolveIP(ctx context.Context) (string, error) {
	addr, ok := parseRemoteAddr(r.RemoteAddr)
	if ok && isPublic(addr) {
		return addr.String(), nil
	}

	if r.Lookup != nil {
		ip, err := r.Lookup.PublicIP(ctx)
		if err == nil {
			if pub, perr := netip.ParseAddr(strings.TrimSpace(ip)); perr == nil {
				return pub.Unmap().String(), nil
			}
		}
	}

	if ok {
		return addr.String(), nil
	}
	return "", errNoIP
}

func parseRemoteAddr(s string) (netip.Addr, bool) {
	s = strings.TrimSpace(s)
	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}

func isPublic(addr netip.Addr) bool {
	return addr.IsGlobalUnicast() && !addr.IsPrivate()
}
