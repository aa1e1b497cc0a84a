package checkin

import (
	"context"
	"errors"
	"sync"

	"github.com/abrezinsky/rollcall/internal/models"
)

// GeoFailure says why no position was captured
type GeoFailure string

const (
	GeoPermissionDenied    GeoFailure = "permission_denied"
	GeoPositionUnavailable GeoFailure = "position_unavailable"
	GeoTimeout             GeoFailure = "timeout"
	GeoUnsupported         GeoFailure = "unsupported"
)

// ParseGeoFailure maps a reported failure name onto a GeoFailure
func ParseGeoFailure(s string) GeoFailure {
	switch f := GeoFailure(s); f {
	case GeoPermissionDenied, GeoTimeout, GeoUnsupported:
		return f
	}
	return GeoPositionUnavailable
}

// Notice is the non-blocking message shown when no position was captured
func (f GeoFailure) Notice() string {
	switch f {
	case GeoPermissionDenied:
		return "Location access was denied. Your check-in will still be recorded."
	case GeoUnsupported:
		return "Location is not available on this device. Your check-in will still be recorded."
	default:
		return "Your location could not be determined. Your check-in will still be recorded."
	}
}

// GeoError carries a GeoFailure out of a GeoSource
type GeoError struct {
	Failure GeoFailure
}

func (e *GeoError) Error() string {
	return "geolocation: " + string(e.Failure)
}

// GeoSource acquires the device position once
type GeoSource interface {
	Locate(ctx context.Context) (*models.Location, error)
}

func classifyGeo(err error) GeoFailure {
	var ge *GeoError
	switch {
	case errors.As(err, &ge):
		return ge.Failure
	case errors.Is(err, context.DeadlineExceeded):
		return GeoTimeout
	default:
		return GeoPositionUnavailable
	}
}

type geoReport struct {
	loc     *models.Location
	failure GeoFailure
}

// BrowserGeo is a GeoSource fed by the participant's browser, which posts
// either a position or a failure back to the server
type BrowserGeo struct {
	once sync.Once
	ch   chan geoReport
}

var _ GeoSource = (*BrowserGeo)(nil)

// NewBrowserGeo creates a BrowserGeo awaiting its report
func NewBrowserGeo() *BrowserGeo {
	return &BrowserGeo{ch: make(chan geoReport, 1)}
}

// Report delivers the browser's result. Only the first report counts; an
// unusable position counts as position_unavailable.
func (b *BrowserGeo) Report(loc *models.Location, failure GeoFailure) bool {
	accepted := false
	b.once.Do(func() {
		if loc != nil && !loc.Valid() {
			loc, failure = nil, GeoPositionUnavailable
		}
		if loc == nil && failure == "" {
			failure = GeoPositionUnavailable
		}
		b.ch <- geoReport{loc: loc, failure: failure}
		accepted = true
	})
	return accepted
}

// Locate waits for the browser's report
func (b *BrowserGeo) Locate(ctx context.Context) (*models.Location, error) {
	select {
	case r := <-b.ch:
		if r.loc == nil {
			return nil, &GeoError{Failure: r.failure}
		}
		return r.loc, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
