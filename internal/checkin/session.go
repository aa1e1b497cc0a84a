package checkin

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/abrezinsky/rollcall/internal/forms"
	"github.com/abrezinsky/rollcall/internal/logger"
	"github.com/abrezinsky/rollcall/internal/models"
)

// ErrSessionClosed is returned by a session that can no longer submit
var ErrSessionClosed = errors.New("check-in session is closed")

// State is where a session stands
type State int

const (
	StateActive State = iota
	StateCompleted
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateCompleted:
		return "completed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// locationReporter is implemented by geo sources the browser reports into
type locationReporter interface {
	Report(loc *models.Location, failure GeoFailure) bool
}

// Session is one participant's pass through the check-in flow for one
// event. The side channels fill in concurrently; Submit uses whatever they
// have produced by then.
type Session struct {
	token    string
	event    *models.PublicEvent
	form     *forms.Form
	boundary Boundary
	log      logger.Logger
	now      func() time.Time
	geo      GeoSource
	cancel   context.CancelFunc
	settled  chan struct{}

	mu          sync.Mutex
	state       State
	location    *models.Location
	geoFailure  GeoFailure
	ip          string
	notice      string
	closeReason string
	receipt     *models.CheckInReceipt
}

// Token identifies the session
func (s *Session) Token() string { return s.token }

// Event returns the event being checked in to
func (s *Session) Event() *models.PublicEvent { return s.event }

// Form returns the session's form
func (s *Session) Form() *forms.Form { return s.form }

// Settled is closed once both side channels have finished
func (s *Session) Settled() <-chan struct{} { return s.settled }

// State returns the session state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Location returns the captured position, or nil
func (s *Session) Location() *models.Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.location == nil {
		return nil
	}
	loc := *s.location
	return &loc
}

// LocationNotice returns the degraded-mode notice when geolocation failed
func (s *Session) LocationNotice() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.geoFailure == "" {
		return ""
	}
	return s.geoFailure.Notice()
}

// IPAddress returns the resolved address, "unknown" until one is known
func (s *Session) IPAddress() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ip == "" {
		return models.UnknownIP
	}
	return s.ip
}

// Notice returns the message from the last failed submit, if any
func (s *Session) Notice() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.notice != "" {
		return s.notice
	}
	return s.form.Notice()
}

// CloseReason explains why a closed session cannot continue
func (s *Session) CloseReason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeReason
}

// Receipt returns the boundary's confirmation after a successful submit
func (s *Session) Receipt() *models.CheckInReceipt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.receipt
}

// ReportLocation passes the browser's geolocation result to the session.
// It returns false when the session's geo source takes no reports or a
// result was already received.
func (s *Session) ReportLocation(loc *models.Location, failure GeoFailure) bool {
	r, ok := s.geo.(locationReporter)
	if !ok {
		return false
	}
	return r.Report(loc, failure)
}

// Close abandons the session and stops any pending side-channel work
func (s *Session) Close() {
	s.cancel()
	s.mu.Lock()
	if s.state == StateActive {
		s.state = StateClosed
	}
	s.mu.Unlock()
}

// Submit validates the whole form and sends it with the current side-channel
// results. Terminal boundary failures close the session; any other failure
// leaves it open for another attempt with every value kept.
func (s *Session) Submit(ctx context.Context) (*models.CheckInReceipt, error) {
	s.mu.Lock()
	switch s.state {
	case StateCompleted:
		s.mu.Unlock()
		return nil, forms.ErrAlreadySubmitted
	case StateClosed:
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	s.notice = ""
	s.mu.Unlock()

	var receipt *models.CheckInReceipt
	err := s.form.Submit(ctx, func(ctx context.Context, data forms.Data) error {
		req, err := s.submission(data).Request(s.event.ID, s.event.ParticipantFields)
		if err != nil {
			return err
		}
		r, err := s.boundary.Submit(ctx, req)
		if err != nil {
			return err
		}
		receipt = r
		return nil
	})
	if errors.Is(err, forms.ErrSubmitInProgress) || errors.Is(err, forms.ErrAlreadySubmitted) {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		s.state = StateCompleted
		s.receipt = receipt
		s.cancel()
		return receipt, nil
	}

	var be *BoundaryError
	isBoundary := errors.As(err, &be)
	var verr *forms.ValidationError
	switch {
	case isBoundary && be.Terminal():
		s.state = StateClosed
		s.closeReason = be.Error()
		s.notice = be.Error()
		s.cancel()
		s.log.Info("Check-in closed during submit", "event_id", s.event.ID, "reason", be.Kind)
	case errors.As(err, &verr):
		s.notice = verr.Error()
	case isBoundary && be.Message != "":
		s.notice = be.Message
	default:
		s.notice = forms.MsgSubmitFailed
		s.log.Error("Check-in submit failed", "event_id", s.event.ID, "error", err)
	}
	return nil, err
}

func (s *Session) submission(data forms.Data) Submission {
	return Submission{
		ParticipantData: data,
		Location:        s.Location(),
		IPAddress:       s.IPAddress(),
		Timestamp:       s.now().UTC(),
	}
}

func (s *Session) captureLocation(ctx context.Context, timeout time.Duration) {
	if s.geo == nil {
		s.setLocation(nil, GeoUnsupported)
		return
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	loc, err := s.geo.Locate(ctx)
	if err == nil && loc != nil && loc.Valid() {
		s.setLocation(loc, "")
		return
	}
	failure := classifyGeo(err)
	s.setLocation(nil, failure)
	s.log.Warn("Geolocation unavailable, continuing without location", "event_id", s.event.ID, "reason", failure)
}

func (s *Session) setLocation(loc *models.Location, failure GeoFailure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.location = loc
	s.geoFailure = failure
}

func (s *Session) captureIP(ctx context.Context, resolver IPResolver, timeout time.Duration) {
	if resolver == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ip, err := resolver.ResolveIP(ctx)
	if err != nil || ip == "" {
		s.log.Debug("IP lookup failed, recording unknown", "event_id", s.event.ID, "error", err)
		return
	}
	s.mu.Lock()
	s.ip = ip
	s.mu.Unlock()
}
