package checkin

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/abrezinsky/rollcall/internal/forms"
	"github.com/abrezinsky/rollcall/internal/logger"
	"github.com/abrezinsky/rollcall/internal/services"
)

const (
	DefaultGeoTimeout = 10 * time.Second
	DefaultIPTimeout  = 5 * time.Second
)

// Options bounds the side channels
type Options struct {
	GeoTimeout time.Duration
	IPTimeout  time.Duration
}

func (o Options) withDefaults() Options {
	if o.GeoTimeout <= 0 {
		o.GeoTimeout = DefaultGeoTimeout
	}
	if o.IPTimeout <= 0 {
		o.IPTimeout = DefaultIPTimeout
	}
	return o
}

// Flow starts check-in sessions against a boundary
type Flow struct {
	log      logger.Logger
	boundary Boundary
	opts     Options
	now      func() time.Time
	newForm  func([]forms.FieldDefinition) *forms.Form
}

// NewFlow creates a new Flow
func NewFlow(log logger.Logger, boundary Boundary, opts Options) *Flow {
	return &Flow{
		log:      log,
		boundary: boundary,
		opts:     opts.withDefaults(),
		now:      time.Now,
		newForm:  forms.NewForm,
	}
}

// SetClock replaces the time source, for tests
func (f *Flow) SetClock(now func() time.Time) {
	f.now = now
}

// Start loads the event and, if it is open for check-in, begins a session:
// the form is built from the event's field snapshot and the geo and IP side
// channels start in the background. A missing, disabled or expired event
// yields a terminal *BoundaryError and no form.
func (f *Flow) Start(ctx context.Context, eventID string, geo GeoSource, ip IPResolver) (*Session, error) {
	ev, err := f.boundary.Event(ctx, eventID)
	if err != nil {
		return nil, Classify(err)
	}
	if !ev.CheckInEnabled {
		return nil, &BoundaryError{Kind: FailureDisabled, Message: services.ErrCheckInDisabled.Error()}
	}
	if ev.CheckInDeadline != nil && f.now().After(*ev.CheckInDeadline) {
		return nil, &BoundaryError{Kind: FailureDeadlinePassed, Message: services.ErrDeadlinePassed.Error()}
	}

	// Side channels outlive the request that started them
	bg, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &Session{
		token:    uuid.NewString(),
		event:    ev,
		form:     f.newForm(ev.ParticipantFields),
		boundary: f.boundary,
		log:      f.log,
		now:      f.now,
		geo:      geo,
		cancel:   cancel,
		settled:  make(chan struct{}),
	}

	done := make(chan struct{}, 2)
	go func() {
		s.captureLocation(bg, f.opts.GeoTimeout)
		done <- struct{}{}
	}()
	go func() {
		s.captureIP(bg, ip, f.opts.IPTimeout)
		done <- struct{}{}
	}()
	go func() {
		<-done
		<-done
		close(s.settled)
	}()

	f.log.Debug("Started check-in session", "event_id", ev.ID)
	return s, nil
}
