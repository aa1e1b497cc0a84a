// Package checkin drives a participant through checking in to one event:
// it loads the event from the persistence boundary, captures the location
// and IP side channels, runs the form engine and submits the result.
package checkin

import (
	"context"
	"errors"

	apperrors "github.com/abrezinsky/rollcall/internal/errors"
	"github.com/abrezinsky/rollcall/internal/forms"
	"github.com/abrezinsky/rollcall/internal/models"
	"github.com/abrezinsky/rollcall/internal/services"
)

// FailureKind classifies a boundary failure
type FailureKind string

const (
	FailureNotFound       FailureKind = "not_found"
	FailureDisabled       FailureKind = "disabled"
	FailureDeadlinePassed FailureKind = "deadline_passed"
	FailureValidation     FailureKind = "validation_error"
	FailureServer         FailureKind = "server_error"
)

// BoundaryError is a typed failure reported by the persistence boundary.
// Message is shown to the participant as-is when set.
type BoundaryError struct {
	Kind    FailureKind
	Message string
	Err     error
}

func (e *BoundaryError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Kind)
}

func (e *BoundaryError) Unwrap() error {
	return e.Err
}

// Terminal reports whether retrying can never succeed for this event
func (e *BoundaryError) Terminal() bool {
	switch e.Kind {
	case FailureNotFound, FailureDisabled, FailureDeadlinePassed:
		return true
	}
	return false
}

// Boundary loads events and accepts check-ins
type Boundary interface {
	Event(ctx context.Context, eventID string) (*models.PublicEvent, error)
	Submit(ctx context.Context, req models.CheckInRequest) (*models.CheckInReceipt, error)
}

// Local is a Boundary backed by the in-process check-in service
type Local struct {
	svc services.CheckInServicer
}

var _ Boundary = (*Local)(nil)

// NewLocal creates a Boundary over svc
func NewLocal(svc services.CheckInServicer) *Local {
	return &Local{svc: svc}
}

// Event returns the public projection of an event
func (l *Local) Event(ctx context.Context, eventID string) (*models.PublicEvent, error) {
	e, err := l.svc.PublicEvent(ctx, eventID)
	if err != nil {
		return nil, Classify(err)
	}
	return e, nil
}

// Submit stores a check-in
func (l *Local) Submit(ctx context.Context, req models.CheckInRequest) (*models.CheckInReceipt, error) {
	r, err := l.svc.SubmitCheckIn(ctx, req)
	if err != nil {
		return nil, Classify(err)
	}
	return r, nil
}

// Classify maps a service error onto a BoundaryError. Unrecognized errors
// become server errors with no participant-facing message.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var be *BoundaryError
	if errors.As(err, &be) {
		return be
	}

	switch {
	case errors.Is(err, services.ErrEventNotFound):
		return &BoundaryError{Kind: FailureNotFound, Message: err.Error(), Err: err}
	case errors.Is(err, services.ErrCheckInDisabled):
		return &BoundaryError{Kind: FailureDisabled, Message: err.Error(), Err: err}
	case errors.Is(err, services.ErrDeadlinePassed):
		return &BoundaryError{Kind: FailureDeadlinePassed, Message: err.Error(), Err: err}
	}

	var verr *forms.ValidationError
	if errors.As(err, &verr) {
		return &BoundaryError{Kind: FailureValidation, Message: verr.Error(), Err: verr}
	}
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		switch appErr.Kind {
		case apperrors.ErrInvalidInput, apperrors.ErrValidation:
			return &BoundaryError{Kind: FailureValidation, Message: appErr.Message, Err: err}
		case apperrors.ErrNotFound:
			return &BoundaryError{Kind: FailureNotFound, Message: appErr.Message, Err: err}
		}
	}
	return &BoundaryError{Kind: FailureServer, Err: err}
}
