package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/abrezinsky/rollcall/internal/errors"
	"github.com/abrezinsky/rollcall/internal/forms"
	"github.com/abrezinsky/rollcall/internal/logger"
	"github.com/abrezinsky/rollcall/internal/models"
	"github.com/abrezinsky/rollcall/internal/repository"
)

// maxClockSkew bounds how far a submitted timestamp may trail the server clock
const maxClockSkew = 5 * time.Minute

// CheckInService accepts public check-ins
type CheckInService struct {
	log         logger.Logger
	repo        repository.FullRepository
	broadcaster Broadcaster
	now         func() time.Time
}

// NewCheckInService creates a new CheckInService
func NewCheckInService(log logger.Logger, repo repository.FullRepository) *CheckInService {
	return &CheckInService{log: log, repo: repo, now: time.Now}
}

// SetBroadcaster sets the broadcaster for sending updates to clients
func (s *CheckInService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// SetClock replaces the time source, for tests
func (s *CheckInService) SetClock(now func() time.Time) {
	s.now = now
}

// PublicEvent returns the participant-facing projection of an event
func (s *CheckInService) PublicEvent(ctx context.Context, id string) (*models.PublicEvent, error) {
	e, err := s.repo.GetEvent(ctx, id)
	if err == repository.ErrNotFound {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	pub := e.Public()
	return &pub, nil
}

// SubmitCheckIn validates a submission against the event's own field
// snapshot and stores it. Field failures come back as *forms.ValidationError.
func (s *CheckInService) SubmitCheckIn(ctx context.Context, req models.CheckInRequest) (*models.CheckInReceipt, error) {
	e, err := s.repo.GetEvent(ctx, req.EventID)
	if err == repository.ErrNotFound {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !e.CheckInEnabled {
		return nil, ErrCheckInDisabled
	}
	if e.DeadlinePassed(now) {
		return nil, ErrDeadlinePassed
	}

	data, err := forms.DecodeData(e.ParticipantFields, req.Data)
	if err != nil {
		return nil, errors.InvalidInput(err.Error())
	}
	for _, f := range e.ParticipantFields {
		if f.ReadOnly {
			data[f.ID] = f.InitialValue()
		}
	}
	if problems := forms.ValidateAll(e.ParticipantFields, data); len(problems) > 0 {
		return nil, &forms.ValidationError{Problems: problems}
	}
	if err := checkLocation(req.Location); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return nil, errors.Internal(err)
	}

	c := &models.CheckIn{
		ID:          uuid.NewString(),
		EventID:     e.ID,
		Name:        firstNonEmpty(req.Name, data["name"].Text()),
		Email:       firstNonEmpty(req.Email, forms.EmailOf(e.ParticipantFields, data)),
		Data:        payload,
		Location:    req.Location,
		IPAddress:   firstNonEmpty(strings.TrimSpace(req.IPAddress), models.UnknownIP),
		CheckedInAt: checkedInAt(req.Timestamp, now),
	}
	if err := s.repo.CreateCheckIn(ctx, c); err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrEventNotFound
		}
		return nil, err
	}

	s.log.Info("Check-in recorded", "event_id", e.ID, "name", c.Name,
		"has_location", c.Location != nil, "ip", c.IPAddress)
	if s.broadcaster != nil {
		s.broadcaster.BroadcastCheckIn(*c)
	}

	return &models.CheckInReceipt{ID: c.ID, EventID: c.EventID, CheckedInAt: c.CheckedInAt}, nil
}

func checkLocation(loc *models.Location) error {
	if loc != nil && !loc.Valid() {
		return errors.InvalidInput("location_data is not a valid position")
	}
	return nil
}

// checkedInAt trusts the submitted timestamp only when it is recent and not
// in the future
func checkedInAt(submitted, now time.Time) time.Time {
	if submitted.IsZero() || submitted.After(now) || now.Sub(submitted) > maxClockSkew {
		return now.UTC()
	}
	return submitted.UTC()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
