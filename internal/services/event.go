package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"

	"github.com/abrezinsky/rollcall/internal/forms"
	"github.com/abrezinsky/rollcall/internal/logger"
	"github.com/abrezinsky/rollcall/internal/models"
	"github.com/abrezinsky/rollcall/internal/repository"
)

const (
	DefaultQRSize = 256
	MinQRSize     = 128
	MaxQRSize     = 1024
)

// Broadcaster defines the interface for broadcasting messages to clients
type Broadcaster interface {
	BroadcastCheckIn(c models.CheckIn)
	BroadcastCheckInStatus(eventID string, enabled bool, deadline *time.Time)
}

// BaseURLSource supplies the externally reachable base URL
type BaseURLSource interface {
	GetBaseURL(ctx context.Context) (string, error)
}

// EventInput carries organizer-supplied event details. Fields wins over
// TemplateID; with neither, the default name and email fields are used.
type EventInput struct {
	Title           string
	Description     string
	Date            string
	Time            string
	Location        string
	TemplateID      string
	Fields          []forms.FieldDefinition
	CheckInEnabled  *bool
	CheckInDeadline *time.Time
	MaxAttendees    *int
}

// EventService handles event-related business logic
type EventService struct {
	log         logger.Logger
	repo        repository.FullRepository
	templates   TemplateServicer
	settings    BaseURLSource
	broadcaster Broadcaster
	now         func() time.Time
}

// NewEventService creates a new EventService
func NewEventService(log logger.Logger, repo repository.FullRepository, templates TemplateServicer, settings BaseURLSource) *EventService {
	return &EventService{
		log:       log,
		repo:      repo,
		templates: templates,
		settings:  settings,
		now:       time.Now,
	}
}

// SetBroadcaster sets the broadcaster for sending updates to clients
func (s *EventService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// SetClock replaces the time source, for tests
func (s *EventService) SetClock(now func() time.Time) {
	s.now = now
}

// CreateEvent creates an event with a snapshot of its participant fields
func (s *EventService) CreateEvent(ctx context.Context, in EventInput) (*models.Event, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}

	e := &models.Event{
		ID:              uuid.NewString(),
		Title:           title,
		Description:     in.Description,
		Date:            in.Date,
		Time:            in.Time,
		Location:        in.Location,
		CheckInEnabled:  true,
		CheckInDeadline: in.CheckInDeadline,
	}
	if in.CheckInEnabled != nil {
		e.CheckInEnabled = *in.CheckInEnabled
	}

	switch {
	case len(in.Fields) > 0:
		e.ParticipantFields = forms.CloneFields(in.Fields)
	case in.TemplateID != "":
		t, err := s.templates.GetTemplate(ctx, in.TemplateID)
		if err != nil {
			return nil, err
		}
		e.TemplateID = t.ID
		e.ParticipantFields = t.Snapshot()
		e.MaxAttendees = t.MaxAttendees
	default:
		e.ParticipantFields = forms.DefaultFields()
	}
	if in.MaxAttendees != nil {
		e.MaxAttendees = *in.MaxAttendees
	}

	if err := forms.ValidateFields(e.ParticipantFields); err != nil {
		return nil, &DefinitionError{Err: err}
	}
	if err := s.repo.CreateEvent(ctx, e); err != nil {
		return nil, err
	}

	s.log.Info("Created event", "event_id", e.ID, "title", e.Title, "template_id", e.TemplateID)
	return e, nil
}

// GetEvent returns an event with its check-in count
func (s *EventService) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	e, err := s.repo.GetEvent(ctx, id)
	if err == repository.ErrNotFound {
		return nil, ErrEventNotFound
	}
	return e, err
}

// ListEvents returns every event, newest first
func (s *EventService) ListEvents(ctx context.Context) ([]models.Event, error) {
	events, err := s.repo.ListEvents(ctx)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []models.Event{}
	}
	return events, nil
}

// UpdateEvent replaces an event's details and deadline. Fields, template and
// the enabled flag are left alone.
func (s *EventService) UpdateEvent(ctx context.Context, id string, in EventInput) (*models.Event, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	e, err := s.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}

	e.Title = title
	e.Description = in.Description
	e.Date = in.Date
	e.Time = in.Time
	e.Location = in.Location
	e.CheckInDeadline = in.CheckInDeadline
	if in.MaxAttendees != nil {
		e.MaxAttendees = *in.MaxAttendees
	}

	if err := s.repo.UpdateEvent(ctx, e); err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	s.broadcast(e.ID, e.CheckInEnabled, e.CheckInDeadline)
	return e, nil
}

// ReplaceFields swaps the participant fields of an event with no check-ins
func (s *EventService) ReplaceFields(ctx context.Context, id string, fields []forms.FieldDefinition) error {
	if err := forms.ValidateFields(fields); err != nil {
		return &DefinitionError{Err: err}
	}
	switch err := s.repo.ReplaceEventFields(ctx, id, fields); err {
	case nil:
		s.log.Info("Replaced event fields", "event_id", id, "fields", len(fields))
		return nil
	case repository.ErrNotFound:
		return ErrEventNotFound
	case repository.ErrFieldsLocked:
		return ErrFieldsLocked
	default:
		return err
	}
}

// SetCheckInEnabled opens or closes check-in and broadcasts the change
func (s *EventService) SetCheckInEnabled(ctx context.Context, id string, enabled bool) error {
	e, err := s.GetEvent(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.SetCheckInEnabled(ctx, id, enabled); err != nil {
		return err
	}
	s.log.Info("Check-in status changed", "event_id", id, "enabled", enabled)
	s.broadcast(id, enabled, e.CheckInDeadline)
	return nil
}

// SetDeadline sets or, with nil, clears the check-in deadline
func (s *EventService) SetDeadline(ctx context.Context, id string, deadline *time.Time) error {
	e, err := s.GetEvent(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.SetCheckInDeadline(ctx, id, deadline); err != nil {
		return err
	}
	s.broadcast(id, e.CheckInEnabled, deadline)
	return nil
}

// DeleteEvent deletes an event and all of its check-ins
func (s *EventService) DeleteEvent(ctx context.Context, id string) error {
	err := s.repo.DeleteEvent(ctx, id)
	if err == repository.ErrNotFound {
		return ErrEventNotFound
	}
	if err == nil {
		s.log.Info("Deleted event", "event_id", id)
	}
	return err
}

// CheckInURL returns the public check-in link for an event
func (s *EventService) CheckInURL(ctx context.Context, id string) (string, error) {
	if _, err := s.GetEvent(ctx, id); err != nil {
		return "", err
	}
	baseURL, err := s.settings.GetBaseURL(ctx)
	if err != nil {
		return "", err
	}
	if baseURL == "" {
		return "", ErrBaseURLMissing
	}
	return fmt.Sprintf("%s/checkin/%s", strings.TrimSuffix(baseURL, "/"), id), nil
}

// GenerateQRCode renders the check-in link as a PNG. A zero size means the
// default.
func (s *EventService) GenerateQRCode(ctx context.Context, id string, size int) ([]byte, error) {
	if size == 0 {
		size = DefaultQRSize
	}
	if size < MinQRSize || size > MaxQRSize {
		return nil, ErrInvalidQRSize
	}
	url, err := s.CheckInURL(ctx, id)
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(url, qrcode.Medium, size)
}

// ListCheckIns returns an event's check-ins, oldest first
func (s *EventService) ListCheckIns(ctx context.Context, id string) ([]models.CheckIn, error) {
	if _, err := s.GetEvent(ctx, id); err != nil {
		return nil, err
	}
	checkins, err := s.repo.ListCheckIns(ctx, id)
	if err != nil {
		return nil, err
	}
	if checkins == nil {
		checkins = []models.CheckIn{}
	}
	return checkins, nil
}

// Stats summarizes an event's check-ins
func (s *EventService) Stats(ctx context.Context, id string) (*models.CheckInStats, error) {
	if _, err := s.GetEvent(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.GetCheckInStats(ctx, id)
}

// CloseExpired closes check-in on every open event whose deadline has
// passed and returns how many were closed
func (s *EventService) CloseExpired(ctx context.Context) (int, error) {
	ids, err := s.repo.ListExpiredOpenEvents(ctx, s.now())
	if err != nil {
		return 0, err
	}

	closed := 0
	for _, id := range ids {
		if err := s.repo.SetCheckInEnabled(ctx, id, false); err != nil {
			s.log.Error("Error closing expired event", "event_id", id, "error", err)
			continue
		}
		closed++
		e, err := s.repo.GetEvent(ctx, id)
		if err != nil {
			s.broadcast(id, false, nil)
			continue
		}
		s.broadcast(id, false, e.CheckInDeadline)
	}
	if closed > 0 {
		s.log.Info("Closed check-in for expired events", "count", closed)
	}
	return closed, nil
}

func (s *EventService) broadcast(eventID string, enabled bool, deadline *time.Time) {
	if s.broadcaster != nil {
		s.broadcaster.BroadcastCheckInStatus(eventID, enabled, deadline)
	}
}
