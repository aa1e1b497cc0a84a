package testutil

import (
	"context"
	"testing"

	"github.com/abrezinsky/rollcall/internal/logger"
	"github.com/abrezinsky/rollcall/internal/models"
	"github.com/abrezinsky/rollcall/internal/repository"
	"github.com/abrezinsky/rollcall/internal/services"
)

// NewTestRepository creates a new in-memory repository for testing.
// Each call creates a fresh database with all migrations applied.
func NewTestRepository(t *testing.T) *repository.Repository {
	t.Helper()

	repo, err := repository.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test repository: %v", err)
	}

	t.Cleanup(func() {
		repo.Close()
	})

	return repo
}

// Services is the service layer wired over one test repository
type Services struct {
	Repo      repository.FullRepository
	Settings  *services.SettingsService
	Templates *services.TemplateService
	Events    *services.EventService
	CheckIns  *services.CheckInService
}

// NewServices wires every service over repo. A nil repo means a fresh
// in-memory one.
func NewServices(t *testing.T, repo repository.FullRepository) *Services {
	t.Helper()
	if repo == nil {
		repo = NewTestRepository(t)
	}
	log := logger.Nop{}

	s := &Services{Repo: repo}
	s.Settings = services.NewSettingsService(log, repo)
	s.Templates = services.NewTemplateService(log, repo)
	s.Events = services.NewEventService(log, repo, s.Templates, s.Settings)
	s.CheckIns = services.NewCheckInService(log, repo)
	return s
}

// OpenEvent creates an event accepting check-ins, with the fields of the
// given catalog template, or the default fields when templateID is empty
func (s *Services) OpenEvent(t *testing.T, title, templateID string) *models.Event {
	t.Helper()
	enabled := true
	e, err := s.Events.CreateEvent(context.Background(), services.EventInput{
		Title:          title,
		TemplateID:     templateID,
		CheckInEnabled: &enabled,
	})
	if err != nil {
		t.Fatalf("failed to create event %q: %v", title, err)
	}
	return e
}
