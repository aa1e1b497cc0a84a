package mock

import (
	"context"
	"time"

	"github.com/abrezinsky/rollcall/internal/forms"
	"github.com/abrezinsky/rollcall/internal/models"
	"github.com/abrezinsky/rollcall/internal/repository"
)

// Repository wraps a real repository and allows injecting errors for testing.
// This provides a flexible way to test error paths without complex database manipulation.
//
// Usage:
//
//	realRepo := testutil.NewTestRepository(t)
//	mockRepo := mock.NewRepository(realRepo)
//	mockRepo.CreateCheckInError = errors.New("database error")
//	svc := services.NewCheckInService(log, mockRepo)
//	_, err := svc.SubmitCheckIn(ctx, req)
//	// err will now contain the injected error
type Repository struct {
	repository.FullRepository

	// ===== Event Errors =====
	CreateEventError           error
	GetEventError              error
	ListEventsError            error
	UpdateEventError           error
	ReplaceEventFieldsError    error
	SetCheckInEnabledError     error
	SetCheckInDeadlineError    error
	DeleteEventError           error
	ListExpiredOpenEventsError error

	// ===== Check-in Errors =====
	CreateCheckInError   error
	ListCheckInsError    error
	CountCheckInsError   error
	GetCheckInStatsError error

	// ===== Template Errors =====
	ListTemplatesError  error
	GetTemplateError    error
	CreateTemplateError error
	UpdateTemplateError error
	DeleteTemplateError error

	// ===== Settings Errors =====
	GetSettingError       error
	SetSettingError       error
	GetOverviewStatsError error
	ClearTableError       error
}

// NewRepository creates a mock repository wrapping a real one
func NewRepository(real repository.FullRepository) *Repository {
	return &Repository{
		FullRepository: real,
	}
}

// ===== Event Methods =====

func (m *Repository) CreateEvent(ctx context.Context, e *models.Event) error {
	if m.CreateEventError != nil {
		return m.CreateEventError
	}
	return m.FullRepository.CreateEvent(ctx, e)
}

func (m *Repository) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	if m.GetEventError != nil {
		return nil, m.GetEventError
	}
	return m.FullRepository.GetEvent(ctx, id)
}

func (m *Repository) ListEvents(ctx context.Context) ([]models.Event, error) {
	if m.ListEventsError != nil {
		return nil, m.ListEventsError
	}
	return m.FullRepository.ListEvents(ctx)
}

func (m *Repository) UpdateEvent(ctx context.Context, e *models.Event) error {
	if m.UpdateEventError != nil {
		return m.UpdateEventError
	}
	return m.FullRepository.UpdateEvent(ctx, e)
}

func (m *Repository) ReplaceEventFields(ctx context.Context, id string, fields []forms.FieldDefinition) error {
	if m.ReplaceEventFieldsError != nil {
		return m.ReplaceEventFieldsError
	}
	return m.FullRepository.ReplaceEventFields(ctx, id, fields)
}

func (m *Repository) SetCheckInEnabled(ctx context.Context, id string, enabled bool) error {
	if m.SetCheckInEnabledError != nil {
		return m.SetCheckInEnabledError
	}
	return m.FullRepository.SetCheckInEnabled(ctx, id, enabled)
}

func (m *Repository) SetCheckInDeadline(ctx context.Context, id string, deadline *time.Time) error {
	if m.SetCheckInDeadlineError != nil {
		return m.SetCheckInDeadlineError
	}
	return m.FullRepository.SetCheckInDeadline(ctx, id, deadline)
}

func (m *Repository) DeleteEvent(ctx context.Context, id string) error {
	if m.DeleteEventError != nil {
		return m.DeleteEventError
	}
	return m.FullRepository.DeleteEvent(ctx, id)
}

func (m *Repository) ListExpiredOpenEvents(ctx context.Context, now time.Time) ([]string, error) {
	if m.ListExpiredOpenEventsError != nil {
		return nil, m.ListExpiredOpenEventsError
	}
	return m.FullRepository.ListExpiredOpenEvents(ctx, now)
}

// ===== Check-in Methods =====

func (m *Repository) CreateCheckIn(ctx context.Context, c *models.CheckIn) error {
	if m.CreateCheckInError != nil {
		return m.CreateCheckInError
	}
	return m.FullRepository.CreateCheckIn(ctx, c)
}

func (m *Repository) ListCheckIns(ctx context.Context, eventID string) ([]models.CheckIn, error) {
	if m.ListCheckInsError != nil {
		return nil, m.ListCheckInsError
	}
	return m.FullRepository.ListCheckIns(ctx, eventID)
}

func (m *Repository) CountCheckIns(ctx context.Context, eventID string) (int, error) {
	if m.CountCheckInsError != nil {
		return 0, m.CountCheckInsError
	}
	return m.FullRepository.CountCheckIns(ctx, eventID)
}

func (m *Repository) GetCheckInStats(ctx context.Context, eventID string) (*models.CheckInStats, error) {
	if m.GetCheckInStatsError != nil {
		return nil, m.GetCheckInStatsError
	}
	return m.FullRepository.GetCheckInStats(ctx, eventID)
}

// ===== Template Methods =====

func (m *Repository) ListTemplates(ctx context.Context) ([]forms.Template, error) {
	if m.ListTemplatesError != nil {
		return nil, m.ListTemplatesError
	}
	return m.FullRepository.ListTemplates(ctx)
}

func (m *Repository) GetTemplate(ctx context.Context, id string) (*forms.Template, error) {
	if m.GetTemplateError != nil {
		return nil, m.GetTemplateError
	}
	return m.FullRepository.GetTemplate(ctx, id)
}

func (m *Repository) CreateTemplate(ctx context.Context, t *forms.Template) error {
	if m.CreateTemplateError != nil {
		return m.CreateTemplateError
	}
	return m.FullRepository.CreateTemplate(ctx, t)
}

func (m *Repository) UpdateTemplate(ctx context.Context, t *forms.Template) error {
	if m.UpdateTemplateError != nil {
		return m.UpdateTemplateError
	}
	return m.FullRepository.UpdateTemplate(ctx, t)
}

func (m *Repository) DeleteTemplate(ctx context.Context, id string) error {
	if m.DeleteTemplateError != nil {
		return m.DeleteTemplateError
	}
	return m.FullRepository.DeleteTemplate(ctx, id)
}

// ===== Settings Methods =====

func (m *Repository) GetSetting(ctx context.Context, key string) (string, error) {
	if m.GetSettingError != nil {
		return "", m.GetSettingError
	}
	return m.FullRepository.GetSetting(ctx, key)
}

func (m *Repository) SetSetting(ctx context.Context, key, value string) error {
	if m.SetSettingError != nil {
		return m.SetSettingError
	}
	return m.FullRepository.SetSetting(ctx, key, value)
}

func (m *Repository) GetOverviewStats(ctx context.Context) (map[string]interface{}, error) {
	if m.GetOverviewStatsError != nil {
		return nil, m.GetOverviewStatsError
	}
	return m.FullRepository.GetOverviewStats(ctx)
}

func (m *Repository) ClearTable(ctx context.Context, table string) error {
	if m.ClearTableError != nil {
		return m.ClearTableError
	}
	return m.FullRepository.ClearTable(ctx, table)
}
