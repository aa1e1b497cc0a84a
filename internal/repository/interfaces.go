package repository

import (
	"context"
	"time"

	"github.com/abrezinsky/rollcall/internal/forms"
	"github.com/abrezinsky/rollcall/internal/models"
)

// EventRepository defines event data operations
type EventRepository interface {
	CreateEvent(ctx context.Context, e *models.Event) error
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	ListEvents(ctx context.Context) ([]models.Event, error)
	UpdateEvent(ctx context.Context, e *models.Event) error
	ReplaceEventFields(ctx context.Context, id string, fields []forms.FieldDefinition) error
	SetCheckInEnabled(ctx context.Context, id string, enabled bool) error
	SetCheckInDeadline(ctx context.Context, id string, deadline *time.Time) error
	DeleteEvent(ctx context.Context, id string) error
	ListExpiredOpenEvents(ctx context.Context, now time.Time) ([]string, error)
}

// CheckInRepository defines check-in data operations
type CheckInRepository interface {
	CreateCheckIn(ctx context.Context, c *models.CheckIn) error
	ListCheckIns(ctx context.Context, eventID string) ([]models.CheckIn, error)
	CountCheckIns(ctx context.Context, eventID string) (int, error)
	GetCheckInStats(ctx context.Context, eventID string) (*models.CheckInStats, error)
}

// TemplateRepository defines custom template data operations
type TemplateRepository interface {
	ListTemplates(ctx context.Context) ([]forms.Template, error)
	GetTemplate(ctx context.Context, id string) (*forms.Template, error)
	CreateTemplate(ctx context.Context, t *forms.Template) error
	UpdateTemplate(ctx context.Context, t *forms.Template) error
	DeleteTemplate(ctx context.Context, id string) error
}

// SettingsRepository defines settings data operations
type SettingsRepository interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	GetOverviewStats(ctx context.Context) (map[string]interface{}, error)
	ClearTable(ctx context.Context, table string) error
}

// FullRepository combines all repository interfaces
// Use this when a service needs access to multiple domains
type FullRepository interface {
	EventRepository
	CheckInRepository
	TemplateRepository
	SettingsRepository
}

// Ensure Repository implements all interfaces
var _ FullRepository = (*Repository)(nil)
