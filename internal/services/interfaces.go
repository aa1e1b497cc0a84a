package services

import (
	"context"
	"time"

	"github.com/abrezinsky/rollcall/internal/forms"
	"github.com/abrezinsky/rollcall/internal/models"
)

// EventServicer defines the interface for organizer event operations
type EventServicer interface {
	CreateEvent(ctx context.Context, in EventInput) (*models.Event, error)
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	ListEvents(ctx context.Context) ([]models.Event, error)
	UpdateEvent(ctx context.Context, id string, in EventInput) (*models.Event, error)
	ReplaceFields(ctx context.Context, id string, fields []forms.FieldDefinition) error
	SetCheckInEnabled(ctx context.Context, id string, enabled bool) error
	SetDeadline(ctx context.Context, id string, deadline *time.Time) error
	DeleteEvent(ctx context.Context, id string) error
	CheckInURL(ctx context.Context, id string) (string, error)
	GenerateQRCode(ctx context.Context, id string, size int) ([]byte, error)
	ListCheckIns(ctx context.Context, id string) ([]models.CheckIn, error)
	Stats(ctx context.Context, id string) (*models.CheckInStats, error)
	CloseExpired(ctx context.Context) (int, error)
	SetBroadcaster(b Broadcaster)
}

// TemplateServicer defines the interface for template operations
type TemplateServicer interface {
	ListTemplates(ctx context.Context) ([]forms.Template, error)
	GetTemplate(ctx context.Context, id string) (*forms.Template, error)
	CreateTemplate(ctx context.Context, t forms.Template) (*forms.Template, error)
	UpdateTemplate(ctx context.Context, id string, t forms.Template) error
	DeleteTemplate(ctx context.Context, id string) error
}

// CheckInServicer defines the interface for public check-in operations
type CheckInServicer interface {
	PublicEvent(ctx context.Context, id string) (*models.PublicEvent, error)
	SubmitCheckIn(ctx context.Context, req models.CheckInRequest) (*models.CheckInReceipt, error)
	SetBroadcaster(b Broadcaster)
}

// SettingsServicer defines the interface for settings operations
type SettingsServicer interface {
	GetBaseURL(ctx context.Context) (string, error)
	SetBaseURL(ctx context.Context, url string) error
	GetCheckInMessage(ctx context.Context) (string, error)
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	AllSettings(ctx context.Context) (map[string]interface{}, error)
	UpdateSettings(ctx context.Context, settings Settings) error
	Overview(ctx context.Context) (map[string]interface{}, error)
	ResetTables(ctx context.Context, tables []string) (*ResetTablesResult, error)
}

// Ensure concrete types implement interfaces
var (
	_ EventServicer    = (*EventService)(nil)
	_ TemplateServicer = (*TemplateService)(nil)
	_ CheckInServicer  = (*CheckInService)(nil)
	_ SettingsServicer = (*SettingsService)(nil)
)
