package handlers

import (
	"time"

	"github.com/abrezinsky/rollcall/internal/forms"
)

// EventCreateRequest represents a request to create an event. Fields wins
// over TemplateID.
type EventCreateRequest struct {
	Title           string                  `json:"title"`
	Description     string                  `json:"description"`
	Date            string                  `json:"date"`
	Time            string                  `json:"time"`
	Location        string                  `json:"location"`
	TemplateID      string                  `json:"template_id"`
	Fields          []forms.FieldDefinition `json:"participant_fields"`
	CheckInEnabled  *bool                   `json:"checkin_enabled"`
	CheckInDeadline *time.Time              `json:"checkin_deadline"`
	MaxAttendees    *int                    `json:"max_attendees"`
}

// EventUpdateRequest represents a request to update event details
type EventUpdateRequest struct {
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Date            string     `json:"date"`
	Time            string     `json:"time"`
	Location        string     `json:"location"`
	CheckInDeadline *time.Time `json:"checkin_deadline"`
	MaxAttendees    *int       `json:"max_attendees"`
}

// FieldsReplaceRequest represents a request to replace an event's fields
type FieldsReplaceRequest struct {
	Fields []forms.FieldDefinition `json:"participant_fields"`
}

// CheckInControlRequest represents a request to open or close check-in
type CheckInControlRequest struct {
	Enabled bool `json:"enabled"`
}

// DeadlineRequest sets or, with null, clears the check-in deadline
type DeadlineRequest struct {
	Deadline *time.Time `json:"deadline"`
}

// SettingsUpdateRequest represents a request to update settings
type SettingsUpdateRequest struct {
	BaseURL        string  `json:"base_url"`
	CheckInMessage *string `json:"checkin_message"`
}

// DatabaseResetRequest represents a request to reset database tables
type DatabaseResetRequest struct {
	Tables []string `json:"tables"`
}

// LocationReport is the browser's geolocation result for a check-in page.
// Error is set instead of a position when the browser could not provide one.
type LocationReport struct {
	Session   string   `json:"session"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Accuracy  float64  `json:"accuracy"`
	Error     string   `json:"error"`
}
