package models

import (
	"encoding/json"
	"math"
	"time"

	"github.com/abrezinsky/rollcall/internal/forms"
)

// Event is an organizer's event and the field snapshot it collects at check-in
type Event struct {
	ID                string                  `json:"id"`
	Title             string                  `json:"title"`
	Description       string                  `json:"description"`
	Date              string                  `json:"date"`
	Time              string                  `json:"time"`
	Location          string                  `json:"location"`
	TemplateID        string                  `json:"template_id,omitempty"`
	ParticipantFields []forms.FieldDefinition `json:"participant_fields"`
	CheckInEnabled    bool                    `json:"checkin_enabled"`
	CheckInDeadline   *time.Time              `json:"checkin_deadline"`
	MaxAttendees      int                     `json:"max_attendees"`
	CheckInCount      int                     `json:"checkin_count"`
	CreatedAt         time.Time               `json:"created_at"`
	UpdatedAt         time.Time               `json:"updated_at"`
}

// DeadlinePassed reports whether the check-in deadline is set and before now
func (e *Event) DeadlinePassed(now time.Time) bool {
	return e.CheckInDeadline != nil && now.After(*e.CheckInDeadline)
}

// Public returns the projection shown to participants
func (e *Event) Public() PublicEvent {
	return PublicEvent{
		ID:                e.ID,
		Title:             e.Title,
		Description:       e.Description,
		Date:              e.Date,
		Time:              e.Time,
		Location:          e.Location,
		ParticipantFields: forms.CloneFields(e.ParticipantFields),
		CheckInEnabled:    e.CheckInEnabled,
		CheckInDeadline:   e.CheckInDeadline,
	}
}

// PublicEvent is what an unauthenticated participant may see of an event
type PublicEvent struct {
	ID                string                  `json:"id"`
	Title             string                  `json:"title"`
	Description       string                  `json:"description"`
	Date              string                  `json:"date"`
	Time              string                  `json:"time"`
	Location          string                  `json:"location"`
	ParticipantFields []forms.FieldDefinition `json:"participant_fields"`
	CheckInEnabled    bool                    `json:"checkin_enabled"`
	CheckInDeadline   *time.Time              `json:"checkin_deadline"`
}

// Location is a device position reported at check-in
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
}

// Valid reports whether the position is finite and within coordinate range
func (l Location) Valid() bool {
	for _, v := range []float64{l.Latitude, l.Longitude, l.Accuracy} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return math.Abs(l.Latitude) <= 90 && math.Abs(l.Longitude) <= 180 && l.Accuracy >= 0
}

// UnknownIP is stored when the participant's address could not be resolved
const UnknownIP = "unknown"

// CheckIn is a stored check-in. Data holds the participant values as JSON
// keyed by field id.
type CheckIn struct {
	ID          string          `json:"id"`
	EventID     string          `json:"event_id"`
	Name        string          `json:"name"`
	Email       string          `json:"email"`
	Data        json.RawMessage `json:"data"`
	Location    *Location       `json:"location_data"`
	IPAddress   string          `json:"ip_address"`
	CheckedInAt time.Time       `json:"checked_in_at"`
}

// CheckInRequest is a check-in submission as received over the API
type CheckInRequest struct {
	EventID   string                     `json:"event_id"`
	Name      string                     `json:"name"`
	Email     string                     `json:"email"`
	Data      map[string]json.RawMessage `json:"data"`
	Location  *Location                  `json:"location_data"`
	IPAddress string                     `json:"ip_address"`
	// Timestamp is when the participant pressed submit; zero means now
	Timestamp time.Time `json:"timestamp,omitzero"`
}

// CheckInReceipt confirms a stored check-in
type CheckInReceipt struct {
	ID          string    `json:"id"`
	EventID     string    `json:"event_id"`
	CheckedInAt time.Time `json:"checked_in_at"`
}

// CheckInStats summarizes an event's check-ins
type CheckInStats struct {
	EventID      string `json:"event_id"`
	Total        int    `json:"total"`
	WithLocation int    `json:"with_location"`
	UnknownIP    int    `json:"unknown_ip"`
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
