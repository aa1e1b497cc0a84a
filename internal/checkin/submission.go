package checkin

import (
	"encoding/json"
	"time"

	"github.com/abrezinsky/rollcall/internal/forms"
	"github.com/abrezinsky/rollcall/internal/models"
)

// Submission is what a completed form hands to the boundary. Location is nil
// and IPAddress is "unknown" when the side channels came up empty.
type Submission struct {
	ParticipantData forms.Data       `json:"participant_data"`
	Location        *models.Location `json:"location_data"`
	IPAddress       string           `json:"ip_address"`
	Timestamp       time.Time        `json:"timestamp"`
}

// Request converts the submission into a boundary check-in request. The
// email comes from the first email field in fields.
func (s Submission) Request(eventID string, fields []forms.FieldDefinition) (models.CheckInRequest, error) {
	data := make(map[string]json.RawMessage, len(s.ParticipantData))
	for id, v := range s.ParticipantData {
		raw, err := json.Marshal(v)
		if err != nil {
			return models.CheckInRequest{}, err
		}
		data[id] = raw
	}

	ip := s.IPAddress
	if ip == "" {
		ip = models.UnknownIP
	}
	return models.CheckInRequest{
		EventID:   eventID,
		Name:      s.ParticipantData["name"].Text(),
		Email:     forms.EmailOf(fields, s.ParticipantData),
		Data:      data,
		Location:  s.Location,
		IPAddress: ip,
		Timestamp: s.Timestamp,
	}, nil
}
