package handlers

// CheckInURLResponse is the response for an event's public link
type CheckInURLResponse struct {
	URL string `json:"url"`
}

// SettingsResponse is the response for settings
type SettingsResponse struct {
	BaseURL        string `json:"base_url"`
	CheckInMessage string `json:"checkin_message"`
}

// LocationReportResponse tells the page whether its report was used
type LocationReportResponse struct {
	Accepted bool   `json:"accepted"`
	Notice   string `json:"notice,omitempty"`
}
