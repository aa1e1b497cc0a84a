package handlers_test

import (
	"bytes"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/abrezinsky/rollcall/internal/forms"
	"github.com/abrezinsky/rollcall/internal/handlers"
	"github.com/abrezinsky/rollcall/internal/models"
)

// ==================== Events ====================

func TestHandleCreateEvent_FromTemplate(t *testing.T) {
	ts := newTestSetup(t)

	rec := ts.do(t, http.MethodPost, "/api/admin/events", map[string]any{
		"title":       "Research Methods",
		"template_id": "academic-workshop",
	}, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var ev models.Event
	decode(t, rec, &ev)
	if ev.ID == "" || ev.TemplateID != "academic-workshop" || !ev.CheckInEnabled {
		t.Errorf("unexpected event: %+v", ev)
	}
	if len(ev.ParticipantFields) != 7 || ev.ParticipantFields[2].ID != "student_id" {
		t.Errorf("expected template fields to be copied, got %+v", ev.ParticipantFields)
	}
	if ev.MaxAttendees != 60 {
		t.Errorf("expected template max attendees, got %d", ev.MaxAttendees)
	}
}

func TestHandleCreateEvent_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"empty body", "", http.StatusBadRequest, handlers.ErrCodeBadRequest},
		{"invalid json", "{not json", http.StatusBadRequest, handlers.ErrCodeBadRequest},
		{"missing title", map[string]any{"title": " "}, http.StatusBadRequest, handlers.ErrCodeBadRequest},
		{"unknown template", map[string]any{"title": "x", "template_id": "nope"}, http.StatusNotFound, handlers.ErrCodeNotFound},
		{
			"duplicate field ids",
			map[string]any{"title": "x", "participant_fields": []map[string]any{
				{"id": "a", "type": "text", "label": "A"},
				{"id": "a", "type": "text", "label": "A again"},
			}},
			http.StatusBadRequest, handlers.ErrCodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestSetup(t)
			rec := ts.do(t, http.MethodPost, "/api/admin/events", tt.body, true)
			if rec.Code != tt.status {
				t.Fatalf("expected status %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			if apiErr := decodeAPIError(t, rec); apiErr.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, apiErr.Code)
			}
		})
	}
}

func TestHandleEvents_RequireAuth(t *testing.T) {
	ts := newTestSetup(t)

	rec := ts.do(t, http.MethodGet, "/api/admin/events", nil, false)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rec.Code)
	}
}

func TestHandleGetEvents(t *testing.T) {
	ts := newTestSetup(t)
	ts.createEvent(t, map[string]any{"title": "First"})
	ts.createEvent(t, map[string]any{"title": "Second"})

	rec := ts.do(t, http.MethodGet, "/api/admin/events", nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var events []models.Event
	decode(t, rec, &events)
	if len(events) != 2 {
		t.Errorf("expected 2 events, got %d", len(events))
	}
}

func TestHandleGetEvents_RepositoryError(t *testing.T) {
	ts := newTestSetup(t)
	ts.repo.ListEventsError = errors.New("disk on fire")

	rec := ts.do(t, http.MethodGet, "/api/admin/events", nil, true)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}
	if apiErr := decodeAPIError(t, rec); strings.Contains(apiErr.Message, "disk") {
		t.Errorf("internal error leaked to client: %q", apiErr.Message)
	}
}

func TestHandleGetEvent_NotFound(t *testing.T) {
	ts := newTestSetup(t)

	rec := ts.do(t, http.MethodGet, "/api/admin/events/missing", nil, true)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}
}

func TestHandleUpdateEvent(t *testing.T) {
	ts := newTestSetup(t)
	id := ts.createEvent(t, map[string]any{"title": "Draft"})
	deadline := time.Now().Add(2 * time.Hour).UTC().Truncate(time.Second)

	rec := ts.do(t, http.MethodPut, "/api/admin/events/"+id, map[string]any{
		"title":            "Final",
		"location":         "Hall B",
		"checkin_deadline": deadline,
	}, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var ev models.Event
	decode(t, rec, &ev)
	if ev.Title != "Final" || ev.Location != "Hall B" {
		t.Errorf("details not updated: %+v", ev)
	}
	if ev.CheckInDeadline == nil || !ev.CheckInDeadline.Equal(deadline) {
		t.Errorf("deadline = %v, want %v", ev.CheckInDeadline, deadline)
	}
}

func TestHandleReplaceFields_LockedAfterCheckIn(t *testing.T) {
	ts := newTestSetup(t)
	id := ts.createEvent(t, map[string]any{"title": "Meetup"})
	fields := map[string]any{"participant_fields": []map[string]any{
		{"id": "name", "type": "text", "label": "Full Name", "required": true},
	}}

	rec := ts.do(t, http.MethodPut, "/api/admin/events/"+id+"/fields", fields, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 before any check-in, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, http.MethodPost, "/api/checkin", map[string]any{
		"event_id": id,
		"data":     map[string]any{"name": "Ada"},
	}, false)
	if rec.Code != http.StatusCreated {
		t.Fatalf("check-in failed: %d %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, http.MethodPut, "/api/admin/events/"+id+"/fields", fields, true)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status 409 once locked, got %d", rec.Code)
	}
	if apiErr := decodeAPIError(t, rec); apiErr.Code != handlers.ErrCodeFieldsLocked {
		t.Errorf("expected %s, got %s", handlers.ErrCodeFieldsLocked, apiErr.Code)
	}
}

func TestHandleCheckInControlAndDeadline(t *testing.T) {
	ts := newTestSetup(t)
	id := ts.createEvent(t, map[string]any{"title": "Gala"})

	rec := ts.do(t, http.MethodPost, "/api/admin/events/"+id+"/checkin-control", map[string]any{"enabled": false}, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("checkin-control: %d", rec.Code)
	}
	ev, _ := ts.events.GetEvent(t.Context(), id)
	if ev.CheckInEnabled {
		t.Error("expected check-in to be disabled")
	}

	deadline := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	rec = ts.do(t, http.MethodPut, "/api/admin/events/"+id+"/deadline", map[string]any{"deadline": deadline}, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("deadline: %d", rec.Code)
	}
	ev, _ = ts.events.GetEvent(t.Context(), id)
	if ev.CheckInDeadline == nil || !ev.CheckInDeadline.Equal(deadline) {
		t.Errorf("deadline = %v", ev.CheckInDeadline)
	}

	rec = ts.do(t, http.MethodPut, "/api/admin/events/"+id+"/deadline", map[string]any{"deadline": nil}, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("clear deadline: %d", rec.Code)
	}
	ev, _ = ts.events.GetEvent(t.Context(), id)
	if ev.CheckInDeadline != nil {
		t.Errorf("expected deadline cleared, got %v", ev.CheckInDeadline)
	}
}

func TestHandleDeleteEvent(t *testing.T) {
	ts := newTestSetup(t)
	id := ts.createEvent(t, map[string]any{"title": "Gone soon"})

	rec := ts.do(t, http.MethodDelete, "/api/admin/events/"+id, nil, true)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}
	rec = ts.do(t, http.MethodDelete, "/api/admin/events/"+id, nil, true)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404 on second delete, got %d", rec.Code)
	}
}

func TestHandleCheckInURLAndQR(t *testing.T) {
	ts := newTestSetup(t)
	id := ts.createEvent(t, map[string]any{"title": "Launch"})

	rec := ts.do(t, http.MethodGet, "/api/admin/events/"+id+"/url", nil, true)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 without a base URL, got %d", rec.Code)
	}
	if apiErr := decodeAPIError(t, rec); apiErr.Code != handlers.ErrCodeBaseURLMissing {
		t.Errorf("expected %s, got %s", handlers.ErrCodeBaseURLMissing, apiErr.Code)
	}

	if err := ts.settings.SetBaseURL(t.Context(), "http://192.168.1.20:8080/"); err != nil {
		t.Fatal(err)
	}

	rec = ts.do(t, http.MethodGet, "/api/admin/events/"+id+"/url", nil, true)
	var resp handlers.CheckInURLResponse
	decode(t, rec, &resp)
	if want := "http://192.168.1.20:8080/checkin/" + id; resp.URL != want {
		t.Errorf("URL = %q, want %q", resp.URL, want)
	}

	rec = ts.do(t, http.MethodGet, "/api/admin/events/"+id+"/qr?size=200", nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("qr: %d %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Content-Type") != "image/png" {
		t.Errorf("content type = %q", rec.Header().Get("Content-Type"))
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")) {
		t.Error("expected PNG data")
	}

	for _, q := range []string{"size=abc", "size=64", "size=4096"} {
		rec = ts.do(t, http.MethodGet, "/api/admin/events/"+id+"/qr?"+q, nil, true)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected status 400, got %d", q, rec.Code)
		}
	}
}

func TestHandleCheckInsAndStats(t *testing.T) {
	ts := newTestSetup(t)
	id := ts.createEvent(t, map[string]any{"title": "Summit"})

	submissions := []map[string]any{
		{"event_id": id, "data": map[string]any{"name": "Ada", "email": "ada@example.com"},
			"location_data": map[string]any{"latitude": 51.5, "longitude": -0.12, "accuracy": 20}, "ip_address": "203.0.113.5"},
		{"event_id": id, "data": map[string]any{"name": "Grace", "email": "grace@example.com"}, "ip_address": "unknown"},
	}
	for _, s := range submissions {
		if rec := ts.do(t, http.MethodPost, "/api/checkin", s, false); rec.Code != http.StatusCreated {
			t.Fatalf("check-in: %d %s", rec.Code, rec.Body.String())
		}
	}

	rec := ts.do(t, http.MethodGet, "/api/admin/events/"+id+"/checkins", nil, true)
	var checkins []models.CheckIn
	decode(t, rec, &checkins)
	if len(checkins) != 2 {
		t.Fatalf("expected 2 check-ins, got %d", len(checkins))
	}
	// "unknown" is replaced with the request address
	if checkins[1].IPAddress != "192.0.2.1" {
		t.Errorf("expected request IP to be recorded, got %q", checkins[1].IPAddress)
	}

	rec = ts.do(t, http.MethodGet, "/api/admin/events/"+id+"/stats", nil, true)
	var stats models.CheckInStats
	decode(t, rec, &stats)
	if stats.Total != 2 || stats.WithLocation != 1 || stats.UnknownIP != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

// ==================== Templates ====================

func TestHandleTemplates_CRUD(t *testing.T) {
	ts := newTestSetup(t)

	custom := forms.Template{
		ID:       "volunteer-shift",
		Name:     "Volunteer Shift",
		Category: forms.CategoryOther,
		Fields:   forms.DefaultFields(),
	}

	rec := ts.do(t, http.MethodPost, "/api/admin/templates", custom, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, http.MethodPost, "/api/admin/templates", custom, true)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate create: expected 409, got %d", rec.Code)
	}

	rec = ts.do(t, http.MethodGet, "/api/admin/templates", nil, true)
	var list []forms.Template
	decode(t, rec, &list)
	if len(list) != len(forms.Catalog())+1 {
		t.Errorf("expected catalog plus custom, got %d templates", len(list))
	}

	custom.Name = "Volunteer Shift (evening)"
	rec = ts.do(t, http.MethodPut, "/api/admin/templates/volunteer-shift", custom, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: %d %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, http.MethodGet, "/api/admin/templates/volunteer-shift", nil, true)
	var got forms.Template
	decode(t, rec, &got)
	if got.Name != "Volunteer Shift (evening)" {
		t.Errorf("name = %q", got.Name)
	}

	rec = ts.do(t, http.MethodDelete, "/api/admin/templates/volunteer-shift", nil, true)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete: expected 204, got %d", rec.Code)
	}
	rec = ts.do(t, http.MethodGet, "/api/admin/templates/volunteer-shift", nil, true)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete: expected 404, got %d", rec.Code)
	}
}

func TestHandleTemplates_SystemReadOnly(t *testing.T) {
	ts := newTestSetup(t)

	rec := ts.do(t, http.MethodDelete, "/api/admin/templates/corporate-meeting", nil, true)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", rec.Code)
	}
	if apiErr := decodeAPIError(t, rec); apiErr.Code != handlers.ErrCodeTemplateReadOnly {
		t.Errorf("expected %s, got %s", handlers.ErrCodeTemplateReadOnly, apiErr.Code)
	}
}

func TestHandleCreateTemplate_InvalidDefinition(t *testing.T) {
	ts := newTestSetup(t)

	rec := ts.do(t, http.MethodPost, "/api/admin/templates", map[string]any{
		"id": "broken", "name": "Broken", "category": "other",
		"fields": []map[string]any{{"id": "pick", "type": "select", "label": "Pick"}},
	}, true)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	if apiErr := decodeAPIError(t, rec); apiErr.Code != handlers.ErrCodeValidation {
		t.Errorf("expected %s, got %s", handlers.ErrCodeValidation, apiErr.Code)
	}
}

// ==================== Settings ====================

func TestHandleSettings(t *testing.T) {
	ts := newTestSetup(t)

	rec := ts.do(t, http.MethodPut, "/api/admin/settings", map[string]any{
		"base_url":        "https://checkin.example.org/",
		"checkin_message": "  Welcome! Badges are at the front desk.  ",
	}, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: %d %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, http.MethodGet, "/api/admin/settings", nil, true)
	var got handlers.SettingsResponse
	decode(t, rec, &got)
	if got.BaseURL != "https://checkin.example.org" {
		t.Errorf("base_url = %q", got.BaseURL)
	}
	if got.CheckInMessage != "Welcome! Badges are at the front desk." {
		t.Errorf("checkin_message = %q", got.CheckInMessage)
	}
}

func TestHandleUpdateSettings_RepositoryError(t *testing.T) {
	ts := newTestSetup(t)
	ts.repo.SetSettingError = errors.New("read-only database")

	rec := ts.do(t, http.MethodPost, "/api/admin/settings", map[string]any{"base_url": "http://x"}, true)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rec.Code)
	}
}

func TestHandleGetOverview(t *testing.T) {
	ts := newTestSetup(t)
	ts.createEvent(t, map[string]any{"title": "Open"})
	ts.createEvent(t, map[string]any{"title": "Closed", "checkin_enabled": false})

	rec := ts.do(t, http.MethodGet, "/api/admin/overview", nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var overview map[string]float64
	decode(t, rec, &overview)
	if overview["total_events"] != 2 || overview["open_events"] != 1 {
		t.Errorf("unexpected overview: %v", overview)
	}
}

func TestHandleResetDatabase(t *testing.T) {
	ts := newTestSetup(t)
	ts.createEvent(t, map[string]any{"title": "Old"})

	rec := ts.do(t, http.MethodPost, "/api/admin/reset-database", map[string]any{"tables": []string{"bogus"}}, true)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid table: expected 400, got %d", rec.Code)
	}

	rec = ts.do(t, http.MethodPost, "/api/admin/reset-database", map[string]any{"tables": []string{"events"}}, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("reset: %d %s", rec.Code, rec.Body.String())
	}
	events, _ := ts.events.ListEvents(t.Context())
	if len(events) != 0 {
		t.Errorf("expected no events after reset, got %d", len(events))
	}
}

// ==================== Pages ====================

func TestAdminPages(t *testing.T) {
	ts := newTestSetup(t)

	pages := map[string]string{
		"/admin":           "Dashboard Content",
		"/admin/events":    "Events Content",
		"/admin/templates": "Templates Content",
		"/admin/settings":  "Settings Content",
	}
	for path, want := range pages {
		rec := ts.do(t, http.MethodGet, path, nil, true)
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), want) {
			t.Errorf("%s: status %d body %q", path, rec.Code, rec.Body.String())
		}

		rec = ts.do(t, http.MethodGet, path, nil, false)
		if rec.Code != http.StatusFound || !strings.HasPrefix(rec.Header().Get("Location"), "/admin/login") {
			t.Errorf("%s unauthenticated: expected redirect to login, got %d", path, rec.Code)
		}
	}
}

func TestIndexAndStatic(t *testing.T) {
	ts := newTestSetup(t)

	rec := ts.do(t, http.MethodGet, "/", nil, false)
	if !strings.Contains(rec.Body.String(), "Index Page") {
		t.Errorf("unexpected index: %q", rec.Body.String())
	}

	rec = ts.do(t, http.MethodGet, "/static/css/app.css", nil, false)
	if rec.Code != http.StatusOK || rec.Body.String() != "body{}" {
		t.Errorf("static: %d %q", rec.Code, rec.Body.String())
	}
}
