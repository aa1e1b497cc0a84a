package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	apperrors "github.com/abrezinsky/rollcall/internal/errors"
	"github.com/abrezinsky/rollcall/internal/forms"
	"github.com/abrezinsky/rollcall/internal/logger"
	"github.com/abrezinsky/rollcall/internal/models"
	"github.com/abrezinsky/rollcall/internal/repository/mock"
	"github.com/abrezinsky/rollcall/internal/services"
	"github.com/abrezinsky/rollcall/internal/testutil"
)

// checkInRequest builds a request with name and email plus any extra fields
func checkInRequest(eventID, name, email string, extra map[string]any) models.CheckInRequest {
	data := map[string]json.RawMessage{}
	add := func(k string, v any) {
		raw, _ := json.Marshal(v)
		data[k] = raw
	}
	add("name", name)
	add("email", email)
	for k, v := range extra {
		add(k, v)
	}
	return models.CheckInRequest{EventID: eventID, Data: data}
}

type checkInFixture struct {
	events   *services.EventService
	checkins *services.CheckInService
	mockRepo *mock.Repository
	b        *recordingBroadcaster
}

func newCheckInFixture(t *testing.T) *checkInFixture {
	t.Helper()
	mockRepo := mock.NewRepository(testutil.NewTestRepository(t))
	events, _ := newEventService(t, mockRepo)
	checkins := services.NewCheckInService(logger.New(), mockRepo)
	b := &recordingBroadcaster{}
	checkins.SetBroadcaster(b)
	return &checkInFixture{events: events, checkins: checkins, mockRepo: mockRepo, b: b}
}

func TestCheckInService_PublicEvent(t *testing.T) {
	f := newCheckInFixture(t)
	ctx := context.Background()

	e, _ := f.events.CreateEvent(ctx, services.EventInput{Title: "Launch Party", TemplateID: "networking-mixer"})
	pub, err := f.checkins.PublicEvent(ctx, e.ID)
	if err != nil {
		t.Fatalf("PublicEvent failed: %v", err)
	}
	if pub.ID != e.ID || pub.Title != "Launch Party" || len(pub.ParticipantFields) != len(e.ParticipantFields) {
		t.Errorf("unexpected projection: %+v", pub)
	}

	if _, err := f.checkins.PublicEvent(ctx, "missing"); err != services.ErrEventNotFound {
		t.Errorf("expected ErrEventNotFound, got %v", err)
	}
	f.mockRepo.GetEventError = errors.New("database error")
	if _, err := f.checkins.PublicEvent(ctx, e.ID); err == nil {
		t.Error("expected database error")
	}
}

func TestCheckInService_Submit(t *testing.T) {
	f := newCheckInFixture(t)
	ctx := context.Background()

	e, _ := f.events.CreateEvent(ctx, services.EventInput{Title: "All Hands", TemplateID: "corporate-meeting"})
	req := checkInRequest(e.ID, "Grace Hopper", "grace@example.com", map[string]any{
		"employee_id": "GH-1906",
		"department":  "engineering",
		"ignored_key": "dropped",
	})
	req.Location = &models.Location{Latitude: 38.89, Longitude: -77.03, Accuracy: 12}
	req.IPAddress = "203.0.113.9"

	receipt, err := f.checkins.SubmitCheckIn(ctx, req)
	if err != nil {
		t.Fatalf("SubmitCheckIn failed: %v", err)
	}
	if receipt.ID == "" || receipt.EventID != e.ID {
		t.Errorf("unexpected receipt: %+v", receipt)
	}

	list, _ := f.events.ListCheckIns(ctx, e.ID)
	if len(list) != 1 {
		t.Fatalf("expected 1 check-in, got %d", len(list))
	}
	c := list[0]
	if c.Name != "Grace Hopper" || c.Email != "grace@example.com" || c.IPAddress != "203.0.113.9" {
		t.Errorf("unexpected check-in: %+v", c)
	}
	if c.Location == nil || c.Location.Accuracy != 12 {
		t.Errorf("location not stored: %+v", c.Location)
	}

	var stored map[string]any
	if err := json.Unmarshal(c.Data, &stored); err != nil {
		t.Fatalf("stored data is not JSON: %v", err)
	}
	// Every field id is present, unset ones as null
	for _, fd := range e.ParticipantFields {
		if _, ok := stored[fd.ID]; !ok {
			t.Errorf("stored data missing %q", fd.ID)
		}
	}
	if stored["phone"] != nil {
		t.Errorf("phone = %v, want null", stored["phone"])
	}
	if _, ok := stored["ignored_key"]; ok {
		t.Error("unknown keys should be dropped")
	}

	if got := f.b.CheckIns(); len(got) != 1 || got[0].ID != receipt.ID {
		t.Errorf("expected one broadcast, got %d", len(got))
	}
}

func TestCheckInService_Submit_ValidationFailure(t *testing.T) {
	f := newCheckInFixture(t)
	ctx := context.Background()

	e, _ := f.events.CreateEvent(ctx, services.EventInput{Title: "All Hands", TemplateID: "corporate-meeting"})
	req := checkInRequest(e.ID, "", "not-an-email", map[string]any{"employee_id": "!!", "department": "engineering"})

	_, err := f.checkins.SubmitCheckIn(ctx, req)
	var verr *forms.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	fields := verr.Fields()
	if fields["name"] != "Full Name is required" {
		t.Errorf("name error = %q", fields["name"])
	}
	if fields["email"] != "Please enter a valid email address" {
		t.Errorf("email error = %q", fields["email"])
	}
	if fields["employee_id"] != "Employee ID must be 3-20 letters, digits or dashes" {
		t.Errorf("employee_id error = %q", fields["employee_id"])
	}
	if _, ok := fields["department"]; ok {
		t.Error("department should pass")
	}

	if n, _ := f.mockRepo.CountCheckIns(ctx, e.ID); n != 0 {
		t.Errorf("invalid submission was stored")
	}
	if len(f.b.CheckIns()) != 0 {
		t.Error("invalid submission was broadcast")
	}
}

func TestCheckInService_Submit_Boundaries(t *testing.T) {
	f := newCheckInFixture(t)
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	f.checkins.SetClock(func() time.Time { return now })

	closed, _ := f.events.CreateEvent(ctx, services.EventInput{Title: "Closed", CheckInEnabled: boolPtr(false)})
	past := now.Add(-time.Minute)
	late, _ := f.events.CreateEvent(ctx, services.EventInput{Title: "Late", CheckInDeadline: &past})

	tests := []struct {
		name    string
		eventID string
		want    error
	}{
		{"missing event", "missing", services.ErrEventNotFound},
		{"disabled", closed.ID, services.ErrCheckInDisabled},
		{"deadline passed", late.ID, services.ErrDeadlinePassed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.checkins.SubmitCheckIn(ctx, checkInRequest(tt.eventID, "Ada", "ada@example.com", nil))
			if err != tt.want {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCheckInService_Submit_NonFiniteGrade(t *testing.T) {
	f := newCheckInFixture(t)
	ctx := context.Background()
	e, _ := f.events.CreateEvent(ctx, services.EventInput{Title: "Workshop", TemplateID: "academic-workshop"})

	for _, raw := range []any{"NaN", "Inf", "-Inf", "nan"} {
		req := checkInRequest(e.ID, "Ada", "ada@example.com", map[string]any{
			"student_id": "S-1",
			"grade":      raw,
		})
		_, err := f.checkins.SubmitCheckIn(ctx, req)
		var verr *forms.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("grade %v: expected ValidationError, got %v", raw, err)
		}
		if got := verr.Fields()["grade"]; got != "Grade must be a number" {
			t.Errorf("grade %v: error = %q", raw, got)
		}
	}
	if n, _ := f.mockRepo.CountCheckIns(ctx, e.ID); n != 0 {
		t.Errorf("non-finite grade was stored")
	}
}

func TestCheckInService_Submit_ReadOnlyFieldsKeepDefault(t *testing.T) {
	f := newCheckInFixture(t)
	ctx := context.Background()
	fields := append(forms.DefaultFields(),
		forms.FieldDefinition{ID: "ticket", Type: forms.TypeText, Label: "Ticket", Required: true,
			ReadOnly: true, DefaultValue: "GENERAL"},
		forms.FieldDefinition{ID: "note", Type: forms.TypeText, Label: "Note", ReadOnly: true},
	)
	e, err := f.events.CreateEvent(ctx, services.EventInput{Title: "Gala", Fields: fields})
	if err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	req := checkInRequest(e.ID, "Ada", "ada@example.com", map[string]any{
		"ticket": "VIP",
		"note":   "let me in",
	})
	if _, err := f.checkins.SubmitCheckIn(ctx, req); err != nil {
		t.Fatalf("SubmitCheckIn failed: %v", err)
	}

	list, _ := f.events.ListCheckIns(ctx, e.ID)
	if len(list) != 1 {
		t.Fatalf("expected 1 check-in, got %d", len(list))
	}
	var stored map[string]any
	if err := json.Unmarshal(list[0].Data, &stored); err != nil {
		t.Fatalf("stored data is not JSON: %v", err)
	}
	if stored["ticket"] != "GENERAL" {
		t.Errorf("ticket = %v, want GENERAL", stored["ticket"])
	}
	if stored["note"] != nil {
		t.Errorf("note = %v, want null", stored["note"])
	}
}

func TestCheckInService_Submit_BadInput(t *testing.T) {
	f := newCheckInFixture(t)
	ctx := context.Background()
	e, _ := f.events.CreateEvent(ctx, services.EventInput{Title: "Open"})

	req := checkInRequest(e.ID, "Ada", "ada@example.com", nil)
	req.Data["name"] = json.RawMessage(`{"first":"Ada"}`)
	_, err := f.checkins.SubmitCheckIn(ctx, req)
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperrors.ErrInvalidInput {
		t.Errorf("expected invalid input for object value, got %v", err)
	}

	for _, loc := range []*models.Location{
		{Latitude: 91},
		{Longitude: -181},
		{Accuracy: -1},
		{Latitude: math.NaN()},
		{Longitude: math.Inf(1)},
	} {
		req := checkInRequest(e.ID, "Ada", "ada@example.com", nil)
		req.Location = loc
		_, err := f.checkins.SubmitCheckIn(ctx, req)
		if !errors.As(err, &appErr) || appErr.Kind != apperrors.ErrInvalidInput {
			t.Errorf("location %+v: expected invalid input, got %v", loc, err)
		}
	}
}

func TestCheckInService_Submit_UnknownIPAndTimestamp(t *testing.T) {
	f := newCheckInFixture(t)
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	f.checkins.SetClock(func() time.Time { return now })

	e, _ := f.events.CreateEvent(ctx, services.EventInput{Title: "Open"})

	tests := []struct {
		name      string
		timestamp time.Time
		want      time.Time
	}{
		{"no timestamp", time.Time{}, now},
		{"recent timestamp kept", now.Add(-time.Minute), now.Add(-time.Minute)},
		{"future timestamp replaced", now.Add(time.Hour), now},
		{"stale timestamp replaced", now.Add(-time.Hour), now},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := checkInRequest(e.ID, "Ada", "ada@example.com", nil)
			req.Timestamp = tt.timestamp
			receipt, err := f.checkins.SubmitCheckIn(ctx, req)
			if err != nil {
				t.Fatalf("SubmitCheckIn failed: %v", err)
			}
			if !receipt.CheckedInAt.Equal(tt.want) {
				t.Errorf("CheckedInAt = %v, want %v", receipt.CheckedInAt, tt.want)
			}
		})
	}

	stats, err := f.events.Stats(ctx, e.ID)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total != 4 || stats.UnknownIP != 4 || stats.WithLocation != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestCheckInService_Submit_NameAndEmailFromRequest(t *testing.T) {
	f := newCheckInFixture(t)
	ctx := context.Background()
	e, _ := f.events.CreateEvent(ctx, services.EventInput{Title: "Open"})

	req := checkInRequest(e.ID, "Data Name", "data@example.com", nil)
	req.Name = "  Display Name "
	if _, err := f.checkins.SubmitCheckIn(ctx, req); err != nil {
		t.Fatalf("SubmitCheckIn failed: %v", err)
	}
	list, _ := f.events.ListCheckIns(ctx, e.ID)
	if list[0].Name != "Display Name" || list[0].Email != "data@example.com" {
		t.Errorf("unexpected identity: %q %q", list[0].Name, list[0].Email)
	}
}

func TestCheckInService_Submit_StoreError(t *testing.T) {
	f := newCheckInFixture(t)
	ctx := context.Background()
	e, _ := f.events.CreateEvent(ctx, services.EventInput{Title: "Open"})

	f.mockRepo.CreateCheckInError = errors.New("disk full")
	if _, err := f.checkins.SubmitCheckIn(ctx, checkInRequest(e.ID, "Ada", "ada@example.com", nil)); err == nil {
		t.Error("expected store error")
	}
	if len(f.b.CheckIns()) != 0 {
		t.Error("failed check-in was broadcast")
	}
}
