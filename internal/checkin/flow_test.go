package checkin

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/abrezinsky/rollcall/internal/forms"
	"github.com/abrezinsky/rollcall/internal/logger"
	"github.com/abrezinsky/rollcall/internal/models"
)

// fakeBoundary serves one event and records submissions
type fakeBoundary struct {
	mu        sync.Mutex
	event     *models.PublicEvent
	eventErr  error
	submitErr error
	requests  []models.CheckInRequest
}

func (b *fakeBoundary) Event(_ context.Context, eventID string) (*models.PublicEvent, error) {
	if b.eventErr != nil {
		return nil, b.eventErr
	}
	ev := *b.event
	return &ev, nil
}

func (b *fakeBoundary) Submit(_ context.Context, req models.CheckInRequest) (*models.CheckInReceipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, req)
	if b.submitErr != nil {
		return nil, b.submitErr
	}
	return &models.CheckInReceipt{ID: "c-1", EventID: req.EventID, CheckedInAt: req.Timestamp}, nil
}

func (b *fakeBoundary) Requests() []models.CheckInRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.CheckInRequest(nil), b.requests...)
}

type geoFunc func(ctx context.Context) (*models.Location, error)

func (g geoFunc) Locate(ctx context.Context) (*models.Location, error) { return g(ctx) }

type ipFunc func(ctx context.Context) (string, error)

func (f ipFunc) ResolveIP(ctx context.Context) (string, error) { return f(ctx) }

func blockingGeo(ctx context.Context) (*models.Location, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func fixedIP(ip string) IPResolver {
	return ipFunc(func(context.Context) (string, error) { return ip, nil })
}

func failingIP() IPResolver {
	return ipFunc(func(context.Context) (string, error) { return "", errors.New("lookup failed") })
}

func openEvent() *models.PublicEvent {
	return &models.PublicEvent{
		ID:             "evt-1",
		Title:          "Open House",
		CheckInEnabled: true,
		ParticipantFields: append(forms.DefaultFields(),
			forms.FieldDefinition{ID: "company", Type: forms.TypeText, Label: "Company"}),
	}
}

func newTestFlow(b Boundary) *Flow {
	return NewFlow(logger.New(), b, Options{GeoTimeout: 50 * time.Millisecond, IPTimeout: 50 * time.Millisecond})
}

func waitSettled(t *testing.T, s *Session) {
	t.Helper()
	select {
	case <-s.Settled():
	case <-time.After(2 * time.Second):
		t.Fatal("side channels did not settle")
	}
}

func fillValid(t *testing.T, s *Session) {
	t.Helper()
	if err := s.Form().SetText("name", "Ada Lovelace"); err != nil {
		t.Fatalf("SetText name: %v", err)
	}
	if err := s.Form().SetText("email", "ada@example.com"); err != nil {
		t.Fatalf("SetText email: %v", err)
	}
}

func TestStart_UnavailableEventNeverBuildsForm(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)

	disabled := openEvent()
	disabled.CheckInEnabled = false
	expired := openEvent()
	expired.CheckInDeadline = &past

	tests := []struct {
		name     string
		boundary *fakeBoundary
		want     FailureKind
	}{
		{"disabled", &fakeBoundary{event: disabled}, FailureDisabled},
		{"deadline passed", &fakeBoundary{event: expired}, FailureDeadlinePassed},
		{"not found", &fakeBoundary{eventErr: &BoundaryError{Kind: FailureNotFound, Message: "event not found"}}, FailureNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flow := newTestFlow(tt.boundary)
			flow.SetClock(func() time.Time { return now })
			built := false
			flow.newForm = func(fields []forms.FieldDefinition) *forms.Form {
				built = true
				return forms.NewForm(fields)
			}

			s, err := flow.Start(context.Background(), "evt-1", NewBrowserGeo(), fixedIP("203.0.113.1"))
			if s != nil {
				t.Fatal("expected no session")
			}
			var be *BoundaryError
			if !errors.As(err, &be) || be.Kind != tt.want || !be.Terminal() {
				t.Fatalf("expected terminal %s, got %v", tt.want, err)
			}
			if built {
				t.Error("form engine was invoked for an unavailable event")
			}
		})
	}
}

func TestStart_TransportErrorIsServerFailure(t *testing.T) {
	flow := newTestFlow(&fakeBoundary{eventErr: errors.New("connection refused")})
	_, err := flow.Start(context.Background(), "evt-1", nil, nil)
	var be *BoundaryError
	if !errors.As(err, &be) || be.Kind != FailureServer || be.Terminal() {
		t.Errorf("expected retryable server failure, got %v", err)
	}
}

func TestSession_GeolocationDeniedStillSubmits(t *testing.T) {
	b := &fakeBoundary{event: openEvent()}
	flow := NewFlow(logger.New(), b, Options{GeoTimeout: 5 * time.Second})
	s, err := flow.Start(context.Background(), "evt-1", NewBrowserGeo(), fixedIP("203.0.113.7"))
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer s.Close()

	if !s.ReportLocation(nil, GeoPermissionDenied) {
		t.Fatal("report was not accepted")
	}
	waitSettled(t, s)
	if s.LocationNotice() != GeoPermissionDenied.Notice() {
		t.Errorf("notice = %q", s.LocationNotice())
	}

	fillValid(t, s)
	receipt, err := s.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if receipt == nil || s.State() != StateCompleted || s.Form().Phase() != forms.PhaseSubmitted {
		t.Errorf("expected completed session, state=%v phase=%v", s.State(), s.Form().Phase())
	}

	reqs := b.Requests()
	if len(reqs) != 1 {
		t.Fatalf("expected 1 request, got %d", len(reqs))
	}
	if reqs[0].Location != nil {
		t.Errorf("location_data = %+v, want nil", reqs[0].Location)
	}
	if reqs[0].IPAddress != "203.0.113.7" {
		t.Errorf("ip = %q", reqs[0].IPAddress)
	}

	// The same session refuses a second submission
	if _, err := s.Submit(context.Background()); !errors.Is(err, forms.ErrAlreadySubmitted) {
		t.Errorf("expected ErrAlreadySubmitted, got %v", err)
	}
	if len(b.Requests()) != 1 {
		t.Error("second submit reached the boundary")
	}
}

func TestSession_PayloadCoversEveryFieldWhenSideChannelsFail(t *testing.T) {
	b := &fakeBoundary{event: openEvent()}
	s, err := newTestFlow(b).Start(context.Background(), "evt-1", geoFunc(blockingGeo), failingIP())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer s.Close()
	waitSettled(t, s)

	if s.LocationNotice() != GeoTimeout.Notice() {
		t.Errorf("expected timeout notice, got %q", s.LocationNotice())
	}

	fillValid(t, s)
	if _, err := s.Submit(context.Background()); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	req := b.Requests()[0]
	for _, fd := range openEvent().ParticipantFields {
		if _, ok := req.Data[fd.ID]; !ok {
			t.Errorf("payload missing field %q", fd.ID)
		}
	}
	if string(req.Data["company"]) != "null" {
		t.Errorf("unset field = %s, want null", req.Data["company"])
	}
	if req.Location != nil || req.IPAddress != models.UnknownIP {
		t.Errorf("expected no location and unknown ip, got %+v %q", req.Location, req.IPAddress)
	}
	if req.Name != "Ada Lovelace" || req.Email != "ada@example.com" {
		t.Errorf("identity = %q %q", req.Name, req.Email)
	}
}

func TestSession_SubmitBeforeSideChannelsSettle(t *testing.T) {
	b := &fakeBoundary{event: openEvent()}
	flow := NewFlow(logger.New(), b, Options{GeoTimeout: time.Minute, IPTimeout: time.Minute})
	never := ipFunc(func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	s, err := flow.Start(context.Background(), "evt-1", geoFunc(blockingGeo), never)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	fillValid(t, s)
	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background())
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Submit waited on the side channels")
	}
	if req := b.Requests()[0]; req.IPAddress != models.UnknownIP || req.Location != nil {
		t.Errorf("unexpected side-channel data: %+v", req)
	}

	// Completing the session releases the pending side channels
	waitSettled(t, s)
}

func TestSession_LocationCaptured(t *testing.T) {
	b := &fakeBoundary{event: openEvent()}
	loc := &models.Location{Latitude: 51.5, Longitude: -0.12, Accuracy: 25}
	geo := geoFunc(func(context.Context) (*models.Location, error) { return loc, nil })

	s, err := newTestFlow(b).Start(context.Background(), "evt-1", geo, fixedIP("198.51.100.2"))
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer s.Close()
	waitSettled(t, s)

	if got := s.Location(); got == nil || *got != *loc {
		t.Errorf("location = %+v", got)
	}
	if s.LocationNotice() != "" {
		t.Errorf("unexpected notice %q", s.LocationNotice())
	}

	fillValid(t, s)
	s.Submit(context.Background())
	if got := b.Requests()[0].Location; got == nil || got.Latitude != 51.5 {
		t.Errorf("submitted location = %+v", got)
	}
}

func TestSession_NoGeoSourceIsUnsupported(t *testing.T) {
	s, err := newTestFlow(&fakeBoundary{event: openEvent()}).Start(context.Background(), "evt-1", nil, nil)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer s.Close()
	waitSettled(t, s)
	if s.LocationNotice() != GeoUnsupported.Notice() {
		t.Errorf("notice = %q", s.LocationNotice())
	}
	if s.ReportLocation(&models.Location{}, "") {
		t.Error("session without a browser source accepted a report")
	}
	if s.IPAddress() != models.UnknownIP {
		t.Errorf("ip = %q", s.IPAddress())
	}
}

func TestSession_LocalValidationNeverReachesBoundary(t *testing.T) {
	b := &fakeBoundary{event: openEvent()}
	s, _ := newTestFlow(b).Start(context.Background(), "evt-1", nil, nil)
	defer s.Close()

	s.Form().SetText("email", "ada@example.com")
	_, err := s.Submit(context.Background())
	var verr *forms.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if s.Form().Phase() != forms.PhaseBlocked || s.State() != StateActive {
		t.Errorf("phase=%v state=%v", s.Form().Phase(), s.State())
	}
	if s.Notice() != "Please fix the following fields: Full Name" {
		t.Errorf("notice = %q", s.Notice())
	}
	if len(b.Requests()) != 0 {
		t.Error("invalid form was submitted")
	}
}

func TestSession_RetryableFailureKeepsValues(t *testing.T) {
	b := &fakeBoundary{event: openEvent(), submitErr: &BoundaryError{Kind: FailureServer, Err: errors.New("502")}}
	s, _ := newTestFlow(b).Start(context.Background(), "evt-1", nil, nil)
	defer s.Close()

	fillValid(t, s)
	s.Form().SetText("company", "Analytical Engines")
	if _, err := s.Submit(context.Background()); err == nil {
		t.Fatal("expected failure")
	}
	if s.State() != StateActive || s.Form().Phase() != forms.PhaseCollecting {
		t.Errorf("state=%v phase=%v", s.State(), s.Form().Phase())
	}
	if s.Notice() != forms.MsgSubmitFailed {
		t.Errorf("notice = %q", s.Notice())
	}
	if s.Form().Value("company").Text() != "Analytical Engines" {
		t.Error("values were lost")
	}

	// Retry succeeds
	b.mu.Lock()
	b.submitErr = nil
	b.mu.Unlock()
	if _, err := s.Submit(context.Background()); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if s.Notice() != "" {
		t.Errorf("notice after success = %q", s.Notice())
	}
}

func TestSession_BoundaryMessageShownVerbatim(t *testing.T) {
	b := &fakeBoundary{event: openEvent(), submitErr: &BoundaryError{Kind: FailureValidation, Message: "location_data is out of range"}}
	s, _ := newTestFlow(b).Start(context.Background(), "evt-1", nil, nil)
	defer s.Close()

	fillValid(t, s)
	s.Submit(context.Background())
	if s.Notice() != "location_data is out of range" {
		t.Errorf("notice = %q", s.Notice())
	}
	if s.State() != StateActive {
		t.Errorf("state = %v", s.State())
	}
}

func TestSession_RemoteFieldErrorsBlockForm(t *testing.T) {
	remote := &forms.ValidationError{Problems: []*forms.FieldError{
		{FieldID: "email", Label: "Email Address", Message: "Please enter a valid email address"},
	}}
	b := &fakeBoundary{event: openEvent(), submitErr: &BoundaryError{Kind: FailureValidation, Message: remote.Error(), Err: remote}}
	s, _ := newTestFlow(b).Start(context.Background(), "evt-1", nil, nil)
	defer s.Close()

	fillValid(t, s)
	s.Submit(context.Background())
	if s.Form().Phase() != forms.PhaseBlocked {
		t.Errorf("phase = %v", s.Form().Phase())
	}
	if s.Form().Errors()["email"] != "Please enter a valid email address" {
		t.Errorf("errors = %v", s.Form().Errors())
	}
	if s.Notice() != "Please fix the following fields: Email Address" {
		t.Errorf("notice = %q", s.Notice())
	}
}

func TestSession_TerminalFailureClosesSession(t *testing.T) {
	b := &fakeBoundary{event: openEvent(), submitErr: &BoundaryError{Kind: FailureDeadlinePassed, Message: "The check-in deadline for this event has passed"}}
	s, _ := newTestFlow(b).Start(context.Background(), "evt-1", nil, nil)

	fillValid(t, s)
	if _, err := s.Submit(context.Background()); err == nil {
		t.Fatal("expected failure")
	}
	if s.State() != StateClosed {
		t.Errorf("state = %v", s.State())
	}
	if s.CloseReason() != "The check-in deadline for this event has passed" {
		t.Errorf("reason = %q", s.CloseReason())
	}
	if _, err := s.Submit(context.Background()); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("expected ErrSessionClosed, got %v", err)
	}
	if len(b.Requests()) != 1 {
		t.Error("closed session reached the boundary again")
	}
}

func TestSession_CloseStopsSideChannels(t *testing.T) {
	flow := NewFlow(logger.New(), &fakeBoundary{event: openEvent()}, Options{GeoTimeout: time.Hour, IPTimeout: time.Hour})
	never := ipFunc(func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	s, err := flow.Start(context.Background(), "evt-1", geoFunc(blockingGeo), never)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	s.Close()
	waitSettled(t, s)
	if s.State() != StateClosed {
		t.Errorf("state = %v", s.State())
	}
}

func TestState_String(t *testing.T) {
	for state, want := range map[State]string{
		StateActive: "active", StateCompleted: "completed", StateClosed: "closed", State(9): "unknown",
	} {
		if got := state.String(); got != want {
			t.Errorf("%d: got %q, want %q", state, got, want)
		}
	}
}
