package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"testing/fstest"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/abrezinsky/rollcall/internal/auth"
	"github.com/abrezinsky/rollcall/internal/checkin"
	"github.com/abrezinsky/rollcall/internal/handlers"
	"github.com/abrezinsky/rollcall/internal/logger"
	"github.com/abrezinsky/rollcall/internal/repository/mock"
	"github.com/abrezinsky/rollcall/internal/services"
	"github.com/abrezinsky/rollcall/internal/testutil"
	"github.com/abrezinsky/rollcall/internal/websocket"
	"github.com/abrezinsky/rollcall/pkg/iplookup"
)

func testTemplatesFS() fstest.MapFS {
	return fstest.MapFS{
		"index.html":       &fstest.MapFile{Data: []byte(`<html><body><h1>Index Page</h1></body></html>`)},
		"admin/login.html": &fstest.MapFile{Data: []byte(`<html><body><h1>Login Page</h1>{{with .Error}}<p>{{.}}</p>{{end}}</body></html>`)},
		"admin/layout.html": &fstest.MapFile{
			Data: []byte(`{{define "admin"}}<html><body><h1>{{.PageTitle}}</h1>{{template "content" .}}</body></html>{{end}}`),
		},
		"admin/dashboard.html": &fstest.MapFile{Data: []byte(`{{define "content"}}<div>Dashboard Content</div>{{end}}`)},
		"admin/events.html":    &fstest.MapFile{Data: []byte(`{{define "content"}}<div>Events Content</div>{{end}}`)},
		"admin/templates.html": &fstest.MapFile{Data: []byte(`{{define "content"}}<div>Templates Content</div>{{end}}`)},
		"admin/settings.html":  &fstest.MapFile{Data: []byte(`{{define "content"}}<div>Settings Content</div>{{end}}`)},
		"checkin/layout.html": &fstest.MapFile{
			Data: []byte(`{{define "checkin"}}<html><body>{{template "content" .}}</body></html>{{end}}`),
		},
		"checkin/form.html": &fstest.MapFile{Data: []byte(`{{define "content"}}<h1>{{.Event.Title}}</h1>
<p class="message">{{.Message}}</p>
<form method="post"><input type="hidden" name="session" value="{{.Session}}">
<p class="notice">{{.Notice}}</p><p class="location">{{.LocationNotice}}</p>
{{range .Fields}}{{.}}{{end}}
<span class="step">Step {{.Step}} of {{.StepCount}}</span>{{if .IsLastStep}}<button name="action" value="submit">Check in</button>{{end}}
</form>{{end}}`)},
		"checkin/done.html":        &fstest.MapFile{Data: []byte(`{{define "content"}}<h1>Checked in to {{.Event.Title}}</h1>{{with .Receipt}}<p class="receipt">{{.ID}}</p>{{end}}{{end}}`)},
		"checkin/unavailable.html": &fstest.MapFile{Data: []byte(`{{define "content"}}<h1>{{.Title}}</h1><p class="reason">{{.Message}}</p>{{end}}`)},
	}
}

// testSetup creates all the dependencies needed for testing handlers
type testSetup struct {
	repo       *mock.Repository
	events     *services.EventService
	checkIns   *services.CheckInService
	settings   *services.SettingsService
	handlers   *handlers.Handlers
	router     chi.Router
	authCookie *http.Cookie
	ipLookup   *iplookup.MockClient
}

// newTestSetup builds handlers over an in-memory repository wrapped in the
// error-injecting mock
func newTestSetup(t *testing.T) *testSetup {
	t.Helper()

	repo := mock.NewRepository(testutil.NewTestRepository(t))
	log := logger.New()

	settingsService := services.NewSettingsService(log, repo)
	templateService := services.NewTemplateService(log, repo)
	eventService := services.NewEventService(log, repo, templateService, settingsService)
	checkInService := services.NewCheckInService(log, repo)

	hub := websocket.New(log, eventService)
	hub.Start()
	eventService.SetBroadcaster(hub)
	checkInService.SetBroadcaster(hub)

	flow := checkin.NewFlow(log, checkin.NewLocal(checkInService), checkin.Options{
		GeoTimeout: 50 * time.Millisecond,
		IPTimeout:  50 * time.Millisecond,
	})
	ipLookup := iplookup.NewMockClient(iplookup.WithIP("198.51.100.7"))
	adminAuth := auth.New("test-password")

	h, err := handlers.New(
		handlers.Services{
			Events:    eventService,
			Templates: templateService,
			CheckIn:   checkInService,
			Settings:  settingsService,
		},
		flow,
		checkin.NewStore(0),
		ipLookup,
		testTemplatesFS(),
		handlers.NewStaticServer(fstest.MapFS{"css/app.css": &fstest.MapFile{Data: []byte("body{}")}}),
		adminAuth,
		hub,
		handlers.NoopHTTPLogger{},
	)
	if err != nil {
		t.Fatalf("failed to create handlers: %v", err)
	}

	token, _ := adminAuth.Login("test-password")
	return &testSetup{
		repo:       repo,
		events:     eventService,
		checkIns:   checkInService,
		settings:   settingsService,
		handlers:   h,
		router:     h.Router(),
		authCookie: &http.Cookie{Name: auth.CookieName, Value: token},
		ipLookup:   ipLookup,
	}
}

// do sends a request through the router, JSON-encoding body when non-nil
func (ts *testSetup) do(t *testing.T, method, path string, body any, authed bool) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != nil {
		if s, ok := body.(string); ok {
			r = bytes.NewBufferString(s)
		} else {
			buf, err := json.Marshal(body)
			if err != nil {
				t.Fatalf("marshal body: %v", err)
			}
			r = bytes.NewReader(buf)
		}
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.AddCookie(ts.authCookie)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

// createEvent creates an event through the API and returns its id
func (ts *testSetup) createEvent(t *testing.T, body map[string]any) string {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/admin/events", body, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create event: status %d: %s", rec.Code, rec.Body.String())
	}
	var ev struct {
		ID string `json:"id"`
	}
	decode(t, rec, &ev)
	return ev.ID
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func decodeAPIError(t *testing.T, rec *httptest.ResponseRecorder) handlers.APIError {
	t.Helper()
	var apiErr handlers.APIError
	decode(t, rec, &apiErr)
	return apiErr
}

var sessionPattern = regexp.MustCompile(`name="session" value="([^"]+)"`)

// sessionToken pulls the form session token out of a rendered check-in page
func sessionToken(t *testing.T, body string) string {
	t.Helper()
	m := sessionPattern.FindStringSubmatch(body)
	if m == nil {
		t.Fatalf("no session token in page: %s", body)
	}
	return m[1]
}
