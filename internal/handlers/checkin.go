package handlers

import (
	stderrors "errors"
	"html/template"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/abrezinsky/rollcall/internal/checkin"
	"github.com/abrezinsky/rollcall/internal/forms"
	"github.com/abrezinsky/rollcall/internal/models"
)

// maxUploadMemory bounds the multipart form kept in memory per request
const maxUploadMemory = 32 << 20

const msgUnavailable = "Check-in is unavailable right now. Please try again later."

// CheckInPageData is what the check-in form template sees
type CheckInPageData struct {
	Event          *models.PublicEvent
	Session        string
	Message        string
	Fields         []template.HTML
	Step           int
	StepCount      int
	IsFirstStep    bool
	IsLastStep     bool
	Notice         string
	LocationNotice string
}

// CheckInDonePageData is what the confirmation template sees
type CheckInDonePageData struct {
	Event          *models.PublicEvent
	Receipt        *models.CheckInReceipt
	Message        string
	LocationNotice string
}

// UnavailablePageData is what the terminal page template sees
type UnavailablePageData struct {
	Title   string
	Message string
}

// ==================== Public API ====================

func (h *Handlers) handleGetPublicEvent(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	event, err := h.CheckIn.PublicEvent(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, event)
}

func (h *Handlers) handleSubmitCheckIn(w http.ResponseWriter, r *http.Request) {
	var req models.CheckInRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	if req.IPAddress == "" || req.IPAddress == models.UnknownIP {
		resolver := checkin.RequestIPResolver{RemoteAddr: r.RemoteAddr}
		if ip, err := resolver.ResolveIP(r.Context()); err == nil {
			req.IPAddress = ip
		}
	}

	receipt, err := h.CheckIn.SubmitCheckIn(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respondCreated(w, receipt)
}

// ==================== Check-in Pages ====================

func (h *Handlers) handleCheckInPage(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")

	ip := checkin.RequestIPResolver{RemoteAddr: r.RemoteAddr, Lookup: h.IPLookup}
	sess, err := h.Flow.Start(r.Context(), eventID, checkin.NewBrowserGeo(), ip)
	if err != nil {
		h.renderUnavailable(w, err)
		return
	}
	h.Sessions.Put(sess)
	h.renderCheckIn(w, r, sess, http.StatusOK)
}

func (h *Handlers) handleCheckInPost(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil && !stderrors.Is(err, http.ErrNotMultipart) {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}

	sess, ok := h.Sessions.Get(r.PostFormValue("session"))
	if !ok || sess.Event().ID != eventID {
		// Expired or foreign session: start over
		http.Redirect(w, r, "/checkin/"+url.PathEscape(eventID), http.StatusSeeOther)
		return
	}

	switch sess.State() {
	case checkin.StateCompleted:
		h.renderDone(w, r, sess)
		return
	case checkin.StateClosed:
		h.renderClosed(w, sess)
		return
	}

	h.bindPostedValues(r, sess.Form())

	switch r.PostFormValue("action") {
	case "back":
		if err := sess.Form().Back(); err != nil {
			h.debug("Check-in step back ignored", "event_id", eventID, "error", err)
		}
		h.renderCheckIn(w, r, sess, http.StatusOK)
	case "next":
		status := http.StatusOK
		if err := sess.Form().Next(); err != nil && !stderrors.Is(err, forms.ErrNoNextStep) {
			status = http.StatusUnprocessableEntity
		}
		h.renderCheckIn(w, r, sess, status)
	default:
		h.submitCheckIn(w, r, sess)
	}
}

func (h *Handlers) submitCheckIn(w http.ResponseWriter, r *http.Request, sess *checkin.Session) {
	_, err := sess.Submit(r.Context())
	var verr *forms.ValidationError
	switch {
	case err == nil, stderrors.Is(err, forms.ErrAlreadySubmitted):
		h.renderDone(w, r, sess)
	case sess.State() == checkin.StateClosed:
		h.renderClosed(w, sess)
	case stderrors.Is(err, forms.ErrSubmitInProgress):
		h.renderCheckIn(w, r, sess, http.StatusConflict)
	case stderrors.As(err, &verr):
		h.renderCheckIn(w, r, sess, http.StatusUnprocessableEntity)
	default:
		h.renderCheckIn(w, r, sess, http.StatusServiceUnavailable)
	}
}

func (h *Handlers) handleCheckInLocation(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")

	var report LocationReport
	if err := decodeJSON(r, &report); err != nil {
		respondError(w, err)
		return
	}

	sess, ok := h.Sessions.Get(report.Session)
	if !ok || sess.Event().ID != eventID {
		respondError(w, NotFound("Check-in session not found"))
		return
	}

	var loc *models.Location
	var failure checkin.GeoFailure
	if report.Error != "" || report.Latitude == nil || report.Longitude == nil {
		failure = checkin.ParseGeoFailure(report.Error)
	} else {
		loc = &models.Location{Latitude: *report.Latitude, Longitude: *report.Longitude, Accuracy: report.Accuracy}
		if !loc.Valid() {
			loc, failure = nil, checkin.GeoPositionUnavailable
		}
	}

	resp := LocationReportResponse{Accepted: sess.ReportLocation(loc, failure)}
	if failure != "" {
		resp.Notice = failure.Notice()
	}
	respondJSON(w, http.StatusAccepted, resp)
}

// bindPostedValues copies the current step's posted controls into the form.
// A file control left empty keeps the file chosen earlier.
func (h *Handlers) bindPostedValues(r *http.Request, form *forms.Form) {
	for _, fd := range form.StepFields() {
		if fd.ReadOnly {
			continue
		}
		if fd.Type == forms.TypeFile {
			if r.MultipartForm == nil {
				continue
			}
			files := r.MultipartForm.File[fd.ID]
			if len(files) == 0 || files[0].Filename == "" {
				continue
			}
			err := form.Set(fd.ID, forms.FileValue(forms.FileHandle{
				Name:        files[0].Filename,
				Size:        files[0].Size,
				ContentType: files[0].Header.Get("Content-Type"),
			}))
			if err != nil {
				h.debug("Posted file not bound", "field", fd.ID, "error", err)
			}
			continue
		}
		if _, posted := r.PostForm[fd.ID]; posted {
			if err := form.SetText(fd.ID, r.PostForm.Get(fd.ID)); err != nil {
				h.debug("Posted value not bound", "field", fd.ID, "error", err)
			}
		}
	}
}

func (h *Handlers) checkInMessage(r *http.Request) string {
	msg, _ := h.Settings.GetCheckInMessage(r.Context())
	return msg
}

func (h *Handlers) renderCheckIn(w http.ResponseWriter, r *http.Request, sess *checkin.Session, status int) {
	form := sess.Form()
	errs := form.Errors()
	stepFields := form.StepFields()

	data := CheckInPageData{
		Event:          sess.Event(),
		Session:        sess.Token(),
		Message:        h.checkInMessage(r),
		Fields:         make([]template.HTML, 0, len(stepFields)),
		Step:           form.Step() + 1,
		StepCount:      form.StepCount(),
		IsFirstStep:    form.Step() == 0,
		IsLastStep:     form.IsLastStep(),
		Notice:         sess.Notice(),
		LocationNotice: sess.LocationNotice(),
	}
	for _, fd := range stepFields {
		data.Fields = append(data.Fields, forms.Render(fd, form.Value(fd.ID), errs[fd.ID]))
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	h.templates.CheckIn.ExecuteTemplate(w, "checkin", data)
}

func (h *Handlers) renderDone(w http.ResponseWriter, r *http.Request, sess *checkin.Session) {
	data := CheckInDonePageData{
		Event:          sess.Event(),
		Receipt:        sess.Receipt(),
		Message:        h.checkInMessage(r),
		LocationNotice: sess.LocationNotice(),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	h.templates.CheckInDone.ExecuteTemplate(w, "checkin", data)
}

func (h *Handlers) renderClosed(w http.ResponseWriter, sess *checkin.Session) {
	msg := sess.CloseReason()
	if msg == "" {
		msg = msgUnavailable
	}
	h.renderTerminal(w, http.StatusForbidden, UnavailablePageData{Title: sess.Event().Title, Message: msg})
}

// renderUnavailable shows the terminal page for an event that cannot be
// checked into
func (h *Handlers) renderUnavailable(w http.ResponseWriter, err error) {
	var be *checkin.BoundaryError
	if !stderrors.As(checkin.Classify(err), &be) {
		be = &checkin.BoundaryError{Kind: checkin.FailureServer}
	}

	data := UnavailablePageData{Title: "Check-in unavailable", Message: be.Message}
	status := http.StatusForbidden
	switch be.Kind {
	case checkin.FailureNotFound:
		data.Title = "Event not found"
		data.Message = "This check-in link does not match any event."
		status = http.StatusNotFound
	case checkin.FailureDisabled, checkin.FailureDeadlinePassed:
	default:
		data.Message = msgUnavailable
		status = http.StatusInternalServerError
	}
	h.renderTerminal(w, status, data)
}

func (h *Handlers) renderTerminal(w http.ResponseWriter, status int, data UnavailablePageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	h.templates.CheckInUnavailable.ExecuteTemplate(w, "checkin", data)
}
