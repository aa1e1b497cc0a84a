package handlers

import (
	"net/http"

	"github.com/abrezinsky/rollcall/internal/forms"
	"github.com/abrezinsky/rollcall/internal/services"
)

// ==================== Public Pages ====================

func (h *Handlers) handleIndex(w http.ResponseWriter, r *http.Request) {
	h.templates.Index.Execute(w, nil)
}

// ==================== Admin Pages ====================

func (h *Handlers) handleAdminDashboard(w http.ResponseWriter, r *http.Request) {
	data := AdminPageData{
		Title:     "Organizer Dashboard",
		PageTitle: "Organizer Dashboard",
		ActiveNav: "dashboard",
	}
	h.templates.AdminDashboard.ExecuteTemplate(w, "admin", data)
}

func (h *Handlers) handleAdminEvents(w http.ResponseWriter, r *http.Request) {
	data := AdminPageData{
		Title:     "Manage Events",
		PageTitle: "Manage Events",
		ActiveNav: "events",
	}
	h.templates.AdminEvents.ExecuteTemplate(w, "admin", data)
}

func (h *Handlers) handleAdminTemplates(w http.ResponseWriter, r *http.Request) {
	data := AdminPageData{
		Title:     "Check-in Templates",
		PageTitle: "Check-in Templates",
		ActiveNav: "templates",
	}
	h.templates.AdminTemplates.ExecuteTemplate(w, "admin", data)
}

func (h *Handlers) handleAdminSettings(w http.ResponseWriter, r *http.Request) {
	data := AdminPageData{
		Title:     "Settings",
		PageTitle: "Settings",
		ActiveNav: "settings",
	}
	h.templates.AdminSettings.ExecuteTemplate(w, "admin", data)
}

// ==================== Events ====================

func (h *Handlers) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.Events.ListEvents(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, events)
}

func (h *Handlers) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req EventCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	event, err := h.Events.CreateEvent(r.Context(), services.EventInput{
		Title:           req.Title,
		Description:     req.Description,
		Date:            req.Date,
		Time:            req.Time,
		Location:        req.Location,
		TemplateID:      req.TemplateID,
		Fields:          req.Fields,
		CheckInEnabled:  req.CheckInEnabled,
		CheckInDeadline: req.CheckInDeadline,
		MaxAttendees:    req.MaxAttendees,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondCreated(w, event)
}

func (h *Handlers) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	event, err := h.Events.GetEvent(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, event)
}

func (h *Handlers) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	var req EventUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	event, err := h.Events.UpdateEvent(r.Context(), id, services.EventInput{
		Title:           req.Title,
		Description:     req.Description,
		Date:            req.Date,
		Time:            req.Time,
		Location:        req.Location,
		CheckInDeadline: req.CheckInDeadline,
		MaxAttendees:    req.MaxAttendees,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, event)
}

func (h *Handlers) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.Events.DeleteEvent(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	respondDeleted(w)
}

func (h *Handlers) handleReplaceFields(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	var req FieldsReplaceRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	if err := h.Events.ReplaceFields(r.Context(), id, req.Fields); err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, "Fields updated")
}

func (h *Handlers) handleSetCheckInEnabled(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	var req CheckInControlRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	if err := h.Events.SetCheckInEnabled(r.Context(), id, req.Enabled); err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, req)
}

func (h *Handlers) handleSetDeadline(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	var req DeadlineRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	if err := h.Events.SetDeadline(r.Context(), id, req.Deadline); err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, req)
}

func (h *Handlers) handleGetCheckInURL(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	url, err := h.Events.CheckInURL(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, CheckInURLResponse{URL: url})
}

func (h *Handlers) handleGetQRImage(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	size, err := parseIntQuery(r, "size")
	if err != nil {
		respondError(w, err)
		return
	}

	png, err := h.Events.GenerateQRCode(r.Context(), id, size)
	if err != nil {
		respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(png)
}

func (h *Handlers) handleGetCheckIns(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	checkins, err := h.Events.ListCheckIns(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, checkins)
}

func (h *Handlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	stats, err := h.Events.Stats(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, stats)
}

// ==================== Templates ====================

func (h *Handlers) handleGetTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.Templates.ListTemplates(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, templates)
}

func (h *Handlers) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	t, err := h.Templates.GetTemplate(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, t)
}

func (h *Handlers) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var t forms.Template
	if err := decodeJSON(r, &t); err != nil {
		respondError(w, err)
		return
	}

	created, err := h.Templates.CreateTemplate(r.Context(), t)
	if err != nil {
		respondError(w, err)
		return
	}
	respondCreated(w, created)
}

func (h *Handlers) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	var t forms.Template
	if err := decodeJSON(r, &t); err != nil {
		respondError(w, err)
		return
	}

	if err := h.Templates.UpdateTemplate(r.Context(), id, t); err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, "Template updated")
}

func (h *Handlers) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.Templates.DeleteTemplate(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	respondDeleted(w)
}

// ==================== Settings ====================

func (h *Handlers) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	baseURL, _ := h.Settings.GetBaseURL(ctx)
	message, _ := h.Settings.GetCheckInMessage(ctx)

	respondOK(w, SettingsResponse{
		BaseURL:        baseURL,
		CheckInMessage: message,
	})
}

func (h *Handlers) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	settings := services.Settings{
		BaseURL:        req.BaseURL,
		CheckInMessage: req.CheckInMessage,
	}
	if err := h.Settings.UpdateSettings(r.Context(), settings); err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, "Settings updated")
}

func (h *Handlers) handleGetOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.Settings.Overview(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, overview)
}

func (h *Handlers) handleResetDatabase(w http.ResponseWriter, r *http.Request) {
	var req DatabaseResetRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	result, err := h.Settings.ResetTables(r.Context(), req.Tables)
	if err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, result.Message)
}
