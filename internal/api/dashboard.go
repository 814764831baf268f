package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lexvoice/legal-intake-platform/internal/intake"
	"github.com/lexvoice/legal-intake-platform/internal/notify"
	"github.com/lexvoice/legal-intake-platform/internal/scheduling"
	"github.com/lexvoice/legal-intake-platform/internal/speech"
	"github.com/lexvoice/legal-intake-platform/pkg/logging"
)

const defaultAvailabilityDays = 14

// DashboardHandler hosts the read-mostly JSON endpoints backing the intake
// dashboard: call listings, appointment listings, calendar availability and a
// manual confirmation-email resend.
type DashboardHandler struct {
	store  intake.Store
	slots  *scheduling.Service
	emails *notify.Service
	logger *logging.Logger
}

func NewDashboardHandler(store intake.Store, slots *scheduling.Service, emails *notify.Service, logger *logging.Logger) *DashboardHandler {
	if store == nil {
		panic("api: store is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &DashboardHandler{store: store, slots: slots, emails: emails, logger: logger}
}

type callSummary struct {
	ID            uuid.UUID           `json:"id"`
	CallSID       string              `json:"call_sid"`
	PracticeArea  intake.PracticeArea `json:"practice_area"`
	CallStatus    intake.CallStatus   `json:"call_status"`
	CurrentState  intake.State        `json:"current_state"`
	ConsentToBook bool                `json:"consent_to_book"`
	CreatedAt     time.Time           `json:"created_at"`
}

type callDetail struct {
	callSummary
	Caller  *callerView     `json:"caller,omitempty"`
	Answers []intake.Answer `json:"answers"`
}

type callerView struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type appointmentView struct {
	ID                    uuid.UUID           `json:"id"`
	CallID                uuid.UUID           `json:"call_id"`
	PracticeArea          intake.PracticeArea `json:"practice_area"`
	StartsAt              time.Time           `json:"starts_at"`
	BookingStatus         string              `json:"booking_status"`
	CalendarEventID       string              `json:"calendar_event_id,omitempty"`
	ConfirmationEmailSent bool                `json:"confirmation_email_sent"`
	CreatedAt             time.Time           `json:"created_at"`
	Caller                *callerView         `json:"caller,omitempty"`
}

func summarize(s intake.CallSession) callSummary {
	return callSummary{
		ID:            s.ID,
		CallSID:       s.CallSID,
		PracticeArea:  s.PracticeArea,
		CallStatus:    s.Status,
		CurrentState:  s.State,
		ConsentToBook: s.ConsentToBook,
		CreatedAt:     s.CreatedAt,
	}
}

// ListCalls returns every intake call newest first.
func (h *DashboardHandler) ListCalls(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.ListSessions(r.Context())
	if err != nil {
		h.logger.Error("list calls failed", "error", err)
		http.Error(w, "failed to list calls", http.StatusInternalServerError)
		return
	}
	out := make([]callSummary, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, summarize(s))
	}
	writeJSON(w, http.StatusOK, map[string]any{"calls": out, "total": len(out)})
}

// GetCall returns one call with its caller and recorded answers.
func (h *DashboardHandler) GetCall(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	session, err := h.store.GetSession(r.Context(), id)
	if err != nil {
		if errors.Is(err, intake.ErrSessionNotFound) {
			http.Error(w, "call not found", http.StatusNotFound)
			return
		}
		h.logger.Error("get call failed", "call_id", id, "error", err)
		http.Error(w, "failed to load call", http.StatusInternalServerError)
		return
	}
	detail := callDetail{callSummary: summarize(*session)}
	if caller, err := h.store.GetCaller(r.Context(), session.CallerID); err == nil {
		detail.Caller = viewCaller(caller)
	}
	answers, err := h.store.ListAnswers(r.Context(), session.ID)
	if err != nil {
		h.logger.Error("list answers failed", "call_id", id, "error", err)
		http.Error(w, "failed to load answers", http.StatusInternalServerError)
		return
	}
	detail.Answers = answers
	writeJSON(w, http.StatusOK, detail)
}

// GetCallState returns just the dialogue position for a call, for live
// dashboards polling while a call is in progress.
func (h *DashboardHandler) GetCallState(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	session, err := h.store.GetSession(r.Context(), id)
	if err != nil {
		if errors.Is(err, intake.ErrSessionNotFound) {
			http.Error(w, "call not found", http.StatusNotFound)
			return
		}
		h.logger.Error("get call state failed", "call_id", id, "error", err)
		http.Error(w, "failed to load call", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"call_id":       session.ID,
		"call_status":   session.Status,
		"current_state": session.State,
		"current_field": session.CurrentField,
		"practice_area": session.PracticeArea,
	})
}

// ListAppointments returns all appointments with caller contact details.
func (h *DashboardHandler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	appts, err := h.store.ListAppointments(r.Context())
	if err != nil {
		h.logger.Error("list appointments failed", "error", err)
		http.Error(w, "failed to list appointments", http.StatusInternalServerError)
		return
	}
	out := make([]appointmentView, 0, len(appts))
	for _, a := range appts {
		out = append(out, h.viewAppointment(r, a))
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": out, "total": len(out)})
}

// GetAppointment returns one appointment by id.
func (h *DashboardHandler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	appt, err := h.store.GetAppointment(r.Context(), id)
	if err != nil {
		if errors.Is(err, intake.ErrAppointmentNotFound) {
			http.Error(w, "appointment not found", http.StatusNotFound)
			return
		}
		h.logger.Error("get appointment failed", "appointment_id", id, "error", err)
		http.Error(w, "failed to load appointment", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, h.viewAppointment(r, *appt))
}

// Availability returns open consultation slots over a forward window.
// days_ahead bounds the window; an optional from date (YYYY-MM-DD) moves its
// start.
func (h *DashboardHandler) Availability(w http.ResponseWriter, r *http.Request) {
	days := defaultAvailabilityDays
	if raw := r.URL.Query().Get("days_ahead"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 90 {
			http.Error(w, "days_ahead must be between 1 and 90", http.StatusBadRequest)
			return
		}
		days = n
	}
	start := time.Now().AddDate(0, 0, 1)
	if raw := r.URL.Query().Get("from"); raw != "" {
		t, ok := speech.ValidateDate(raw)
		if !ok {
			http.Error(w, "from must be a valid YYYY-MM-DD date", http.StatusBadRequest)
			return
		}
		start = t
	}
	end := start.AddDate(0, 0, days)

	var slots []scheduling.Slot
	if h.slots != nil {
		slots = h.slots.AvailableSlots(r.Context(), start, end)
	} else {
		slots = scheduling.MockSlots(start)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"start": start.Format("2006-01-02"),
		"end":   end.Format("2006-01-02"),
		"slots": slots,
		"total": len(slots),
	})
}

type sendConfirmationRequest struct {
	AppointmentID string `json:"appointment_id"`
}

// SendConfirmation re-sends the booking confirmation email for an
// appointment. Rejects callers that still carry a placeholder address.
func (h *DashboardHandler) SendConfirmation(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("appointment_id")
	if raw == "" {
		var req sendConfirmationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			raw = req.AppointmentID
		}
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		http.Error(w, "invalid appointment_id", http.StatusBadRequest)
		return
	}
	appt, err := h.store.GetAppointment(r.Context(), id)
	if err != nil {
		if errors.Is(err, intake.ErrAppointmentNotFound) {
			http.Error(w, "appointment not found", http.StatusNotFound)
			return
		}
		h.logger.Error("get appointment failed", "appointment_id", id, "error", err)
		http.Error(w, "failed to load appointment", http.StatusInternalServerError)
		return
	}
	caller, err := h.store.GetCaller(r.Context(), appt.CallerID)
	if err != nil {
		h.logger.Error("get caller failed", "caller_id", appt.CallerID, "error", err)
		http.Error(w, "failed to load caller", http.StatusInternalServerError)
		return
	}
	if intake.IsPlaceholderEmail(caller.Email) {
		http.Error(w, "caller has no confirmed email address", http.StatusConflict)
		return
	}
	if h.emails == nil {
		http.Error(w, "email delivery is not configured", http.StatusServiceUnavailable)
		return
	}
	if err := h.emails.SendConfirmation(r.Context(), caller, appt); err != nil {
		h.logger.Error("confirmation email failed", "appointment_id", id, "error", err)
		http.Error(w, "failed to send confirmation email", http.StatusBadGateway)
		return
	}
	if err := h.store.MarkConfirmationEmailSent(r.Context(), appt.ID); err != nil {
		h.logger.Error("mark confirmation sent failed", "appointment_id", id, "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"appointment_id": appt.ID,
		"sent_to":        caller.Email,
		"status":         "sent",
	})
}

func (h *DashboardHandler) viewAppointment(r *http.Request, a intake.Appointment) appointmentView {
	view := appointmentView{
		ID:                    a.ID,
		CallID:                a.CallID,
		PracticeArea:          a.PracticeArea,
		StartsAt:              a.StartsAt,
		BookingStatus:         a.BookingStatus,
		CalendarEventID:       a.CalendarEventID,
		ConfirmationEmailSent: a.ConfirmationEmailSent,
		CreatedAt:             a.CreatedAt,
	}
	if caller, err := h.store.GetCaller(r.Context(), a.CallerID); err == nil {
		view.Caller = viewCaller(caller)
	}
	return view
}

func viewCaller(c *intake.Caller) *callerView {
	return &callerView{Name: c.FullName, Email: c.Email, Phone: c.Phone}
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
