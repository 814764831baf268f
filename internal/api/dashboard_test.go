package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lexvoice/legal-intake-platform/internal/intake"
	"github.com/lexvoice/legal-intake-platform/internal/notify"
	"github.com/lexvoice/legal-intake-platform/internal/scheduling"
	"github.com/lexvoice/legal-intake-platform/pkg/logging"
)

type captureSender struct {
	sent []notify.EmailMessage
	err  error
}

func (c *captureSender) Send(_ context.Context, msg notify.EmailMessage) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, msg)
	return nil
}

func newTestMux(t *testing.T) (*chi.Mux, *intake.MemoryStore, *captureSender) {
	t.Helper()

	logger := logging.Default()
	store := intake.NewMemoryStore()
	slots := scheduling.NewService(nil, time.Hour, logger)
	sender := &captureSender{}
	h := NewDashboardHandler(store, slots, notify.NewService(sender, logger), logger)

	r := chi.NewRouter()
	r.Get("/calls", h.ListCalls)
	r.Get("/calls/{id}", h.GetCall)
	r.Get("/calls/{id}/state", h.GetCallState)
	r.Get("/appointments", h.ListAppointments)
	r.Get("/appointments/{id}", h.GetAppointment)
	r.Get("/calendar/availability", h.Availability)
	r.Post("/email/send-confirmation", h.SendConfirmation)
	return r, store, sender
}

func seedSession(t *testing.T, store *intake.MemoryStore) *intake.CallSession {
	t.Helper()
	session, err := store.EnsureSession(context.Background(), "CAdash1", "+923001112233")
	if err != nil {
		t.Fatalf("failed to seed session: %v", err)
	}
	return session
}

func seedBookedAppointment(t *testing.T, store *intake.MemoryStore, email string) *intake.Appointment {
	t.Helper()
	session := seedSession(t, store)

	caller, err := store.GetCaller(context.Background(), session.CallerID)
	if err != nil {
		t.Fatalf("failed to load caller: %v", err)
	}
	caller.FullName = "Ayesha Khan"
	caller.Email = email
	caller.Phone = "+923331234567"
	if err := store.SaveCaller(context.Background(), caller); err != nil {
		t.Fatalf("failed to save caller: %v", err)
	}

	appt := &intake.Appointment{
		CallID:        session.ID,
		CallerID:      caller.ID,
		PracticeArea:  intake.PracticeAreaLemonLaw,
		StartsAt:      time.Date(2026, time.October, 5, 14, 30, 0, 0, time.UTC),
		BookingStatus: intake.BookingConfirmed,
	}
	if err := store.CreateAppointment(context.Background(), appt); err != nil {
		t.Fatalf("failed to create appointment: %v", err)
	}
	return appt
}

func getJSON(t *testing.T, mux *chi.Mux, target string, wantStatus int, out any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != wantStatus {
		t.Fatalf("%s: expected status %d, got %d: %s", target, wantStatus, rr.Code, rr.Body.String())
	}
	if out != nil {
		if err := json.NewDecoder(rr.Body).Decode(out); err != nil {
			t.Fatalf("%s: failed to decode response: %v", target, err)
		}
	}
}

func TestGetCallIncludesCallerAndAnswers(t *testing.T) {
	mux, store, _ := newTestMux(t)
	session := seedSession(t, store)

	answer := &intake.Answer{
		CallID:       session.ID,
		QuestionKey:  "vehicle_details",
		QuestionText: "What is the year, make, and model of your vehicle?",
		AnswerText:   "2022 Honda Civic",
		PracticeArea: intake.PracticeAreaLemonLaw,
	}
	if _, err := store.RecordAnswer(context.Background(), answer); err != nil {
		t.Fatalf("failed to record answer: %v", err)
	}

	var resp struct {
		ID      uuid.UUID `json:"id"`
		CallSID string    `json:"call_sid"`
		Caller  *struct {
			Name  string `json:"name"`
			Email string `json:"email"`
		} `json:"caller"`
		Answers []struct {
			QuestionKey string `json:"question_key"`
			Answer      string `json:"answer"`
		} `json:"answers"`
	}
	getJSON(t, mux, "/calls/"+session.ID.String(), http.StatusOK, &resp)

	if resp.CallSID != "CAdash1" {
		t.Errorf("expected call_sid CAdash1, got %q", resp.CallSID)
	}
	if resp.Caller == nil || !strings.Contains(resp.Caller.Email, "temp_CAdash1") {
		t.Errorf("expected placeholder caller email, got %+v", resp.Caller)
	}
	if len(resp.Answers) != 1 || resp.Answers[0].QuestionKey != "vehicle_details" {
		t.Fatalf("expected one vehicle_details answer, got %+v", resp.Answers)
	}
	if resp.Answers[0].Answer != "2022 Honda Civic" {
		t.Errorf("unexpected answer text %q", resp.Answers[0].Answer)
	}
}

func TestGetCallNotFound(t *testing.T) {
	mux, _, _ := newTestMux(t)
	getJSON(t, mux, "/calls/"+uuid.NewString(), http.StatusNotFound, nil)
}

func TestGetCallRejectsBadID(t *testing.T) {
	mux, _, _ := newTestMux(t)
	getJSON(t, mux, "/calls/not-a-uuid", http.StatusBadRequest, nil)
}

func TestGetCallState(t *testing.T) {
	mux, store, _ := newTestMux(t)
	session := seedSession(t, store)

	var resp struct {
		CallStatus   string `json:"call_status"`
		CurrentState string `json:"current_state"`
	}
	getJSON(t, mux, fmt.Sprintf("/calls/%s/state", session.ID), http.StatusOK, &resp)

	if resp.CallStatus != string(intake.CallInProgress) {
		t.Errorf("expected in_progress, got %q", resp.CallStatus)
	}
	if resp.CurrentState != string(intake.StateGreeting) {
		t.Errorf("expected GREETING, got %q", resp.CurrentState)
	}
}

func TestListAppointmentsIncludesCaller(t *testing.T) {
	mux, store, _ := newTestMux(t)
	seedBookedAppointment(t, store, "ayesha@gmail.com")

	var resp struct {
		Appointments []struct {
			PracticeArea string `json:"practice_area"`
			Caller       *struct {
				Name  string `json:"name"`
				Email string `json:"email"`
				Phone string `json:"phone"`
			} `json:"caller"`
		} `json:"appointments"`
		Total int `json:"total"`
	}
	getJSON(t, mux, "/appointments", http.StatusOK, &resp)

	if resp.Total != 1 {
		t.Fatalf("expected 1 appointment, got %d", resp.Total)
	}
	got := resp.Appointments[0]
	if got.PracticeArea != string(intake.PracticeAreaLemonLaw) {
		t.Errorf("expected Lemon Law, got %q", got.PracticeArea)
	}
	if got.Caller == nil || got.Caller.Email != "ayesha@gmail.com" || got.Caller.Name != "Ayesha Khan" {
		t.Errorf("expected caller details, got %+v", got.Caller)
	}
}

func TestAvailabilityValidation(t *testing.T) {
	mux, _, _ := newTestMux(t)

	getJSON(t, mux, "/calendar/availability?days_ahead=0", http.StatusBadRequest, nil)
	getJSON(t, mux, "/calendar/availability?days_ahead=500", http.StatusBadRequest, nil)
	getJSON(t, mux, "/calendar/availability?from=tomorrowish", http.StatusBadRequest, nil)

	var resp struct {
		Start string            `json:"start"`
		Slots []scheduling.Slot `json:"slots"`
	}
	getJSON(t, mux, "/calendar/availability?days_ahead=7&from=2026-10-05", http.StatusOK, &resp)
	if resp.Start != "2026-10-05" {
		t.Errorf("expected start 2026-10-05, got %q", resp.Start)
	}
	if len(resp.Slots) == 0 {
		t.Fatal("expected slots in response")
	}
	if resp.Slots[0].Date != "2026-10-05" {
		t.Errorf("expected first slot on 2026-10-05, got %q", resp.Slots[0].Date)
	}
}

func TestSendConfirmation(t *testing.T) {
	mux, store, sender := newTestMux(t)
	appt := seedBookedAppointment(t, store, "ayesha@gmail.com")

	req := httptest.NewRequest(http.MethodPost, "/email/send-confirmation?appointment_id="+appt.ID.String(), nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 email sent, got %d", len(sender.sent))
	}
	if sender.sent[0].To != "ayesha@gmail.com" {
		t.Errorf("expected email to ayesha@gmail.com, got %q", sender.sent[0].To)
	}

	updated, err := store.GetAppointment(context.Background(), appt.ID)
	if err != nil {
		t.Fatalf("failed to reload appointment: %v", err)
	}
	if !updated.ConfirmationEmailSent {
		t.Error("expected confirmation_email_sent to be set")
	}
}

func TestSendConfirmationRejectsPlaceholderEmail(t *testing.T) {
	mux, store, sender := newTestMux(t)
	appt := seedBookedAppointment(t, store, "temp_CAdash1@temp.com")

	req := httptest.NewRequest(http.MethodPost, "/email/send-confirmation?appointment_id="+appt.ID.String(), nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status %d, got %d", http.StatusConflict, rr.Code)
	}
	if len(sender.sent) != 0 {
		t.Errorf("expected no email sent, got %d", len(sender.sent))
	}
}

func TestSendConfirmationMissingAppointment(t *testing.T) {
	mux, _, _ := newTestMux(t)

	req := httptest.NewRequest(http.MethodPost, "/email/send-confirmation?appointment_id="+uuid.NewString(), nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rr.Code)
	}
}
