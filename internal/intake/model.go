package intake

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PracticeArea is the legal matter category driving which case questions are
// asked.
type PracticeArea string

const (
	PracticeAreaUnset          PracticeArea = ""
	PracticeAreaLemonLaw       PracticeArea = "Lemon Law"
	PracticeAreaPersonalInjury PracticeArea = "Personal Injury"
)

// CallStatus tracks the overall lifecycle of an intake call.
type CallStatus string

const (
	CallInProgress CallStatus = "in_progress"
	CallCompleted  CallStatus = "completed"
	CallFailed     CallStatus = "failed"
)

// State is the dialogue state machine position. The set is closed; the
// machine dispatches with an exhaustive switch so an unknown state is a
// handled error, not a silent pass-through.
type State string

const (
	StateGreeting            State = "GREETING"
	StatePracticeArea        State = "PRACTICE_AREA"
	StatePracticeAreaClarify State = "PRACTICE_AREA_CLARIFY"
	StatePersonalInfo        State = "PERSONAL_INFO"
	StateConsent             State = "CONSENT"
	StateCaseQuestions       State = "CASE_QUESTIONS"
	StateShowSlots           State = "SHOW_SLOTS"
	StateConfirmBooking      State = "CONFIRM_BOOKING"
	StateEndCall             State = "END_CALL"
)

// Field is the sub-cursor over personal-info collection. Meaningful only while
// the session is in StatePersonalInfo; cleared on leaving that state.
type Field string

const (
	FieldNone         Field = ""
	FieldName         Field = "name"
	FieldPhone        Field = "phone"
	FieldEmail        Field = "email"
	FieldEmailConfirm Field = "email_confirm"
)

// Action tells the telephony transport what to do after speaking the prompt.
type Action string

const (
	ActionContinue Action = "continue"
	ActionEnd      Action = "end"
	ActionTransfer Action = "transfer"
)

// BookingStatus values for appointments.
const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
)

// Sentinel errors returned by stores.
var (
	ErrSessionNotFound     = errors.New("intake: session not found")
	ErrCallerNotFound      = errors.New("intake: caller not found")
	ErrAnswerNotFound      = errors.New("intake: answer not found")
	ErrAppointmentNotFound = errors.New("intake: appointment not found")
)

// Caller holds the person on the line. Created as a placeholder keyed by the
// call SID on first contact, then progressively firmed up and finally merged
// by confirmed email.
type Caller struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CallSession is the persisted per-call state. Every telephony turn reloads it
// by call SID, mutates it through the machine, and writes it back; no session
// state lives in process memory between turns.
type CallSession struct {
	ID            uuid.UUID    `json:"id"`
	CallSID       string       `json:"call_sid"`
	CallerID      uuid.UUID    `json:"caller_id"`
	PracticeArea  PracticeArea `json:"practice_area"`
	Status        CallStatus   `json:"call_status"`
	State         State        `json:"current_state"`
	CurrentField  Field        `json:"current_field"`
	PendingEmail  string       `json:"pending_email,omitempty"`
	ConsentToBook bool         `json:"consent_to_book"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// Answer stores one case-question answer. At most one row exists per
// (call, question key); duplicate submissions are dropped by the store.
type Answer struct {
	ID           uuid.UUID    `json:"id"`
	CallID       uuid.UUID    `json:"call_id"`
	QuestionKey  string       `json:"question_key"`
	QuestionText string       `json:"question_text"`
	AnswerText   string       `json:"answer"`
	PracticeArea PracticeArea `json:"practice_area"`
	CreatedAt    time.Time    `json:"created_at"`
}

// Appointment is created only on an explicit "yes" to a selected slot.
// Immutable afterward except for calendar linkage and the email-sent flag.
type Appointment struct {
	ID                    uuid.UUID    `json:"id"`
	CallID                uuid.UUID    `json:"call_id"`
	CallerID              uuid.UUID    `json:"caller_id"`
	PracticeArea          PracticeArea `json:"practice_area"`
	StartsAt              time.Time    `json:"starts_at"`
	CalendarEventID       string       `json:"calendar_event_id,omitempty"`
	BookingStatus         string       `json:"booking_status"`
	ConfirmationEmailSent bool         `json:"confirmation_email_sent"`
	CreatedAt             time.Time    `json:"created_at"`
}

// CalendarEventRecord mirrors a created external calendar event. Its absence
// is non-fatal; bookings proceed without calendar sync.
type CalendarEventRecord struct {
	ID            uuid.UUID `json:"id"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	GoogleEventID string    `json:"google_event_id"`
	Title         string    `json:"event_title"`
	Description   string    `json:"event_description"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	CreatedAt     time.Time `json:"created_at"`
}

// PlaceholderEmail is the synthetic unique email assigned to a caller before
// a real address has been confirmed.
func PlaceholderEmail(callSID string) string {
	return fmt.Sprintf("temp_%s@temp.com", callSID)
}

// PendingPlaceholderEmail marks a caller whose name is known but whose email
// has not been confirmed yet.
func PendingPlaceholderEmail(callSID string) string {
	return fmt.Sprintf("pending_%s@temp.com", callSID)
}

// IsPlaceholderEmail reports whether an email is a synthetic placeholder
// rather than a confirmed caller address.
func IsPlaceholderEmail(email string) bool {
	return strings.Contains(email, "temp_") || strings.Contains(email, "@temp.com")
}

// IsPlaceholderName reports whether a caller name is still the initial stub.
func IsPlaceholderName(name string) bool {
	return name == "" || name == "Temporary" || name == "Temporary Caller"
}
