package intake

import (
	"context"

	"github.com/google/uuid"
)

// Store is the persistence collaborator for call state. Implementations must
// provide get-or-create semantics for sessions and callers so that duplicate
// webhook deliveries racing on the same call SID converge on one row instead
// of failing the turn.
type Store interface {
	// EnsureSession loads the session for a call SID, creating it (with a
	// placeholder caller) when absent.
	EnsureSession(ctx context.Context, callSID, fromNumber string) (*CallSession, error)
	GetSessionByCallSID(ctx context.Context, callSID string) (*CallSession, error)
	GetSession(ctx context.Context, id uuid.UUID) (*CallSession, error)
	ListSessions(ctx context.Context) ([]CallSession, error)
	SaveSession(ctx context.Context, s *CallSession) error

	GetCaller(ctx context.Context, id uuid.UUID) (*Caller, error)
	CreateCaller(ctx context.Context, c *Caller) error
	SaveCaller(ctx context.Context, c *Caller) error
	// GetOrCreateCallerByEmail reconciles a confirmed email to its canonical
	// caller row. Returns the caller and whether it was newly created.
	GetOrCreateCallerByEmail(ctx context.Context, email string, defaults Caller) (*Caller, bool, error)

	ListAnswers(ctx context.Context, callID uuid.UUID) ([]Answer, error)
	GetAnswer(ctx context.Context, callID uuid.UUID, questionKey string) (*Answer, error)
	// RecordAnswer inserts an answer unless one already exists for the
	// (call, question key) pair. Returns whether a row was inserted.
	RecordAnswer(ctx context.Context, a *Answer) (bool, error)

	CreateAppointment(ctx context.Context, a *Appointment) error
	GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListAppointments(ctx context.Context) ([]Appointment, error)
	SetAppointmentCalendarEvent(ctx context.Context, id uuid.UUID, eventID string) error
	MarkConfirmationEmailSent(ctx context.Context, id uuid.UUID) error

	CreateCalendarEventRecord(ctx context.Context, rec *CalendarEventRecord) error
}
