package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/lexvoice/legal-intake-platform/internal/intake"
	"github.com/lexvoice/legal-intake-platform/pkg/logging"
)

// ConfirmationSender delivers the booking confirmation email.
type ConfirmationSender interface {
	SendConfirmation(ctx context.Context, caller *intake.Caller, appt *intake.Appointment) error
}

// Booker finalizes a confirmed slot into an appointment.
//
// The appointment row is the source of truth: calendar sync and the
// confirmation email are best-effort side effects, and their failure never
// rolls back a booking the caller already heard confirmed.
type Booker struct {
	store    intake.Store
	slots    *Service
	emails   ConfirmationSender
	duration time.Duration
	logger   *logging.Logger
}

// NewBooker creates a booker. emails may be nil when no sender is configured.
func NewBooker(store intake.Store, slots *Service, emails ConfirmationSender, duration time.Duration, logger *logging.Logger) *Booker {
	if store == nil {
		panic("scheduling: store required")
	}
	if slots == nil {
		panic("scheduling: slot service required")
	}
	if duration <= 0 {
		duration = 30 * time.Minute
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Booker{store: store, slots: slots, emails: emails, duration: duration, logger: logger}
}

// Book records a confirmed appointment for the selected slot, then attempts
// calendar sync and the confirmation email.
func (b *Booker) Book(ctx context.Context, sess *intake.CallSession, slot Slot) (*intake.Appointment, error) {
	startsAt, err := time.Parse(SlotDateTimeLayout, slot.DateTime)
	if err != nil {
		return nil, fmt.Errorf("scheduling: parse slot datetime %q: %w", slot.DateTime, err)
	}

	caller, err := b.store.GetCaller(ctx, sess.CallerID)
	if err != nil {
		return nil, fmt.Errorf("scheduling: load caller for booking: %w", err)
	}

	appt := &intake.Appointment{
		CallID:        sess.ID,
		CallerID:      caller.ID,
		PracticeArea:  sess.PracticeArea,
		StartsAt:      startsAt,
		BookingStatus: intake.BookingConfirmed,
	}
	if err := b.store.CreateAppointment(ctx, appt); err != nil {
		return nil, fmt.Errorf("scheduling: create appointment: %w", err)
	}

	b.syncCalendar(ctx, appt, caller, startsAt)
	b.sendConfirmation(ctx, appt, caller)

	return appt, nil
}

func (b *Booker) syncCalendar(ctx context.Context, appt *intake.Appointment, caller *intake.Caller, startsAt time.Time) {
	ev := EventInput{
		Title:       fmt.Sprintf("%s Consultation - %s", appt.PracticeArea, caller.FullName),
		Description: fmt.Sprintf("Consultation for %s case.", appt.PracticeArea),
		Start:       startsAt,
		End:         startsAt.Add(b.duration),
	}
	if !intake.IsPlaceholderEmail(caller.Email) {
		ev.AttendeeEmail = caller.Email
	}

	eventID, err := b.slots.CreateEvent(ctx, ev)
	if err != nil {
		b.logger.Warn("calendar event not created, appointment saved without sync",
			"appointment_id", appt.ID, "error", err)
		return
	}

	appt.CalendarEventID = eventID
	if err := b.store.SetAppointmentCalendarEvent(ctx, appt.ID, eventID); err != nil {
		b.logger.Error("failed to link calendar event", "appointment_id", appt.ID, "error", err)
	}
	if err := b.store.CreateCalendarEventRecord(ctx, &intake.CalendarEventRecord{
		AppointmentID: appt.ID,
		GoogleEventID: eventID,
		Title:         ev.Title,
		Description:   ev.Description,
		StartTime:     ev.Start,
		EndTime:       ev.End,
	}); err != nil {
		b.logger.Error("failed to record calendar event", "appointment_id", appt.ID, "error", err)
	}
}

func (b *Booker) sendConfirmation(ctx context.Context, appt *intake.Appointment, caller *intake.Caller) {
	if b.emails == nil {
		return
	}
	if intake.IsPlaceholderEmail(caller.Email) {
		b.logger.Warn("skipping confirmation email for unconfirmed address",
			"appointment_id", appt.ID, "caller_id", caller.ID)
		return
	}
	if err := b.emails.SendConfirmation(ctx, caller, appt); err != nil {
		b.logger.Error("failed to send confirmation email",
			"appointment_id", appt.ID, "error", err)
		return
	}
	appt.ConfirmationEmailSent = true
	if err := b.store.MarkConfirmationEmailSent(ctx, appt.ID); err != nil {
		b.logger.Error("failed to mark confirmation email sent",
			"appointment_id", appt.ID, "error", err)
	}
}
