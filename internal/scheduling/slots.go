package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/lexvoice/legal-intake-platform/pkg/logging"
)

// ErrNoCalendar is returned when no calendar backend is configured.
var ErrNoCalendar = errors.New("scheduling: no calendar backend configured")

// Business hours for consultations, in the calendar's local day.
const (
	BusinessStartHour = 9
	BusinessEndHour   = 17
)

const (
	slotGranularity = 30 * time.Minute
	maxOfferedSlots = 10
)

// Slot is one bookable consultation opening. DateTime is the machine key used
// to round-trip a selection through the confirmation turn; Formatted is what
// the assistant reads out.
type Slot struct {
	Date      string `json:"date"`
	Time      string `json:"time"`
	DateTime  string `json:"datetime"`
	Formatted string `json:"formatted"`
}

// SlotDateTimeLayout parses Slot.DateTime back into a time.
const SlotDateTimeLayout = "2006-01-02T15:04:05"

// BusyPeriod is a calendar interval that cannot be booked.
type BusyPeriod struct {
	Start time.Time
	End   time.Time
}

// EventInput describes a calendar event to create for a booking.
type EventInput struct {
	Title         string
	Description   string
	Start         time.Time
	End           time.Time
	AttendeeEmail string
}

// Calendar is the external calendar backend. GoogleCalendar is the production
// implementation.
type Calendar interface {
	BusyPeriods(ctx context.Context, start, end time.Time) ([]BusyPeriod, error)
	CreateEvent(ctx context.Context, ev EventInput) (string, error)
}

// Service computes bookable slots against a calendar backend. A nil or
// failing backend degrades to a deterministic mock schedule so the voice flow
// keeps working in development and during calendar outages.
type Service struct {
	cal      Calendar
	duration time.Duration
	logger   *logging.Logger
}

// NewService creates a slot service. cal may be nil.
func NewService(cal Calendar, duration time.Duration, logger *logging.Logger) *Service {
	if duration <= 0 {
		duration = 30 * time.Minute
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{cal: cal, duration: duration, logger: logger}
}

// AvailableSlots walks the window at 30-minute granularity inside business
// hours, drops anything overlapping a busy period, and returns at most ten
// openings. Backend errors fall back to MockSlots rather than failing the
// turn.
func (s *Service) AvailableSlots(ctx context.Context, start, end time.Time) []Slot {
	if s.cal == nil {
		return MockSlots(start)
	}

	busy, err := s.cal.BusyPeriods(ctx, start, end)
	if err != nil {
		s.logger.Warn("calendar free/busy lookup failed, using mock slots", "error", err)
		return MockSlots(start)
	}

	var slots []Slot
	current := start
	for current.Before(end) {
		if current.Hour() >= BusinessStartHour && current.Hour() < BusinessEndHour {
			slotEnd := current.Add(s.duration)
			free := true
			for _, b := range busy {
				if current.Before(b.End) && slotEnd.After(b.Start) {
					free = false
					break
				}
			}
			if free {
				slots = append(slots, slotAt(current))
				if len(slots) == maxOfferedSlots {
					return slots
				}
			}
		}

		current = current.Add(slotGranularity)
		if current.Hour() >= BusinessEndHour {
			current = time.Date(current.Year(), current.Month(), current.Day(),
				BusinessStartHour, 0, 0, 0, current.Location()).AddDate(0, 0, 1)
		}
	}
	return slots
}

// CheckSlotAvailability reports whether the interval starting at t is free.
// Errors are reported as unavailable.
func (s *Service) CheckSlotAvailability(ctx context.Context, t time.Time) bool {
	if s.cal == nil {
		return false
	}
	busy, err := s.cal.BusyPeriods(ctx, t, t.Add(s.duration))
	if err != nil {
		s.logger.Warn("calendar availability check failed", "error", err)
		return false
	}
	return len(busy) == 0
}

// CreateEvent creates a calendar event, returning its external ID. Returns
// an error when no backend is configured.
func (s *Service) CreateEvent(ctx context.Context, ev EventInput) (string, error) {
	if s.cal == nil {
		return "", ErrNoCalendar
	}
	return s.cal.CreateEvent(ctx, ev)
}

// MockSlots returns exactly ten hourly slots starting at 09:00 on the start
// day, rolling into the next morning when the business day runs out. The
// schedule is deterministic so repeated webhook turns offer identical lists.
func MockSlots(start time.Time) []Slot {
	slots := make([]Slot, 0, maxOfferedSlots)
	current := time.Date(start.Year(), start.Month(), start.Day(),
		BusinessStartHour, 0, 0, 0, start.Location())

	for i := 0; i < maxOfferedSlots; i++ {
		if current.Hour() >= BusinessEndHour {
			current = time.Date(current.Year(), current.Month(), current.Day(),
				BusinessStartHour, 0, 0, 0, current.Location()).AddDate(0, 0, 1)
		}
		slots = append(slots, slotAt(current))
		current = current.Add(time.Hour)
	}
	return slots
}

func slotAt(t time.Time) Slot {
	return Slot{
		Date:      t.Format("2006-01-02"),
		Time:      t.Format("15:04"),
		DateTime:  t.Format(SlotDateTimeLayout),
		Formatted: t.Format("January 02, 2006 at 03:04 PM"),
	}
}
