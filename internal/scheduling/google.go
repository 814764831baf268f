package scheduling

import (
	"context"
	"fmt"
	"os"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// GoogleCalendar is the production Calendar backed by the Google Calendar
// API using a service account.
type GoogleCalendar struct {
	svc        *calendar.Service
	calendarID string
}

// NewGoogleCalendar builds a calendar client. credentials is either a path to
// a service-account JSON key file or the JSON itself.
func NewGoogleCalendar(ctx context.Context, credentials, calendarID string) (*GoogleCalendar, error) {
	if credentials == "" {
		return nil, fmt.Errorf("scheduling: calendar credentials not configured")
	}
	if calendarID == "" {
		calendarID = "primary"
	}

	var opt option.ClientOption
	if _, err := os.Stat(credentials); err == nil {
		opt = option.WithCredentialsFile(credentials)
	} else {
		opt = option.WithCredentialsJSON([]byte(credentials))
	}

	svc, err := calendar.NewService(ctx, opt, option.WithScopes(calendar.CalendarScope))
	if err != nil {
		return nil, fmt.Errorf("scheduling: init calendar service: %w", err)
	}
	return &GoogleCalendar{svc: svc, calendarID: calendarID}, nil
}

func (g *GoogleCalendar) BusyPeriods(ctx context.Context, start, end time.Time) ([]BusyPeriod, error) {
	resp, err := g.svc.Freebusy.Query(&calendar.FreeBusyRequest{
		TimeMin: start.Format(time.RFC3339),
		TimeMax: end.Format(time.RFC3339),
		Items:   []*calendar.FreeBusyRequestItem{{Id: g.calendarID}},
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("scheduling: freebusy query: %w", err)
	}

	cal, ok := resp.Calendars[g.calendarID]
	if !ok {
		return nil, nil
	}

	busy := make([]BusyPeriod, 0, len(cal.Busy))
	for _, p := range cal.Busy {
		bs, err := time.Parse(time.RFC3339, p.Start)
		if err != nil {
			return nil, fmt.Errorf("scheduling: parse busy start %q: %w", p.Start, err)
		}
		be, err := time.Parse(time.RFC3339, p.End)
		if err != nil {
			return nil, fmt.Errorf("scheduling: parse busy end %q: %w", p.End, err)
		}
		busy = append(busy, BusyPeriod{Start: bs, End: be})
	}
	return busy, nil
}

func (g *GoogleCalendar) CreateEvent(ctx context.Context, ev EventInput) (string, error) {
	event := &calendar.Event{
		Summary:     ev.Title,
		Description: ev.Description,
		Start: &calendar.EventDateTime{
			DateTime: ev.Start.Format(time.RFC3339),
			TimeZone: "UTC",
		},
		End: &calendar.EventDateTime{
			DateTime: ev.End.Format(time.RFC3339),
			TimeZone: "UTC",
		},
		Reminders: &calendar.EventReminders{
			UseDefault: false,
			Overrides: []*calendar.EventReminder{
				{Method: "email", Minutes: 24 * 60},
				{Method: "popup", Minutes: 30},
			},
			ForceSendFields: []string{"UseDefault"},
		},
	}
	if ev.AttendeeEmail != "" {
		event.Attendees = []*calendar.EventAttendee{{Email: ev.AttendeeEmail}}
	}

	created, err := g.svc.Events.Insert(g.calendarID, event).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("scheduling: insert event: %w", err)
	}
	return created.Id, nil
}
