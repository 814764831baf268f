package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCalendar struct {
	busy      []BusyPeriod
	busyErr   error
	eventID   string
	eventErr  error
	lastEvent EventInput
}

func (f *fakeCalendar) BusyPeriods(ctx context.Context, start, end time.Time) ([]BusyPeriod, error) {
	return f.busy, f.busyErr
}

func (f *fakeCalendar) CreateEvent(ctx context.Context, ev EventInput) (string, error) {
	f.lastEvent = ev
	return f.eventID, f.eventErr
}

func TestAvailableSlotsCapsAtTen(t *testing.T) {
	cal := &fakeCalendar{}
	svc := NewService(cal, 30*time.Minute, nil)

	start := time.Date(2026, 9, 2, 9, 0, 0, 0, time.UTC)
	slots := svc.AvailableSlots(context.Background(), start, start.AddDate(0, 0, 14))

	require.Len(t, slots, 10)
	assert.Equal(t, "09:00", slots[0].Time)
	assert.Equal(t, "09:30", slots[1].Time)
	assert.Equal(t, "13:30", slots[9].Time)
	assert.Equal(t, "2026-09-02", slots[0].Date)
	assert.Equal(t, "2026-09-02T09:00:00", slots[0].DateTime)
	assert.Equal(t, "September 02, 2026 at 09:00 AM", slots[0].Formatted)
}

func TestAvailableSlotsSkipsBusyPeriods(t *testing.T) {
	start := time.Date(2026, 9, 2, 9, 0, 0, 0, time.UTC)
	cal := &fakeCalendar{busy: []BusyPeriod{
		{Start: start, End: start.Add(time.Hour)},
	}}
	svc := NewService(cal, 30*time.Minute, nil)

	slots := svc.AvailableSlots(context.Background(), start, start.AddDate(0, 0, 1))

	require.NotEmpty(t, slots)
	assert.Equal(t, "10:00", slots[0].Time)
}

func TestAvailableSlotsRollsPastBusinessClose(t *testing.T) {
	// 16:30 is the last slot of the day; the walk must jump to 09:00 the
	// next morning instead of offering evening times.
	start := time.Date(2026, 9, 2, 16, 30, 0, 0, time.UTC)
	cal := &fakeCalendar{}
	svc := NewService(cal, 30*time.Minute, nil)

	slots := svc.AvailableSlots(context.Background(), start, start.AddDate(0, 0, 2))

	require.True(t, len(slots) >= 2)
	assert.Equal(t, "16:30", slots[0].Time)
	assert.Equal(t, "2026-09-03", slots[1].Date)
	assert.Equal(t, "09:00", slots[1].Time)
}

func TestAvailableSlotsFallsBackToMockOnError(t *testing.T) {
	cal := &fakeCalendar{busyErr: errors.New("api down")}
	svc := NewService(cal, 30*time.Minute, nil)

	start := time.Date(2026, 9, 2, 11, 22, 0, 0, time.UTC)
	slots := svc.AvailableSlots(context.Background(), start, start.AddDate(0, 0, 14))

	assert.Equal(t, MockSlots(start), slots)
}

func TestMockSlotsDeterministic(t *testing.T) {
	start := time.Date(2026, 9, 2, 14, 45, 0, 0, time.UTC)
	slots := MockSlots(start)

	require.Len(t, slots, 10)
	// Always anchored at 09:00 of the start day regardless of start time.
	assert.Equal(t, "09:00", slots[0].Time)
	assert.Equal(t, "2026-09-02", slots[0].Date)
	// Hourly increments fill the business day, then roll to the next morning.
	assert.Equal(t, "16:00", slots[7].Time)
	assert.Equal(t, "2026-09-03", slots[8].Date)
	assert.Equal(t, "09:00", slots[8].Time)
	assert.Equal(t, "10:00", slots[9].Time)

	assert.Equal(t, slots, MockSlots(start))
}

func TestSlotDateTimeRoundTrip(t *testing.T) {
	start := time.Date(2026, 9, 2, 9, 0, 0, 0, time.UTC)
	slot := MockSlots(start)[3]

	parsed, err := time.Parse(SlotDateTimeLayout, slot.DateTime)
	require.NoError(t, err)
	assert.Equal(t, slot.Time, parsed.Format("15:04"))
	assert.Equal(t, slot.Date, parsed.Format("2006-01-02"))
}
