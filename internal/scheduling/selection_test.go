package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func offeredSlots() []Slot {
	return MockSlots(time.Date(2026, 9, 2, 9, 0, 0, 0, time.UTC))
}

func TestMatchSelectionDigits(t *testing.T) {
	slots := offeredSlots()

	slot, ok := MatchSelection("3", "", slots)
	require.True(t, ok)
	assert.Equal(t, slots[2], slot)

	_, ok = MatchSelection("0", "", slots)
	assert.False(t, ok)

	_, ok = MatchSelection("11", "", slots)
	assert.False(t, ok)
}

func TestMatchSelectionSpeech(t *testing.T) {
	slots := offeredSlots()

	slot, ok := MatchSelection("", "I'd like Option 2 please", slots)
	require.True(t, ok)
	assert.Equal(t, slots[1], slot)

	// A bare digit anywhere in the utterance counts.
	slot, ok = MatchSelection("", "number 4 works for me", slots)
	require.True(t, ok)
	assert.Equal(t, slots[3], slot)

	_, ok = MatchSelection("", "none of those work", slots)
	assert.False(t, ok)
}

func TestMatchSelectionDigitsWinOverSpeech(t *testing.T) {
	slots := offeredSlots()

	slot, ok := MatchSelection("5", "option 2", slots)
	require.True(t, ok)
	assert.Equal(t, slots[4], slot)
}

func TestFindByDateTime(t *testing.T) {
	slots := offeredSlots()

	slot, ok := FindByDateTime(slots, slots[6].DateTime)
	require.True(t, ok)
	assert.Equal(t, slots[6], slot)

	_, ok = FindByDateTime(slots, "2030-01-01T00:00:00")
	assert.False(t, ok)
}
