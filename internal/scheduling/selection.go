package scheduling

import (
	"fmt"
	"strconv"
	"strings"
)

// MatchSelection resolves a caller's slot choice from DTMF digits or a speech
// transcript against the offered list. Digits win; speech falls back to
// "option N" or a bare "N" anywhere in the utterance.
func MatchSelection(digits, speech string, slots []Slot) (Slot, bool) {
	if digits != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(digits)); err == nil {
			if n >= 1 && n <= len(slots) {
				return slots[n-1], true
			}
		}
	}

	if speech != "" {
		lower := strings.ToLower(speech)
		for i := range slots {
			if strings.Contains(lower, fmt.Sprintf("option %d", i+1)) ||
				strings.Contains(lower, strconv.Itoa(i+1)) {
				return slots[i], true
			}
		}
	}

	return Slot{}, false
}

// FindByDateTime looks up an offered slot by its DateTime key, as echoed back
// through the confirmation turn's action URL.
func FindByDateTime(slots []Slot, datetime string) (Slot, bool) {
	for _, s := range slots {
		if s.DateTime == datetime {
			return s, true
		}
	}
	return Slot{}, false
}
