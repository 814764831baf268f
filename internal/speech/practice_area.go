package speech

import "strings"

// Practice area labels as stored on call records.
const (
	AreaLemonLaw       = "Lemon Law"
	AreaPersonalInjury = "Personal Injury"
)

// DetectPracticeArea keyword-matches a transcript against the supported
// practice areas. Returns "" when the utterance is ambiguous; the dialogue
// then moves to a clarification prompt rather than guessing.
func DetectPracticeArea(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))

	for _, filler := range []string{"uh", "um", "okay", "ok"} {
		s = strings.ReplaceAll(s, filler, "")
	}
	s = strings.Join(strings.Fields(s), " ")

	if strings.Contains(s, "lemon") {
		return AreaLemonLaw
	}

	injured := strings.Contains(s, "injury") || strings.Contains(s, "injured") || strings.Contains(s, "injuries")

	if strings.Contains(s, "personal") {
		if injured {
			return AreaPersonalInjury
		}
		// Short utterances like "personal" or "personal case" are taken as
		// Personal Injury; longer ones need a supporting keyword.
		if len(strings.Fields(s)) <= 3 {
			return AreaPersonalInjury
		}
	}

	if injured {
		if strings.Contains(s, "personal") || strings.Contains(s, "accident") || strings.Contains(s, "car") {
			return AreaPersonalInjury
		}
	}

	return ""
}
