package speech

import (
	"regexp"
	"strings"
	"time"
)

var unsafeChars = regexp.MustCompile(`[<>"']`)

// SanitizeInput strips angle brackets and quote characters from a free-text
// answer before storage, so transcripts cannot smuggle markup into downstream
// rendering.
func SanitizeInput(text string) string {
	if text == "" {
		return ""
	}
	return strings.TrimSpace(unsafeChars.ReplaceAllString(text, ""))
}

var dateFormats = []string{
	"2006-01-02",
	"01/02/2006",
	"02/01/2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

// ValidateDate tries a fixed ordered list of date layouts and returns the
// first successful parse.
func ValidateDate(value string) (time.Time, bool) {
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
