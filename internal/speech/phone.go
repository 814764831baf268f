package speech

import (
	"regexp"
	"strings"
)

// DefaultCountryCode is the dialing code assumed for local numbers dictated
// without one. The pilot deployment serves Pakistani callers (+92); override
// per installation via DEFAULT_COUNTRY_CODE.
const DefaultCountryCode = "92"

var (
	phoneFillers  = regexp.MustCompile(`\b(phone|number|is|my|the|a|an|yeah|yes)\b`)
	tripleDigit   = regexp.MustCompile(`\b(triple|three times)\b`)
	doubleDigit   = regexp.MustCompile(`\b(double|two times)\b`)
	digitRuns     = regexp.MustCompile(`\d+`)
	phoneGarnish  = regexp.MustCompile(`[\s\-()]`)
	spokenDigits  = map[string]string{"zero": "0", "one": "1", "two": "2", "three": "3", "four": "4", "five": "5", "six": "6", "seven": "7", "eight": "8", "nine": "9"}
	spokenDigitRe = func() map[string]*regexp.Regexp {
		m := make(map[string]*regexp.Regexp, len(spokenDigits))
		for word := range spokenDigits {
			m[word] = regexp.MustCompile(`\b` + word + `\b`)
		}
		return m
	}()
)

// ExtractPhoneNumber parses a dictated phone number out of a transcript and
// normalizes it using DefaultCountryCode.
func ExtractPhoneNumber(text string) (string, bool) {
	return ExtractPhoneNumberIn(text, DefaultCountryCode)
}

// ExtractPhoneNumberIn is ExtractPhoneNumber with an explicit country code.
// It strips filler words, expands spoken digit words and multiplier phrases,
// concatenates digit runs, and applies length heuristics: a leading zero on a
// ten-plus digit number is swapped for the country code, a number already
// starting with the country code gains a plus, and anything else must be at
// least ten digits or carry an explicit plus marker.
func ExtractPhoneNumberIn(text, countryCode string) (string, bool) {
	if text == "" {
		return "", false
	}
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}

	s := strings.ToLower(text)
	s = phoneFillers.ReplaceAllString(s, "")
	s = tripleDigit.ReplaceAllString(s, " 333 ")
	s = doubleDigit.ReplaceAllString(s, "")

	hasPlus := strings.Contains(s, "+") || strings.Contains(s, "plus")

	for word, digit := range spokenDigits {
		s = spokenDigitRe[word].ReplaceAllString(s, digit)
	}

	runs := digitRuns.FindAllString(s, -1)
	if len(runs) == 0 {
		return "", false
	}
	digits := strings.Join(runs, "")

	switch {
	case strings.HasPrefix(digits, "0"):
		if len(digits) < 10 {
			return "", false
		}
		digits = "+" + countryCode + digits[1:]
	case strings.HasPrefix(digits, countryCode):
		digits = "+" + digits
	case hasPlus || len(digits) >= 10:
		switch {
		case len(digits) == 10:
			digits = "+" + countryCode + digits
		case len(digits) >= 12:
			digits = "+" + digits
		default:
			return "", false
		}
	default:
		return "", false
	}

	return digits, true
}

// ValidatePhone reports whether the value parses to a plausible phone number
// (7 to 15 digits after normalization).
func ValidatePhone(phone string) bool {
	normalized, ok := ExtractPhoneNumber(phone)
	if !ok {
		return false
	}
	digits := strings.TrimPrefix(normalized, "+")
	if len(digits) < 7 || len(digits) > 15 {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// NormalizePhone strips whitespace, dashes, and parentheses, and prefixes a
// plus when the value starts with a digit.
func NormalizePhone(phone string) string {
	cleaned := phoneGarnish.ReplaceAllString(phone, "")
	if cleaned != "" && cleaned[0] >= '0' && cleaned[0] <= '9' {
		cleaned = "+" + cleaned
	}
	return cleaned
}
