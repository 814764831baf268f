package speech

import (
	"regexp"
	"strings"
)

// Spoken-email repair rules. Transcripts arrive as free speech ("john dot doe
// at gmail dot com"), so extraction rewrites connector words before validating.
var (
	trailingPunct   = regexp.MustCompile(`[.,?;:!]+$`)
	atTheRate       = regexp.MustCompile(`\b(at\s+)?at\s+the\s+rate\b`)
	atRate          = regexp.MustCompile(`\bat\s+rate\b`)
	spacedAt        = regexp.MustCompile(`\s+at\s+`)
	repeatedAt      = regexp.MustCompile(`@+`)
	atThenWord      = regexp.MustCompile(`@\s*at\s*`)
	wordThenAt      = regexp.MustCompile(`at\s*@`)
	spokenDot       = regexp.MustCompile(`\bdot\b`)
	spokenPoint     = regexp.MustCompile(`\bpoint\b`)
	spaceAroundAt   = regexp.MustCompile(`\s*@\s*`)
	spaceAroundDot  = regexp.MustCompile(`\s*\.\s*`)
	multiWhitespace = regexp.MustCompile(`\s+`)
	emailJunk       = regexp.MustCompile(`[^\w@.\s-]`)
	localJunk       = regexp.MustCompile(`[^\w._+-]`)
	domainJunk      = regexp.MustCompile(`[^\w.-]`)
	repeatedDots    = regexp.MustCompile(`\.{2,}`)
	validEmail      = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

	doubledCom = regexp.MustCompile(`(?i)\.com\.com+$`)
	doubledNet = regexp.MustCompile(`(?i)\.net\.net+$`)
	doubledOrg = regexp.MustCompile(`(?i)\.org\.org+$`)
	innerCom   = regexp.MustCompile(`(?i)\.com\.com`)

	gmailRun   = regexp.MustCompile(`(?i)gmailcom\.com$`)
	yahooRun   = regexp.MustCompile(`(?i)yahooom\.com$`)
	hotmailRun = regexp.MustCompile(`(?i)hotmailcom\.com$`)
	outlookRun = regexp.MustCompile(`(?i)outlookom\.com$`)

	emailFillers = compileFillers("the", "is", "my", "yeah", "yes", "question mark", "comma", "period", "and", "rate")
)

func compileFillers(words ...string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, 0, len(words))
	for _, w := range words {
		res = append(res, regexp.MustCompile(`\b`+w+`\b`))
	}
	return res
}

// ExtractEmail reconstructs a dictated email address from a speech transcript.
// Best effort: the result is syntactically valid, not guaranteed correct.
func ExtractEmail(text string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}

	s := strings.ToLower(strings.TrimSpace(text))
	s = trailingPunct.ReplaceAllString(s, "")

	s = atTheRate.ReplaceAllString(s, "@")
	s = atRate.ReplaceAllString(s, "@")
	s = spacedAt.ReplaceAllString(s, "@")
	s = repeatedAt.ReplaceAllString(s, "@")
	s = atThenWord.ReplaceAllString(s, "@")
	s = wordThenAt.ReplaceAllString(s, "@")

	s = spokenDot.ReplaceAllString(s, ".")
	s = spokenPoint.ReplaceAllString(s, ".")

	s = spaceAroundAt.ReplaceAllString(s, "@")
	s = spaceAroundDot.ReplaceAllString(s, ".")

	for _, filler := range emailFillers {
		s = filler.ReplaceAllString(s, "")
	}
	s = multiWhitespace.ReplaceAllString(strings.TrimSpace(s), " ")
	s = emailJunk.ReplaceAllString(s, "")

	if local, domain, ok := splitAddress(s); ok {
		local = cleanLocal(local)
		domain = cleanDomain(domain)
		if local == "" || domain == "" {
			return "", false
		}
		s = local + "@" + domain
	}

	s = repeatedDots.ReplaceAllString(s, ".")
	s = strings.Trim(s, ".")

	// Second pass: trimming dots above can re-expose a doubled TLD or a
	// dotless provider domain.
	if local, domain, ok := splitAddress(s); ok {
		local = strings.Trim(local, "._+-")
		domain = strings.Trim(domain, "._-")
		if domain != "" {
			domain = repairDomain(domain)
		}
		if local != "" && domain != "" {
			s = local + "@" + domain
		}
	}

	if validEmail.MatchString(s) {
		return s, true
	}
	return "", false
}

// ValidateEmail reports whether the value matches local@domain.tld with a TLD
// of at least two letters.
func ValidateEmail(email string) bool {
	return email != "" && validEmail.MatchString(email)
}

func splitAddress(s string) (local, domain string, ok bool) {
	parts := strings.Split(s, "@")
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func cleanLocal(local string) string {
	local = strings.TrimSpace(local)
	local = trailingPunct.ReplaceAllString(local, "")
	local = multiWhitespace.ReplaceAllString(local, "")
	return localJunk.ReplaceAllString(local, "")
}

func cleanDomain(domain string) string {
	domain = strings.TrimSpace(domain)
	domain = trailingPunct.ReplaceAllString(domain, "")

	if strings.Contains(domain, ".") {
		var pieces []string
		for _, piece := range strings.Split(domain, ".") {
			piece = multiWhitespace.ReplaceAllString(strings.TrimSpace(piece), "")
			if piece != "" {
				pieces = append(pieces, strings.ToLower(piece))
			}
		}
		domain = strings.Join(pieces, ".")
		domain = repeatedDots.ReplaceAllString(domain, ".")
		domain = strings.Trim(domain, ".")
	} else {
		domain = strings.ToLower(multiWhitespace.ReplaceAllString(domain, ""))
	}

	domain = domainJunk.ReplaceAllString(domain, "")
	return repairDomain(domain)
}

// repairDomain fixes common transcription artifacts: doubled TLDs, provider
// names glued to their TLD, and dotless provider or bare-word domains.
func repairDomain(domain string) string {
	if strings.Contains(domain, ".") {
		domain = gmailRun.ReplaceAllString(domain, "gmail.com")
		domain = yahooRun.ReplaceAllString(domain, "yahoo.com")
		domain = hotmailRun.ReplaceAllString(domain, "hotmail.com")
		domain = outlookRun.ReplaceAllString(domain, "outlook.com")
		domain = doubledCom.ReplaceAllString(domain, ".com")
		domain = doubledNet.ReplaceAllString(domain, ".net")
		domain = doubledOrg.ReplaceAllString(domain, ".org")
		domain = innerCom.ReplaceAllString(domain, ".com")
		return strings.ToLower(domain)
	}

	lower := strings.ToLower(domain)
	switch {
	case strings.Contains(lower, "gmail") || strings.HasPrefix(lower, "gm"):
		return "gmail.com"
	case strings.Contains(lower, "yahoo"):
		return "yahoo.com"
	case strings.Contains(lower, "hotmail"):
		return "hotmail.com"
	case strings.Contains(lower, "outlook"):
		return "outlook.com"
	case len(lower) >= 2 && isAlpha(lower):
		return lower + ".com"
	}
	return lower
}

func isAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
