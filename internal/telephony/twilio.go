package telephony

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// ValidateTwilioSignature checks that a webhook request carries a valid
// X-Twilio-Signature for the given auth token and public URL.
func ValidateTwilioSignature(r *http.Request, authToken, webhookURL string) bool {
	signature := r.Header.Get("X-Twilio-Signature")
	if signature == "" {
		return false
	}
	if err := r.ParseForm(); err != nil {
		return false
	}

	payload := buildSignaturePayload(webhookURL, r.PostForm)
	expected := computeSignature(payload, authToken)

	return hmac.Equal([]byte(signature), []byte(expected))
}

// buildSignaturePayload concatenates the URL with the POST parameters sorted
// by key, per Twilio's signing scheme.
func buildSignaturePayload(url string, params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var payload strings.Builder
	payload.WriteString(url)
	for _, key := range keys {
		for _, value := range params[key] {
			payload.WriteString(key)
			payload.WriteString(value)
		}
	}
	return payload.String()
}

func computeSignature(data, key string) string {
	h := hmac.New(sha1.New, []byte(key))
	h.Write([]byte(data))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// VoiceWebhook is the form payload of a Twilio voice webhook turn.
type VoiceWebhook struct {
	CallSID      string
	AccountSID   string
	From         string
	To           string
	CallStatus   string
	SpeechResult string
	Digits       string
}

// ParseVoiceWebhook parses the Twilio voice webhook form.
func ParseVoiceWebhook(r *http.Request) (*VoiceWebhook, error) {
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("telephony: parse webhook form: %w", err)
	}
	return &VoiceWebhook{
		CallSID:      r.FormValue("CallSid"),
		AccountSID:   r.FormValue("AccountSid"),
		From:         r.FormValue("From"),
		To:           r.FormValue("To"),
		CallStatus:   r.FormValue("CallStatus"),
		SpeechResult: r.FormValue("SpeechResult"),
		Digits:       r.FormValue("Digits"),
	}, nil
}

// AbsoluteURL reconstructs the public URL Twilio signed, honoring forwarding
// headers set by the ingress.
func AbsoluteURL(r *http.Request) string {
	if r.URL == nil {
		return ""
	}
	if r.URL.Scheme != "" {
		return r.URL.String()
	}
	scheme := r.Header.Get("X-Forwarded-Proto")
	if scheme == "" {
		scheme = "https"
		if r.TLS == nil {
			scheme = "http"
		}
	}
	host := r.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = r.Host
	}
	return fmt.Sprintf("%s://%s%s", scheme, host, r.URL.RequestURI())
}
