package telephony

import (
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTwilioSignature(t *testing.T) {
	const authToken = "secret-token"
	const webhookURL = "https://intake.example.com/api/twilio/webhook"

	form := url.Values{}
	form.Set("CallSid", "CA123")
	form.Set("From", "+15550001111")

	r := httptest.NewRequest("POST", webhookURL, strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	payload := buildSignaturePayload(webhookURL, form)
	r.Header.Set("X-Twilio-Signature", computeSignature(payload, authToken))

	assert.True(t, ValidateTwilioSignature(r, authToken, webhookURL))
}

func TestValidateTwilioSignatureRejectsTampered(t *testing.T) {
	const authToken = "secret-token"
	const webhookURL = "https://intake.example.com/api/twilio/webhook"

	form := url.Values{}
	form.Set("CallSid", "CA123")

	payload := buildSignaturePayload(webhookURL, form)
	sig := computeSignature(payload, authToken)

	// Same signature over a modified body must fail.
	form.Set("CallSid", "CA999")
	r := httptest.NewRequest("POST", webhookURL, strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.Header.Set("X-Twilio-Signature", sig)

	assert.False(t, ValidateTwilioSignature(r, authToken, webhookURL))
}

func TestValidateTwilioSignatureMissingHeader(t *testing.T) {
	r := httptest.NewRequest("POST", "https://intake.example.com/api/twilio/webhook", nil)
	assert.False(t, ValidateTwilioSignature(r, "secret", "https://intake.example.com/api/twilio/webhook"))
}

func TestParseVoiceWebhook(t *testing.T) {
	form := url.Values{}
	form.Set("CallSid", "CA123")
	form.Set("From", "+15550001111")
	form.Set("SpeechResult", "lemon law")
	form.Set("Digits", "3")

	r := httptest.NewRequest("POST", "/api/twilio/webhook", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	hook, err := ParseVoiceWebhook(r)
	require.NoError(t, err)
	assert.Equal(t, "CA123", hook.CallSID)
	assert.Equal(t, "+15550001111", hook.From)
	assert.Equal(t, "lemon law", hook.SpeechResult)
	assert.Equal(t, "3", hook.Digits)
}

func TestAbsoluteURLForwardedHeaders(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/twilio/webhook?call_sid=CA1", nil)
	r.Host = "internal:8080"
	r.Header.Set("X-Forwarded-Proto", "https")
	r.Header.Set("X-Forwarded-Host", "intake.example.com")

	assert.Equal(t, "https://intake.example.com/api/twilio/webhook?call_sid=CA1", AbsoluteURL(r))
}
