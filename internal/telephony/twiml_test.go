package telephony

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderSayHangup(t *testing.T) {
	out, err := NewResponse().Say("Goodbye.").Hangup().Render()
	require.NoError(t, err)

	assert.Contains(t, out, `<?xml version="1.0" encoding="UTF-8"?>`)
	assert.Contains(t, out, `<Say voice="alice">Goodbye.</Say>`)
	assert.Contains(t, out, `<Hangup></Hangup>`)
}

func TestRenderGatherWithPrompt(t *testing.T) {
	out, err := NewResponse().
		GatherSpeech("https://example.com/next?call_sid=CA1", "What is your name?").
		Render()
	require.NoError(t, err)

	assert.Contains(t, out, `input="speech"`)
	assert.Contains(t, out, `language="en-US"`)
	assert.Contains(t, out, `speechTimeout="auto"`)
	assert.Contains(t, out, `method="POST"`)
	assert.Contains(t, out, `action="https://example.com/next?call_sid=CA1"`)
	assert.Contains(t, out, `<Say voice="alice">What is your name?</Say>`)
}

func TestRenderSilentGather(t *testing.T) {
	out, err := NewResponse().GatherSpeech("https://example.com/next", "").Render()
	require.NoError(t, err)

	assert.Contains(t, out, "<Gather")
	assert.NotContains(t, out, "<Say")
}

func TestRenderGatherWithDigits(t *testing.T) {
	out, err := NewResponse().
		GatherSpeechAndDigits("https://example.com/slots", "Option 1 or 2?").
		Render()
	require.NoError(t, err)

	assert.Contains(t, out, `input="speech dtmf"`)
}

func TestRenderRedirect(t *testing.T) {
	out, err := NewResponse().Redirect("https://example.com/retry").Render()
	require.NoError(t, err)

	assert.Contains(t, out, `<Redirect method="POST">https://example.com/retry</Redirect>`)
}

func TestRenderVerbOrder(t *testing.T) {
	out, err := NewResponse().
		Say("First.").
		GatherSpeech("https://example.com/a", "Second?").
		Say("Third.").
		Render()
	require.NoError(t, err)

	first := indexOf(out, "First.")
	second := indexOf(out, "Second?")
	third := indexOf(out, "Third.")
	assert.True(t, first < second && second < third, "verbs out of order: %s", out)
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
