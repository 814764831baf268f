package telephony

import (
	"encoding/xml"
	"fmt"
)

// TwiML voice response builder. Only the verbs this flow uses are modeled;
// the Twilio Go SDK has no TwiML support, so the documents are assembled with
// encoding/xml directly.

const defaultVoice = "alice"

// Say speaks text to the caller.
type Say struct {
	XMLName xml.Name `xml:"Say"`
	Voice   string   `xml:"voice,attr,omitempty"`
	Text    string   `xml:",chardata"`
}

// Gather collects speech (and optionally DTMF) and posts it to Action.
type Gather struct {
	XMLName       xml.Name `xml:"Gather"`
	Input         string   `xml:"input,attr,omitempty"`
	Language      string   `xml:"language,attr,omitempty"`
	SpeechTimeout string   `xml:"speechTimeout,attr,omitempty"`
	Action        string   `xml:"action,attr,omitempty"`
	Method        string   `xml:"method,attr,omitempty"`
	Say           *Say     `xml:"Say,omitempty"`
}

// Redirect transfers control to another webhook URL.
type Redirect struct {
	XMLName xml.Name `xml:"Redirect"`
	Method  string   `xml:"method,attr,omitempty"`
	URL     string   `xml:",chardata"`
}

// Hangup ends the call.
type Hangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

// Response is a TwiML voice response. Verbs render in append order.
type Response struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any
}

// NewResponse creates an empty TwiML response.
func NewResponse() *Response {
	return &Response{}
}

// Say appends a spoken line.
func (r *Response) Say(text string) *Response {
	r.Verbs = append(r.Verbs, Say{Voice: defaultVoice, Text: text})
	return r
}

// GatherSpeech appends a speech gather that prompts and posts to action. An
// empty prompt gathers silently.
func (r *Response) GatherSpeech(action, prompt string) *Response {
	g := Gather{
		Input:         "speech",
		Language:      "en-US",
		SpeechTimeout: "auto",
		Action:        action,
		Method:        "POST",
	}
	if prompt != "" {
		g.Say = &Say{Voice: defaultVoice, Text: prompt}
	}
	r.Verbs = append(r.Verbs, g)
	return r
}

// GatherSpeechAndDigits appends a gather accepting speech or keypad input.
func (r *Response) GatherSpeechAndDigits(action, prompt string) *Response {
	r.Verbs = append(r.Verbs, Gather{
		Input:         "speech dtmf",
		Language:      "en-US",
		SpeechTimeout: "auto",
		Action:        action,
		Method:        "POST",
		Say:           &Say{Voice: defaultVoice, Text: prompt},
	})
	return r
}

// Redirect appends a redirect to another webhook.
func (r *Response) Redirect(url string) *Response {
	r.Verbs = append(r.Verbs, Redirect{Method: "POST", URL: url})
	return r
}

// Hangup appends a hangup.
func (r *Response) Hangup() *Response {
	r.Verbs = append(r.Verbs, Hangup{})
	return r
}

// Render serializes the response as a TwiML document.
func (r *Response) Render() (string, error) {
	body, err := xml.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("telephony: marshal twiml: %w", err)
	}
	return xml.Header + string(body), nil
}
