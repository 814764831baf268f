package telephony

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/lexvoice/legal-intake-platform/internal/intake"
	"github.com/lexvoice/legal-intake-platform/internal/observability/metrics"
	"github.com/lexvoice/legal-intake-platform/internal/scheduling"
	"github.com/lexvoice/legal-intake-platform/pkg/logging"
)

var voiceTracer = otel.Tracer("intake.internal.telephony")

const (
	transferPrompt = "Please say transfer to speak with someone, or say message to leave a message."
	errorLine      = "Sorry, there was an error processing your call. Please try again."
)

// Config holds handler settings.
type Config struct {
	PublicBaseURL      string
	AuthToken          string
	ValidateSignatures bool
	SlotWindowDays     int
}

// Handler serves the Twilio voice webhook turns. Each request is one dialogue
// turn: load the session, advance the machine, answer with TwiML.
type Handler struct {
	store   intake.Store
	machine *intake.Machine
	slots   *scheduling.Service
	cache   *scheduling.SlotCache
	booker  *scheduling.Booker
	metrics *metrics.IntakeMetrics
	logger  *logging.Logger
	cfg     Config
}

// NewHandler creates the voice webhook handler.
func NewHandler(store intake.Store, machine *intake.Machine, slots *scheduling.Service, cache *scheduling.SlotCache, booker *scheduling.Booker, m *metrics.IntakeMetrics, cfg Config, logger *logging.Logger) *Handler {
	if store == nil {
		panic("telephony: store cannot be nil")
	}
	if machine == nil {
		panic("telephony: machine cannot be nil")
	}
	if slots == nil {
		panic("telephony: slot service cannot be nil")
	}
	if booker == nil {
		panic("telephony: booker cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.SlotWindowDays <= 0 {
		cfg.SlotWindowDays = 14
	}
	return &Handler{
		store:   store,
		machine: machine,
		slots:   slots,
		cache:   cache,
		booker:  booker,
		metrics: m,
		logger:  logger,
		cfg:     cfg,
	}
}

// VoiceWebhook handles POST /api/twilio/webhook, the first turn of a call.
func (h *Handler) VoiceWebhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, span := voiceTracer.Start(r.Context(), "telephony.voice_webhook", trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()
	defer func() { h.metrics.ObserveWebhookLatency("webhook", time.Since(start).Seconds()) }()

	if !h.authorized(r) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	hook, err := ParseVoiceWebhook(r)
	if err != nil || hook.CallSID == "" {
		span.RecordError(errors.New("missing CallSid"))
		h.respond(w, NewResponse().Say("Sorry, there was an error.").Hangup())
		return
	}
	span.SetAttributes(attribute.String("intake.call_sid", hook.CallSID))

	if _, err := h.store.EnsureSession(ctx, hook.CallSID, hook.From); err != nil {
		h.logger.Error("failed to ensure session", "call_sid", hook.CallSID, "error", err)
		span.RecordError(err)
		h.respond(w, NewResponse().Say(errorLine).Hangup())
		return
	}

	action := h.handleResponseURL(hook.CallSID)
	resp := NewResponse().
		Say("Hi, this is the automated intake assistant. I can help you schedule a consultation.").
		GatherSpeech(action, "").
		Redirect(action)
	h.respond(w, resp)
}

// HandleResponse handles POST /api/twilio/handle-response, the general
// dialogue turn.
func (h *Handler) HandleResponse(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, span := voiceTracer.Start(r.Context(), "telephony.handle_response", trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()
	defer func() { h.metrics.ObserveWebhookLatency("handle_response", time.Since(start).Seconds()) }()

	if !h.authorized(r) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	callSID := r.URL.Query().Get("call_sid")
	hook, err := ParseVoiceWebhook(r)
	if err != nil || callSID == "" {
		h.respond(w, NewResponse().Say(errorLine).Hangup())
		return
	}
	span.SetAttributes(attribute.String("intake.call_sid", callSID))

	sess, err := h.store.EnsureSession(ctx, callSID, hook.From)
	if err != nil {
		h.logger.Error("failed to load session", "call_sid", callSID, "error", err)
		span.RecordError(err)
		h.respond(w, NewResponse().Say(errorLine).Hangup())
		return
	}

	result := h.machine.Advance(ctx, sess, hook.SpeechResult)
	h.metrics.ObserveTurn(string(sess.State), string(result.Action))
	span.SetAttributes(
		attribute.String("intake.state", string(sess.State)),
		attribute.String("intake.action", string(result.Action)),
	)

	switch result.Action {
	case intake.ActionEnd:
		h.respond(w, NewResponse().Say(result.Prompt).Hangup())
		return

	case intake.ActionTransfer:
		resp := NewResponse().
			Say(result.Prompt).
			GatherSpeech(h.transferURL(callSID), transferPrompt).
			Say("I'll make sure someone gets back to you. Thank you for calling.")
		if err := h.machine.EndCall(ctx, sess); err != nil {
			h.logger.Error("failed to end call on transfer", "call_sid", callSID, "error", err)
		}
		resp.Hangup()
		h.respond(w, resp)
		return
	}

	if sess.State == intake.StateShowSlots {
		h.offerSlots(ctx, w, callSID)
		return
	}

	resp := NewResponse().
		GatherSpeech(h.handleResponseURL(callSID), result.Prompt).
		Say("I didn't catch that. Could you please repeat?").
		Redirect(h.handleResponseURL(callSID))
	h.respond(w, resp)
}

// HandleSlotSelection handles POST /api/twilio/handle-slot-selection: first
// the caller's pick from the offered list, then (with slot_datetime echoed on
// the action URL) the yes/no confirmation that finalizes the booking.
func (h *Handler) HandleSlotSelection(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, span := voiceTracer.Start(r.Context(), "telephony.handle_slot_selection", trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()
	defer func() { h.metrics.ObserveWebhookLatency("handle_slot_selection", time.Since(start).Seconds()) }()

	if !h.authorized(r) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	callSID := r.URL.Query().Get("call_sid")
	slotDatetime := r.URL.Query().Get("slot_datetime")
	hook, err := ParseVoiceWebhook(r)
	if err != nil || callSID == "" {
		h.respond(w, NewResponse().Say(errorLine).Hangup())
		return
	}
	span.SetAttributes(attribute.String("intake.call_sid", callSID))

	sess, err := h.store.GetSessionByCallSID(ctx, callSID)
	if err != nil {
		span.RecordError(err)
		h.respond(w, NewResponse().Say("Sorry, I couldn't find your call record.").Hangup())
		return
	}

	offered := h.offeredSlots(ctx, callSID)

	if slotDatetime != "" {
		if slot, ok := scheduling.FindByDateTime(offered, slotDatetime); ok {
			h.confirmSlot(ctx, w, sess, slot, hook.SpeechResult, slotDatetime)
			return
		}
	}

	slot, ok := scheduling.MatchSelection(hook.Digits, hook.SpeechResult, offered)
	if !ok {
		resp := NewResponse().
			Say("I didn't catch that. Let me show you the slots again.").
			Redirect(h.handleResponseURL(callSID))
		h.respond(w, resp)
		return
	}

	sess.State = intake.StateConfirmBooking
	if err := h.store.SaveSession(ctx, sess); err != nil {
		h.logger.Error("failed to persist slot selection", "call_sid", callSID, "error", err)
	}

	confirm := fmt.Sprintf("I have you down for %s. Is that correct? Please say yes to confirm, or no to choose a different time.", slot.Formatted)
	resp := NewResponse().
		GatherSpeech(h.slotSelectionURL(callSID, slot.DateTime), confirm).
		Say("Please confirm your appointment time.")
	h.respond(w, resp)
}

// HandleTransferResponse handles POST /api/twilio/handle-transfer-response.
func (h *Handler) HandleTransferResponse(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, span := voiceTracer.Start(r.Context(), "telephony.handle_transfer_response", trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()
	defer func() { h.metrics.ObserveWebhookLatency("handle_transfer_response", time.Since(start).Seconds()) }()

	if !h.authorized(r) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	callSID := r.URL.Query().Get("call_sid")
	hook, err := ParseVoiceWebhook(r)
	if err != nil || callSID == "" {
		h.respond(w, NewResponse().Say("Thank you for calling. Someone will contact you soon.").Hangup())
		return
	}

	sess, err := h.store.GetSessionByCallSID(ctx, callSID)
	if err != nil {
		span.RecordError(err)
		h.respond(w, NewResponse().Say("Thank you for calling. Someone will contact you soon.").Hangup())
		return
	}

	speech := strings.ToLower(hook.SpeechResult)
	switch {
	case strings.Contains(speech, "transfer") || strings.Contains(speech, "speak") || strings.Contains(speech, "human"):
		resp := NewResponse().
			Say("I'll transfer you to a human representative now. Please hold.").
			Say("I'm sorry, but I cannot transfer you at this time. Please call back during business hours to speak with someone.")
		if err := h.machine.EndCall(ctx, sess); err != nil {
			h.logger.Error("failed to end call", "call_sid", callSID, "error", err)
		}
		resp.Hangup()
		h.respond(w, resp)

	case strings.Contains(speech, "message") || strings.Contains(speech, "leave"):
		resp := NewResponse().
			Say("I've noted your information and someone will call you back soon. Thank you for calling.")
		if err := h.machine.EndCall(ctx, sess); err != nil {
			h.logger.Error("failed to end call", "call_sid", callSID, "error", err)
		}
		resp.Hangup()
		h.respond(w, resp)

	default:
		h.respond(w, NewResponse().GatherSpeech(h.transferURL(callSID), transferPrompt))
	}
}

// confirmSlot handles the yes/no turn after a slot was picked.
func (h *Handler) confirmSlot(ctx context.Context, w http.ResponseWriter, sess *intake.CallSession, slot scheduling.Slot, speech, slotDatetime string) {
	lower := strings.ToLower(speech)

	switch {
	case strings.Contains(lower, "yes") || strings.Contains(lower, "correct") || strings.Contains(lower, "confirm"):
		if _, err := h.booker.Book(ctx, sess, slot); err != nil {
			h.logger.Error("booking failed", "call_sid", sess.CallSID, "error", err)
			h.metrics.ObserveBooking("error")
			sess.State = intake.StateShowSlots
			if saveErr := h.store.SaveSession(ctx, sess); saveErr != nil {
				h.logger.Error("failed to reset state after booking error", "call_sid", sess.CallSID, "error", saveErr)
			}
			resp := NewResponse().
				Say("Sorry, there was an error booking your appointment. Let me show you the available slots again.").
				Redirect(h.handleResponseURL(sess.CallSID))
			h.respond(w, resp)
			return
		}
		h.metrics.ObserveBooking("confirmed")
		if err := h.cache.Clear(ctx, sess.CallSID); err != nil {
			h.logger.Warn("failed to clear offered slots", "call_sid", sess.CallSID, "error", err)
		}
		resp := NewResponse().
			Say(fmt.Sprintf("Perfect! I have you scheduled for %s. You will receive a confirmation email shortly with all the details.", slot.Formatted)).
			Say("Thank you for calling. Have a great day!")
		if err := h.machine.EndCall(ctx, sess); err != nil {
			h.logger.Error("failed to complete call after booking", "call_sid", sess.CallSID, "error", err)
		}
		resp.Hangup()
		h.respond(w, resp)

	case strings.Contains(lower, "no") || strings.Contains(lower, "wrong"):
		sess.State = intake.StateShowSlots
		if err := h.store.SaveSession(ctx, sess); err != nil {
			h.logger.Error("failed to return to slot list", "call_sid", sess.CallSID, "error", err)
		}
		resp := NewResponse().
			Say("No problem. Let me show you the available slots again.").
			Redirect(h.handleResponseURL(sess.CallSID))
		h.respond(w, resp)

	default:
		confirm := fmt.Sprintf("I have you down for %s. Is that correct? Please say yes to confirm, or no to choose a different time.", slot.Formatted)
		h.respond(w, NewResponse().GatherSpeech(h.slotSelectionURL(sess.CallSID, slotDatetime), confirm))
	}
}

// offerSlots reads out the available slots and gathers the caller's pick.
func (h *Handler) offerSlots(ctx context.Context, w http.ResponseWriter, callSID string) {
	slots := h.computeSlots(ctx)
	if len(slots) == 0 {
		h.respond(w, NewResponse().
			Say("I'm sorry, there are no available slots at this time. Please call back later.").
			Hangup())
		return
	}

	if err := h.cache.Save(ctx, callSID, slots); err != nil {
		h.logger.Warn("failed to pin offered slots", "call_sid", callSID, "error", err)
	}

	numSlots := len(slots)
	if numSlots > 8 {
		numSlots = 8
	}
	var msg strings.Builder
	msg.WriteString("Here are the available time slots: ")
	for i, slot := range slots[:numSlots] {
		fmt.Fprintf(&msg, "Option %d, %s. ", i+1, slot.Formatted)
	}
	fmt.Fprintf(&msg, "Please choose option 1 through %d. Which option would you like?", numSlots)

	h.respond(w, NewResponse().GatherSpeechAndDigits(h.slotSelectionURL(callSID, ""), msg.String()))
}

// offeredSlots returns the list pinned when slots were read out, falling back
// to recomputation when no cache entry survives.
func (h *Handler) offeredSlots(ctx context.Context, callSID string) []scheduling.Slot {
	slots, ok, err := h.cache.Load(ctx, callSID)
	if err != nil {
		h.logger.Warn("failed to load offered slots", "call_sid", callSID, "error", err)
	}
	if ok {
		return slots
	}
	return h.computeSlots(ctx)
}

func (h *Handler) computeSlots(ctx context.Context) []scheduling.Slot {
	start := time.Now().AddDate(0, 0, 1)
	end := start.AddDate(0, 0, h.cfg.SlotWindowDays)
	return h.slots.AvailableSlots(ctx, start, end)
}

func (h *Handler) authorized(r *http.Request) bool {
	if !h.cfg.ValidateSignatures || h.cfg.AuthToken == "" {
		return true
	}
	webhookURL := AbsoluteURL(r)
	if h.cfg.PublicBaseURL != "" && r.URL != nil {
		webhookURL = strings.TrimRight(h.cfg.PublicBaseURL, "/") + r.URL.RequestURI()
	}
	if ValidateTwilioSignature(r, h.cfg.AuthToken, webhookURL) {
		return true
	}
	h.logger.Warn("invalid twilio signature", "url", webhookURL)
	return false
}

func (h *Handler) handleResponseURL(callSID string) string {
	return fmt.Sprintf("%s/api/twilio/handle-response?call_sid=%s",
		strings.TrimRight(h.cfg.PublicBaseURL, "/"), url.QueryEscape(callSID))
}

func (h *Handler) slotSelectionURL(callSID, slotDatetime string) string {
	u := fmt.Sprintf("%s/api/twilio/handle-slot-selection?call_sid=%s",
		strings.TrimRight(h.cfg.PublicBaseURL, "/"), url.QueryEscape(callSID))
	if slotDatetime != "" {
		u += "&slot_datetime=" + url.QueryEscape(slotDatetime)
	}
	return u
}

func (h *Handler) transferURL(callSID string) string {
	return fmt.Sprintf("%s/api/twilio/handle-transfer-response?call_sid=%s",
		strings.TrimRight(h.cfg.PublicBaseURL, "/"), url.QueryEscape(callSID))
}

func (h *Handler) respond(w http.ResponseWriter, resp *Response) {
	body, err := resp.Render()
	if err != nil {
		h.logger.Error("failed to render twiml", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}
