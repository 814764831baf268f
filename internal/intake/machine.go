package intake

import (
	"context"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/lexvoice/legal-intake-platform/internal/observability/metrics"
	"github.com/lexvoice/legal-intake-platform/internal/speech"
	"github.com/lexvoice/legal-intake-platform/pkg/logging"
)

// Prompts spoken to the caller. The telephony transport turns these into
// audio; the machine only decides which one comes next.
const (
	promptGreeting       = "Hi, this is the automated intake assistant. I can help you schedule a consultation."
	promptPracticeArea   = "Is this about Lemon Law or Personal Injury?"
	promptClarify        = "I didn't catch that clearly. Is this about Lemon Law, which is for vehicle defects, or Personal Injury, which is for accidents or injuries?"
	promptName           = "To get started, may I have your full name?"
	promptPhone          = "What is your phone number?"
	promptEmail          = "What is your email address?"
	promptConsent        = "May I proceed to schedule an appointment and ask a few quick questions first?"
	promptShowSlots      = "Here are the available time slots."
	promptSelectSlot     = "Please select a time slot."
	promptConfirmBooking = "Please confirm your selected time slot."
	promptClosing        = "Thank you. You will receive a confirmation email shortly. Have a great day!"

	promptNameMissing   = "I didn't catch that. Please provide your full name."
	promptNameIsPhone   = "That sounds like a phone number. I need your full name first. Please say your name."
	promptNameNoLetters = "I need your full name, not just numbers. Please say your name."
	promptPhoneInvalid  = "I didn't catch a valid phone number. Please say your phone number clearly, including the country code. For example, plus 9 2 3 3 3 1 2 3 4 5 6 7."
	promptEmailInvalid  = "I didn't catch a valid email address. Please say your email address clearly, like: muhammadhassib at gmail dot com."
	promptEmailRetry    = "No problem. Please say your email address again clearly."
	promptConsentRetry  = "I didn't catch that. May I proceed to schedule an appointment and ask a few quick questions first? Please say yes or no."
	promptTransferOffer = "I understand. Would you like me to transfer you to a human representative, or would you prefer to leave a message and have someone call you back?"
	promptReshowSlots   = "Let me show you the available slots again."
)

// Result is the machine's output for one turn.
type Result struct {
	Prompt string
	Action Action
}

// Machine drives the per-call dialogue. It is stateless between turns: every
// decision is a function of the persisted session plus the latest transcript,
// with record updates as side effects through the store.
//
// Known quirk: the email confirmation step accepts any transcript containing
// "yes", so a misheard address can be committed without secondary
// disambiguation.
type Machine struct {
	store       Store
	seq         *Sequencer
	countryCode string
	metrics     *metrics.IntakeMetrics
	logger      *logging.Logger
}

// NewMachine creates a dialogue machine over the given store.
func NewMachine(store Store, countryCode string, im *metrics.IntakeMetrics, logger *logging.Logger) *Machine {
	if store == nil {
		panic("intake: store required")
	}
	if countryCode == "" {
		countryCode = speech.DefaultCountryCode
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Machine{
		store:       store,
		seq:         NewSequencer(store),
		countryCode: countryCode,
		metrics:     im,
		logger:      logger,
	}
}

// Prompt returns what the assistant should say for the session's current
// position, without consuming a transcript. Used when (re)entering a state.
func (m *Machine) Prompt(ctx context.Context, s *CallSession) string {
	switch s.State {
	case StateGreeting:
		return promptGreeting
	case StatePracticeArea:
		return promptPracticeArea
	case StatePracticeAreaClarify:
		return promptClarify
	case StatePersonalInfo:
		switch s.CurrentField {
		case FieldNone, FieldName:
			return promptName
		case FieldPhone:
			return promptPhone
		case FieldEmail:
			return promptEmail
		case FieldEmailConfirm:
			if s.PendingEmail != "" {
				return "I heard your email as " + s.PendingEmail + ". Is that correct? Please say yes or no."
			}
			return promptEmail
		default:
			return promptConsent
		}
	case StateConsent:
		return promptConsent
	case StateCaseQuestions:
		questions := QuestionsFor(s.PracticeArea)
		idx := m.resumeIndex(ctx, s.ID, questions)
		if idx < len(questions) {
			return questions[idx].Text
		}
		return promptShowSlots
	case StateShowSlots:
		return promptShowSlots
	case StateConfirmBooking:
		return promptConfirmBooking
	case StateEndCall:
		return promptClosing
	}
	return "How can I help you?"
}

// Advance consumes one transcript and produces the next prompt and action,
// persisting any state transition. Persistence failures degrade to a repeat
// prompt in the same state; they never advance the dialogue silently.
func (m *Machine) Advance(ctx context.Context, s *CallSession, transcript string) Result {
	transcript = speech.SanitizeInput(transcript)

	switch s.State {
	case StateGreeting:
		return m.handleGreeting(ctx, s, transcript)
	case StatePracticeArea:
		return m.handlePracticeArea(ctx, s, transcript)
	case StatePracticeAreaClarify:
		return m.handleClarify(ctx, s, transcript)
	case StatePersonalInfo:
		return m.handlePersonalInfo(ctx, s, transcript)
	case StateConsent:
		return m.handleConsent(ctx, s, transcript)
	case StateCaseQuestions:
		return m.handleCaseQuestions(ctx, s, transcript)
	case StateShowSlots:
		return Result{Prompt: promptSelectSlot, Action: ActionContinue}
	case StateConfirmBooking:
		return m.handleConfirmBooking(ctx, s, transcript)
	case StateEndCall:
		return Result{Prompt: promptClosing, Action: ActionEnd}
	}

	m.logger.Error("unknown dialogue state", "call_sid", s.CallSID, "state", s.State)
	return Result{Prompt: m.Prompt(ctx, s), Action: ActionContinue}
}

// EndCall marks the session completed and moves it to the terminal state.
func (m *Machine) EndCall(ctx context.Context, s *CallSession) error {
	s.Status = CallCompleted
	s.State = StateEndCall
	s.CurrentField = FieldNone
	return m.store.SaveSession(ctx, s)
}

func (m *Machine) handleGreeting(ctx context.Context, s *CallSession, transcript string) Result {
	if strings.TrimSpace(transcript) == "" {
		return m.transition(ctx, s, StatePracticeArea)
	}
	if area := speech.DetectPracticeArea(transcript); area != "" {
		return m.beginPersonalInfo(ctx, s, PracticeArea(area))
	}
	return m.transition(ctx, s, StatePracticeArea)
}

func (m *Machine) handlePracticeArea(ctx context.Context, s *CallSession, transcript string) Result {
	if area := speech.DetectPracticeArea(transcript); area != "" {
		return m.beginPersonalInfo(ctx, s, PracticeArea(area))
	}
	lower := strings.ToLower(transcript)
	switch {
	case strings.Contains(lower, "personal"):
		return m.beginPersonalInfo(ctx, s, PracticeAreaPersonalInjury)
	case strings.Contains(lower, "lemon"):
		return m.beginPersonalInfo(ctx, s, PracticeAreaLemonLaw)
	}
	return m.transition(ctx, s, StatePracticeAreaClarify)
}

// handleClarify broadens the keyword set one step. Ambiguous input after the
// clarify round defaults to Personal Injury; that fallback is deliberate and
// documented, not a silent failure.
func (m *Machine) handleClarify(ctx context.Context, s *CallSession, transcript string) Result {
	if area := speech.DetectPracticeArea(transcript); area != "" {
		return m.beginPersonalInfo(ctx, s, PracticeArea(area))
	}
	lower := strings.ToLower(transcript)
	switch {
	case containsAny(lower, "lemon", "vehicle", "car", "defect"):
		return m.beginPersonalInfo(ctx, s, PracticeAreaLemonLaw)
	case containsAny(lower, "personal", "injury", "accident", "injured"):
		return m.beginPersonalInfo(ctx, s, PracticeAreaPersonalInjury)
	}
	return m.beginPersonalInfo(ctx, s, PracticeAreaPersonalInjury)
}

func (m *Machine) handlePersonalInfo(ctx context.Context, s *CallSession, transcript string) Result {
	if s.CurrentField == FieldNone {
		s.CurrentField = FieldName
		if err := m.store.SaveSession(ctx, s); err != nil {
			m.logger.Error("failed to persist field cursor", "call_sid", s.CallSID, "error", err)
		}
	}
	if strings.TrimSpace(transcript) == "" {
		return Result{Prompt: m.Prompt(ctx, s), Action: ActionContinue}
	}

	switch s.CurrentField {
	case FieldName:
		return m.collectName(ctx, s, transcript)
	case FieldPhone:
		return m.collectPhone(ctx, s, transcript)
	case FieldEmail:
		return m.collectEmail(ctx, s, transcript)
	case FieldEmailConfirm:
		return m.confirmEmail(ctx, s, transcript)
	}

	s.CurrentField = FieldName
	if err := m.store.SaveSession(ctx, s); err != nil {
		m.logger.Error("failed to reset field cursor", "call_sid", s.CallSID, "error", err)
	}
	return Result{Prompt: m.Prompt(ctx, s), Action: ActionContinue}
}

func (m *Machine) collectName(ctx context.Context, s *CallSession, transcript string) Result {
	name := strings.TrimSpace(strings.Trim(strings.TrimSpace(transcript), "?"))
	if name == "" {
		return Result{Prompt: promptNameMissing, Action: ActionContinue}
	}
	if _, ok := speech.ExtractPhoneNumberIn(name, m.countryCode); ok {
		m.metrics.ObserveExtractionFailure("name")
		return Result{Prompt: promptNameIsPhone, Action: ActionContinue}
	}
	if !containsLetter(name) {
		m.metrics.ObserveExtractionFailure("name")
		return Result{Prompt: promptNameNoLetters, Action: ActionContinue}
	}

	if err := m.updateCaller(ctx, s, func(c *Caller) { c.FullName = name }); err != nil {
		m.logger.Error("failed to store caller name", "call_sid", s.CallSID, "error", err)
	}
	return m.advanceField(ctx, s, FieldPhone)
}

func (m *Machine) collectPhone(ctx context.Context, s *CallSession, transcript string) Result {
	phone, ok := speech.ExtractPhoneNumberIn(transcript, m.countryCode)
	if !ok || !speech.ValidatePhone(phone) {
		m.metrics.ObserveExtractionFailure("phone")
		return Result{Prompt: promptPhoneInvalid, Action: ActionContinue}
	}

	if err := m.updateCaller(ctx, s, func(c *Caller) { c.Phone = phone }); err != nil {
		m.logger.Error("failed to store caller phone", "call_sid", s.CallSID, "error", err)
	}
	return m.advanceField(ctx, s, FieldEmail)
}

func (m *Machine) collectEmail(ctx context.Context, s *CallSession, transcript string) Result {
	email, ok := speech.ExtractEmail(transcript)
	if !ok {
		m.metrics.ObserveExtractionFailure("email")
		return Result{Prompt: promptEmailInvalid, Action: ActionContinue}
	}

	// Never commit an email without explicit confirmation; hold it on the
	// session until the caller says yes.
	s.PendingEmail = email
	return m.advanceField(ctx, s, FieldEmailConfirm)
}

func (m *Machine) confirmEmail(ctx context.Context, s *CallSession, transcript string) Result {
	lower := strings.ToLower(strings.TrimSpace(transcript))

	switch {
	case containsAny(lower, "yes", "correct", "right"):
		if s.PendingEmail == "" {
			s.CurrentField = FieldEmail
			if err := m.store.SaveSession(ctx, s); err != nil {
				m.logger.Error("failed to persist field cursor", "call_sid", s.CallSID, "error", err)
			}
			return Result{Prompt: promptEmail, Action: ActionContinue}
		}
		if err := m.reconcileCaller(ctx, s, s.PendingEmail); err != nil {
			m.logger.Error("failed to reconcile caller by email", "call_sid", s.CallSID, "error", err)
			return Result{Prompt: m.Prompt(ctx, s), Action: ActionContinue}
		}
		s.PendingEmail = ""
		s.CurrentField = FieldNone
		s.State = StateConsent
		if err := m.store.SaveSession(ctx, s); err != nil {
			m.logger.Error("failed to persist consent transition", "call_sid", s.CallSID, "error", err)
		}
		return Result{Prompt: promptConsent, Action: ActionContinue}

	case containsAny(lower, "no", "wrong", "incorrect"):
		s.PendingEmail = ""
		s.CurrentField = FieldEmail
		if err := m.store.SaveSession(ctx, s); err != nil {
			m.logger.Error("failed to persist email retry", "call_sid", s.CallSID, "error", err)
		}
		return Result{Prompt: promptEmailRetry, Action: ActionContinue}
	}

	return Result{Prompt: m.Prompt(ctx, s), Action: ActionContinue}
}

func (m *Machine) handleConsent(ctx context.Context, s *CallSession, transcript string) Result {
	lower := strings.ToLower(transcript)

	if containsAny(lower, "no", "not now", "later") {
		return Result{Prompt: promptTransferOffer, Action: ActionTransfer}
	}
	if containsAny(lower, "yes", "sure", "okay", "ok") {
		s.ConsentToBook = true
		s.State = StateCaseQuestions
		if err := m.store.SaveSession(ctx, s); err != nil {
			m.logger.Error("failed to persist consent", "call_sid", s.CallSID, "error", err)
			s.State = StateConsent
			return Result{Prompt: promptConsentRetry, Action: ActionContinue}
		}
		return Result{Prompt: m.Prompt(ctx, s), Action: ActionContinue}
	}
	return Result{Prompt: promptConsentRetry, Action: ActionContinue}
}

// handleCaseQuestions is crash-safe: the cursor is recomputed each turn from
// the persisted answers, so a turn replayed by a webhook retry skips forward
// instead of double-recording.
func (m *Machine) handleCaseQuestions(ctx context.Context, s *CallSession, transcript string) Result {
	questions := QuestionsFor(s.PracticeArea)
	idx := m.resumeIndex(ctx, s.ID, questions)

	if idx >= len(questions) {
		return m.transition(ctx, s, StateShowSlots)
	}

	q := questions[idx]
	if strings.TrimSpace(transcript) == "" {
		return Result{Prompt: q.Text + " Please provide your answer.", Action: ActionContinue}
	}

	// Free text is accepted verbatim after sanitization; no semantic
	// validation of answers.
	if _, err := m.seq.Record(ctx, s, q, transcript); err != nil {
		m.logger.Error("failed to record answer", "call_sid", s.CallSID, "question_key", q.Key, "error", err)
		return Result{Prompt: q.Text + " Please try again.", Action: ActionContinue}
	}

	if idx+1 < len(questions) {
		return Result{Prompt: questions[idx+1].Text, Action: ActionContinue}
	}
	return m.transition(ctx, s, StateShowSlots)
}

func (m *Machine) handleConfirmBooking(ctx context.Context, s *CallSession, transcript string) Result {
	lower := strings.ToLower(transcript)
	if containsAny(lower, "yes", "correct") {
		if err := m.EndCall(ctx, s); err != nil {
			m.logger.Error("failed to complete call", "call_sid", s.CallSID, "error", err)
			return Result{Prompt: promptConfirmBooking, Action: ActionContinue}
		}
		return Result{Prompt: promptClosing, Action: ActionEnd}
	}

	res := m.transition(ctx, s, StateShowSlots)
	res.Prompt = promptReshowSlots
	return res
}

// transition moves the session to a new state, returning that state's prompt.
// On persistence failure the session stays where it was and the caller hears
// the current prompt again.
func (m *Machine) transition(ctx context.Context, s *CallSession, next State) Result {
	prev := s.State
	s.State = next
	if err := m.store.SaveSession(ctx, s); err != nil {
		m.logger.Error("failed to persist state transition", "call_sid", s.CallSID, "from", prev, "to", next, "error", err)
		s.State = prev
	}
	return Result{Prompt: m.Prompt(ctx, s), Action: ActionContinue}
}

// beginPersonalInfo sets the practice area and enters personal-info
// collection at the name field.
func (m *Machine) beginPersonalInfo(ctx context.Context, s *CallSession, area PracticeArea) Result {
	prev := *s
	s.PracticeArea = area
	s.State = StatePersonalInfo
	s.CurrentField = FieldName
	if err := m.store.SaveSession(ctx, s); err != nil {
		m.logger.Error("failed to persist practice area", "call_sid", s.CallSID, "area", area, "error", err)
		*s = prev
	}
	return Result{Prompt: m.Prompt(ctx, s), Action: ActionContinue}
}

func (m *Machine) advanceField(ctx context.Context, s *CallSession, next Field) Result {
	s.CurrentField = next
	if err := m.store.SaveSession(ctx, s); err != nil {
		m.logger.Error("failed to persist field cursor", "call_sid", s.CallSID, "field", next, "error", err)
	}
	return Result{Prompt: m.Prompt(ctx, s), Action: ActionContinue}
}

// updateCaller applies a mutation to the session's caller, creating a
// placeholder caller first if the session has none.
func (m *Machine) updateCaller(ctx context.Context, s *CallSession, mutate func(*Caller)) error {
	var caller *Caller
	var err error

	if s.CallerID != uuid.Nil {
		caller, err = m.store.GetCaller(ctx, s.CallerID)
		if err != nil {
			return err
		}
	} else {
		caller = &Caller{
			FullName: "Temporary",
			Email:    PlaceholderEmail(s.CallSID),
		}
		if err := m.store.CreateCaller(ctx, caller); err != nil {
			return err
		}
		s.CallerID = caller.ID
		if err := m.store.SaveSession(ctx, s); err != nil {
			return err
		}
	}

	mutate(caller)
	return m.store.SaveCaller(ctx, caller)
}

// reconcileCaller resolves the confirmed email to its canonical caller row.
// Placeholder callers are replaced via get-or-create on the unique email;
// callers that already carry a real email are updated in place. Name and
// phone collected during this call back-fill whatever the canonical row is
// missing.
func (m *Machine) reconcileCaller(ctx context.Context, s *CallSession, email string) error {
	var current *Caller
	if s.CallerID != uuid.Nil {
		var err error
		current, err = m.store.GetCaller(ctx, s.CallerID)
		if err != nil {
			return err
		}
	}

	if current != nil && !IsPlaceholderEmail(current.Email) {
		current.Email = email
		return m.store.SaveCaller(ctx, current)
	}

	defaults := Caller{Email: email}
	if current != nil {
		if !IsPlaceholderName(current.FullName) {
			defaults.FullName = current.FullName
		}
		defaults.Phone = current.Phone
	}

	canonical, _, err := m.store.GetOrCreateCallerByEmail(ctx, email, defaults)
	if err != nil {
		return err
	}

	changed := false
	if canonical.FullName == "" && defaults.FullName != "" {
		canonical.FullName = defaults.FullName
		changed = true
	}
	if canonical.Phone == "" && defaults.Phone != "" {
		canonical.Phone = defaults.Phone
		changed = true
	}
	if changed {
		if err := m.store.SaveCaller(ctx, canonical); err != nil {
			return err
		}
	}

	s.CallerID = canonical.ID
	return m.store.SaveSession(ctx, s)
}

func (m *Machine) resumeIndex(ctx context.Context, callID uuid.UUID, questions []Question) int {
	idx, err := m.seq.NextUnanswered(ctx, callID, questions)
	if err != nil {
		m.logger.Error("failed to compute resume index", "call_id", callID, "error", err)
		return 0
	}
	return idx
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func containsLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
