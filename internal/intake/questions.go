package intake

import (
	"context"

	"github.com/google/uuid"
)

// Question is one structured case question asked during CASE_QUESTIONS.
type Question struct {
	Key  string
	Text string
	Kind string
}

// LemonLawQuestions is the fixed question list for Lemon Law intakes.
var LemonLawQuestions = []Question{
	{Key: "vehicle_details", Text: "What is the vehicle year, make, and model?", Kind: "text"},
	{Key: "purchase_date", Text: "When did you buy or lease it?", Kind: "date"},
	{Key: "registration_state", Text: "What state is the vehicle registered in?", Kind: "text"},
	{Key: "vehicle_problems", Text: "What problem(s) is the vehicle having?", Kind: "text"},
	{Key: "repair_attempts", Text: "How many repair attempts have been made for the same issue?", Kind: "number"},
	{Key: "days_in_shop", Text: "How many total days has the vehicle been in the shop?", Kind: "number"},
	{Key: "has_invoices", Text: "Do you have the repair invoices or receipts?", Kind: "yes_no"},
}

// PersonalInjuryQuestions is the fixed question list for Personal Injury
// intakes.
var PersonalInjuryQuestions = []Question{
	{Key: "incident_type", Text: "What type of incident was it? Options are: car accident, slip and fall, workplace, or other.", Kind: "choice"},
	{Key: "incident_date", Text: "When did it happen? Please provide the date.", Kind: "date"},
	{Key: "incident_location", Text: "Where did it happen? Please provide the city and state.", Kind: "text"},
	{Key: "injuries", Text: "Were you injured? If yes, what injuries did you sustain?", Kind: "text"},
	{Key: "medical_treatment", Text: "Did you get medical treatment?", Kind: "yes_no"},
	{Key: "police_report", Text: "Was a police report made?", Kind: "yes_no_unsure"},
	{Key: "insurance_involved", Text: "Is there insurance involved? Options are: your insurance, other party's insurance, both, or not sure.", Kind: "choice"},
}

// QuestionsFor returns the question list for a practice area. Anything other
// than Lemon Law falls back to Personal Injury, matching the clarify default.
func QuestionsFor(area PracticeArea) []Question {
	if area == PracticeAreaLemonLaw {
		return LemonLawQuestions
	}
	return PersonalInjuryQuestions
}

// Sequencer serves the next unanswered case question for a call and records
// answers at most once per question key. Webhook retries replay turns, so both
// operations must be idempotent.
type Sequencer struct {
	store Store
}

// NewSequencer creates a sequencer over the given store.
func NewSequencer(store Store) *Sequencer {
	return &Sequencer{store: store}
}

// NextUnanswered returns the index of the first question with no stored
// answer. Returns len(questions) when every question is answered, which makes
// re-entry after a crash resume at the correct boundary.
func (s *Sequencer) NextUnanswered(ctx context.Context, callID uuid.UUID, questions []Question) (int, error) {
	answers, err := s.store.ListAnswers(ctx, callID)
	if err != nil {
		return 0, err
	}
	answered := make(map[string]struct{}, len(answers))
	for _, a := range answers {
		answered[a.QuestionKey] = struct{}{}
	}
	for i, q := range questions {
		if _, ok := answered[q.Key]; !ok {
			return i, nil
		}
	}
	return len(questions), nil
}

// Record stores the answer for a question unless one already exists. Returns
// whether a new row was inserted; false means the key was already answered
// and the caller should simply advance.
func (s *Sequencer) Record(ctx context.Context, session *CallSession, q Question, answer string) (bool, error) {
	return s.store.RecordAnswer(ctx, &Answer{
		CallID:       session.ID,
		QuestionKey:  q.Key,
		QuestionText: q.Text,
		AnswerText:   answer,
		PracticeArea: session.PracticeArea,
	})
}
