package intake

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a mutex-guarded in-memory Store. It backs local development
// without Postgres and the dialogue tests.
type MemoryStore struct {
	mu           sync.RWMutex
	callers      map[uuid.UUID]*Caller
	sessions     map[uuid.UUID]*CallSession
	bySID        map[string]uuid.UUID
	answers      map[uuid.UUID][]*Answer
	appointments map[uuid.UUID]*Appointment
	events       map[uuid.UUID]*CalendarEventRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		callers:      make(map[uuid.UUID]*Caller),
		sessions:     make(map[uuid.UUID]*CallSession),
		bySID:        make(map[string]uuid.UUID),
		answers:      make(map[uuid.UUID][]*Answer),
		appointments: make(map[uuid.UUID]*Appointment),
		events:       make(map[uuid.UUID]*CalendarEventRecord),
	}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) EnsureSession(ctx context.Context, callSID, fromNumber string) (*CallSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.bySID[callSID]; ok {
		return cloneSession(s.sessions[id]), nil
	}

	caller := &Caller{
		ID:        uuid.New(),
		FullName:  "Temporary",
		Phone:     fromNumber,
		Email:     PlaceholderEmail(callSID),
		CreatedAt: time.Now().UTC(),
	}
	s.callers[caller.ID] = caller

	now := time.Now().UTC()
	sess := &CallSession{
		ID:        uuid.New(),
		CallSID:   callSID,
		CallerID:  caller.ID,
		Status:    CallInProgress,
		State:     StateGreeting,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.sessions[sess.ID] = sess
	s.bySID[callSID] = sess.ID
	return cloneSession(sess), nil
}

func (s *MemoryStore) GetSessionByCallSID(ctx context.Context, callSID string) (*CallSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.bySID[callSID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return cloneSession(s.sessions[id]), nil
}

func (s *MemoryStore) GetSession(ctx context.Context, id uuid.UUID) (*CallSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return cloneSession(sess), nil
}

func (s *MemoryStore) ListSessions(ctx context.Context) ([]CallSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]CallSession, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, *sess)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) SaveSession(ctx context.Context, sess *CallSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.ID]; !ok {
		return ErrSessionNotFound
	}
	sess.UpdatedAt = time.Now().UTC()
	s.sessions[sess.ID] = cloneSession(sess)
	return nil
}

func (s *MemoryStore) GetCaller(ctx context.Context, id uuid.UUID) (*Caller, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.callers[id]
	if !ok {
		return nil, ErrCallerNotFound
	}
	clone := *c
	return &clone, nil
}

func (s *MemoryStore) CreateCaller(ctx context.Context, c *Caller) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	clone := *c
	s.callers[c.ID] = &clone
	return nil
}

func (s *MemoryStore) SaveCaller(ctx context.Context, c *Caller) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.callers[c.ID]; !ok {
		return ErrCallerNotFound
	}
	clone := *c
	s.callers[c.ID] = &clone
	return nil
}

func (s *MemoryStore) GetOrCreateCallerByEmail(ctx context.Context, email string, defaults Caller) (*Caller, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lower := strings.ToLower(email)
	for _, c := range s.callers {
		if strings.ToLower(c.Email) == lower {
			clone := *c
			return &clone, false, nil
		}
	}

	created := defaults
	created.ID = uuid.New()
	created.Email = email
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}
	stored := created
	s.callers[created.ID] = &stored
	return &created, true, nil
}

func (s *MemoryStore) ListAnswers(ctx context.Context, callID uuid.UUID) ([]Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.answers[callID]
	out := make([]Answer, 0, len(list))
	for _, a := range list {
		out = append(out, *a)
	}
	return out, nil
}

func (s *MemoryStore) GetAnswer(ctx context.Context, callID uuid.UUID, questionKey string) (*Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.answers[callID] {
		if a.QuestionKey == questionKey {
			clone := *a
			return &clone, nil
		}
	}
	return nil, ErrAnswerNotFound
}

func (s *MemoryStore) RecordAnswer(ctx context.Context, a *Answer) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.answers[a.CallID] {
		if existing.QuestionKey == a.QuestionKey {
			*a = *existing
			return false, nil
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	clone := *a
	s.answers[a.CallID] = append(s.answers[a.CallID], &clone)
	return true, nil
}

func (s *MemoryStore) CreateAppointment(ctx context.Context, appt *Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if appt.ID == uuid.Nil {
		appt.ID = uuid.New()
	}
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = time.Now().UTC()
	}
	clone := *appt
	s.appointments[appt.ID] = &clone
	return nil
}

func (s *MemoryStore) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	appt, ok := s.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	clone := *appt
	return &clone, nil
}

func (s *MemoryStore) ListAppointments(ctx context.Context) ([]Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Appointment, 0, len(s.appointments))
	for _, appt := range s.appointments {
		out = append(out, *appt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) SetAppointmentCalendarEvent(ctx context.Context, id uuid.UUID, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	appt, ok := s.appointments[id]
	if !ok {
		return ErrAppointmentNotFound
	}
	appt.CalendarEventID = eventID
	return nil
}

func (s *MemoryStore) MarkConfirmationEmailSent(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	appt, ok := s.appointments[id]
	if !ok {
		return ErrAppointmentNotFound
	}
	appt.ConfirmationEmailSent = true
	return nil
}

func (s *MemoryStore) CreateCalendarEventRecord(ctx context.Context, rec *CalendarEventRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	clone := *rec
	s.events[rec.ID] = &clone
	return nil
}

func cloneSession(s *CallSession) *CallSession {
	clone := *s
	return &clone
}
