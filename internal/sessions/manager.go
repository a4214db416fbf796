package sessions

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ccna-trainer/backend/internal/exam"
	"github.com/ccna-trainer/backend/internal/models"
	"github.com/ccna-trainer/backend/internal/quiz"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidMode     = errors.New("mode must be practice or exam")
)

// QuestionSource supplies the current catalog. *catalog.Catalog satisfies it.
type QuestionSource interface {
	Questions() []models.Question
}

// Manager owns all live sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	source  QuestionSource
	profile exam.Profile
	ttl     time.Duration
	results ResultStore

	now     func() time.Time
	newRand func() quiz.Rand
}

// NewManager creates a manager. results may be nil.
func NewManager(source QuestionSource, profile exam.Profile, ttl time.Duration, results ResultStore) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		source:   source,
		profile:  profile,
		ttl:      ttl,
		results:  results,
		now:      time.Now,
		newRand:  quiz.NewRand,
	}
}

// Create starts a session over the current catalog snapshot.
func (m *Manager) Create(mode models.Mode) (*Session, error) {
	if mode != models.ModePractice && mode != models.ModeExam {
		return nil, ErrInvalidMode
	}
	questions := m.source.Questions()
	if len(questions) == 0 {
		return nil, quiz.ErrNoQuestions
	}

	now := m.now()
	s := &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		Practice:  quiz.NewSession(questions, m.newRand()),
		Exam:      exam.New(m.profile, m.newRand(), exam.Clock(m.now)),
		questions: questions,
		mode:      mode,
		lastSeen:  now,
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	log.Printf("[sessions] created %s session %s over %d questions", mode, s.ID, len(questions))
	return s, nil
}

// Get returns a live session and marks it as seen.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrSessionNotFound)
	}
	s.touch(m.now())
	return s, nil
}

func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return false
	}
	delete(m.sessions, id)
	return true
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// RecordIfFinished saves the exam result once per finished attempt.
func (m *Manager) RecordIfFinished(ctx context.Context, s *Session) {
	m.record(ctx, s.ID, s.FinishedReport())
}

// StartExam begins a fresh attempt. A running attempt is aborted and
// recorded first.
func (m *Manager) StartExam(ctx context.Context, s *Session) ([]models.Question, error) {
	sampled, ended, err := s.StartExam()
	m.record(ctx, s.ID, ended)
	return sampled, err
}

// SwitchMode changes the session's mode. A running exam is aborted and
// recorded first.
func (m *Manager) SwitchMode(ctx context.Context, s *Session, mode models.Mode) {
	m.record(ctx, s.ID, s.SwitchMode(mode))
}

// End aborts and records a running exam, then forgets the session.
func (m *Manager) End(ctx context.Context, s *Session) {
	m.record(ctx, s.ID, s.EndExam())
	m.Delete(s.ID)
}

func (m *Manager) record(ctx context.Context, sessionID string, report *models.ExamReport) {
	if report == nil || m.results == nil {
		return
	}
	if err := m.results.SaveResult(ctx, sessionID, *report); err != nil {
		log.Printf("WARN: [sessions] saving result for %s: %v", sessionID, err)
	}
}

// Start runs the sweeper until ctx is cancelled. Once a second it applies
// exam countdowns and evicts sessions idle for longer than the TTL.
func (m *Manager) Start(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	log.Println("[sessions] sweeper started")

	for {
		select {
		case <-ctx.Done():
			log.Println("[sessions] sweeper shutting down")
			return
		case <-ticker.C:
			m.sweep(ctx, m.now())
		}
	}
}

func (m *Manager) sweep(ctx context.Context, now time.Time) {
	m.mu.RLock()
	live := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		live = append(live, s)
	}
	m.mu.RUnlock()

	evicted := 0
	for _, s := range live {
		if s.Exam.Tick(now) {
			m.RecordIfFinished(ctx, s)
		}
		if m.ttl > 0 && s.idle(now) > m.ttl {
			m.End(ctx, s)
			evicted++
		}
	}
	if evicted > 0 {
		log.Printf("[sessions] evicted %d idle sessions", evicted)
	}
}
