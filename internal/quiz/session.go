package quiz

import (
	"fmt"
	"sync"

	"github.com/ccna-trainer/backend/internal/models"
)

// Session is one practice-mode session: the pool's draw history, the running
// counters and at most one live question awaiting validation.
type Session struct {
	mu      sync.Mutex
	pool    *Pool
	current *models.Question
	asked   int
	correct int
	wrong   int
}

func NewSession(questions []models.Question, rng Rand) *Session {
	return &Session{pool: NewPool(questions, rng)}
}

// Next draws the next question under filter and makes it the live question.
// A live question that was never answered is discarded unscored.
func (s *Session) Next(filter string) (Draw, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	draw, err := s.pool.Next(filter)
	if err != nil {
		return Draw{}, 0, err
	}
	q := draw.Question
	s.current = &q
	return draw, s.pool.Remaining(filter), nil
}

// Answer validates selected against the live question. It increments Asked
// and exactly one of Correct or Wrong, then clears the live question.
// Rejected selections leave the session untouched.
func (s *Session) Answer(questionID string, selected []string) (Verdict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil || s.current.ID != questionID {
		return Verdict{}, fmt.Errorf("answer %s: %w", questionID, ErrNoLiveQuestion)
	}

	verdict, err := Validate(s.current, selected)
	if err != nil {
		return Verdict{}, err
	}

	s.asked++
	if verdict.Correct {
		s.correct++
	} else {
		s.wrong++
	}
	s.current = nil
	return verdict, nil
}

// Current returns a copy of the live question, if any.
func (s *Session) Current() (models.Question, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return models.Question{}, false
	}
	return *s.current, true
}

func (s *Session) Stats() models.PracticeStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statsLocked()
}

// Reset clears draw history, counters and the live question together.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pool.Reset()
	s.current = nil
	s.asked, s.correct, s.wrong = 0, 0, 0
}

func (s *Session) statsLocked() models.PracticeStats {
	return models.PracticeStats{
		Asked:    s.asked,
		Correct:  s.correct,
		Wrong:    s.wrong,
		Accuracy: Percent(s.correct, s.asked),
	}
}

// Percent rounds part/whole to a whole percentage, treating whole < 1 as 1.
func Percent(part, whole int) int {
	if whole < 1 {
		whole = 1
	}
	return (part*100 + whole/2) / whole
}
