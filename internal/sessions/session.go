package sessions

import (
	"sync"
	"time"

	"github.com/ccna-trainer/backend/internal/exam"
	"github.com/ccna-trainer/backend/internal/models"
	"github.com/ccna-trainer/backend/internal/quiz"
)

// Session is one learner's state: a practice session and an exam engine over
// the catalog snapshot taken when the session was created.
//
// mu orders mode switches, exam starts and result claims so that no reader
// sees a new mode next to the old exam, and an attempt is claimed once.
type Session struct {
	ID        string
	CreatedAt time.Time

	Practice *quiz.Session
	Exam     *exam.Engine

	questions []models.Question

	mu       sync.Mutex
	mode     models.Mode
	lastSeen time.Time
	recorded bool
}

func (s *Session) Mode() models.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Questions is the catalog snapshot the session draws from.
func (s *Session) Questions() []models.Question {
	return s.questions
}

// SwitchMode aborts a running exam, then resets the practice counters and the
// exam and changes mode, all in one step. It returns the report of an attempt
// that ended unrecorded, if any.
func (s *Session) SwitchMode(mode models.Mode) *models.ExamReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Exam.Abort()
	ended := s.takeReportLocked()

	s.Practice.Reset()
	s.Exam.Reset()
	s.mode = mode
	s.recorded = false
	return ended
}

// StartExam aborts a running attempt and samples a fresh one. The report of
// an attempt that ended unrecorded is returned alongside.
func (s *Session) StartExam() ([]models.Question, *models.ExamReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Exam.Abort()
	ended := s.takeReportLocked()

	sampled, err := s.Exam.Build(s.questions)
	if err != nil {
		return nil, ended, err
	}
	s.recorded = false
	return sampled, ended, nil
}

// EndExam aborts a running attempt and returns its report if unrecorded.
func (s *Session) EndExam() *models.ExamReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Exam.Abort()
	return s.takeReportLocked()
}

// FinishedReport returns the report of a finished attempt the first time it
// is asked for, and nil afterwards or while the exam is not finished.
func (s *Session) FinishedReport() *models.ExamReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.takeReportLocked()
}

func (s *Session) takeReportLocked() *models.ExamReport {
	if s.recorded {
		return nil
	}
	report, err := s.Exam.Report()
	if err != nil {
		return nil
	}
	s.recorded = true
	return &report
}

func (s *Session) Info() models.SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.SessionInfo{
		SessionID: s.ID,
		Mode:      s.mode,
		CreatedAt: s.CreatedAt,
		Questions: len(s.questions),
		Practice:  s.Practice.Stats(),
		Exam:      s.Exam.Status(),
	}
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idle(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}
