package sessions

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ccna-trainer/backend/internal/exam"
	"github.com/ccna-trainer/backend/internal/models"
	"github.com/ccna-trainer/backend/internal/quiz"
)

type staticSource []models.Question

func (s staticSource) Questions() []models.Question { return s }

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func records(category string, n int) []models.Question {
	out := make([]models.Question, n)
	for i := range out {
		out[i] = models.Question{
			ID:       fmt.Sprintf("%s-%d", category, i+1),
			Prompt:   "Question",
			Options:  map[models.Letter]string{"A": "alpha", "B": "bravo", "C": "charlie"},
			Correct:  []models.Letter{"A"},
			Category: category,
		}
	}
	return out
}

func testProfile(d time.Duration) exam.Profile {
	return exam.Profile{
		Quotas:           []exam.CategoryQuota{{Category: "Network Fundamentals", Quota: 3}},
		PassingThreshold: 2,
		Duration:         d,
	}
}

func newTestManager(t *testing.T, d, ttl time.Duration, results ResultStore) (*Manager, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	m := NewManager(staticSource(records("Network Fundamentals", 5)), testProfile(d), ttl, results)
	m.now = clock.Now
	return m, clock
}

func TestCreateSession(t *testing.T) {
	m, _ := newTestManager(t, time.Hour, time.Hour, nil)

	s, err := m.Create(models.ModePractice)
	if err != nil {
		t.Fatal(err)
	}
	if s.ID == "" || s.Mode() != models.ModePractice {
		t.Errorf("Create() = %+v", s)
	}
	if got, err := m.Get(s.ID); err != nil || got != s {
		t.Errorf("Get(%s) = %v, %v", s.ID, got, err)
	}
	if _, err := m.Get("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrSessionNotFound", err)
	}
	if _, err := m.Create("tutorial"); !errors.Is(err, ErrInvalidMode) {
		t.Errorf("Create(tutorial) error = %v, want ErrInvalidMode", err)
	}

	empty := NewManager(staticSource(nil), testProfile(0), 0, nil)
	if _, err := empty.Create(models.ModeExam); !errors.Is(err, quiz.ErrNoQuestions) {
		t.Errorf("Create on empty catalog error = %v, want ErrNoQuestions", err)
	}

	if !m.Delete(s.ID) || m.Delete(s.ID) {
		t.Error("Delete should succeed once")
	}
}

func TestSweepTimesOutAndRecordsOnce(t *testing.T) {
	results := NewMemoryResults(10)
	m, clock := newTestManager(t, 10*time.Minute, time.Hour, results)
	ctx := context.Background()

	s, err := m.Create(models.ModeExam)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.StartExam(ctx, s); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Exam.Submit([]string{"A"}); err != nil {
		t.Fatal(err)
	}

	clock.Advance(5 * time.Minute)
	m.sweep(ctx, clock.Now())
	if got := s.Exam.State(); got != models.ExamInProgress {
		t.Fatalf("state after 5m = %s, want in_progress", got)
	}

	clock.Advance(6 * time.Minute)
	m.sweep(ctx, clock.Now())
	m.sweep(ctx, clock.Now())

	st := s.Exam.Status()
	if !st.TimedOut || st.Correct != 1 {
		t.Errorf("status after timeout = %+v", st)
	}

	recent, _ := results.Recent(ctx, 10)
	if len(recent) != 1 {
		t.Fatalf("recorded %d results, want 1", len(recent))
	}
	if recent[0].SessionID != s.ID || recent[0].Reason != models.FinishTimeout || recent[0].Answered != 1 {
		t.Errorf("result = %+v", recent[0])
	}
	if recent[0].Passed {
		t.Error("1 correct with threshold 2 should not pass")
	}
}

func TestRestartRecordsAgain(t *testing.T) {
	results := NewMemoryResults(10)
	m, _ := newTestManager(t, 0, 0, results)
	ctx := context.Background()

	s, _ := m.Create(models.ModeExam)
	for round := 0; round < 2; round++ {
		if _, err := m.StartExam(ctx, s); err != nil {
			t.Fatal(err)
		}
		s.Exam.Abort()
		m.RecordIfFinished(ctx, s)
		m.RecordIfFinished(ctx, s)
	}

	recent, _ := results.Recent(ctx, 0)
	if len(recent) != 2 {
		t.Errorf("recorded %d results over two attempts, want 2", len(recent))
	}
	if recent[0].ID <= recent[1].ID {
		t.Errorf("Recent not newest first: %d then %d", recent[0].ID, recent[1].ID)
	}
}

func TestSweepEvictsIdleSessions(t *testing.T) {
	m, clock := newTestManager(t, 0, 30*time.Minute, nil)
	ctx := context.Background()

	idle, _ := m.Create(models.ModePractice)
	active, _ := m.Create(models.ModePractice)

	clock.Advance(20 * time.Minute)
	if _, err := m.Get(active.ID); err != nil {
		t.Fatal(err)
	}

	clock.Advance(15 * time.Minute)
	m.sweep(ctx, clock.Now())

	if _, err := m.Get(idle.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("idle session still present: %v", err)
	}
	if _, err := m.Get(active.ID); err != nil {
		t.Errorf("active session evicted: %v", err)
	}
}

func TestSwitchModeResets(t *testing.T) {
	m, _ := newTestManager(t, 0, 0, nil)
	s, _ := m.Create(models.ModePractice)

	draw, _, err := s.Practice.Next("")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Practice.Answer(draw.Question.ID, []string{"B"}); err != nil {
		t.Fatal(err)
	}

	m.SwitchMode(context.Background(), s, models.ModeExam)
	if s.Mode() != models.ModeExam {
		t.Errorf("Mode() = %s, want exam", s.Mode())
	}
	if st := s.Practice.Stats(); st.Asked != 0 {
		t.Errorf("practice stats after switch = %+v, want zero", st)
	}
	if got := s.Exam.State(); got != models.ExamNotStarted {
		t.Errorf("exam state after switch = %s, want not_started", got)
	}
}

func TestEndingRunningExamRecordsAborted(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		end  func(m *Manager, s *Session) error
	}{
		{"restart", func(m *Manager, s *Session) error {
			_, err := m.StartExam(ctx, s)
			return err
		}},
		{"switch to practice", func(m *Manager, s *Session) error { m.SwitchMode(ctx, s, models.ModePractice); return nil }},
		{"switch to exam", func(m *Manager, s *Session) error { m.SwitchMode(ctx, s, models.ModeExam); return nil }},
		{"end", func(m *Manager, s *Session) error { m.End(ctx, s); return nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := NewMemoryResults(10)
			m, _ := newTestManager(t, time.Hour, 0, results)
			s, _ := m.Create(models.ModeExam)
			if _, err := m.StartExam(ctx, s); err != nil {
				t.Fatal(err)
			}
			if _, err := s.Exam.Submit([]string{"A"}); err != nil {
				t.Fatal(err)
			}

			if err := tt.end(m, s); err != nil {
				t.Fatal(err)
			}
			m.RecordIfFinished(ctx, s)

			recent, _ := results.Recent(ctx, 0)
			if len(recent) != 1 {
				t.Fatalf("recorded %d results, want 1", len(recent))
			}
			if recent[0].Reason != models.FinishAborted || recent[0].Answered != 1 {
				t.Errorf("result = %+v, want aborted with 1 answered", recent[0])
			}
		})
	}
}

func TestAbortedAttemptRecordedOnceAcrossRestart(t *testing.T) {
	results := NewMemoryResults(10)
	m, _ := newTestManager(t, 0, 0, results)
	ctx := context.Background()

	s, _ := m.Create(models.ModeExam)
	if _, err := m.StartExam(ctx, s); err != nil {
		t.Fatal(err)
	}
	s.Exam.Abort()

	// The restart claims the finished attempt; later calls see the new one.
	if _, err := m.StartExam(ctx, s); err != nil {
		t.Fatal(err)
	}
	m.RecordIfFinished(ctx, s)

	recent, _ := results.Recent(ctx, 0)
	if len(recent) != 1 {
		t.Errorf("recorded %d results, want 1", len(recent))
	}
	if got := s.Exam.State(); got != models.ExamInProgress {
		t.Errorf("state after restart = %s, want in_progress", got)
	}
}

func TestSweepRecordsEvictedExam(t *testing.T) {
	results := NewMemoryResults(10)
	m, clock := newTestManager(t, 0, 30*time.Minute, results)
	ctx := context.Background()

	s, _ := m.Create(models.ModeExam)
	if _, err := m.StartExam(ctx, s); err != nil {
		t.Fatal(err)
	}

	clock.Advance(time.Hour)
	m.sweep(ctx, clock.Now())

	if m.Len() != 0 {
		t.Errorf("Len() = %d after eviction, want 0", m.Len())
	}
	recent, _ := results.Recent(ctx, 0)
	if len(recent) != 1 || recent[0].Reason != models.FinishAborted {
		t.Errorf("results after eviction = %+v, want one aborted", recent)
	}
}

func TestInfoNeverMixesModes(t *testing.T) {
	m, _ := newTestManager(t, 0, 0, nil)
	ctx := context.Background()
	s, _ := m.Create(models.ModePractice)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			m.SwitchMode(ctx, s, models.ModeExam)
			m.StartExam(ctx, s)
			m.SwitchMode(ctx, s, models.ModePractice)
		}
		close(stop)
	}()

	for {
		select {
		case <-stop:
			wg.Wait()
			return
		default:
		}
		info := s.Info()
		if info.Mode == models.ModePractice && info.Exam.State != models.ExamNotStarted {
			t.Fatalf("practice session reports exam state %s", info.Exam.State)
		}
	}
}
