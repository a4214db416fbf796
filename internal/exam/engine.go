package exam

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ccna-trainer/backend/internal/models"
	"github.com/ccna-trainer/backend/internal/quiz"
)

var (
	ErrNotStarted     = errors.New("exam not started")
	ErrExamFinished   = errors.New("exam already finished")
	ErrExamInProgress = errors.New("exam still in progress")
	ErrEmptyExam      = errors.New("no questions match the exam profile")
)

// Clock reports the current instant. Tests inject a fake one.
type Clock func() time.Time

// Engine runs one timed mock exam: NotStarted -> InProgress -> Finished.
// Finished is terminal until the next Build.
type Engine struct {
	mu      sync.Mutex
	profile Profile
	rng     quiz.Rand
	now     Clock

	state   models.ExamState
	reason  models.FinishReason
	sampled []models.Question
	cursor  int

	correct     int
	wrong       int
	perCategory map[string]int
	log         []models.AnswerLogEntry

	startedAt  time.Time
	finishedAt time.Time
}

func New(profile Profile, rng quiz.Rand, clock Clock) *Engine {
	if rng == nil {
		rng = quiz.NewRand()
	}
	if clock == nil {
		clock = time.Now
	}
	return &Engine{
		profile:     profile,
		rng:         rng,
		now:         clock,
		state:       models.ExamNotStarted,
		perCategory: make(map[string]int),
	}
}

func (e *Engine) Profile() Profile {
	return e.profile
}

// Build samples a fresh exam from questions and starts the clock. Any
// previous attempt is discarded.
func (e *Engine) Build(questions []models.Question) ([]models.Question, error) {
	if len(questions) == 0 {
		return nil, quiz.ErrNoQuestions
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	sampled := Sample(e.profile, questions, e.rng)
	if len(sampled) == 0 {
		return nil, ErrEmptyExam
	}

	e.sampled = sampled
	e.cursor = 0
	e.correct, e.wrong = 0, 0
	e.perCategory = make(map[string]int)
	e.log = nil
	e.reason = models.FinishNone
	e.startedAt = e.now()
	e.finishedAt = time.Time{}
	e.state = models.ExamInProgress

	out := make([]models.Question, len(sampled))
	copy(out, sampled)
	return out, nil
}

// Current returns the question at the cursor.
func (e *Engine) Current() (models.Question, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.expireLocked(e.now())
	if err := e.requireInProgressLocked(); err != nil {
		return models.Question{}, err
	}
	return e.sampled[e.cursor], nil
}

// Submit scores selected against the current question, logs it and advances
// the cursor. Answering the last question finishes the exam. A rejected
// selection leaves the cursor and the log untouched.
func (e *Engine) Submit(selected []string) (quiz.Verdict, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	e.expireLocked(now)
	if err := e.requireInProgressLocked(); err != nil {
		return quiz.Verdict{}, err
	}

	q := e.sampled[e.cursor]
	verdict, err := quiz.Validate(&q, selected)
	if err != nil {
		return quiz.Verdict{}, err
	}

	e.log = append(e.log, models.AnswerLogEntry{
		Question: q,
		Selected: verdict.Selected,
		Correct:  verdict.Correct,
		At:       now,
	})
	if verdict.Correct {
		e.correct++
		e.perCategory[q.Category]++
	} else {
		e.wrong++
	}
	e.cursor++

	if e.cursor == len(e.sampled) {
		e.finishLocked(models.FinishCompleted, now)
	}
	return verdict, nil
}

// Tick applies the countdown at now and reports whether the exam is finished.
// The sessions sweeper calls it once per second.
func (e *Engine) Tick(now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.expireLocked(now)
	return e.state == models.ExamFinished
}

// Abort ends an exam in progress. Any other state is left alone.
func (e *Engine) Abort() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.now()
	e.expireLocked(now)
	if e.state != models.ExamInProgress {
		return false
	}
	e.finishLocked(models.FinishAborted, now)
	return true
}

// Reset discards any attempt and returns to NotStarted.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sampled = nil
	e.cursor = 0
	e.correct, e.wrong = 0, 0
	e.perCategory = make(map[string]int)
	e.log = nil
	e.reason = models.FinishNone
	e.startedAt = time.Time{}
	e.finishedAt = time.Time{}
	e.state = models.ExamNotStarted
}

func (e *Engine) State() models.ExamState {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.expireLocked(e.now())
	return e.state
}

// Status is a snapshot of the exam at the engine clock's current instant.
func (e *Engine) Status() models.ExamStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.now()
	e.expireLocked(now)
	return e.statusLocked(now)
}

// Log returns a copy of the submitted answers in order.
func (e *Engine) Log() []models.AnswerLogEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.AnswerLogEntry, len(e.log))
	copy(out, e.log)
	return out
}

func (e *Engine) statusLocked(now time.Time) models.ExamStatus {
	per := make(map[string]int, len(e.profile.Quotas))
	for _, cq := range e.profile.Quotas {
		per[cq.Category] = e.perCategory[cq.Category]
	}

	st := models.ExamStatus{
		State:            e.state,
		Cursor:           e.cursor,
		Total:            len(e.sampled),
		TargetTotal:      e.profile.Total(),
		Correct:          e.correct,
		Wrong:            e.wrong,
		PerCategoryScore: per,
		Finished:         e.state == models.ExamFinished,
		Passed:           e.state == models.ExamFinished && e.passedLocked(),
		TimedOut:         e.reason == models.FinishTimeout,
		Reason:           e.reason,
	}
	if e.state == models.ExamNotStarted {
		st.Clock = FormatClock(Seconds(e.profile.Duration))
		return st
	}

	end := now
	if e.state == models.ExamFinished {
		end = e.finishedAt
	}
	st.ElapsedSeconds = int(Elapsed(e.startedAt, end) / time.Second)
	if e.profile.Duration > 0 {
		left := Seconds(Remaining(e.startedAt, end, e.profile.Duration))
		st.RemainingSeconds = &left
		st.Clock = FormatClock(left)
	} else {
		st.Clock = FormatClock(st.ElapsedSeconds)
	}
	return st
}

func (e *Engine) passedLocked() bool {
	return e.correct >= e.profile.PassingThreshold
}

// expireLocked finishes an in-progress countdown whose deadline is at or
// before now. The log keeps only what was actually submitted.
func (e *Engine) expireLocked(now time.Time) {
	if e.state != models.ExamInProgress || e.profile.Duration <= 0 {
		return
	}
	deadline := e.startedAt.Add(e.profile.Duration)
	if now.Before(deadline) {
		return
	}
	e.finishLocked(models.FinishTimeout, deadline)
}

func (e *Engine) finishLocked(reason models.FinishReason, at time.Time) {
	e.state = models.ExamFinished
	e.reason = reason
	e.finishedAt = at
}

func (e *Engine) requireInProgressLocked() error {
	switch e.state {
	case models.ExamNotStarted:
		return ErrNotStarted
	case models.ExamFinished:
		return fmt.Errorf("%w (%s)", ErrExamFinished, e.reason)
	}
	return nil
}
