package exam

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ccna-trainer/backend/internal/models"
	"github.com/ccna-trainer/backend/internal/quiz"
)

type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func record(id, category string) models.Question {
	return models.Question{
		ID:       id,
		Prompt:   "Question " + id,
		Options:  map[models.Letter]string{"A": "alpha", "B": "bravo", "C": "charlie", "D": "delta"},
		Correct:  []models.Letter{"A"},
		Category: category,
	}
}

func records(category string, n int) []models.Question {
	out := make([]models.Question, n)
	for i := range out {
		out[i] = record(fmt.Sprintf("%s-%d", category, i+1), category)
	}
	return out
}

func singleCategory(category string, quota, threshold int, d time.Duration) Profile {
	return Profile{
		Quotas:           []CategoryQuota{{Category: category, Quota: quota}},
		PassingThreshold: threshold,
		Duration:         d,
	}
}

func TestSampleShortQuota(t *testing.T) {
	questions := append(records("X", 2), records("Y", 5)...)
	got := Sample(singleCategory("X", 3, 0, 0), questions, quiz.NewRand())

	if len(got) != 2 {
		t.Fatalf("Sample({X:3}) with 2 X records returned %d, want 2", len(got))
	}
	for _, q := range got {
		if q.Category != "X" {
			t.Errorf("sampled record %s has category %q, want X", q.ID, q.Category)
		}
	}
}

func TestSampleHonorsQuotas(t *testing.T) {
	profile := DefaultProfile()
	var questions []models.Question
	for _, cq := range profile.Quotas {
		questions = append(questions, records(cq.Category, cq.Quota+7)...)
	}
	questions = append(questions, records("Wireless Trivia", 30)...)

	got := Sample(profile, questions, quiz.NewRand())
	if len(got) != profile.Total() {
		t.Fatalf("len(Sample) = %d, want %d", len(got), profile.Total())
	}

	counts := SampledByCategory(got)
	for _, cq := range profile.Quotas {
		if counts[cq.Category] != cq.Quota {
			t.Errorf("category %q sampled %d, want %d", cq.Category, counts[cq.Category], cq.Quota)
		}
	}
	if counts["Wireless Trivia"] != 0 {
		t.Errorf("unconfigured category sampled %d times", counts["Wireless Trivia"])
	}

	seen := map[string]bool{}
	for _, q := range got {
		if seen[q.ID] {
			t.Errorf("record %s sampled twice", q.ID)
		}
		seen[q.ID] = true
	}
}

func TestBuildErrors(t *testing.T) {
	e := New(singleCategory("X", 3, 0, 0), nil, nil)
	if _, err := e.Build(nil); !errors.Is(err, quiz.ErrNoQuestions) {
		t.Errorf("Build(nil) error = %v, want ErrNoQuestions", err)
	}
	if _, err := e.Build(records("Y", 4)); !errors.Is(err, ErrEmptyExam) {
		t.Errorf("Build(no matching category) error = %v, want ErrEmptyExam", err)
	}
	if got := e.State(); got != models.ExamNotStarted {
		t.Errorf("State after failed Build = %s, want %s", got, models.ExamNotStarted)
	}
}

func TestNotStarted(t *testing.T) {
	e := New(singleCategory("X", 3, 0, 0), nil, nil)
	if _, err := e.Current(); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Current() error = %v, want ErrNotStarted", err)
	}
	if _, err := e.Submit([]string{"A"}); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Submit() error = %v, want ErrNotStarted", err)
	}
	if _, err := e.Report(); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Report() error = %v, want ErrNotStarted", err)
	}
	if e.Abort() {
		t.Errorf("Abort() on a not started exam = true, want false")
	}
}

func TestPassThreshold(t *testing.T) {
	tests := []struct {
		correct int
		passed  bool
	}{
		{82, true},
		{81, false},
		{100, true},
		{0, false},
	}

	for _, tt := range tests {
		clock := newFakeClock()
		e := New(singleCategory("X", 100, 82, 0), quiz.NewRand(), clock.Now)
		if _, err := e.Build(records("X", 100)); err != nil {
			t.Fatal(err)
		}
		for i := 0; i < 100; i++ {
			sel := "B"
			if i < tt.correct {
				sel = "A"
			}
			if _, err := e.Submit([]string{sel}); err != nil {
				t.Fatalf("Submit #%d: %v", i+1, err)
			}
		}

		st := e.Status()
		if !st.Finished || st.Reason != models.FinishCompleted {
			t.Fatalf("after 100 answers Finished=%v Reason=%q", st.Finished, st.Reason)
		}
		if st.Passed != tt.passed {
			t.Errorf("%d correct: Passed = %v, want %v", tt.correct, st.Passed, tt.passed)
		}
		if st.PerCategoryScore["X"] != tt.correct {
			t.Errorf("%d correct: PerCategoryScore[X] = %d", tt.correct, st.PerCategoryScore["X"])
		}
	}
}

func TestTimeoutKeepsOnlySubmittedAnswers(t *testing.T) {
	clock := newFakeClock()
	e := New(singleCategory("X", 10, 8, 10*time.Minute), quiz.NewRand(), clock.Now)
	if _, err := e.Build(records("X", 10)); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 5; i++ {
		clock.Advance(time.Minute)
		if _, err := e.Submit([]string{"A"}); err != nil {
			t.Fatalf("Submit #%d: %v", i+1, err)
		}
	}

	clock.Advance(4*time.Minute + 59*time.Second)
	if e.Tick(clock.Now()) {
		t.Fatalf("Tick one second before the deadline finished the exam")
	}
	if rs := e.Status().RemainingSeconds; rs == nil || *rs != 1 {
		t.Errorf("RemainingSeconds = %v, want 1", rs)
	}

	clock.Advance(time.Second)
	if !e.Tick(clock.Now()) {
		t.Fatalf("Tick at the deadline did not finish the exam")
	}

	st := e.Status()
	if !st.TimedOut || st.Reason != models.FinishTimeout {
		t.Errorf("TimedOut = %v, Reason = %q; want true, timeout", st.TimedOut, st.Reason)
	}
	if st.Cursor != 5 {
		t.Errorf("Cursor = %d, want 5", st.Cursor)
	}
	if got := len(e.Log()); got != 5 {
		t.Errorf("len(Log) = %d, want 5", got)
	}
	if st.Passed {
		t.Errorf("5 correct against threshold 8 passed")
	}
	if st.Clock != "00:00:00" {
		t.Errorf("Clock = %q, want 00:00:00", st.Clock)
	}

	if _, err := e.Submit([]string{"A"}); !errors.Is(err, ErrExamFinished) {
		t.Errorf("Submit after timeout error = %v, want ErrExamFinished", err)
	}
}

func TestStatusExpiresWithoutTick(t *testing.T) {
	clock := newFakeClock()
	e := New(singleCategory("X", 3, 2, time.Minute), nil, clock.Now)
	if _, err := e.Build(records("X", 3)); err != nil {
		t.Fatal(err)
	}
	clock.Advance(2 * time.Minute)

	st := e.Status()
	if !st.TimedOut {
		t.Errorf("Status after the deadline TimedOut = false")
	}
	if st.ElapsedSeconds != 60 {
		t.Errorf("ElapsedSeconds = %d, want 60 (frozen at the deadline)", st.ElapsedSeconds)
	}
}

func TestCountUpNeverTimesOut(t *testing.T) {
	clock := newFakeClock()
	e := New(singleCategory("X", 2, 1, 0), nil, clock.Now)
	if _, err := e.Build(records("X", 2)); err != nil {
		t.Fatal(err)
	}
	clock.Advance(5 * time.Hour)

	if e.Tick(clock.Now()) {
		t.Fatalf("count-up exam finished on Tick")
	}
	st := e.Status()
	if st.RemainingSeconds != nil {
		t.Errorf("RemainingSeconds = %d, want nil for count-up", *st.RemainingSeconds)
	}
	if st.Clock != "05:00:00" {
		t.Errorf("Clock = %q, want 05:00:00", st.Clock)
	}
}

func TestSubmitInvalidSelectionLeavesState(t *testing.T) {
	e := New(singleCategory("X", 3, 2, 0), nil, nil)
	if _, err := e.Build(records("X", 3)); err != nil {
		t.Fatal(err)
	}
	before, _ := e.Current()

	for _, sel := range [][]string{{"E"}, {}, {" "}} {
		if _, err := e.Submit(sel); !errors.Is(err, quiz.ErrInvalidSelection) {
			t.Errorf("Submit(%q) error = %v, want ErrInvalidSelection", sel, err)
		}
	}

	after, _ := e.Current()
	if before.ID != after.ID {
		t.Errorf("cursor moved on invalid selection: %s -> %s", before.ID, after.ID)
	}
	if st := e.Status(); st.Cursor != 0 || st.Correct+st.Wrong != 0 {
		t.Errorf("Status after invalid selections = %+v", st)
	}
}

func TestAbortAndRebuild(t *testing.T) {
	e := New(singleCategory("X", 3, 2, time.Hour), nil, nil)
	if _, err := e.Build(records("X", 3)); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Submit([]string{"A"}); err != nil {
		t.Fatal(err)
	}
	if !e.Abort() {
		t.Fatalf("Abort() = false on exam in progress")
	}
	if e.Abort() {
		t.Errorf("second Abort() = true")
	}
	if st := e.Status(); st.Reason != models.FinishAborted || st.Cursor != 1 {
		t.Errorf("after abort Reason=%q Cursor=%d", st.Reason, st.Cursor)
	}

	if _, err := e.Build(records("X", 3)); err != nil {
		t.Fatal(err)
	}
	st := e.Status()
	if st.State != models.ExamInProgress || st.Cursor != 0 || st.Correct != 0 || len(e.Log()) != 0 {
		t.Errorf("rebuild did not reset the attempt: %+v", st)
	}
}

func TestReport(t *testing.T) {
	clock := newFakeClock()
	profile := Profile{
		Quotas: []CategoryQuota{
			{Category: "IP services", Quota: 2},
			{Category: "Programmability", Quota: 3},
		},
		PassingThreshold: 3,
		Duration:         30 * time.Minute,
	}
	e := New(profile, nil, clock.Now)
	questions := append(records("IP services", 2), records("Programmability", 1)...)
	if _, err := e.Build(questions); err != nil {
		t.Fatal(err)
	}

	if _, err := e.Report(); !errors.Is(err, ErrExamInProgress) {
		t.Errorf("Report() in progress error = %v, want ErrExamInProgress", err)
	}

	for i := 0; i < 3; i++ {
		clock.Advance(10 * time.Second)
		q, _ := e.Current()
		sel := "A"
		if q.Category == "Programmability" {
			sel = "C"
		}
		if _, err := e.Submit([]string{sel}); err != nil {
			t.Fatal(err)
		}
	}

	r, err := e.Report()
	if err != nil {
		t.Fatal(err)
	}
	if r.Correct != 2 || r.TargetTotal != 5 || r.Percent != 40 {
		t.Errorf("Report correct=%d target=%d pct=%d, want 2 5 40", r.Correct, r.TargetTotal, r.Percent)
	}
	if r.Passed || r.Result != ResultFailed {
		t.Errorf("Report Passed=%v Result=%s, want false FAILED", r.Passed, r.Result)
	}
	if r.Headline != "Exam finished!" {
		t.Errorf("Headline = %q", r.Headline)
	}
	if r.ElapsedClock != "00:00:30" {
		t.Errorf("ElapsedClock = %q, want 00:00:30", r.ElapsedClock)
	}

	want := []models.CategoryScore{
		{Category: "IP services", Score: 2, Quota: 2, Sampled: 2},
		{Category: "Programmability", Score: 0, Quota: 3, Sampled: 1},
	}
	for i, c := range want {
		if r.Categories[i] != c {
			t.Errorf("Categories[%d] = %+v, want %+v", i, r.Categories[i], c)
		}
	}

	if len(r.Review) != 3 {
		t.Fatalf("len(Review) = %d, want 3", len(r.Review))
	}
	for _, rv := range r.Review {
		if rv.Explanation != NoExplanation {
			t.Errorf("review %d explanation = %q, want fallback", rv.Number, rv.Explanation)
		}
		if len(rv.CorrectKey) != 1 || rv.CorrectKey[0].Text != "alpha" {
			t.Errorf("review %d correct key = %+v", rv.Number, rv.CorrectKey)
		}
		if !rv.Correct && rv.Selected[0].Text != "charlie" {
			t.Errorf("review %d selected = %+v", rv.Number, rv.Selected)
		}
	}
}

func TestFormatClock(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{7200, "02:00:00"},
		{3661, "01:01:01"},
		{59, "00:00:59"},
		{0, "00:00:00"},
		{-5, "00:00:00"},
	}
	for _, tt := range tests {
		if got := FormatClock(tt.seconds); got != tt.want {
			t.Errorf("FormatClock(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestRemainingClamps(t *testing.T) {
	start := newFakeClock().Now()
	if got := Remaining(start, start.Add(3*time.Hour), 2*time.Hour); got != 0 {
		t.Errorf("Remaining past deadline = %s, want 0", got)
	}
	if got := Seconds(Remaining(start, start.Add(500*time.Millisecond), time.Minute)); got != 60 {
		t.Errorf("Seconds(Remaining) half a second in = %d, want 60", got)
	}
	if got := Elapsed(start, start.Add(-time.Minute)); got != 0 {
		t.Errorf("Elapsed before start = %s, want 0", got)
	}
}

func TestProfileValidate(t *testing.T) {
	if err := DefaultProfile().Validate(); err != nil {
		t.Errorf("DefaultProfile().Validate() = %v", err)
	}
	if got := DefaultProfile().Total(); got != 100 {
		t.Errorf("DefaultProfile().Total() = %d, want 100", got)
	}

	bad := []Profile{
		{},
		{Quotas: []CategoryQuota{{Category: "", Quota: 1}}},
		{Quotas: []CategoryQuota{{Category: "A", Quota: 1}, {Category: "A", Quota: 2}}},
		{Quotas: []CategoryQuota{{Category: "A", Quota: -1}}},
		{Quotas: []CategoryQuota{{Category: "A", Quota: 5}}, PassingThreshold: 6},
		{Quotas: []CategoryQuota{{Category: "A", Quota: 5}}, Duration: -time.Second},
	}
	for i, p := range bad {
		if err := p.Validate(); err == nil {
			t.Errorf("profile %d: Validate() = nil, want error", i)
		}
	}
}
