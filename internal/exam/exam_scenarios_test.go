package exam

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cucumber/godog"

	"github.com/ccna-trainer/backend/internal/models"
)

// TestExamScenarios runs the exam feature scenarios.
func TestExamScenarios(t *testing.T) {
	suite := godog.TestSuite{
		Name:                "exam",
		ScenarioInitializer: InitializeExamScenario,
		Options: &godog.Options{
			Format:    "pretty",
			Paths:     []string{"features"},
			Strict:    true,
			TestingT:  t,
			Randomize: 0,
		},
	}
	if suite.Run() != 0 {
		t.Fatalf("non-zero godog status")
	}
}

// InitializeExamScenario wires steps for exam scenarios.
func InitializeExamScenario(ctx *godog.ScenarioContext) {
	state := &examScenarioState{}
	ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		state.reset()
		return ctx, nil
	})

	ctx.Step(`^an exam profile with quota (\d+) for "([^"]+)" and a (\d+) minute timer$`, state.givenProfile)
	ctx.Step(`^the passing threshold is (\d+)$`, state.givenThreshold)
	ctx.Step(`^a catalog with (\d+) questions in "([^"]+)" and (\d+) questions in "([^"]+)"$`, state.givenCatalog)
	ctx.Step(`^the exam is built$`, state.whenBuilt)
	ctx.Step(`^I answer (\d+) questions correctly and the rest wrong$`, state.whenAnswerRest)
	ctx.Step(`^I answer (\d+) questions correctly$`, state.whenAnswerCorrectly)
	ctx.Step(`^(\d+) minutes pass$`, state.whenMinutesPass)
	ctx.Step(`^the exam holds (\d+) questions$`, state.thenHolds)
	ctx.Step(`^every sampled question is in "([^"]+)"$`, state.thenAllIn)
	ctx.Step(`^the exam is finished with reason "([^"]+)"$`, state.thenFinishedWith)
	ctx.Step(`^the exam result is "(passed|failed)"$`, state.thenResult)
	ctx.Step(`^the cursor is at (\d+)$`, state.thenCursor)
	ctx.Step(`^the answer log holds (\d+) entries$`, state.thenLogHolds)
	ctx.Step(`^further answers are refused$`, state.thenRefused)
}

type examScenarioState struct {
	clock   *fakeClock
	profile Profile
	catalog []models.Question
	engine  *Engine
	sampled []models.Question
}

func (s *examScenarioState) reset() {
	s.clock = newFakeClock()
	s.profile = Profile{}
	s.catalog = nil
	s.engine = nil
	s.sampled = nil
}

func (s *examScenarioState) givenProfile(quota int, category string, minutes int) error {
	s.profile = singleCategory(category, quota, 0, time.Duration(minutes)*time.Minute)
	return nil
}

func (s *examScenarioState) givenThreshold(threshold int) error {
	s.profile.PassingThreshold = threshold
	return nil
}

func (s *examScenarioState) givenCatalog(n int, category string, m int, other string) error {
	s.catalog = append(records(category, n), records(other, m)...)
	return nil
}

func (s *examScenarioState) whenBuilt() error {
	s.engine = New(s.profile, nil, s.clock.Now)
	sampled, err := s.engine.Build(s.catalog)
	if err != nil {
		return err
	}
	s.sampled = sampled
	return nil
}

func (s *examScenarioState) whenAnswerCorrectly(n int) error {
	return s.answer(n, "A")
}

func (s *examScenarioState) whenAnswerRest(right int) error {
	if err := s.answer(right, "A"); err != nil {
		return err
	}
	return s.answer(len(s.sampled)-right, "B")
}

func (s *examScenarioState) answer(n int, letter string) error {
	for i := 0; i < n; i++ {
		if _, err := s.engine.Submit([]string{letter}); err != nil {
			return fmt.Errorf("submit %d: %w", i+1, err)
		}
	}
	return nil
}

func (s *examScenarioState) whenMinutesPass(minutes int) error {
	s.clock.Advance(time.Duration(minutes) * time.Minute)
	s.engine.Tick(s.clock.Now())
	return nil
}

func (s *examScenarioState) thenHolds(n int) error {
	if len(s.sampled) != n {
		return fmt.Errorf("expected %d sampled questions, got %d", n, len(s.sampled))
	}
	return nil
}

func (s *examScenarioState) thenAllIn(category string) error {
	for _, q := range s.sampled {
		if q.Category != category {
			return fmt.Errorf("question %s is in %q", q.ID, q.Category)
		}
	}
	return nil
}

func (s *examScenarioState) thenFinishedWith(reason string) error {
	st := s.engine.Status()
	if !st.Finished {
		return fmt.Errorf("expected exam to be finished, state is %s", st.State)
	}
	if string(st.Reason) != reason {
		return fmt.Errorf("expected reason %q, got %q", reason, st.Reason)
	}
	if want := reason == string(models.FinishTimeout); st.TimedOut != want {
		return fmt.Errorf("expected timed out %v, got %v", want, st.TimedOut)
	}
	return nil
}

func (s *examScenarioState) thenResult(result string) error {
	passed := s.engine.Status().Passed
	if passed != (result == "passed") {
		return fmt.Errorf("expected %s, passed=%v", result, passed)
	}
	return nil
}

func (s *examScenarioState) thenCursor(n int) error {
	if got := s.engine.Status().Cursor; got != n {
		return fmt.Errorf("expected cursor %d, got %d", n, got)
	}
	return nil
}

func (s *examScenarioState) thenLogHolds(n int) error {
	if got := len(s.engine.Log()); got != n {
		return fmt.Errorf("expected %d log entries, got %d", n, got)
	}
	return nil
}

func (s *examScenarioState) thenRefused() error {
	if _, err := s.engine.Submit([]string{"A"}); !errors.Is(err, ErrExamFinished) {
		return fmt.Errorf("expected ErrExamFinished, got %v", err)
	}
	return nil
}
