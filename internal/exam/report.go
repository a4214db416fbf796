package exam

import (
	"github.com/ccna-trainer/backend/internal/models"
	"github.com/ccna-trainer/backend/internal/quiz"
)

const (
	ResultApproved = "APPROVED"
	ResultFailed   = "FAILED"

	NoExplanation = "No explanation available."
)

func headline(reason models.FinishReason) string {
	switch reason {
	case models.FinishTimeout:
		return "Time is up!"
	case models.FinishAborted:
		return "Exam aborted"
	default:
		return "Exam finished!"
	}
}

// Report builds the final score report. It is only available once the
// exam has finished. Percent is taken against the profile's target total,
// not the number of questions sampled, so a short catalog scores lower.
func (e *Engine) Report() (models.ExamReport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.expireLocked(e.now())
	switch e.state {
	case models.ExamNotStarted:
		return models.ExamReport{}, ErrNotStarted
	case models.ExamInProgress:
		return models.ExamReport{}, ErrExamInProgress
	}

	target := e.profile.Total()
	passed := e.passedLocked()
	result := ResultFailed
	if passed {
		result = ResultApproved
	}

	sampled := SampledByCategory(e.sampled)
	categories := make([]models.CategoryScore, 0, len(e.profile.Quotas))
	for _, cq := range e.profile.Quotas {
		categories = append(categories, models.CategoryScore{
			Category: cq.Category,
			Score:    e.perCategory[cq.Category],
			Quota:    cq.Quota,
			Sampled:  sampled[cq.Category],
		})
	}

	review := make([]models.AnswerReview, 0, len(e.log))
	for i, entry := range e.log {
		review = append(review, reviewEntry(i+1, entry))
	}

	finished := e.finishedAt
	return models.ExamReport{
		Headline:      headline(e.reason),
		Reason:        e.reason,
		Correct:       e.correct,
		TargetTotal:   target,
		Percent:       quiz.Percent(e.correct, target),
		Threshold:     e.profile.PassingThreshold,
		Result:        result,
		Passed:        passed,
		Categories:    categories,
		Review:        review,
		ElapsedClock:  FormatClock(int(Elapsed(e.startedAt, finished).Seconds())),
		FinishedAt:    &finished,
		AnsweredCount: len(e.log),
	}, nil
}

func reviewEntry(n int, entry models.AnswerLogEntry) models.AnswerReview {
	q := entry.Question
	explanation := q.Explanation
	if explanation == "" {
		explanation = NoExplanation
	}
	return models.AnswerReview{
		Number:      n,
		QuestionID:  q.ID,
		Prompt:      q.Prompt,
		Media:       q.Media,
		Selected:    choices(q, entry.Selected),
		CorrectKey:  choices(q, q.Correct),
		Explanation: explanation,
		Correct:     entry.Correct,
	}
}

func choices(q models.Question, letters []models.Letter) []models.ReviewChoice {
	out := make([]models.ReviewChoice, 0, len(letters))
	for _, l := range letters {
		out = append(out, models.ReviewChoice{Letter: l, Text: q.Options[l]})
	}
	return out
}
