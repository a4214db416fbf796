package exam

import (
	"github.com/ccna-trainer/backend/internal/models"
	"github.com/ccna-trainer/backend/internal/quiz"
)

// Sample draws an exam from questions: each profile category is shuffled and
// cut to its quota (or all of it when short), the slices are joined in
// profile order and the result is shuffled again. Categories absent from the
// profile never appear.
func Sample(profile Profile, questions []models.Question, rng quiz.Rand) []models.Question {
	byCategory := make(map[string][]models.Question)
	for _, q := range questions {
		byCategory[q.Category] = append(byCategory[q.Category], q)
	}

	var out []models.Question
	for _, cq := range profile.Quotas {
		if cq.Quota <= 0 {
			continue
		}
		group := quiz.Shuffle(rng, byCategory[cq.Category])
		if len(group) > cq.Quota {
			group = group[:cq.Quota]
		}
		out = append(out, group...)
	}
	return quiz.Shuffle(rng, out)
}

// SampledByCategory counts how many questions of each category were drawn.
func SampledByCategory(sampled []models.Question) map[string]int {
	counts := make(map[string]int)
	for _, q := range sampled {
		counts[q.Category]++
	}
	return counts
}
