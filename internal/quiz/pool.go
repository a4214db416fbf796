package quiz

import (
	"strings"

	"github.com/ccna-trainer/backend/internal/models"
)

// AnyCategory is the filter value that matches every question.
const AnyCategory = "all"

// IsAnyCategory reports whether filter selects the whole catalog.
func IsAnyCategory(filter string) bool {
	f := strings.TrimSpace(filter)
	return f == "" || strings.EqualFold(f, AnyCategory)
}

// Draw is the outcome of Pool.Next.
type Draw struct {
	Question models.Question
	// Recycled is set when every candidate had already been presented and
	// the candidates' history was cleared before drawing.
	Recycled bool
}

// Pool draws questions without repeats until every candidate under the
// current filter has been presented once.
//
// On exhaustion only the history of the exhausted candidates is cleared, so
// answered questions of other categories stay answered. Pool is not safe for
// concurrent use; Session serializes access.
type Pool struct {
	questions []models.Question
	answered  map[string]bool
	rng       Rand
}

func NewPool(questions []models.Question, rng Rand) *Pool {
	if rng == nil {
		rng = NewRand()
	}
	return &Pool{
		questions: questions,
		answered:  make(map[string]bool),
		rng:       rng,
	}
}

func (p *Pool) Len() int {
	return len(p.questions)
}

// Candidates returns every question matching filter, in load order.
func (p *Pool) Candidates(filter string) []models.Question {
	if IsAnyCategory(filter) {
		return p.questions
	}
	filter = strings.TrimSpace(filter)
	var out []models.Question
	for _, q := range p.questions {
		if q.Category == filter {
			out = append(out, q)
		}
	}
	return out
}

// Next draws one question matching filter uniformly at random from those not
// yet presented in the current cycle and marks it answered.
func (p *Pool) Next(filter string) (Draw, error) {
	if len(p.questions) == 0 {
		return Draw{}, ErrNoQuestions
	}

	candidates := p.Candidates(filter)
	if len(candidates) == 0 {
		return Draw{}, ErrNoCandidates
	}

	pool := p.unseen(candidates)
	recycled := false
	if len(pool) == 0 {
		for _, q := range candidates {
			delete(p.answered, q.ID)
		}
		pool = candidates
		recycled = true
	}

	q := pool[p.rng.Intn(len(pool))]
	p.answered[q.ID] = true
	return Draw{Question: q, Recycled: recycled}, nil
}

// Remaining counts candidates under filter not yet presented in this cycle.
func (p *Pool) Remaining(filter string) int {
	return len(p.unseen(p.Candidates(filter)))
}

// Reset forgets every presented question.
func (p *Pool) Reset() {
	p.answered = make(map[string]bool)
}

func (p *Pool) unseen(candidates []models.Question) []models.Question {
	out := make([]models.Question, 0, len(candidates))
	for _, q := range candidates {
		if !p.answered[q.ID] {
			out = append(out, q)
		}
	}
	return out
}
