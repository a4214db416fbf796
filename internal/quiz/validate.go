package quiz

import (
	"fmt"

	"github.com/ccna-trainer/backend/internal/models"
)

// Verdict is the result of comparing a selection with a question's key.
type Verdict struct {
	Correct        bool
	Selected       []models.Letter
	CorrectLetters []models.Letter
}

// NormalizeSelection trims, upper-cases, dedupes and sorts selected, rejecting
// empty selections and letters that are not options of q.
func NormalizeSelection(q *models.Question, selected []string) ([]models.Letter, error) {
	seen := make(map[models.Letter]bool, len(selected))
	letters := make([]models.Letter, 0, len(selected))
	for _, s := range selected {
		l, ok := models.ParseLetter(s)
		if !ok || !q.HasOption(l) {
			return nil, fmt.Errorf("%w: %q is not an option of question %s", ErrInvalidSelection, s, q.ID)
		}
		if seen[l] {
			continue
		}
		seen[l] = true
		letters = append(letters, l)
	}
	if len(letters) == 0 {
		return nil, fmt.Errorf("%w: no option selected", ErrInvalidSelection)
	}
	return models.SortLetters(letters), nil
}

// Validate compares selected with q's correct letters as sets, so order and
// duplicates do not matter.
func Validate(q *models.Question, selected []string) (Verdict, error) {
	letters, err := NormalizeSelection(q, selected)
	if err != nil {
		return Verdict{}, err
	}
	key := append([]models.Letter(nil), q.Correct...)
	return Verdict{
		Correct:        setEqual(toSet(letters), toSet(key)),
		Selected:       letters,
		CorrectLetters: key,
	}, nil
}

func toSet(letters []models.Letter) map[models.Letter]struct{} {
	m := make(map[models.Letter]struct{}, len(letters))
	for _, l := range letters {
		m[l] = struct{}{}
	}
	return m
}

func setEqual(a, b map[models.Letter]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
