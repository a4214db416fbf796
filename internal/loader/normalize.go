package loader

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/ccna-trainer/backend/internal/models"
)

// LoadStats summarizes one row-to-record pass.
type LoadStats struct {
	Rows    int
	Loaded  int
	Dropped []string
}

// Normalizer maps raw sheet rows to question records.
type Normalizer struct {
	// DefaultCategory labels rows with an empty category column.
	DefaultCategory string
}

// LoadQuestions normalizes rows with the default category label.
func LoadQuestions(rows []models.Row) ([]models.Question, LoadStats) {
	return Normalizer{DefaultCategory: models.DefaultCategory}.Load(rows)
}

// Load keeps rows that carry a prompt, at least one option and a key made of
// those options. Duplicate ids after the first are dropped. Every drop is
// recorded in the returned stats.
func (n Normalizer) Load(rows []models.Row) ([]models.Question, LoadStats) {
	stats := LoadStats{Rows: len(rows)}
	seen := make(map[string]bool, len(rows))
	out := make([]models.Question, 0, len(rows))

	for i, row := range rows {
		q, err := n.normalize(i, row)
		if err != nil {
			stats.Dropped = append(stats.Dropped, err.Error())
			continue
		}
		if seen[q.ID] {
			stats.Dropped = append(stats.Dropped, fmt.Sprintf("row %d: duplicate id %q", i+1, q.ID))
			continue
		}
		seen[q.ID] = true
		out = append(out, q)
	}

	stats.Loaded = len(out)
	if len(stats.Dropped) > 0 {
		log.Printf("WARNING: [loader] dropped %d of %d rows", len(stats.Dropped), stats.Rows)
	}
	return out, stats
}

func (n Normalizer) normalize(i int, raw models.Row) (models.Question, error) {
	row := foldKeys(raw)

	q := models.Question{
		ID:           first(row, "id"),
		Prompt:       first(row, "question", "pergunta"),
		Media:        first(row, "questionimage", "image"),
		Category:     first(row, "category"),
		Explanation:  first(row, "explanation"),
		Options:      make(map[models.Letter]string, len(models.AllLetters)),
		OptionImages: make(map[models.Letter]string),
	}
	if q.ID == "" {
		q.ID = strconv.Itoa(i + 1)
	}
	if q.Category == "" {
		q.Category = n.DefaultCategory
	}

	for _, l := range models.AllLetters {
		lower := strings.ToLower(string(l))
		if text := first(row, "option"+lower, lower); text != "" {
			q.Options[l] = text
		}
		if img := first(row, "option"+lower+"image"); img != "" {
			q.OptionImages[l] = img
		}
	}

	if q.Prompt == "" {
		return models.Question{}, fmt.Errorf("row %d: empty question text", i+1)
	}
	if len(q.OptionLetters()) == 0 {
		return models.Question{}, fmt.Errorf("row %d: no non-empty option", i+1)
	}

	correct, err := ParseKey(first(row, "correct", "answer"))
	if err != nil {
		return models.Question{}, fmt.Errorf("row %d: %w", i+1, err)
	}
	for _, l := range correct {
		if !q.HasOption(l) {
			return models.Question{}, fmt.Errorf("row %d: correct letter %s has no option text", i+1, l)
		}
	}
	q.Correct = correct
	return q, nil
}

// ParseKey reads an answer key such as "A", "a, c" or "B;D". Whitespace is
// stripped, commas and semicolons both separate, letters are upper-cased and
// deduplicated.
func ParseKey(s string) ([]models.Letter, error) {
	compact := strings.Join(strings.Fields(s), "")
	compact = strings.ReplaceAll(compact, ",", ";")

	seen := map[models.Letter]bool{}
	var letters []models.Letter
	for _, part := range strings.Split(compact, ";") {
		if part == "" {
			continue
		}
		l, ok := models.ParseLetter(part)
		if !ok {
			return nil, fmt.Errorf("invalid answer letter %q", part)
		}
		if !seen[l] {
			seen[l] = true
			letters = append(letters, l)
		}
	}
	if len(letters) == 0 {
		return nil, fmt.Errorf("empty answer key")
	}
	return models.SortLetters(letters), nil
}

func foldKeys(row models.Row) map[string]string {
	out := make(map[string]string, len(row))
	for k, v := range row {
		key := strings.ToLower(strings.TrimSpace(k))
		// "Question" and "question" in one sheet: keep the filled one.
		if prev, ok := out[key]; ok && strings.TrimSpace(prev) != "" {
			continue
		}
		out[key] = v
	}
	return out
}

func first(row map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(row[k]); v != "" {
			return v
		}
	}
	return ""
}

// RowFromQuestion renders q back into sheet columns, so exported records can
// be imported through the same checks as sheet rows.
func RowFromQuestion(q models.Question) models.Row {
	row := models.Row{
		"id":            q.ID,
		"question":      q.Prompt,
		"category":      q.Category,
		"explanation":   q.Explanation,
		"questionImage": q.Media,
	}
	for _, l := range models.AllLetters {
		row["option"+string(l)] = q.Options[l]
		if img := q.OptionImages[l]; img != "" {
			row["option"+string(l)+"Image"] = img
		}
	}
	key := make([]string, len(q.Correct))
	for i, l := range q.Correct {
		key[i] = string(l)
	}
	row["correct"] = strings.Join(key, ";")
	return row
}
