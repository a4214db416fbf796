package models

import (
	"sort"
	"strings"
	"time"
)

// DefaultCategory labels questions whose sheet row carries no category.
const DefaultCategory = "General"

type Letter string

const (
	LetterA Letter = "A"
	LetterB Letter = "B"
	LetterC Letter = "C"
	LetterD Letter = "D"
)

// AllLetters is the fixed display order of answer options.
var AllLetters = []Letter{LetterA, LetterB, LetterC, LetterD}

var validLetters = map[Letter]bool{
	LetterA: true,
	LetterB: true,
	LetterC: true,
	LetterD: true,
}

// ParseLetter trims and upper-cases s and reports whether it names an option slot.
func ParseLetter(s string) (Letter, bool) {
	l := Letter(strings.ToUpper(strings.TrimSpace(s)))
	return l, validLetters[l]
}

// SortLetters orders letters A..D in place and returns the slice.
func SortLetters(letters []Letter) []Letter {
	sort.Slice(letters, func(i, j int) bool { return letters[i] < letters[j] })
	return letters
}

// Row is one raw record from the question sheet, keyed by column header.
type Row map[string]string

// ── Core Structs ───────────────────────────────────────

// Question is an immutable question record produced by the loader.
// Correct is sorted and free of duplicates.
type Question struct {
	ID           string            `json:"id"`
	Prompt       string            `json:"prompt"`
	Options      map[Letter]string `json:"options"`
	OptionImages map[Letter]string `json:"option_images,omitempty"`
	Correct      []Letter          `json:"correct"`
	Category     string            `json:"category"`
	Explanation  string            `json:"explanation,omitempty"`
	Media        string            `json:"media,omitempty"`
}

// HasOption reports whether l is an option with non-empty text.
func (q *Question) HasOption(l Letter) bool {
	return q.Options[l] != ""
}

// OptionLetters returns the letters with non-empty text in display order.
func (q *Question) OptionLetters() []Letter {
	var letters []Letter
	for _, l := range AllLetters {
		if q.HasOption(l) {
			letters = append(letters, l)
		}
	}
	return letters
}

// SelectCount is how many options a client should collect before submitting.
func (q *Question) SelectCount() int {
	if len(q.Correct) == 0 {
		return 1
	}
	return len(q.Correct)
}

func (q *Question) IsMultiSelect() bool {
	return len(q.Correct) > 1
}

// ToServed strips the answer key for serving.
func (q *Question) ToServed() ServedQuestion {
	choices := make([]ServedChoice, 0, len(q.Options))
	for _, l := range q.OptionLetters() {
		choices = append(choices, ServedChoice{
			Letter: l,
			Text:   q.Options[l],
			Image:  q.OptionImages[l],
		})
	}
	return ServedQuestion{
		ID:          q.ID,
		Prompt:      q.Prompt,
		Category:    q.Category,
		Media:       q.Media,
		Choices:     choices,
		MultiSelect: q.IsMultiSelect(),
		SelectCount: q.SelectCount(),
	}
}

// ── Serving Types (strip answers) ─────────────────────

type ServedQuestion struct {
	ID          string         `json:"id"`
	Prompt      string         `json:"prompt"`
	Category    string         `json:"category"`
	Media       string         `json:"media,omitempty"`
	Choices     []ServedChoice `json:"choices"`
	MultiSelect bool           `json:"multi_select"`
	SelectCount int            `json:"select_count"`
}

type ServedChoice struct {
	Letter Letter `json:"letter"`
	Text   string `json:"text"`
	Image  string `json:"image,omitempty"`
}

type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

type CategoryListResponse struct {
	Categories []CategoryCount `json:"categories"`
	Total      int             `json:"total"`
}

// ── Export/Import Types ──────────────────────────────────

type ExportEnvelope struct {
	Version    int        `json:"version"`
	ExportedAt time.Time  `json:"exported_at"`
	Source     string     `json:"source,omitempty"`
	Questions  []Question `json:"questions"`
}

type ImportResult struct {
	TotalInPayload int `json:"total_in_payload"`
	Imported       int `json:"imported"`
	Skipped        int `json:"skipped"`
}
