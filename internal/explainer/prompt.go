package explainer

import (
	"fmt"
	"strings"

	"github.com/ccna-trainer/backend/internal/models"
)

const answerPrefix = "Correct answer: "

// SystemPrompt frames the model as a CCNA instructor writing short feedback.
func SystemPrompt() string {
	return `You are a Cisco CCNA 200-301 instructor reviewing a practice question a student just missed.

Write a short explanation in plain text (no markdown, no lists):
- 2 to 4 sentences.
- Say why the correct option(s) are right, naming the protocol, command or concept involved.
- When useful, say in one clause why the most tempting wrong option is wrong.
- Do not restate the whole question and do not add greetings.`
}

// BuildUserPrompt renders the question, its options and its key.
func BuildUserPrompt(q models.Question) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Category: %s\n", q.Category)
	fmt.Fprintf(&b, "Question: %s\n", q.Prompt)
	for _, l := range q.OptionLetters() {
		fmt.Fprintf(&b, "%s) %s\n", l, q.Options[l])
	}
	keys := make([]string, len(q.Correct))
	for i, l := range q.Correct {
		keys[i] = string(l)
	}
	b.WriteString(answerPrefix + strings.Join(keys, ", ") + "\n")
	return b.String()
}
