package quiz

import "errors"

var (
	// ErrNoQuestions means the catalog holds no questions at all.
	ErrNoQuestions = errors.New("no questions loaded")
	// ErrNoCandidates means the category filter matches zero questions.
	ErrNoCandidates = errors.New("no questions available for this category")
	// ErrInvalidSelection means the submitted letters are empty or name options the question does not have.
	ErrInvalidSelection = errors.New("invalid selection")
	// ErrNoLiveQuestion means an answer arrived for a question that is not awaiting validation.
	ErrNoLiveQuestion = errors.New("no live question with this id")
)
