package models

import "time"

type Mode string

const (
	ModePractice Mode = "practice"
	ModeExam     Mode = "exam"
)

// ── Practice Types ─────────────────────────────────────

type PracticeStats struct {
	Asked    int `json:"asked"`
	Correct  int `json:"correct"`
	Wrong    int `json:"wrong"`
	Accuracy int `json:"accuracy_pct"`
}

type NextQuestionRequest struct {
	Category string `json:"category"`
}

type NextQuestionResponse struct {
	Question  ServedQuestion `json:"question"`
	Recycled  bool           `json:"recycled"`
	Remaining int            `json:"remaining"`
	Stats     PracticeStats  `json:"stats"`
}

type AnswerRequest struct {
	QuestionID string   `json:"question_id"`
	Selected   []string `json:"selected"`
}

type AnswerResponse struct {
	Correct        bool          `json:"correct"`
	CorrectLetters []Letter      `json:"correct_letters"`
	Explanation    string        `json:"explanation"`
	Stats          PracticeStats `json:"stats"`
}

// ── Exam Types ─────────────────────────────────────────

type ExamState string

const (
	ExamNotStarted ExamState = "not_started"
	ExamInProgress ExamState = "in_progress"
	ExamFinished   ExamState = "finished"
)

type FinishReason string

const (
	FinishNone      FinishReason = ""
	FinishCompleted FinishReason = "completed"
	FinishTimeout   FinishReason = "timeout"
	FinishAborted   FinishReason = "aborted"
)

type ExamStatus struct {
	State            ExamState      `json:"state"`
	Cursor           int            `json:"cursor"`
	Total            int            `json:"total"`
	TargetTotal      int            `json:"target_total"`
	Correct          int            `json:"correct"`
	Wrong            int            `json:"wrong"`
	PerCategoryScore map[string]int `json:"per_category_score"`
	Finished         bool           `json:"finished"`
	Passed           bool           `json:"passed"`
	TimedOut         bool           `json:"timed_out"`
	Reason           FinishReason   `json:"reason,omitempty"`
	RemainingSeconds *int           `json:"remaining_seconds,omitempty"`
	ElapsedSeconds   int            `json:"elapsed_seconds"`
	Clock            string         `json:"clock"`
}

type ExamAnswerRequest struct {
	Selected []string `json:"selected"`
}

type ExamAnswerResponse struct {
	Correct bool            `json:"correct"`
	Status  ExamStatus      `json:"status"`
	Next    *ServedQuestion `json:"next,omitempty"`
}

type ExamStartResponse struct {
	Status   ExamStatus      `json:"status"`
	Question *ServedQuestion `json:"question,omitempty"`
}

// AnswerLogEntry records one submitted exam answer.
type AnswerLogEntry struct {
	Question Question  `json:"question"`
	Selected []Letter  `json:"selected"`
	Correct  bool      `json:"correct"`
	At       time.Time `json:"answered_at"`
}

type CategoryScore struct {
	Category string `json:"category"`
	Score    int    `json:"score"`
	Quota    int    `json:"quota"`
	Sampled  int    `json:"sampled"`
}

type ReviewChoice struct {
	Letter Letter `json:"letter"`
	Text   string `json:"text"`
}

type AnswerReview struct {
	Number      int            `json:"number"`
	QuestionID  string         `json:"question_id"`
	Prompt      string         `json:"prompt"`
	Media       string         `json:"media,omitempty"`
	Selected    []ReviewChoice `json:"selected"`
	CorrectKey  []ReviewChoice `json:"correct_key"`
	Explanation string         `json:"explanation"`
	Correct     bool           `json:"correct"`
}

type ExamReport struct {
	Headline      string          `json:"headline"`
	Reason        FinishReason    `json:"reason"`
	Correct       int             `json:"correct"`
	TargetTotal   int             `json:"target_total"`
	Percent       int             `json:"percent"`
	Threshold     int             `json:"passing_threshold"`
	Result        string          `json:"result"`
	Passed        bool            `json:"passed"`
	Categories    []CategoryScore `json:"categories"`
	Review        []AnswerReview  `json:"review"`
	ElapsedClock  string          `json:"elapsed"`
	FinishedAt    *time.Time      `json:"finished_at,omitempty"`
	AnsweredCount int             `json:"answered"`
}

// ── Session Types ──────────────────────────────────────

type CreateSessionRequest struct {
	Mode Mode `json:"mode"`
}

type CreateSessionResponse struct {
	SessionID string    `json:"session_id"`
	Mode      Mode      `json:"mode"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type SwitchModeRequest struct {
	Mode Mode `json:"mode"`
}

type SessionInfo struct {
	SessionID string        `json:"session_id"`
	Mode      Mode          `json:"mode"`
	CreatedAt time.Time     `json:"created_at"`
	Questions int           `json:"questions"`
	Practice  PracticeStats `json:"practice"`
	Exam      ExamStatus    `json:"exam"`
}

// ── Result History ─────────────────────────────────────

// ExamResult is a finished exam as kept in the result history.
type ExamResult struct {
	ID          int64           `json:"id"`
	SessionID   string          `json:"session_id"`
	Reason      FinishReason    `json:"reason"`
	Correct     int             `json:"correct"`
	TargetTotal int             `json:"target_total"`
	Answered    int             `json:"answered"`
	Threshold   int             `json:"passing_threshold"`
	Passed      bool            `json:"passed"`
	Categories  []CategoryScore `json:"categories"`
	Elapsed     string          `json:"elapsed"`
	FinishedAt  time.Time       `json:"finished_at"`
}
