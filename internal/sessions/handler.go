package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/ccna-trainer/backend/internal/auth"
	"github.com/ccna-trainer/backend/internal/exam"
	"github.com/ccna-trainer/backend/internal/models"
	"github.com/ccna-trainer/backend/internal/quiz"
)

// Explainer fills in a missing explanation. *explainer.Explainer satisfies it.
type Explainer interface {
	Explain(ctx context.Context, q models.Question) (string, error)
}

type Handler struct {
	manager   *Manager
	tokens    *auth.Service
	explainer Explainer
	tokenTTL  time.Duration
}

// NewHandler serves the session, practice and exam endpoints. explainer may be nil.
func NewHandler(manager *Manager, tokens *auth.Service, explainer Explainer, tokenTTL time.Duration) *Handler {
	return &Handler{manager: manager, tokens: tokens, explainer: explainer, tokenTTL: tokenTTL}
}

// RegisterRoutes registers the public, session-protected and admin endpoints.
func (h *Handler) RegisterRoutes(public, session, admin *mux.Router) {
	public.HandleFunc("/sessions", h.CreateSession).Methods("POST")

	session.HandleFunc("/session", h.GetSession).Methods("GET")
	session.HandleFunc("/session", h.DeleteSession).Methods("DELETE")
	session.HandleFunc("/session/mode", h.SwitchMode).Methods("POST")

	session.HandleFunc("/practice/next", h.PracticeNext).Methods("POST")
	session.HandleFunc("/practice/answer", h.PracticeAnswer).Methods("POST")
	session.HandleFunc("/practice/stats", h.PracticeStats).Methods("GET")
	session.HandleFunc("/practice/restart", h.PracticeRestart).Methods("POST")

	session.HandleFunc("/exam/start", h.ExamStart).Methods("POST")
	session.HandleFunc("/exam/restart", h.ExamStart).Methods("POST")
	session.HandleFunc("/exam/current", h.ExamCurrent).Methods("GET")
	session.HandleFunc("/exam/answer", h.ExamAnswer).Methods("POST")
	session.HandleFunc("/exam/status", h.ExamStatus).Methods("GET")
	session.HandleFunc("/exam/abort", h.ExamAbort).Methods("POST")
	session.HandleFunc("/exam/report", h.ExamReport).Methods("GET")

	admin.HandleFunc("/results", h.Results).Methods("GET")
}

// ── Sessions ───────────────────────────────────────────

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSessionRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	if req.Mode == "" {
		req.Mode = models.ModePractice
	}

	s, err := h.manager.Create(req.Mode)
	if err != nil {
		writeError(w, err)
		return
	}

	token, exp, err := h.tokens.IssueSession(s.ID, h.tokenTTL)
	if err != nil {
		log.Printf("[handler] CreateSession token error: %v", err)
		h.manager.Delete(s.ID)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to generate token"})
		return
	}

	writeJSON(w, http.StatusCreated, models.CreateSessionResponse{
		SessionID: s.ID,
		Mode:      s.Mode(),
		Token:     token,
		ExpiresAt: exp,
	})
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Info())
}

func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.manager.End(r.Context(), s)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SwitchMode(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req models.SwitchModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.Mode != models.ModePractice && req.Mode != models.ModeExam {
		writeError(w, ErrInvalidMode)
		return
	}

	h.manager.SwitchMode(r.Context(), s, req.Mode)
	writeJSON(w, http.StatusOK, s.Info())
}

// ── Practice ───────────────────────────────────────────

func (h *Handler) PracticeNext(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessionInMode(w, r, models.ModePractice)
	if !ok {
		return
	}

	var req models.NextQuestionRequest
	if !decodeOptional(w, r, &req) {
		return
	}

	draw, remaining, err := s.Practice.Next(req.Category)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.NextQuestionResponse{
		Question:  draw.Question.ToServed(),
		Recycled:  draw.Recycled,
		Remaining: remaining,
		Stats:     s.Practice.Stats(),
	})
}

func (h *Handler) PracticeAnswer(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessionInMode(w, r, models.ModePractice)
	if !ok {
		return
	}

	var req models.AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.QuestionID == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "question_id is required"})
		return
	}

	q, _ := s.Practice.Current()
	verdict, err := s.Practice.Answer(req.QuestionID, req.Selected)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := models.AnswerResponse{
		Correct:        verdict.Correct,
		CorrectLetters: verdict.CorrectLetters,
		Stats:          s.Practice.Stats(),
	}
	if !verdict.Correct {
		resp.Explanation = h.explain(r.Context(), q)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) PracticeStats(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessionInMode(w, r, models.ModePractice)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Practice.Stats())
}

func (h *Handler) PracticeRestart(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessionInMode(w, r, models.ModePractice)
	if !ok {
		return
	}
	s.Practice.Reset()
	writeJSON(w, http.StatusOK, s.Practice.Stats())
}

// ── Exam ───────────────────────────────────────────────

func (h *Handler) ExamStart(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessionInMode(w, r, models.ModeExam)
	if !ok {
		return
	}

	sampled, err := h.manager.StartExam(r.Context(), s)
	if err != nil {
		writeError(w, err)
		return
	}
	log.Printf("[sessions] exam started for %s: %d questions", s.ID, len(sampled))

	resp := models.ExamStartResponse{Status: s.Exam.Status()}
	if q, err := s.Exam.Current(); err == nil {
		served := q.ToServed()
		resp.Question = &served
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) ExamCurrent(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessionInMode(w, r, models.ModeExam)
	if !ok {
		return
	}
	q, err := s.Exam.Current()
	if err != nil {
		h.manager.RecordIfFinished(r.Context(), s)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q.ToServed())
}

func (h *Handler) ExamAnswer(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessionInMode(w, r, models.ModeExam)
	if !ok {
		return
	}

	var req models.ExamAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	verdict, err := s.Exam.Submit(req.Selected)
	h.manager.RecordIfFinished(r.Context(), s)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := models.ExamAnswerResponse{Correct: verdict.Correct, Status: s.Exam.Status()}
	if q, err := s.Exam.Current(); err == nil {
		served := q.ToServed()
		resp.Next = &served
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) ExamStatus(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessionInMode(w, r, models.ModeExam)
	if !ok {
		return
	}
	status := s.Exam.Status()
	h.manager.RecordIfFinished(r.Context(), s)
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) ExamAbort(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessionInMode(w, r, models.ModeExam)
	if !ok {
		return
	}
	if !s.Exam.Abort() {
		if s.Exam.State() == models.ExamNotStarted {
			writeError(w, exam.ErrNotStarted)
		} else {
			writeError(w, exam.ErrExamFinished)
		}
		return
	}
	h.manager.RecordIfFinished(r.Context(), s)
	writeJSON(w, http.StatusOK, s.Exam.Status())
}

func (h *Handler) ExamReport(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessionInMode(w, r, models.ModeExam)
	if !ok {
		return
	}
	report, err := s.Exam.Report()
	if err != nil {
		writeError(w, err)
		return
	}
	h.manager.RecordIfFinished(r.Context(), s)
	writeJSON(w, http.StatusOK, report)
}

// ── Admin ──────────────────────────────────────────────

func (h *Handler) Results(w http.ResponseWriter, r *http.Request) {
	if h.manager.results == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"results": []models.ExamResult{}})
		return
	}

	limit := intQueryParam(r.URL.Query(), "limit", 50)
	if limit == 0 || limit > 500 {
		limit = 500
	}

	results, err := h.manager.results.Recent(r.Context(), limit)
	if err != nil {
		log.Printf("[handler] Results error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to list results"})
		return
	}
	if results == nil {
		results = []models.ExamResult{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

// ── Helpers ────────────────────────────────────────────

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	id := auth.SessionID(r.Context())
	if id == "" {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Session token required"})
		return nil, false
	}
	s, err := h.manager.Get(id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Session expired or not found"})
		return nil, false
	}
	return s, true
}

func (h *Handler) sessionInMode(w http.ResponseWriter, r *http.Request, mode models.Mode) (*Session, bool) {
	s, ok := h.session(w, r)
	if !ok {
		return nil, false
	}
	if current := s.Mode(); current != mode {
		writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: "Session is in " + string(current) + " mode"})
		return nil, false
	}
	return s, true
}

func (h *Handler) explain(ctx context.Context, q models.Question) string {
	if q.Explanation != "" {
		return q.Explanation
	}
	if h.explainer == nil {
		return exam.NoExplanation
	}
	text, err := h.explainer.Explain(ctx, q)
	if err != nil {
		log.Printf("WARN: [sessions] %v", err)
		return exam.NoExplanation
	}
	if strings.TrimSpace(text) == "" {
		return exam.NoExplanation
	}
	return text
}

// decodeOptional decodes a request body that may be absent. A malformed body
// is answered with 400 and reported as false.
func decodeOptional(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return false
	}
	return true
}

// writeError maps domain errors to HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrInvalidMode):
		status = http.StatusBadRequest
	case errors.Is(err, quiz.ErrNoCandidates), errors.Is(err, exam.ErrEmptyExam):
		status = http.StatusNotFound
	case errors.Is(err, quiz.ErrNoLiveQuestion),
		errors.Is(err, exam.ErrNotStarted),
		errors.Is(err, exam.ErrExamFinished),
		errors.Is(err, exam.ErrExamInProgress):
		status = http.StatusConflict
	case errors.Is(err, quiz.ErrInvalidSelection):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, quiz.ErrNoQuestions):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		log.Printf("[handler] unexpected error: %v", err)
	}
	writeJSON(w, status, models.ErrorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func intQueryParam(query url.Values, key string, defaultVal int) int {
	s := query.Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	return v
}
