package sessions

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ccna-trainer/backend/internal/models"
)

// ResultStore keeps finished exams.
type ResultStore interface {
	SaveResult(ctx context.Context, sessionID string, report models.ExamReport) error
	Recent(ctx context.Context, limit int) ([]models.ExamResult, error)
}

func resultFromReport(sessionID string, report models.ExamReport) models.ExamResult {
	res := models.ExamResult{
		SessionID:   sessionID,
		Reason:      report.Reason,
		Correct:     report.Correct,
		TargetTotal: report.TargetTotal,
		Answered:    report.AnsweredCount,
		Threshold:   report.Threshold,
		Passed:      report.Passed,
		Categories:  report.Categories,
		Elapsed:     report.ElapsedClock,
	}
	if report.FinishedAt != nil {
		res.FinishedAt = *report.FinishedAt
	}
	return res
}

// ── Postgres ───────────────────────────────────────────

// PostgresResults writes to the exam_results table.
type PostgresResults struct {
	db *sql.DB
}

func NewPostgresResults(db *sql.DB) *PostgresResults {
	return &PostgresResults{db: db}
}

func (s *PostgresResults) SaveResult(ctx context.Context, sessionID string, report models.ExamReport) error {
	res := resultFromReport(sessionID, report)
	perCategory, err := json.Marshal(res.Categories)
	if err != nil {
		return fmt.Errorf("marshal categories: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO exam_results
		 (session_id, reason, correct, target_total, answered, threshold, passed, per_category, elapsed, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		res.SessionID, string(res.Reason), res.Correct, res.TargetTotal, res.Answered,
		res.Threshold, res.Passed, perCategory, res.Elapsed, res.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert exam result: %w", err)
	}
	return nil
}

func (s *PostgresResults) Recent(ctx context.Context, limit int) ([]models.ExamResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, reason, correct, target_total, answered, threshold, passed, per_category, elapsed, finished_at
		 FROM exam_results ORDER BY finished_at DESC, id DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query exam results: %w", err)
	}
	defer rows.Close()

	var out []models.ExamResult
	for rows.Next() {
		var (
			r           models.ExamResult
			reason      string
			perCategory []byte
		)
		if err := rows.Scan(&r.ID, &r.SessionID, &reason, &r.Correct, &r.TargetTotal, &r.Answered,
			&r.Threshold, &r.Passed, &perCategory, &r.Elapsed, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan exam result: %w", err)
		}
		r.Reason = models.FinishReason(reason)
		if len(perCategory) > 0 {
			if err := json.Unmarshal(perCategory, &r.Categories); err != nil {
				return nil, fmt.Errorf("decode categories of result %d: %w", r.ID, err)
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ── In-memory ──────────────────────────────────────────

// MemoryResults keeps the most recent results in process. It is used when no
// database is configured.
type MemoryResults struct {
	mu      sync.Mutex
	max     int
	nextID  int64
	results []models.ExamResult
}

func NewMemoryResults(max int) *MemoryResults {
	if max <= 0 {
		max = 500
	}
	return &MemoryResults{max: max}
}

func (m *MemoryResults) SaveResult(_ context.Context, sessionID string, report models.ExamReport) error {
	res := resultFromReport(sessionID, report)
	if res.FinishedAt.IsZero() {
		res.FinishedAt = time.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	res.ID = m.nextID
	m.results = append(m.results, res)
	if len(m.results) > m.max {
		m.results = m.results[len(m.results)-m.max:]
	}
	return nil
}

// Recent returns up to limit results, newest first.
func (m *MemoryResults) Recent(_ context.Context, limit int) ([]models.ExamResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > len(m.results) {
		limit = len(m.results)
	}
	out := make([]models.ExamResult, 0, limit)
	for i := len(m.results) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.results[i])
	}
	return out, nil
}
