package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/ccna-trainer/backend/internal/models"
)

// PostgresStore persists catalog snapshots in the tables created by
// database.Migrate.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// ── Snapshots ───────────────────────────────────────────

func (s *PostgresStore) SaveSnapshot(ctx context.Context, source string, questions []models.Question) (Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback()

	var snap Snapshot
	err = tx.QueryRowContext(ctx,
		`INSERT INTO catalog_snapshots (source, question_count)
		 VALUES ($1, $2)
		 RETURNING id, source, question_count, created_at`,
		source, len(questions),
	).Scan(&snap.ID, &snap.Source, &snap.Count, &snap.CreatedAt)
	if err != nil {
		return Snapshot{}, fmt.Errorf("create snapshot: %w", err)
	}

	for pos, q := range questions {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO catalog_questions
			 (snapshot_id, position, question_id, prompt, category, explanation, media, correct_letters)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			snap.ID, pos, q.ID, q.Prompt, q.Category, q.Explanation, q.Media, pq.Array(letterStrings(q.Correct)),
		)
		if err != nil {
			return Snapshot{}, fmt.Errorf("insert question %s: %w", q.ID, err)
		}
		for _, l := range q.OptionLetters() {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO catalog_choices (snapshot_id, question_id, letter, choice_text, image)
				 VALUES ($1, $2, $3, $4, $5)`,
				snap.ID, q.ID, string(l), q.Options[l], q.OptionImages[l],
			)
			if err != nil {
				return Snapshot{}, fmt.Errorf("insert choice %s/%s: %w", q.ID, l, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return Snapshot{}, fmt.Errorf("commit snapshot: %w", err)
	}
	return snap, nil
}

func (s *PostgresStore) LatestSnapshot(ctx context.Context) ([]models.Question, Snapshot, error) {
	var snap Snapshot
	err := s.db.QueryRowContext(ctx,
		`SELECT id, source, question_count, created_at
		 FROM catalog_snapshots ORDER BY id DESC LIMIT 1`,
	).Scan(&snap.ID, &snap.Source, &snap.Count, &snap.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return nil, Snapshot{}, fmt.Errorf("latest snapshot: %w", err)
	}

	questions, err := s.loadQuestions(ctx, snap.ID)
	if err != nil {
		return nil, Snapshot{}, err
	}
	if err := s.loadChoices(ctx, snap.ID, questions); err != nil {
		return nil, Snapshot{}, err
	}
	return questions, snap, nil
}

func (s *PostgresStore) loadQuestions(ctx context.Context, snapshotID int64) ([]models.Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT question_id, prompt, category, explanation, media, correct_letters
		 FROM catalog_questions WHERE snapshot_id = $1 ORDER BY position`,
		snapshotID,
	)
	if err != nil {
		return nil, fmt.Errorf("load snapshot questions: %w", err)
	}
	defer rows.Close()

	var questions []models.Question
	for rows.Next() {
		var q models.Question
		var correct []string
		if err := rows.Scan(&q.ID, &q.Prompt, &q.Category, &q.Explanation, &q.Media, pq.Array(&correct)); err != nil {
			return nil, fmt.Errorf("scan snapshot question: %w", err)
		}
		for _, c := range correct {
			q.Correct = append(q.Correct, models.Letter(strings.TrimSpace(c)))
		}
		q.Options = make(map[models.Letter]string)
		q.OptionImages = make(map[models.Letter]string)
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func (s *PostgresStore) loadChoices(ctx context.Context, snapshotID int64, questions []models.Question) error {
	index := make(map[string]int, len(questions))
	for i, q := range questions {
		index[q.ID] = i
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT question_id, letter, choice_text, image
		 FROM catalog_choices WHERE snapshot_id = $1`,
		snapshotID,
	)
	if err != nil {
		return fmt.Errorf("load snapshot choices: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var qid, letter, text, image string
		if err := rows.Scan(&qid, &letter, &text, &image); err != nil {
			return fmt.Errorf("scan snapshot choice: %w", err)
		}
		i, ok := index[qid]
		if !ok {
			continue
		}
		l := models.Letter(letter)
		questions[i].Options[l] = text
		if image != "" {
			questions[i].OptionImages[l] = image
		}
	}
	return rows.Err()
}

// PruneSnapshots keeps the newest keep snapshots and deletes the rest.
func (s *PostgresStore) PruneSnapshots(ctx context.Context, keep int) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM catalog_snapshots WHERE id NOT IN (
			SELECT id FROM catalog_snapshots ORDER BY id DESC LIMIT $1
		)`, keep,
	)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	return res.RowsAffected()
}

func letterStrings(letters []models.Letter) []string {
	out := make([]string, len(letters))
	for i, l := range letters {
		out[i] = string(l)
	}
	return out
}
