package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ccna-trainer/backend/internal/loader"
	"github.com/ccna-trainer/backend/internal/models"
)

// Source produces a fresh question set. *loader.Fetcher satisfies it.
type Source interface {
	Name() string
	Load(ctx context.Context) ([]models.Question, loader.LoadStats, error)
}

// Snapshot describes one persisted question set.
type Snapshot struct {
	ID        int64
	Source    string
	Count     int
	CreatedAt time.Time
}

// Store keeps loaded question sets so the service can start without the
// sheet being reachable.
type Store interface {
	SaveSnapshot(ctx context.Context, source string, questions []models.Question) (Snapshot, error)
	LatestSnapshot(ctx context.Context) ([]models.Question, Snapshot, error)
}

// ErrNoSnapshot is returned by a Store that has nothing saved yet.
var ErrNoSnapshot = errors.New("no catalog snapshot saved")

// Catalog holds the current question set. Reload and Replace swap the whole
// slice; callers that took Questions() keep the set they got.
type Catalog struct {
	mu         sync.RWMutex
	questions  []models.Question
	source     string
	loadedAt   time.Time
	categories []string

	loader Source
	store  Store
}

// New creates an empty catalog. categories is the configured display order;
// store may be nil.
func New(categories []string, src Source, store Store) *Catalog {
	return &Catalog{
		categories: append([]string(nil), categories...),
		loader:     src,
		store:      store,
	}
}

// Questions returns the current set. The slice must not be modified.
func (c *Catalog) Questions() []models.Question {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.questions
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.questions)
}

func (c *Catalog) Source() (string, time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.source, c.loadedAt
}

// Reload fetches the source and swaps the catalog in. The new set is saved
// as a snapshot when a store is configured; a failed save only logs.
func (c *Catalog) Reload(ctx context.Context) (models.ReloadResponse, error) {
	if c.loader == nil {
		return models.ReloadResponse{}, fmt.Errorf("reload: %w", loader.ErrLoadFailure)
	}
	questions, stats, err := c.loader.Load(ctx)
	if err != nil {
		return models.ReloadResponse{Dropped: len(stats.Dropped)}, err
	}
	resp := c.Replace(ctx, c.loader.Name(), questions)
	resp.Dropped = len(stats.Dropped)
	return resp, nil
}

// Replace swaps in questions loaded by other means, such as an admin import.
func (c *Catalog) Replace(ctx context.Context, source string, questions []models.Question) models.ReloadResponse {
	c.mu.Lock()
	c.questions = questions
	c.source = source
	c.loadedAt = time.Now()
	c.mu.Unlock()

	log.Printf("[catalog] %d questions active from %s", len(questions), source)

	resp := models.ReloadResponse{Loaded: len(questions), Source: source}
	if c.store == nil {
		return resp
	}
	if _, err := c.store.SaveSnapshot(ctx, source, questions); err != nil {
		log.Printf("WARN: [catalog] saving snapshot: %v", err)
		return resp
	}
	resp.Snapshot = true
	return resp
}

// Init loads the catalog at startup. When the source fails and a store is
// configured, the latest snapshot is used instead.
func (c *Catalog) Init(ctx context.Context) error {
	_, err := c.Reload(ctx)
	if err == nil {
		return nil
	}
	if c.store == nil {
		return err
	}

	log.Printf("WARN: [catalog] source unavailable (%v), trying latest snapshot", err)
	questions, snap, serr := c.store.LatestSnapshot(ctx)
	if serr != nil {
		return fmt.Errorf("%w (snapshot fallback: %v)", err, serr)
	}
	if len(questions) == 0 {
		return fmt.Errorf("snapshot %d: %w", snap.ID, loader.ErrEmptyDataset)
	}

	c.mu.Lock()
	c.questions = questions
	c.source = fmt.Sprintf("snapshot %d", snap.ID)
	c.loadedAt = snap.CreatedAt
	c.mu.Unlock()
	log.Printf("[catalog] %d questions active from snapshot %d (%s)", len(questions), snap.ID, snap.CreatedAt.Format(time.RFC3339))
	return nil
}

// Categories lists the configured categories present in the current set, in
// configured order, with their counts.
func (c *Catalog) Categories() models.CategoryListResponse {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ListCategories(c.categories, c.questions)
}

// ListCategories counts questions per configured category, skipping
// categories with no questions. Total is the size of the whole set.
func ListCategories(configured []string, questions []models.Question) models.CategoryListResponse {
	counts := make(map[string]int)
	for _, q := range questions {
		counts[q.Category]++
	}
	out := models.CategoryListResponse{Categories: []models.CategoryCount{}, Total: len(questions)}
	for _, cat := range configured {
		if n := counts[cat]; n > 0 {
			out.Categories = append(out.Categories, models.CategoryCount{Category: cat, Count: n})
		}
	}
	return out
}
