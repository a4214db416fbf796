package explainer

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/ccna-trainer/backend/internal/models"
)

const (
	ModeOff  = "off"
	ModeMock = "mock"
	ModeCLI  = "cli"
	ModeAPI  = "api"

	generateTimeout = 20 * time.Second
)

// Explainer fills in explanations for questions whose sheet row has none.
// Generated text is cached per question id for the life of the process.
type Explainer struct {
	llm   LLMClient
	model string

	mu    sync.Mutex
	cache map[string]string
}

// New picks the backend for mode. It returns nil for ModeOff; a nil
// *Explainer is valid and never generates.
func New(mode, apiKey, model, cliPath string) (*Explainer, error) {
	switch mode {
	case "", ModeOff:
		return nil, nil
	case ModeMock:
		log.Println("[explainer] using mock explanations")
		return NewWithClient(NewMockClient(), "mock"), nil
	case ModeCLI:
		log.Println("[explainer] using Claude CLI")
		return NewWithClient(NewCLIClient(cliPath), "claude-cli"), nil
	case ModeAPI:
		log.Println("[explainer] using Anthropic API:", model)
		return NewWithClient(NewAPIClient(apiKey, model), model), nil
	default:
		return nil, fmt.Errorf("unknown explainer mode %q", mode)
	}
}

func NewWithClient(llm LLMClient, model string) *Explainer {
	return &Explainer{llm: llm, model: model, cache: make(map[string]string)}
}

func (e *Explainer) ModelName() string {
	if e == nil {
		return ModeOff
	}
	return e.model
}

// Explain returns q's own explanation when present, else a cached or newly
// generated one.
func (e *Explainer) Explain(ctx context.Context, q models.Question) (string, error) {
	if q.Explanation != "" {
		return q.Explanation, nil
	}
	if e == nil {
		return "", nil
	}

	e.mu.Lock()
	cached, ok := e.cache[q.ID]
	e.mu.Unlock()
	if ok {
		return cached, nil
	}

	ctx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()

	resp, err := e.llm.Generate(ctx, SystemPrompt(), BuildUserPrompt(q))
	if err != nil {
		return "", fmt.Errorf("explain question %s: %w", q.ID, err)
	}
	text := strings.TrimSpace(resp.Content)

	e.mu.Lock()
	e.cache[q.ID] = text
	e.mu.Unlock()
	return text, nil
}

// Forget drops cached explanations, for example after a catalog reload.
func (e *Explainer) Forget() {
	if e == nil {
		return
	}
	e.mu.Lock()
	e.cache = make(map[string]string)
	e.mu.Unlock()
}
