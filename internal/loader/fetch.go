package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ccna-trainer/backend/internal/models"
)

var (
	// ErrLoadFailure covers network, status and decode failures of the source.
	ErrLoadFailure = errors.New("question source failed to load")
	// ErrEmptyDataset means the source loaded but produced zero valid questions.
	ErrEmptyDataset = errors.New("question source has no valid questions")
)

// LoadError describes a failed fetch or decode. It matches ErrLoadFailure.
type LoadError struct {
	Source string
	Status int
	Err    error
}

func (e *LoadError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("loading %s: status %d: %v", e.Source, e.Status, e.Err)
	}
	return fmt.Sprintf("loading %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

func (e *LoadError) Is(target error) bool { return target == ErrLoadFailure }

type Format string

const (
	FormatAuto Format = "auto"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts json, csv, xlsx or auto (also the empty string).
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatAuto:
		return FormatAuto, nil
	case FormatJSON, FormatCSV, FormatXLSX:
		return f, nil
	default:
		return "", fmt.Errorf("unknown question format %q", s)
	}
}

// Decode turns a source body into raw rows. With FormatAuto the content type
// picks the decoder, falling back to sniffing the body.
func Decode(body []byte, format Format, contentType string) ([]models.Row, error) {
	if format == "" || format == FormatAuto {
		format = sniff(body, contentType)
	}
	switch format {
	case FormatJSON:
		return decodeJSON(body)
	case FormatCSV:
		return ParseCSV(bytes.NewReader(body))
	case FormatXLSX:
		return ParseXLSX(bytes.NewReader(body), "")
	default:
		return nil, fmt.Errorf("unknown question format %q", format)
	}
}

func sniff(body []byte, contentType string) Format {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "json"):
		return FormatJSON
	case strings.Contains(ct, "spreadsheetml"), strings.Contains(ct, "excel"):
		return FormatXLSX
	case strings.Contains(ct, "csv"):
		return FormatCSV
	}
	if bytes.HasPrefix(body, []byte("PK\x03\x04")) {
		return FormatXLSX
	}
	trimmed := bytes.TrimSpace(bytes.TrimPrefix(body, utf8BOM))
	if len(trimmed) > 0 && (trimmed[0] == '[' || trimmed[0] == '{') {
		return FormatJSON
	}
	return FormatCSV
}

// decodeJSON accepts an array of objects or an object wrapping one under
// "data", "questions" or "rows". Scalar values are stringified.
func decodeJSON(body []byte) ([]models.Row, error) {
	var objects []map[string]any
	if err := json.Unmarshal(body, &objects); err != nil {
		var wrapped map[string]json.RawMessage
		if werr := json.Unmarshal(body, &wrapped); werr != nil {
			return nil, fmt.Errorf("failed to parse JSON rows: %w", err)
		}
		found := false
		for _, key := range []string{"data", "questions", "rows"} {
			raw, ok := wrapped[key]
			if !ok {
				continue
			}
			if err := json.Unmarshal(raw, &objects); err != nil {
				return nil, fmt.Errorf("failed to parse JSON %q rows: %w", key, err)
			}
			found = true
			break
		}
		if !found {
			return nil, fmt.Errorf("JSON object has no data, questions or rows array")
		}
	}

	rows := make([]models.Row, 0, len(objects))
	for _, obj := range objects {
		row := make(models.Row, len(obj))
		for k, v := range obj {
			row[k] = stringify(v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

// Fetcher loads the question sheet over HTTP with a single GET. Retries are
// left to the caller.
type Fetcher struct {
	URL        string
	Format     Format
	Normalizer Normalizer
	Client     *http.Client
}

func NewFetcher(url string, format Format, defaultCategory string) *Fetcher {
	return &Fetcher{
		URL:        url,
		Format:     format,
		Normalizer: Normalizer{DefaultCategory: defaultCategory},
		Client:     &http.Client{Timeout: 30 * time.Second},
	}
}

func (f *Fetcher) Name() string { return f.URL }

// Fetch downloads and decodes the source into raw rows.
func (f *Fetcher) Fetch(ctx context.Context) ([]models.Row, error) {
	if f.URL == "" {
		return nil, &LoadError{Source: "question source", Err: errors.New("no source URL configured")}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return nil, &LoadError{Source: f.URL, Err: err}
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, &LoadError{Source: f.URL, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &LoadError{Source: f.URL, Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &LoadError{Source: f.URL, Status: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))}
	}

	rows, err := Decode(body, f.Format, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, &LoadError{Source: f.URL, Status: resp.StatusCode, Err: err}
	}
	return rows, nil
}

// Load fetches, decodes and normalizes the source. Zero valid questions is
// ErrEmptyDataset, distinct from a load failure.
func (f *Fetcher) Load(ctx context.Context) ([]models.Question, LoadStats, error) {
	rows, err := f.Fetch(ctx)
	if err != nil {
		return nil, LoadStats{}, err
	}
	questions, stats := f.Normalizer.Load(rows)
	if len(questions) == 0 {
		return nil, stats, fmt.Errorf("%s: %w", f.URL, ErrEmptyDataset)
	}
	log.Printf("[loader] loaded %d questions from %s (%d rows, %d dropped)", stats.Loaded, f.URL, stats.Rows, len(stats.Dropped))
	return questions, stats, nil
}
