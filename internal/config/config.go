package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/ccna-trainer/backend/internal/exam"
	"github.com/ccna-trainer/backend/internal/loader"
	"github.com/ccna-trainer/backend/internal/models"
)

const (
	StoreNone     = "none"
	StorePostgres = "postgres"

	ExplainerOff  = "off"
	ExplainerMock = "mock"
	ExplainerCLI  = "cli"
	ExplainerAPI  = "api"
)

type Config struct {
	Port string

	SourceURL       string
	SourceFormat    loader.Format
	DefaultCategory string

	ProfilePath string
	Profile     exam.Profile

	// CatalogStore selects where loaded snapshots are kept: none or postgres.
	CatalogStore string

	JWTSecret     string
	AdminUser     string
	AdminPassHash string // bcrypt
	CORSOrigins   []string
	SessionTTL    time.Duration

	ExplainerMode   string
	AnthropicAPIKey string
	AnthropicModel  string
	ClaudeCLIPath   string
}

// Load reads an optional .env file, then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	return FromEnv()
}

// FromEnv builds the configuration from environment variables. The exam
// profile starts from the CCNA default, is replaced by EXAM_PROFILE_PATH when
// set, and then takes the duration and threshold overrides.
func FromEnv() (Config, error) {
	format, err := loader.ParseFormat(getEnv("QUESTION_SOURCE_FORMAT", "auto"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port:            getEnv("PORT", "8080"),
		SourceURL:       getEnv("QUESTION_SOURCE_URL", ""),
		SourceFormat:    format,
		DefaultCategory: getEnv("DEFAULT_CATEGORY", models.DefaultCategory),
		ProfilePath:     getEnv("EXAM_PROFILE_PATH", ""),
		CatalogStore:    strings.ToLower(getEnv("CATALOG_STORE", StoreNone)),
		JWTSecret:       getEnv("JWT_SECRET", "ccna-trainer-dev-signing-key"),
		AdminUser:       getEnv("ADMIN_USER", "admin"),
		AdminPassHash:   getEnv("ADMIN_PASS_HASH", ""),
		CORSOrigins:     csvOr("CORS_ORIGINS", "*"),
		ExplainerMode:   strings.ToLower(getEnv("EXPLAINER_MODE", ExplainerOff)),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-5"),
		ClaudeCLIPath:   getEnv("CLAUDE_CLI_PATH", "claude"),
	}

	ttl, err := intEnv("SESSION_TTL_MINUTES", 240)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionTTL = time.Duration(ttl) * time.Minute

	cfg.Profile = exam.DefaultProfile()
	if cfg.ProfilePath != "" {
		p, err := LoadProfile(cfg.ProfilePath)
		if err != nil {
			return Config{}, err
		}
		cfg.Profile = p
	}
	if v, ok := os.LookupEnv("EXAM_DURATION_MINUTES"); ok {
		minutes, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return Config{}, fmt.Errorf("EXAM_DURATION_MINUTES: %w", err)
		}
		cfg.Profile.Duration = time.Duration(minutes) * time.Minute
	}
	if v, ok := os.LookupEnv("EXAM_PASSING_THRESHOLD"); ok {
		threshold, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return Config{}, fmt.Errorf("EXAM_PASSING_THRESHOLD: %w", err)
		}
		cfg.Profile.PassingThreshold = threshold
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []string
	if err := c.Profile.Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	switch c.CatalogStore {
	case StoreNone, StorePostgres:
	default:
		errs = append(errs, fmt.Sprintf("CATALOG_STORE %q must be none or postgres", c.CatalogStore))
	}
	switch c.ExplainerMode {
	case ExplainerOff, ExplainerMock, ExplainerCLI:
	case ExplainerAPI:
		if c.AnthropicAPIKey == "" {
			errs = append(errs, "EXPLAINER_MODE=api requires ANTHROPIC_API_KEY")
		}
	default:
		errs = append(errs, fmt.Sprintf("EXPLAINER_MODE %q must be off, mock, cli or api", c.ExplainerMode))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, "SESSION_TTL_MINUTES must be positive")
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func csvOr(key, fallback string) []string {
	parts := strings.Split(getEnv(key, fallback), ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
