package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ccna-trainer/backend/internal/exam"
)

// profileFile is the YAML shape of an exam profile:
//
//	passing_threshold: 82
//	duration_minutes: 120
//	categories:
//	  - category: Network Fundamentals
//	    quota: 20
type profileFile struct {
	PassingThreshold *int                 `yaml:"passing_threshold"`
	DurationMinutes  *int                 `yaml:"duration_minutes"`
	Categories       []exam.CategoryQuota `yaml:"categories"`
}

func LoadProfile(path string) (exam.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return exam.Profile{}, fmt.Errorf("read exam profile: %w", err)
	}
	p, err := ParseProfile(data)
	if err != nil {
		return exam.Profile{}, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// ParseProfile decodes a single YAML document. Unknown keys are errors.
// Omitted threshold and duration keep the CCNA defaults.
func ParseProfile(data []byte) (exam.Profile, error) {
	var pf profileFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&pf); err != nil {
		return exam.Profile{}, fmt.Errorf("parse exam profile: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return exam.Profile{}, fmt.Errorf("parse exam profile: multiple YAML documents are not supported")
		}
		return exam.Profile{}, fmt.Errorf("parse exam profile: %w", err)
	}

	p := exam.DefaultProfile()
	p.Quotas = normalizeQuotas(pf.Categories)
	if pf.PassingThreshold != nil {
		p.PassingThreshold = *pf.PassingThreshold
	}
	if pf.DurationMinutes != nil {
		p.Duration = time.Duration(*pf.DurationMinutes) * time.Minute
	}
	if err := p.Validate(); err != nil {
		return exam.Profile{}, err
	}
	return p, nil
}

func normalizeQuotas(in []exam.CategoryQuota) []exam.CategoryQuota {
	out := make([]exam.CategoryQuota, len(in))
	for i, q := range in {
		out[i] = exam.CategoryQuota{Category: strings.TrimSpace(q.Category), Quota: q.Quota}
	}
	return out
}
