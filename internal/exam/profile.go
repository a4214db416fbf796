package exam

import (
	"fmt"
	"strings"
	"time"
)

// CategoryQuota is the number of questions an exam draws from one category.
type CategoryQuota struct {
	Category string `json:"category" yaml:"category"`
	Quota    int    `json:"quota" yaml:"quota"`
}

// Profile configures a mock exam. Quotas are applied in slice order.
type Profile struct {
	Quotas           []CategoryQuota
	PassingThreshold int
	// Duration is the countdown length; zero runs an open count-up exam.
	Duration time.Duration
}

// DefaultProfile is the CCNA 200-301 composition: 100 questions, 82 to pass, 120 minutes.
func DefaultProfile() Profile {
	return Profile{
		Quotas: []CategoryQuota{
			{Category: "Network Fundamentals", Quota: 20},
			{Category: "Network Access", Quota: 20},
			{Category: "IP connectivity", Quota: 25},
			{Category: "IP services", Quota: 10},
			{Category: "Security Fundamentals", Quota: 15},
			{Category: "Programmability", Quota: 10},
		},
		PassingThreshold: 82,
		Duration:         120 * time.Minute,
	}
}

// Total is the target exam size, the sum of all quotas.
func (p Profile) Total() int {
	total := 0
	for _, q := range p.Quotas {
		total += q.Quota
	}
	return total
}

// Categories lists the configured categories in quota order.
func (p Profile) Categories() []string {
	out := make([]string, len(p.Quotas))
	for i, q := range p.Quotas {
		out[i] = q.Category
	}
	return out
}

func (p Profile) Validate() error {
	var errs []string
	if len(p.Quotas) == 0 {
		errs = append(errs, "at least one category quota is required")
	}
	seen := make(map[string]bool, len(p.Quotas))
	for i, q := range p.Quotas {
		name := strings.TrimSpace(q.Category)
		if name == "" {
			errs = append(errs, fmt.Sprintf("quota %d: empty category", i+1))
			continue
		}
		if seen[name] {
			errs = append(errs, fmt.Sprintf("quota %d: duplicate category %q", i+1, name))
		}
		seen[name] = true
		if q.Quota < 0 {
			errs = append(errs, fmt.Sprintf("quota %d: negative count %d for %q", i+1, q.Quota, name))
		}
	}
	if p.PassingThreshold < 0 {
		errs = append(errs, fmt.Sprintf("passing threshold %d is negative", p.PassingThreshold))
	}
	if total := p.Total(); p.PassingThreshold > total && total > 0 {
		errs = append(errs, fmt.Sprintf("passing threshold %d exceeds exam total %d", p.PassingThreshold, total))
	}
	if p.Duration < 0 {
		errs = append(errs, fmt.Sprintf("duration %s is negative", p.Duration))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid exam profile: %s", strings.Join(errs, "; "))
	}
	return nil
}
