package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"fhunt_bot/internal/model"
)

// FilterSeed is the optional YAML file providing the initial filter state.
// It is read once at startup; runtime changes are not written back.
type FilterSeed struct {
	Paused     bool     `yaml:"paused"`
	MinBudget  int      `yaml:"min_budget"`
	Keywords   []string `yaml:"keywords"`
	Blacklist  []string `yaml:"blacklist"`
	DigestTime string   `yaml:"digest_time"`
}

// LoadFilters reads a filter seed. An empty path yields the zero config.
func LoadFilters(path string) (model.FilterConfig, error) {
	if path == "" {
		return model.FilterConfig{}, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator configuration
	if err != nil {
		return model.FilterConfig{}, fmt.Errorf("read filters file: %w", err)
	}
	return ParseFilters(data)
}

// ParseFilters decodes and validates a YAML filter seed.
func ParseFilters(data []byte) (model.FilterConfig, error) {
	var seed FilterSeed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return model.FilterConfig{}, fmt.Errorf("parse filters file: %w", err)
	}

	if seed.MinBudget < 0 {
		return model.FilterConfig{}, fmt.Errorf("min_budget must not be negative, got %d", seed.MinBudget)
	}

	cfg := model.FilterConfig{
		Paused:    seed.Paused,
		MinBudget: seed.MinBudget,
		Keywords:  seed.Keywords,
		Blacklist: make(map[string]struct{}, len(seed.Blacklist)),
	}
	for _, login := range seed.Blacklist {
		cfg.Blacklist[login] = struct{}{}
	}
	if seed.DigestTime != "" {
		hhmm, err := model.ParseClock(seed.DigestTime)
		if err != nil {
			return model.FilterConfig{}, fmt.Errorf("digest_time: %w", err)
		}
		cfg.DigestTime = hhmm
	}
	return cfg, nil
}
