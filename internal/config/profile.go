package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/anyaat/Atlas/internal/domain"
	"github.com/anyaat/Atlas/internal/domain/entities"
	"github.com/anyaat/Atlas/internal/domain/lifecycle"
)

type profileFile struct {
	RoundToHour bool          `yaml:"round_to_hour"`
	Steps       []profileStep `yaml:"steps"`
}

type profileStep struct {
	Status string `yaml:"status"`
	After  string `yaml:"after"`
}

// LoadTable resolves a lifecycle profile: a built-in name or the path of a
// YAML file listing the ladder steps.
func LoadTable(profile string) (lifecycle.Table, error) {
	if t, ok := lifecycle.Profile(profile); ok {
		return t, nil
	}
	raw, err := os.ReadFile(profile)
	if err != nil {
		return lifecycle.Table{}, fmt.Errorf("lifecycle profile %q: %v: %w", profile, err, domain.ErrConfiguration)
	}
	return ParseTable(raw)
}

// ParseTable decodes a YAML lifecycle profile.
func ParseTable(raw []byte) (lifecycle.Table, error) {
	var pf profileFile
	if err := yaml.Unmarshal(raw, &pf); err != nil {
		return lifecycle.Table{}, fmt.Errorf("lifecycle profile: %v: %w", err, domain.ErrConfiguration)
	}
	steps := make([]lifecycle.Step, 0, len(pf.Steps))
	for i, ps := range pf.Steps {
		st, err := entities.ParseStatus(ps.Status)
		if err != nil {
			return lifecycle.Table{}, fmt.Errorf("lifecycle profile step %d: %v: %w", i, err, domain.ErrConfiguration)
		}
		after, err := ParseDuration(ps.After)
		if err != nil {
			return lifecycle.Table{}, fmt.Errorf("lifecycle profile step %d: %v: %w", i, err, domain.ErrConfiguration)
		}
		steps = append(steps, lifecycle.Step{Status: st, After: after})
	}
	return lifecycle.NewTable(steps, pf.RoundToHour)
}

// ParseDuration accepts Go durations plus whole days ("3d") and weeks ("8w").
// An empty string or "0" is zero.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return 0, nil
	}
	unit := time.Duration(0)
	switch {
	case strings.HasSuffix(s, "w"):
		unit = 7 * 24 * time.Hour
	case strings.HasSuffix(s, "d"):
		unit = 24 * time.Hour
	}
	if unit == 0 {
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("duration %q: %w", s, err)
		}
		return d, nil
	}
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("duration %q: want a whole number of days or weeks", s)
	}
	return time.Duration(n) * unit, nil
}
