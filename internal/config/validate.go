package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var validModels = map[string]bool{
	"":       true,
	"opus":   true,
	"sonnet": true,
	"haiku":  true,
}

var defaultExternalKeywords = []string{
	"external", "third-party", "vendor", "upstream api", "remote service",
}

var defaultUncertainKeywords = []string{
	"investigate", "research", "experiment", "spike", "prototype", "unclear",
}

// Validate checks the config for errors and sets defaults.
func Validate(cfg *Config, projectRoot string) error {
	if cfg.Name == "" {
		return fmt.Errorf("config: 'name' is required")
	}

	if cfg.Specialist.Prompt != "" {
		promptPath := filepath.Join(projectRoot, cfg.Specialist.Prompt)
		if _, err := os.Stat(promptPath); err != nil {
			return fmt.Errorf("config: specialist prompt file %q not found", promptPath)
		}
	}
	if !validModels[cfg.Specialist.Model] {
		return fmt.Errorf("config: unknown specialist model %q (must be opus, sonnet, or haiku)", cfg.Specialist.Model)
	}
	if cfg.Specialist.Model == "" {
		cfg.Specialist.Model = "sonnet"
	}
	if cfg.Specialist.Timeout < 0 {
		return fmt.Errorf("config: specialist timeout must be >= 0")
	}
	if cfg.Specialist.Timeout == 0 {
		cfg.Specialist.Timeout = 30
	}

	if cfg.MaxRevisions < 0 {
		return fmt.Errorf("config: max-revisions must be >= 0")
	}
	if cfg.MaxRevisions == 0 {
		cfg.MaxRevisions = 3
	}
	if cfg.MaxGateRetries < 0 {
		return fmt.Errorf("config: max-gate-retries must be >= 0")
	}
	if cfg.MaxGateRetries == 0 {
		cfg.MaxGateRetries = 3
	}

	seen := make(map[string]bool)
	for i := range cfg.Gates {
		g := &cfg.Gates[i]
		if g.Name == "" {
			return fmt.Errorf("config: gate %d: 'name' is required", i+1)
		}
		if seen[g.Name] {
			return fmt.Errorf("config: duplicate gate name %q", g.Name)
		}
		seen[g.Name] = true
		if g.Run == "" {
			return fmt.Errorf("config: gate %q: 'run' is required", g.Name)
		}
		if g.Timeout < 0 {
			return fmt.Errorf("config: gate %q: timeout must be >= 0", g.Name)
		}
		if g.Timeout == 0 {
			g.Timeout = 10
		}
	}

	if cfg.Integration.Timeout < 0 {
		return fmt.Errorf("config: integration timeout must be >= 0")
	}
	if cfg.Integration.Timeout == 0 {
		cfg.Integration.Timeout = 20
	}

	if cfg.Risk.DependentThreshold < 0 {
		return fmt.Errorf("config: risk dependent-threshold must be >= 0")
	}
	if cfg.Risk.DependentThreshold == 0 {
		cfg.Risk.DependentThreshold = 3
	}
	if len(cfg.Risk.ExternalKeywords) == 0 {
		cfg.Risk.ExternalKeywords = append([]string(nil), defaultExternalKeywords...)
	}
	if len(cfg.Risk.UncertainKeywords) == 0 {
		cfg.Risk.UncertainKeywords = append([]string(nil), defaultUncertainKeywords...)
	}
	for _, kw := range append(cfg.Risk.ExternalKeywords, cfg.Risk.UncertainKeywords...) {
		if strings.TrimSpace(kw) == "" {
			return fmt.Errorf("config: risk keywords must be non-empty")
		}
	}

	switch cfg.AutoDecision {
	case "":
		cfg.AutoDecision = "defer"
	case "defer", "keep", "drop":
	default:
		return fmt.Errorf("config: auto-decision %q must be defer, keep, or drop", cfg.AutoDecision)
	}

	return nil
}

// ValidateRequest checks that the request label matches the configured
// pattern. If pattern is empty, any label is accepted.
func ValidateRequest(pattern, request string) error {
	if pattern == "" {
		return nil
	}
	// Enforce full-match semantics: anchor the pattern if not already anchored.
	anchored := pattern
	if !strings.HasPrefix(anchored, "^") {
		anchored = "^(?:" + anchored + ")$"
	}
	re, err := regexp.Compile(anchored)
	if err != nil {
		return fmt.Errorf("config: invalid request-pattern %q: %w", pattern, err)
	}
	if !re.MatchString(request) {
		return fmt.Errorf("request %q does not match pattern %q", request, pattern)
	}
	return nil
}
