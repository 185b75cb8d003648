package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

var logLevels = map[string]bool{"": true, "TRACE": true, "DEBUG": true, "INFO": true, "WARN": true, "ERROR": true}

// ValidateConfig checks that every directive holds a usable value.
func ValidateConfig(cfg *Config, isKnownRule func(id string) bool) error {
	if cfg == nil {
		return fmt.Errorf("YAML config: configuration object is nil")
	}
	if err := ValidateLoggerConfig(&cfg.Logger); err != nil {
		return fmt.Errorf("YAML config: logger directive is invalid: %w", err)
	}
	if err := ValidateRulesConfig(cfg.Rules, isKnownRule); err != nil {
		return fmt.Errorf("YAML config: rules directive is invalid: %w", err)
	}
	if err := ValidateIgnoreConfig(cfg.Ignore); err != nil {
		return fmt.Errorf("YAML config: ignore directive is invalid: %w", err)
	}
	if err := ValidateScoreConfig(&cfg.Score); err != nil {
		return fmt.Errorf("YAML config: score directive is invalid: %w", err)
	}
	if err := ValidateAnalysisConfig(&cfg.Analysis); err != nil {
		return fmt.Errorf("YAML config: analysis directive is invalid: %w", err)
	}
	return nil
}

// ValidateLoggerConfig checks the log level name.
func ValidateLoggerConfig(l *Logger) error {
	if !logLevels[strings.ToUpper(l.Level)] {
		return fmt.Errorf("unsupported level %q", l.Level)
	}
	return nil
}

// ValidateRulesConfig checks that every entry names a known rule and holds an on/off value.
func ValidateRulesConfig(r Rules, isKnownRule func(id string) bool) error {
	ids := make([]string, 0, len(r))
	for id := range r {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if isKnownRule != nil && !isKnownRule(id) {
			return fmt.Errorf("unknown rule %q", id)
		}
		if _, err := ruleValue(r[id]); err != nil {
			return fmt.Errorf("rule %q: %w", id, err)
		}
	}
	return nil
}

// ValidateIgnoreConfig checks that every ignore pattern compiles.
func ValidateIgnoreConfig(patterns []string) error {
	for _, p := range patterns {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("empty pattern")
		}
		if _, err := glob.Compile(p, '/'); err != nil {
			return fmt.Errorf("pattern %q: %w", p, err)
		}
	}
	return nil
}

// ValidateScoreConfig checks the score floor range.
func ValidateScoreConfig(s *Score) error {
	if s.FailBelow < 0 || s.FailBelow > 100 {
		return fmt.Errorf("fail_below must be between 0 and 100: %d", s.FailBelow)
	}
	return nil
}

// ValidateAnalysisConfig checks the worker count and extra call prefixes.
func ValidateAnalysisConfig(a *Analysis) error {
	if a.Threads < 0 {
		return fmt.Errorf("threads cannot be negative: %d", a.Threads)
	}
	for _, prefix := range append(append([]string(nil), a.AwaitableCalls...), a.LoopCalls...) {
		if !strings.HasPrefix(prefix, "ctx.") {
			return fmt.Errorf("call prefix %q must start with \"ctx.\"", prefix)
		}
	}
	return nil
}
