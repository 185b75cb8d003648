// Package config loads and validates the convex-doctor YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	yaml "gopkg.in/yaml.v2"

	"github.com/scan-io-git/convex-doctor/pkg/shared/errors"
	"github.com/scan-io-git/convex-doctor/pkg/shared/files"
)

// DefaultFileNames are looked up in the project root when no --config is given.
var DefaultFileNames = []string{"convex-doctor.yml", ".convex-doctor.yml", "convex-doctor.yaml", ".convex-doctor.yaml"}

// Config is the top-level configuration document.
type Config struct {
	Logger   Logger   `yaml:"logger"`
	Rules    Rules    `yaml:"rules"`
	Ignore   []string `yaml:"ignore"`
	Score    Score    `yaml:"score"`
	Analysis Analysis `yaml:"analysis"`

	// Path is the file the configuration was read from; empty for built-in defaults.
	Path string `yaml:"-"`
}

// Logger holds logger settings.
type Logger struct {
	Level           string `yaml:"level"`
	DisableTime     *bool  `yaml:"disable_time"`
	JSONFormat      *bool  `yaml:"json_format"`
	IncludeLocation *bool  `yaml:"include_location"`
}

// Rules maps rule ids to an on/off value. yaml.v2 reads bare on/off as booleans,
// so values stay untyped until validation.
type Rules map[string]interface{}

// Score holds score gate settings.
type Score struct {
	// FailBelow makes the analyze command exit with code 1 when the score is lower.
	FailBelow int `yaml:"fail_below"`
}

// Analysis tunes the extractor and the worker pool.
type Analysis struct {
	Threads        int      `yaml:"threads"`
	AwaitableCalls []string `yaml:"awaitable_calls"`
	LoopCalls      []string `yaml:"loop_calls"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{Rules: Rules{}}
}

// LoadYAML decodes the YAML file at configPath into data.
func LoadYAML(configPath string, data interface{}) error {
	if err := files.ValidatePath(configPath); err != nil {
		return err
	}

	file, err := os.Open(configPath)
	if err != nil {
		return err
	}
	defer file.Close()

	d := yaml.NewDecoder(file)
	if err := d.Decode(data); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

// Load reads the configuration file at path. Failures are *errors.ConfigError.
func Load(path string) (*Config, error) {
	cfg := Default()
	if err := LoadYAML(path, cfg); err != nil {
		return nil, errors.NewConfigError(path, err)
	}
	if cfg.Rules == nil {
		cfg.Rules = Rules{}
	}
	cfg.Path = path
	return cfg, nil
}

// Find returns the first default configuration file present in root.
func Find(root string) (string, bool) {
	for _, name := range DefaultFileNames {
		candidate := filepath.Join(root, name)
		if files.Exists(candidate) && !files.IsDir(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// Resolve loads the explicit configuration file when given, otherwise the default
// file in root, otherwise the built-in defaults, and validates the result.
func Resolve(explicit, root string, isKnownRule func(id string) bool) (*Config, error) {
	var (
		cfg *Config
		err error
	)
	switch {
	case explicit != "":
		path, expandErr := files.ExpandPath(explicit)
		if expandErr != nil {
			return nil, errors.NewConfigError(explicit, expandErr)
		}
		cfg, err = Load(path)
	default:
		if path, ok := Find(root); ok {
			cfg, err = Load(path)
		} else {
			cfg = Default()
		}
	}
	if err != nil {
		return nil, err
	}

	if err := ValidateConfig(cfg, isKnownRule); err != nil {
		return nil, errors.NewConfigError(cfg.Path, err)
	}
	return cfg, nil
}

// IsRuleEnabled reports whether a rule runs. Rules are enabled unless set to an off value.
func (c *Config) IsRuleEnabled(id string) bool {
	if c == nil {
		return true
	}
	value, ok := c.Rules[id]
	if !ok {
		return true
	}
	enabled, _ := ruleValue(value)
	return enabled
}

// ruleValue interprets one rules entry.
func ruleValue(value interface{}) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "on", "true", "enabled":
			return true, nil
		case "off", "false", "disabled":
			return false, nil
		}
		return true, fmt.Errorf("unsupported value %q, use on or off", v)
	case nil:
		return true, fmt.Errorf("empty value, use on or off")
	default:
		return true, fmt.Errorf("unsupported value %v, use on or off", v)
	}
}
