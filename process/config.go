package process

import (
	"strings"

	"github.com/kbukum/prockit/validation"
)

// Config carries package-level defaults applied to Commands built with
// NewFromConfig.
type Config struct {
	// LogDir is the directory log-file redirections are written to.
	// Empty means the current working directory.
	LogDir string `yaml:"log_dir,omitempty" mapstructure:"log_dir"`
	// LogFilePrefix is the default prefix for log-file redirections.
	LogFilePrefix string `yaml:"log_file_prefix,omitempty" mapstructure:"log_file_prefix"`
	// ClearEnv, when true, spawns children with only the configured
	// environment overrides instead of the inherited environment.
	ClearEnv bool `yaml:"clear_env,omitempty" mapstructure:"clear_env"`
}

// ApplyDefaults applies default values to process configuration.
func (c *Config) ApplyDefaults() {
	// All zero values are valid defaults: inherit env, cwd, no prefix.
}

// Validate validates process configuration.
func (c *Config) Validate() error {
	v := validation.New()
	// Prefixes become path segments; keep them to a single segment.
	v.Custom(!strings.ContainsRune(c.LogFilePrefix, '/'), "log_file_prefix", "must not contain path separators")
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}
