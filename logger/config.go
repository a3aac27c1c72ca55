package logger

import "github.com/kbukum/storefront/validation"

// FormatJSON writes one JSON object per line.
const FormatJSON = "json"

// Config is the logging section of config.yml.
type Config struct {
	Level       string `yaml:"level" mapstructure:"level" validate:"omitempty,oneof=trace debug info warn error fatal"`
	Format      string `yaml:"format" mapstructure:"format" validate:"omitempty,oneof=json console pretty"`
	Output      string `yaml:"output" mapstructure:"output" validate:"omitempty,oneof=stdout stderr"`
	NoColor     bool   `yaml:"no_color" mapstructure:"no_color"`
	NoTimestamp bool   `yaml:"no_timestamp" mapstructure:"no_timestamp"`
	Caller      bool   `yaml:"caller" mapstructure:"caller"`
}

// ApplyDefaults logs info and above to stdout on the console.
func (c *Config) ApplyDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = FormatConsole
	}
	if c.Output == "" {
		c.Output = "stdout"
	}
}

// Validate checks the level, format and output names.
func (c *Config) Validate() error {
	return validation.New().
		OneOf("level", c.Level, "trace", "debug", "info", "warn", "error", "fatal").
		OneOf("format", c.Format, FormatJSON, FormatConsole, FormatPretty).
		OneOf("output", c.Output, "stdout", "stderr").
		Err()
}
