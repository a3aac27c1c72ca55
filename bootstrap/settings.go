package bootstrap

import (
	"fmt"
	"time"

	"github.com/kbukum/storefront/config"
	"github.com/kbukum/storefront/crashhook"
	"github.com/kbukum/storefront/database"
	"github.com/kbukum/storefront/kafka"
	"github.com/kbukum/storefront/observability"
	"github.com/kbukum/storefront/server"
	"github.com/kbukum/storefront/validation"
)

const defaultShutdownTimeout = "15s"

// Settings is the optional tuning of a service, loaded from config.yml.
// Addresses and credentials are never read from here; New fills them from
// the resolved keys.
//
//	var s bootstrap.Settings
//	err := config.LoadSettings("catalog", &s)
type Settings struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Database database.Config  `yaml:"database" mapstructure:"database"`
	Server   server.Config    `yaml:"server" mapstructure:"server"`
	Kafka    kafka.Config     `yaml:"kafka" mapstructure:"kafka"`
	Crash    crashhook.Config `yaml:"crash" mapstructure:"crash"`

	Tracing observability.TracerConfig `yaml:"tracing" mapstructure:"tracing"`

	// ShutdownTimeout bounds draining and stopping on shutdown (e.g. "15s").
	ShutdownTimeout string `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

var _ config.Settings = (*Settings)(nil)

// ApplyDefaults fills every zero-valued field.
func (s *Settings) ApplyDefaults() {
	s.ServiceConfig.ApplyDefaults()
	s.Database.ApplyDefaults()
	s.Server.ApplyDefaults()
	s.Kafka.ApplyDefaults()
	s.Crash.ApplyDefaults(s.Name)
	s.Tracing.ApplyDefaults()
	if s.ShutdownTimeout == "" {
		s.ShutdownTimeout = defaultShutdownTimeout
	}
}

// Validate checks every section.
func (s *Settings) Validate() error {
	if err := s.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := s.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := s.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := s.Kafka.Validate(); err != nil {
		return fmt.Errorf("kafka: %w", err)
	}
	if err := s.Tracing.Validate(); err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	return validation.New().PositiveDuration("shutdown_timeout", s.ShutdownTimeout).Err()
}

func (s *Settings) shutdownTimeout() time.Duration {
	d, err := time.ParseDuration(s.ShutdownTimeout)
	if err != nil || d <= 0 {
		return 15 * time.Second
	}
	return d
}
