package kafka

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/storefront/validation"
)

// The catalog consumer always subscribes to DefaultTopic with
// DefaultSessionTimeout.
const (
	DefaultTopic          = "example"
	DefaultSessionTimeout = "6000ms"
)

// Config holds Kafka connection and consumer configuration.
type Config struct {
	// Brokers is the list of Kafka broker addresses. Set from the resolved
	// broker key, never from the settings file.
	Brokers []string `yaml:"-" mapstructure:"-"`

	// GroupID is the consumer group identifier. Set from the resolved group key.
	GroupID string `yaml:"-" mapstructure:"-"`

	// Topic is the topic to consume from. Fixed by the bootstrap sequencer.
	Topic string `yaml:"-" mapstructure:"-"`

	// ClientID identifies this process to the brokers.
	ClientID string `yaml:"client_id" mapstructure:"client_id"`

	// TLS
	EnableTLS     bool   `yaml:"enable_tls" mapstructure:"enable_tls"`
	TLSSkipVerify bool   `yaml:"tls_skip_verify" mapstructure:"tls_skip_verify"`
	TLSCAFile     string `yaml:"tls_ca_file" mapstructure:"tls_ca_file"`
	TLSCertFile   string `yaml:"tls_cert_file" mapstructure:"tls_cert_file"`
	TLSKeyFile    string `yaml:"tls_key_file" mapstructure:"tls_key_file"`

	// SASL
	EnableSASL    bool   `yaml:"enable_sasl" mapstructure:"enable_sasl"`
	SASLMechanism string `yaml:"sasl_mechanism" mapstructure:"sasl_mechanism"` // PLAIN, SCRAM-SHA-256, SCRAM-SHA-512
	Username      string `yaml:"username" mapstructure:"username"`
	Password      string `yaml:"password" mapstructure:"password"`

	// Consumer settings. SessionTimeout is fixed by the bootstrap sequencer.
	SessionTimeout    string `yaml:"-" mapstructure:"-"`
	HeartbeatInterval string `yaml:"heartbeat_interval" mapstructure:"heartbeat_interval"`
	RebalanceTimeout  string `yaml:"rebalance_timeout" mapstructure:"rebalance_timeout"`
	StartOffset       string `yaml:"start_offset" mapstructure:"start_offset" validate:"omitempty,oneof=first last"`
	MinBytes          int    `yaml:"min_bytes" mapstructure:"min_bytes" validate:"gte=0"`
	MaxBytes          int    `yaml:"max_bytes" mapstructure:"max_bytes" validate:"gte=0"`

	// Connection settings
	DialTimeout string `yaml:"dial_timeout" mapstructure:"dial_timeout"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Topic == "" {
		c.Topic = DefaultTopic
	}
	if c.ClientID == "" {
		c.ClientID = "storefront-" + uuid.NewString()
	}
	if c.SessionTimeout == "" {
		c.SessionTimeout = DefaultSessionTimeout
	}
	if c.HeartbeatInterval == "" {
		c.HeartbeatInterval = "2s"
	}
	if c.RebalanceTimeout == "" {
		c.RebalanceTimeout = "30s"
	}
	if c.StartOffset == "" {
		c.StartOffset = "first"
	}
	if c.MinBytes <= 0 {
		c.MinBytes = 1
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 10e6
	}
	if c.DialTimeout == "" {
		c.DialTimeout = "10s"
	}
	if c.SASLMechanism == "" && c.EnableSASL {
		c.SASLMechanism = "PLAIN"
	}
}

// Validate checks the tuning fields. Brokers and group are checked by the
// consumer step, since they are filled in after settings are loaded.
func (c *Config) Validate() error {
	v := validation.New().
		Duration("session_timeout", c.SessionTimeout).
		Duration("heartbeat_interval", c.HeartbeatInterval).
		Duration("rebalance_timeout", c.RebalanceTimeout).
		Duration("dial_timeout", c.DialTimeout).
		Check(c.MinBytes <= c.MaxBytes, "min_bytes", fmt.Sprintf("min_bytes (%d) must be <= max_bytes (%d)", c.MinBytes, c.MaxBytes))
	if c.EnableSASL {
		v.OneOf("sasl_mechanism", c.SASLMechanism, "PLAIN", "SCRAM-SHA-256", "SCRAM-SHA-512").
			Check(c.Username != "", "username", "SASL username is required")
	}
	return v.Err()
}

// ParseBrokers splits a comma-separated broker list, dropping blanks.
func ParseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// ParseDuration parses a duration string, returning zero on empty input.
func ParseDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
