// Package validation checks settings structs and reports every failure
// keyed by its settings path, e.g. "kafka.start_offset".
//
// Struct tag rules:
//
//	type Config struct {
//	    StartOffset string `mapstructure:"start_offset" validate:"omitempty,oneof=first last"`
//	}
//	err := validation.Struct(&cfg)
//
// Rules that span fields are collected programmatically:
//
//	v := validation.New()
//	v.Duration("dial_timeout", c.DialTimeout)
//	v.Check(c.MinBytes <= c.MaxBytes, "min_bytes", "must be <= max_bytes")
//	return v.Err()
package validation
