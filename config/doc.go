// Package config resolves the settings a storefront service needs before it
// may touch any infrastructure.
//
// Required keys (bind address, database URL, broker coordinates) come from
// the process environment first. Only when at least one of them is unset is
// a local .env file consulted; its values never override the environment.
// If that file cannot be loaded, or keys remain unset after both sources,
// resolution fails and the process must not start.
//
//	resolved, err := config.Resolve(config.NewKeys("AUTH_SERVER", "AUTH_DATABASE_URL"),
//	    config.WithServiceName("auth"))
//
// Non-essential tuning (log level, pool sizes, timeouts) lives in an optional
// config.yml loaded with Viper by LoadSettings.
package config
