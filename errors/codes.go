package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Configuration errors
const (
	// ErrCodeConfigSourceUnavailable indicates the fallback env file could not be loaded.
	ErrCodeConfigSourceUnavailable ErrorCode = "CONFIG_SOURCE_UNAVAILABLE"
	// ErrCodeMissingRequiredKeys indicates required keys remained unset after every source.
	ErrCodeMissingRequiredKeys ErrorCode = "MISSING_REQUIRED_KEYS"
	// ErrCodeInvalidSettings indicates the tuning file could not be read or failed validation.
	ErrCodeInvalidSettings ErrorCode = "INVALID_SETTINGS"
)

// Bootstrap errors
const (
	// ErrCodeDatastoreUnavailable indicates the relational datastore could not be reached.
	ErrCodeDatastoreUnavailable ErrorCode = "DATASTORE_UNAVAILABLE"
	// ErrCodeMigrationFailed indicates schema migrations could not be applied.
	ErrCodeMigrationFailed ErrorCode = "MIGRATION_FAILED"
	// ErrCodeCrashHookFailed indicates crash diagnostics could not be installed.
	ErrCodeCrashHookFailed ErrorCode = "CRASH_HOOK_FAILED"
	// ErrCodeBrokerUnavailable indicates the message broker could not be reached.
	ErrCodeBrokerUnavailable ErrorCode = "BROKER_UNAVAILABLE"
	// ErrCodeSubscriptionFailed indicates the consumer could not subscribe to its topic.
	ErrCodeSubscriptionFailed ErrorCode = "SUBSCRIPTION_FAILED"
	// ErrCodeListenerBindFailed indicates the HTTP listener could not be bound.
	ErrCodeListenerBindFailed ErrorCode = "LISTENER_BIND_FAILED"
	// ErrCodeServeFailed indicates a long-running loop terminated with an error.
	ErrCodeServeFailed ErrorCode = "SERVE_FAILED"
)

// Kind groups error codes into the two startup taxonomies.
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindBootstrap     Kind = "bootstrap"
)

var codeKinds = map[ErrorCode]Kind{
	ErrCodeConfigSourceUnavailable: KindConfiguration,
	ErrCodeMissingRequiredKeys:     KindConfiguration,
	ErrCodeInvalidSettings:         KindConfiguration,
	ErrCodeDatastoreUnavailable:    KindBootstrap,
	ErrCodeMigrationFailed:         KindBootstrap,
	ErrCodeCrashHookFailed:         KindBootstrap,
	ErrCodeBrokerUnavailable:       KindBootstrap,
	ErrCodeSubscriptionFailed:      KindBootstrap,
	ErrCodeListenerBindFailed:      KindBootstrap,
	ErrCodeServeFailed:             KindBootstrap,
}

// KindOf returns the taxonomy a code belongs to. Unknown codes are bootstrap errors.
func KindOf(code ErrorCode) Kind {
	if k, ok := codeKinds[code]; ok {
		return k
	}
	return KindBootstrap
}
