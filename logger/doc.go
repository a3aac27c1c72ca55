// Package logger wraps zerolog with the field conventions used across the
// storefront services.
//
// Fields are passed as map[string]interface{} so call sites read the same in
// every package:
//
//	log.Info("Step started", map[string]interface{}{"step": "database"})
//
// A process-wide logger is available through Init and GetGlobalLogger for
// packages that are not handed one explicitly.
package logger
