// Package database provides the datastore startup step: a GORM connection
// pool opened against the resolved database URL and verified with a single
// ping.
//
// The dialector is pluggable so tests can hand in a sqlmock-backed
// connection:
//
//	comp := database.NewComponent(cfg, log).
//	    WithDialector(func(dsn string) gorm.Dialector { return postgres.Open(dsn) })
//
// Schema migrations live in the migration subpackage and run as their own
// step once the pool is up.
package database
