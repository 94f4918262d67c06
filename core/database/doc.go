// Package database handles pooled database connections, error classification and schema inspection.
//
// It wraps GORM to open MySQL (legacy source catalogs), PostgreSQL (the commerce target store) and
// SQLite (tests and local runs) connections from the application's configuration.
//
// # Connect
//
// Connect opens a pool, applies pool limits and verifies the connection with a ping. Every
// reconciliation component receives the returned *gorm.DB by injection and scopes its own work with
// WithContext or Transaction; connections are released back to the pool on every exit path.
//
// # Error Classification
//
// IsUniqueViolation and IsTransient decode driver-specific errors (MySQL error numbers, PostgreSQL
// SQLSTATE codes, SQLite messages) so the reconcile engine can decide between treat-as-update,
// retry with backoff, and per-record failure.
//
// # Schema Inspection
//
// GetTableColumns retrieves table columns for the integrity schema check.
//
// # Usage
//
//	db, err := database.Connect(cfg.Target)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
//	defer database.Close(db)
package database
