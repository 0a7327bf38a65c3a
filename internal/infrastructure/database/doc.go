// Package database opens the SQLite file that holds playback history.
//
// This package manages:
//   - The connection, with WAL mode and a busy timeout
//   - Schema migrations embedded by the migrations package
//   - Health checks used by the CLI before recording history
//
// A single connection is kept open: the player writes at most one row per
// run and SQLite has a single writer.
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql with a
// matching .down.sql, and are applied oldest first, each in its own
// transaction.
package database
