// Package database opens the SQLite file used by the sqlite ordering backend
// and applies the embedded schema migrations.
//
// The handle is limited to one open connection; SQLite allows a single
// writer and the service writes one small record at a time. WAL mode keeps
// readers (CLI inspection, health checks) from blocking on that writer.
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
// Migration files live in the top-level migrations package and are named
// YYYYMMDD_HHMMSS_name.up.sql / .down.sql.
package database
