// Package sqlitestore implements notifications.Storage on an embedded SQLite
// database using sqlx and the pure-Go modernc.org/sqlite driver.
//
// Open applies the inline schema migrations and returns a ready Storage:
//
//	store, err := sqlitestore.Open(sqlitestore.Config{Path: "notifykit.db"})
//	if err != nil {
//		return err
//	}
//	defer store.Close()
//
// Timestamps are stored as unix nanoseconds. SetCache relies on
// UPDATE ... RETURNING with COALESCE so the first written value wins.
package sqlitestore
