package database

import (
	"database/sql"
	"fmt"
)

// The whole service stores its state as a single key-value table; the
// key layout (mirror:<id>, yupoo:<albumID>) lives in internal/mirror.
const schema = `
CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
