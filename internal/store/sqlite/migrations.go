package sqlite

import "database/sql"

// schema sets up the document table. The store is deliberately a single
// kind/id-keyed table: the core treats persistence as an opaque document
// boundary and owns no relational layout.
const schema = `
CREATE TABLE IF NOT EXISTS documents (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    kind TEXT NOT NULL,
    id TEXT NOT NULL,
    record BLOB NOT NULL,
    UNIQUE (kind, id)
);

CREATE INDEX IF NOT EXISTS idx_documents_kind ON documents(kind);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
