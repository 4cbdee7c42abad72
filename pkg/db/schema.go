package db

const (
	// SchemaV1 defines the SQL statements for version 1 of the database schema.
	// The slots table is the key-value persistence boundary: one row per slot,
	// each holding a JSON document and a revision that increases on every write.
	// Deleted slots stay behind as tombstones so revisions are never reused.
	SchemaV1 = `
CREATE TABLE IF NOT EXISTS alive_versions (
    component TEXT PRIMARY KEY,
    version INTEGER NOT NULL,
    created_at REAL DEFAULT (unixepoch())
);

CREATE TABLE IF NOT EXISTS slots (
    key VARCHAR(128) PRIMARY KEY,
    value BLOB NOT NULL,
    revision INTEGER NOT NULL DEFAULT 1,
    deleted INTEGER NOT NULL DEFAULT 0,
    created_at REAL DEFAULT (unixepoch()),
    updated_at REAL DEFAULT (unixepoch())
);
`
)
