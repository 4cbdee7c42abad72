package db

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// MemoryDSN opens a private in-memory database.
const MemoryDSN = ":memory:"

// busyTimeoutMs lets the CLI, MCP server and TUI share one database file:
// a writer waits for the lock instead of failing with SQLITE_BUSY.
const busyTimeoutMs = 5000

var validSyncModes = map[string]bool{
	"OFF":    true,
	"NORMAL": true,
	"FULL":   true,
	"EXTRA":  true,
}

// ValidSyncMode reports whether mode is an accepted synchronous pragma value (case-insensitive).
func ValidSyncMode(mode string) bool {
	return validSyncModes[strings.ToUpper(mode)]
}

// BuildDSN appends the go-sqlite3 connection parameters for the slot store to path.
// WAL is skipped for in-memory databases, where SQLite ignores it anyway.
func BuildDSN(path string, enableWAL bool, syncPragma string) (string, error) {
	params := url.Values{}
	params.Set("_busy_timeout", fmt.Sprint(busyTimeoutMs))

	if enableWAL && path != MemoryDSN {
		params.Set("_journal_mode", "WAL")
	}
	if syncPragma != "" {
		mode := strings.ToUpper(syncPragma)
		if !validSyncModes[mode] {
			return "", fmt.Errorf("invalid sync pragma value: %s. Must be one of OFF, NORMAL, FULL, EXTRA", syncPragma)
		}
		params.Set("_synchronous", mode)
	}

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + params.Encode(), nil
}

// OpenDBConnection opens and pings the SQLite database at path.
func OpenDBConnection(path string, enableWAL bool, syncPragma string) (*sql.DB, error) {
	dsn, err := BuildDSN(path, enableWAL, syncPragma)
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database with DSN '%s': %w", dsn, err)
	}

	// Every pooled connection to ":memory:" would get its own empty database.
	if path == MemoryDSN {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database with DSN '%s': %w", dsn, err)
	}
	return conn, nil
}
