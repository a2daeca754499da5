// Package sqlite implements the repository interfaces on SQLite.
//
// We use modernc.org/sqlite (a pure-Go translation of SQLite) rather than
// mattn/go-sqlite3 so the binary builds without CGo. The database is a single
// file; ":memory:" gives tests a throwaway instance.
//
// WAL mode is enabled so reads don't block while a sync pass is writing.
// The unique indexes here are load-bearing for the sync engine:
//
//	pull_requests UNIQUE(repo_full_name, number) — the composite key. Two
//	    reconciliation passes racing to create the same PR produce one row
//	    and one constraint error, which we map to apperror.ErrDuplicateKey.
//	badges UNIQUE(user_id, badge) — at-most-once issuance. Same mapping.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	// Importing the driver registers "sqlite" with database/sql; we also
	// need its Error type to detect unique-constraint violations.
	sqlite3 "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// DB wraps a sql.DB connection pool. Per-entity stores share the pool:
// db.Users(), db.PullRequests(), and db.Badges() each return a thin view
// implementing the corresponding repository interface.
type DB struct {
	conn *sql.DB
}

// Users returns the UserRepository view of this database.
func (db *DB) Users() *UserStore { return &UserStore{conn: db.conn} }

// PullRequests returns the PullRequestRepository view of this database.
func (db *DB) PullRequests() *PullRequestStore { return &PullRequestStore{conn: db.conn} }

// Badges returns the BadgeRepository view of this database.
func (db *DB) Badges() *BadgeStore { return &BadgeStore{conn: db.conn} }

// New opens (or creates) the database at dbPath and runs migrations.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// Concurrent syncs read and write interleaved; WAL keeps readers unblocked.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Referential integrity for pull_requests.user_id and badges.user_id.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id             TEXT PRIMARY KEY,
			github_id      TEXT NOT NULL UNIQUE,
			name           TEXT NOT NULL DEFAULT '',
			avatar_url     TEXT NOT NULL DEFAULT '',
			access_token   TEXT NOT NULL DEFAULT '',
			total_points   INTEGER NOT NULL DEFAULT 0,
			last_synced_at DATETIME,
			created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_users_total_points ON users(total_points DESC);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS pull_requests (
			id             TEXT PRIMARY KEY,
			user_id        TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			repo_full_name TEXT NOT NULL,
			number         INTEGER NOT NULL,
			state          TEXT NOT NULL,
			title          TEXT NOT NULL DEFAULT '',
			additions      INTEGER NOT NULL DEFAULT 0,
			deletions      INTEGER NOT NULL DEFAULT 0,
			pull_points    INTEGER NOT NULL DEFAULT 0,
			merge_points   INTEGER NOT NULL DEFAULT 0,
			pr_created_at  DATETIME NOT NULL,
			merged_at      DATETIME,
			created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(repo_full_name, number)
		);
		CREATE INDEX IF NOT EXISTS idx_pull_requests_user_id ON pull_requests(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating pull_requests table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS badges (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			badge      TEXT NOT NULL,
			awarded_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(user_id, badge)
		);
		CREATE INDEX IF NOT EXISTS idx_badges_user_id ON badges(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating badges table: %w", err)
	}

	return nil
}

// isUniqueViolation reports whether err is a SQLite UNIQUE-constraint
// failure. The driver exposes the extended result code, so we can branch on
// the real code instead of matching error text.
func isUniqueViolation(err error) bool {
	var se *sqlite3.Error
	return errors.As(err, &se) && se.Code() == sqlite3lib.SQLITE_CONSTRAINT_UNIQUE
}
