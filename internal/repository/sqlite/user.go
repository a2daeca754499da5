package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/mergequest/mergequest/internal/apperror"
	"github.com/mergequest/mergequest/internal/model"
	"github.com/mergequest/mergequest/internal/repository"
)

// UserStore implements repository.UserRepository.
type UserStore struct {
	conn *sql.DB
}

// compile-time check
var _ repository.UserRepository = (*UserStore)(nil)

const userColumns = `id, github_id, name, avatar_url, access_token, total_points, last_synced_at, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.GitHubID,
		&u.Name,
		&u.AvatarURL,
		&u.AccessToken,
		&u.TotalPoints,
		&u.LastSyncedAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Upsert inserts or updates a user based on their GitHub login.
//
// On first login we INSERT with a fresh xid and total_points = 0. On
// subsequent logins we refresh the profile fields and the access token — the
// user may have rotated it by re-authorizing — but deliberately leave
// total_points and last_synced_at alone: the ledger belongs to the sync
// engine, not the auth flow.
func (db *UserStore) Upsert(ctx context.Context, user *model.User) error {
	var existingID string
	err := db.conn.QueryRowContext(ctx,
		`SELECT id FROM users WHERE github_id = ?`, user.GitHubID,
	).Scan(&existingID)

	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("sqlite: looking up user by github_id %s: %w", user.GitHubID, err)
	}

	if existingID != "" {
		user.ID = existingID
		user.UpdatedAt = time.Now()
		_, err = db.conn.ExecContext(ctx,
			`UPDATE users SET name = ?, avatar_url = ?, access_token = ?, updated_at = ?
			 WHERE id = ?`,
			user.Name,
			user.AvatarURL,
			user.AccessToken,
			user.UpdatedAt,
			user.ID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
		}
		return nil
	}

	now := time.Now()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO users (id, github_id, name, avatar_url, access_token, total_points, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, 0, ?, ?)`,
		user.ID,
		user.GitHubID,
		user.Name,
		user.AvatarURL,
		user.AccessToken,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			// Two first-logins raced; the other insert won. Benign.
			return apperror.DuplicateKey("user", user.GitHubID)
		}
		return fmt.Errorf("sqlite: inserting user (github_id=%s): %w", user.GitHubID, err)
	}

	return nil
}

// GetByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *UserStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)

	u, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

// GetByGitHubID retrieves a user by their GitHub login.
func (db *UserStore) GetByGitHubID(ctx context.Context, githubID string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE github_id = ?`, githubID)

	u, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", githubID)
		}
		return nil, fmt.Errorf("sqlite: getting user by github_id %s: %w", githubID, err)
	}
	return u, nil
}

// List returns users in leaderboard order: highest points first, ties broken
// by earliest signup.
func (db *UserStore) List(ctx context.Context, opts repository.ListOptions) ([]model.User, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users
		 ORDER BY total_points DESC, created_at ASC
		 LIMIT ? OFFSET ?`,
		opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (db *UserStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: counting users: %w", err)
	}
	return n, nil
}

// AddPoints atomically increments total_points by delta.
//
// The increment happens inside the UPDATE statement, against the stored
// value. Two concurrent syncs that each add 15 points always land on +30 —
// there is no read-then-write window to interleave in.
func (db *UserStore) AddPoints(ctx context.Context, id string, delta int) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET total_points = total_points + ?, updated_at = ? WHERE id = ?`,
		delta, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: adding %d points to user %s: %w", delta, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}

// TouchSyncedAt records the time of a reconciliation attempt.
func (db *UserStore) TouchSyncedAt(ctx context.Context, id string, at time.Time) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET last_synced_at = ?, updated_at = ? WHERE id = ?`,
		at, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: touching last_synced_at for user %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}

// ListSyncedBefore returns users due for a background re-sync: never synced,
// or last synced before cutoff. Oldest sync first so the staleest users go
// to the front of the queue.
func (db *UserStore) ListSyncedBefore(ctx context.Context, cutoff time.Time, limit int) ([]model.User, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE last_synced_at IS NULL OR last_synced_at < ?
		 ORDER BY last_synced_at ASC
		 LIMIT ?`,
		cutoff, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing stale users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// Delete removes a user. PRs and badges follow via ON DELETE CASCADE.
func (db *UserStore) Delete(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}
