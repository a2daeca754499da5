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

// BadgeStore implements repository.BadgeRepository.
type BadgeStore struct {
	conn *sql.DB
}

var _ repository.BadgeRepository = (*BadgeStore)(nil)

// Create awards a badge. UNIQUE(user_id, badge) makes issuance at-most-once;
// a violation comes back as apperror.ErrDuplicateKey, which the issuer treats
// as success.
func (db *BadgeStore) Create(ctx context.Context, badge *model.Badge) error {
	badge.ID = xid.New().String()
	if badge.AwardedAt.IsZero() {
		badge.AwardedAt = time.Now()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO badges (id, user_id, badge, awarded_at) VALUES (?, ?, ?, ?)`,
		badge.ID,
		badge.UserID,
		badge.Name,
		badge.AwardedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.DuplicateKey("badge", fmt.Sprintf("%s/%s", badge.UserID, badge.Name))
		}
		return fmt.Errorf("sqlite: inserting badge %q for user %s: %w", badge.Name, badge.UserID, err)
	}
	return nil
}

// ListByUser returns the user's badges, most recently awarded first.
func (db *BadgeStore) ListByUser(ctx context.Context, userID string) ([]model.Badge, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, badge, awarded_at FROM badges
		 WHERE user_id = ? ORDER BY awarded_at DESC, badge ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing badges for user %s: %w", userID, err)
	}
	defer rows.Close()

	var badges []model.Badge
	for rows.Next() {
		var b model.Badge
		if err := rows.Scan(&b.ID, &b.UserID, &b.Name, &b.AwardedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning badge row: %w", err)
		}
		badges = append(badges, b)
	}
	return badges, rows.Err()
}

// DeleteByID revokes a badge (admin action) and returns the removed record.
func (db *BadgeStore) DeleteByID(ctx context.Context, id string) (*model.Badge, error) {
	var b model.Badge
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, badge, awarded_at FROM badges WHERE id = ?`, id,
	).Scan(&b.ID, &b.UserID, &b.Name, &b.AwardedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("badge", id)
		}
		return nil, fmt.Errorf("sqlite: getting badge %s: %w", id, err)
	}

	if _, err := db.conn.ExecContext(ctx, `DELETE FROM badges WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("sqlite: deleting badge %s: %w", id, err)
	}
	return &b, nil
}
