// Package repository declares the storage interfaces consumed by the service
// layer. Each operation is independently atomic — the core never runs
// multi-row transactions. The one operation that matters for correctness
// under concurrency is AddPoints: it must be an increment-by-delta on the
// stored value, never a read-modify-write of a cached total.
package repository

import (
	"context"
	"time"

	"github.com/mergequest/mergequest/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

type UserRepository interface {
	// Upsert creates the user on first login and refreshes profile fields
	// (name, avatar, access token) on subsequent logins, keyed on github_id.
	// Never touches total_points for an existing user.
	Upsert(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByGitHubID(ctx context.Context, githubID string) (*model.User, error)
	// List returns users ordered by total_points descending (leaderboard order).
	List(ctx context.Context, opts ListOptions) ([]model.User, error)
	Count(ctx context.Context) (int, error)
	// AddPoints atomically increments the user's total_points by delta
	// (delta may be negative).
	AddPoints(ctx context.Context, id string, delta int) error
	// TouchSyncedAt records the time of a reconciliation attempt. The
	// background worker also records failed attempts so the user rotates
	// to the back of the stale-user queue.
	TouchSyncedAt(ctx context.Context, id string, at time.Time) error
	// ListSyncedBefore returns users whose last sync is older than cutoff
	// (including never-synced users), oldest first.
	ListSyncedBefore(ctx context.Context, cutoff time.Time, limit int) ([]model.User, error)
	Delete(ctx context.Context, id string) error
}

type PullRequestRepository interface {
	// GetByRepoNumber looks up a PR by its composite key.
	GetByRepoNumber(ctx context.Context, repoFullName string, number int) (*model.PullRequest, error)
	// Create inserts a new mirrored PR. Returns apperror.ErrDuplicateKey if a
	// concurrent create won the race on the composite key.
	Create(ctx context.Context, pr *model.PullRequest) error
	// Update overwrites the mirrored fields of an existing PR.
	Update(ctx context.Context, pr *model.PullRequest) error
	// ListByUser returns the user's PRs ordered by pr_created_at ascending.
	ListByUser(ctx context.Context, userID string) ([]model.PullRequest, error)
	// SumPointsByUser recomputes the point sum from PR rows. Used by tests to
	// check the ledger invariant, not by the serving path.
	SumPointsByUser(ctx context.Context, userID string) (int, error)
}

type BadgeRepository interface {
	// Create awards a badge. Returns apperror.ErrDuplicateKey if the user
	// already holds a badge with this name.
	Create(ctx context.Context, badge *model.Badge) error
	// ListByUser returns the user's badges, most recently awarded first.
	ListByUser(ctx context.Context, userID string) ([]model.Badge, error)
	DeleteByID(ctx context.Context, id string) (*model.Badge, error)
}
