// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered user account.
//
// We use GitHub OAuth as the identity provider, so the primary external
// identifier is the GitHub login (a string like "octocat"). We still generate
// our own internal string ID (xid) so our primary keys aren't tied to a
// third-party's naming scheme. The UNIQUE constraint on github_id in the DB
// ensures one GitHub account maps to exactly one app account.
//
// WHY STORE AccessToken?
// The sync engine replays the user's own OAuth token against GitHub's GraphQL
// API to read their pull requests. The token must be replayable, so it cannot
// be hashed, and it is NEVER serialized into responses — note the `json:"-"`
// tag. Treat this column like a password column.
//
// TotalPoints is the user's ledger: the running sum of pull_points +
// merge_points over all of their PullRequest rows. It is maintained by atomic
// increments during reconciliation, never recomputed on read. It can go
// negative — a user whose every PR was rejected sits below zero.
type User struct {
	ID           string     `json:"id"             db:"id"`
	GitHubID     string     `json:"github_id"      db:"github_id"` // GitHub login, e.g. "octocat"
	Name         string     `json:"name"           db:"name"`
	AvatarURL    string     `json:"avatar_url"     db:"avatar_url"`
	AccessToken  string     `json:"-"              db:"access_token"` // OAuth token for GraphQL sync, never exposed
	TotalPoints  int        `json:"total_points"   db:"total_points"`
	LastSyncedAt *time.Time `json:"last_synced_at" db:"last_synced_at"` // nil until the first sync
	CreatedAt    time.Time  `json:"created_at"     db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"     db:"updated_at"`
}
