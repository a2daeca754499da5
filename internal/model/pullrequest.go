package model

import "time"

// PRState is the local lifecycle state of a mirrored pull request.
type PRState string

const (
	PRStateOpen   PRState = "open"
	PRStateClosed PRState = "closed" // closed without merging (rejected)
	PRStateMerged PRState = "merged"
)

// PullRequest is the local mirror of a pull request fetched from GitHub.
//
// Identity is the (RepoFullName, Number) pair — NOT the URL and NOT a GitHub
// node id. Two fetches of the same PR in different batches (say, after the
// title was edited) must land on the same row, so the composite key carries a
// UNIQUE constraint in the DB.
//
// PullPoints and MergePoints are fully determined by State via the scoring
// policy. They are denormalized onto the row so the reconciler can compute a
// point delta against the previously stored values without re-deriving the
// old state.
type PullRequest struct {
	ID           string     `json:"id"            db:"id"`
	UserID       string     `json:"user_id"       db:"user_id"`
	RepoFullName string     `json:"repo_full_name" db:"repo_full_name"` // "owner/repo"
	Number       int        `json:"number"        db:"number"`
	State        PRState    `json:"state"         db:"state"`
	Title        string     `json:"title"         db:"title"`
	Additions    int        `json:"additions"     db:"additions"`
	Deletions    int        `json:"deletions"     db:"deletions"`
	PullPoints   int        `json:"pull_points"   db:"pull_points"`
	MergePoints  int        `json:"merge_points"  db:"merge_points"`
	PRCreatedAt  time.Time  `json:"pr_created_at" db:"pr_created_at"` // when the PR was opened on GitHub
	MergedAt     *time.Time `json:"merged_at"     db:"merged_at"`     // nil unless State == merged
	CreatedAt    time.Time  `json:"created_at"    db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"    db:"updated_at"`
}

// TotalPoints is this PR's contribution to the owner's ledger.
func (pr *PullRequest) TotalPoints() int {
	return pr.PullPoints + pr.MergePoints
}
