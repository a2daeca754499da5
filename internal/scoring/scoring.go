// Package scoring is the single source of truth for point assignment and
// badge thresholds. No other package computes points independently — the
// reconciler derives a PR's scored fields here, stores them, and later diffs
// against the stored values.
package scoring

import "github.com/mergequest/mergequest/internal/model"

// Point values per pull-request outcome.
//
//	merged  → +5 for the pull, +10 for the merge (+15 total)
//	closed  → −5 for the rejected pull, no merge points
//	open    → nothing yet
const (
	MergedPullPoints  = 5
	MergedMergePoints = 10
	ClosedPullPoints  = -5
)

// Score maps a remote pull request's lifecycle to its canonical local state
// and point values. The merged flag wins over the state string: GitHub
// reports merged PRs with state "MERGED", but we don't depend on that — a
// merged=true record is merged no matter what the state field says.
func Score(state string, merged bool) (model.PRState, int, int) {
	switch {
	case merged:
		return model.PRStateMerged, MergedPullPoints, MergedMergePoints
	case state == "CLOSED" || state == "closed":
		return model.PRStateClosed, ClosedPullPoints, 0
	default:
		return model.PRStateOpen, 0, 0
	}
}
