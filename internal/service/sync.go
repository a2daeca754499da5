package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/mergequest/mergequest/internal/apperror"
	"github.com/mergequest/mergequest/internal/github"
	"github.com/mergequest/mergequest/internal/model"
	"github.com/mergequest/mergequest/internal/repository"
	"github.com/mergequest/mergequest/internal/scoring"
)

// RemotePRSource is the sync service's view of GitHub. *github.Client
// satisfies it; tests substitute a stub that returns canned pull requests
// or canned failures.
type RemotePRSource interface {
	FetchPullRequests(ctx context.Context, login, token string) ([]github.RemotePullRequest, error)
	FetchTimeout() time.Duration
}

// SyncResult summarises one reconciliation pass.
type SyncResult struct {
	Total     int      `json:"total"`   // remote PRs examined
	Created   int      `json:"created"` // PRs mirrored for the first time
	Updated   int      `json:"updated"` // PRs whose state or score changed
	Skipped   int      `json:"skipped"` // malformed or individually-failed records
	NewBadges []string `json:"new_badges,omitempty"`
}

// SyncService reconciles a user's remote pull requests into the local store
// and applies the resulting point deltas to the user's total.
//
// ERROR POLICY — two distinct failure domains:
//
//  1. FETCH failures (token rejected, network down, unknown login) abort the
//     whole pass BEFORE any local write. The local state stays exactly as it
//     was; the caller gets the error.
//
//  2. PER-RECORD failures (a malformed PR, a store error on one row) are
//     logged and skipped. One broken record must not stop the other
//     ninety-nine from being scored.
//
// The pass is idempotent: running it twice against unchanged remote data
// performs zero writes and zero point deltas the second time, because every
// delta is computed against what is already stored.
type SyncService struct {
	users  repository.UserRepository
	prs    repository.PullRequestRepository
	badges *BadgeService
	source RemotePRSource
	logger *slog.Logger
}

func NewSyncService(
	users repository.UserRepository,
	prs repository.PullRequestRepository,
	badges *BadgeService,
	source RemotePRSource,
	logger *slog.Logger,
) *SyncService {
	return &SyncService{users: users, prs: prs, badges: badges, source: source, logger: logger}
}

// Sync fetches the user's recent pull requests from GitHub and reconciles
// them into the local mirror. githubID is the GitHub login, not our internal
// user ID — sync is always keyed on the identity GitHub knows.
func (s *SyncService) Sync(ctx context.Context, githubID string) (*SyncResult, error) {
	user, err := s.users.GetByGitHubID(ctx, githubID)
	if err != nil {
		return nil, err
	}
	if user.AccessToken == "" {
		// Nothing to send as Bearer. Fail here rather than letting GitHub
		// reject an empty token after a round trip.
		return nil, apperror.Unauthenticated("no github access token on file; sign in again")
	}

	// The timeout guards the remote fetch only. Local writes after a
	// successful fetch run under the caller's context: slow local I/O must
	// not strand a half-applied pass.
	fetchCtx, cancel := context.WithTimeout(ctx, s.source.FetchTimeout())
	remote, err := s.source.FetchPullRequests(fetchCtx, user.GitHubID, user.AccessToken)
	cancel()
	if err != nil {
		return nil, err
	}

	result := &SyncResult{Total: len(remote)}
	for _, r := range remote {
		if err := s.reconcileOne(ctx, user, r, result); err != nil {
			s.logger.Error("skipping pull request",
				"user", user.GitHubID, "url", r.URL, "error", err)
			result.Skipped++
		}
	}

	if err := s.users.TouchSyncedAt(ctx, user.ID, time.Now().UTC()); err != nil {
		s.logger.Error("failed to record sync time", "user", user.GitHubID, "error", err)
	}

	// Badge issuance runs against the post-pass total. Failures here are
	// absorbed inside IssueEarned — the sync itself already succeeded.
	fresh, err := s.users.GetByID(ctx, user.ID)
	if err != nil {
		s.logger.Error("failed to reload user for badge issuance", "user", user.GitHubID, "error", err)
		return result, nil
	}
	result.NewBadges = s.badges.IssueEarned(ctx, user.ID, fresh.TotalPoints)

	s.logger.Info("sync complete",
		"user", user.GitHubID,
		"total", result.Total,
		"created", result.Created,
		"updated", result.Updated,
		"skipped", result.Skipped,
		"new_badges", len(result.NewBadges),
	)
	return result, nil
}

// reconcileOne mirrors a single remote pull request and applies its point
// delta. Returns an error only for failures the caller should count as a
// skipped record.
func (s *SyncService) reconcileOne(ctx context.Context, user *model.User, r github.RemotePullRequest, result *SyncResult) error {
	repoFullName, number, err := prKeyFromURL(r.URL)
	if err != nil {
		return err
	}

	state, pullPoints, mergePoints := scoring.Score(r.State, r.Merged)

	existing, err := s.prs.GetByRepoNumber(ctx, repoFullName, number)
	switch {
	case err == nil:
		return s.updateExisting(ctx, user, existing, r, state, pullPoints, mergePoints, result)
	case errors.Is(err, apperror.ErrNotFound):
		return s.createNew(ctx, user, r, repoFullName, number, state, pullPoints, mergePoints, result)
	default:
		return err
	}
}

func (s *SyncService) createNew(
	ctx context.Context,
	user *model.User,
	r github.RemotePullRequest,
	repoFullName string,
	number int,
	state model.PRState,
	pullPoints, mergePoints int,
	result *SyncResult,
) error {
	pr := &model.PullRequest{
		UserID:       user.ID,
		RepoFullName: repoFullName,
		Number:       number,
		State:        state,
		Title:        r.Title,
		Additions:    r.Additions,
		Deletions:    r.Deletions,
		PullPoints:   pullPoints,
		MergePoints:  mergePoints,
		PRCreatedAt:  r.CreatedAt,
		MergedAt:     r.MergedAt,
	}

	if err := s.prs.Create(ctx, pr); err != nil {
		if errors.Is(err, apperror.ErrDuplicateKey) {
			// A concurrent pass created the row between our lookup and our
			// insert. That pass also applied the delta — nothing to do.
			s.logger.Debug("pull request created concurrently", "repo", repoFullName, "number", number)
			return nil
		}
		return err
	}

	result.Created++
	return s.applyDelta(ctx, user, pr.TotalPoints())
}

func (s *SyncService) updateExisting(
	ctx context.Context,
	user *model.User,
	existing *model.PullRequest,
	r github.RemotePullRequest,
	state model.PRState,
	pullPoints, mergePoints int,
	result *SyncResult,
) error {
	changed := existing.State != state ||
		existing.PullPoints != pullPoints ||
		existing.MergePoints != mergePoints ||
		existing.Title != r.Title ||
		existing.Additions != r.Additions ||
		existing.Deletions != r.Deletions ||
		!equalTimePtr(existing.MergedAt, r.MergedAt)
	if !changed {
		return nil
	}

	// The delta is the difference between the new score and what was
	// credited when the row was last stored. An open→merged transition is
	// +15; merged→merged with only changed line counts is 0.
	delta := (pullPoints + mergePoints) - existing.TotalPoints()

	existing.State = state
	existing.Title = r.Title
	existing.Additions = r.Additions
	existing.Deletions = r.Deletions
	existing.PullPoints = pullPoints
	existing.MergePoints = mergePoints
	existing.MergedAt = r.MergedAt

	if err := s.prs.Update(ctx, existing); err != nil {
		return err
	}

	result.Updated++
	return s.applyDelta(ctx, user, delta)
}

func equalTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func (s *SyncService) applyDelta(ctx context.Context, user *model.User, delta int) error {
	if delta == 0 {
		return nil
	}
	return s.users.AddPoints(ctx, user.ID, delta)
}

// prKeyFromURL derives the composite key (repo full name, PR number) from a
// pull request's canonical URL, e.g.
//
//	https://github.com/acme/widgets/pull/42 → ("acme/widgets", 42)
//
// A URL that doesn't fit this shape marks the record malformed.
func prKeyFromURL(rawURL string) (string, int, error) {
	const host = "https://github.com/"
	rest, ok := strings.CutPrefix(rawURL, host)
	if !ok {
		return "", 0, apperror.MalformedRecord(fmt.Sprintf("pull request url %q is not a github url", rawURL))
	}

	parts := strings.Split(rest, "/")
	if len(parts) != 4 || parts[2] != "pull" {
		return "", 0, apperror.MalformedRecord(fmt.Sprintf("pull request url %q has unexpected shape", rawURL))
	}

	number, err := strconv.Atoi(parts[3])
	if err != nil || number <= 0 {
		return "", 0, apperror.MalformedRecord(fmt.Sprintf("pull request url %q has invalid number", rawURL))
	}

	return parts[0] + "/" + parts[1], number, nil
}
