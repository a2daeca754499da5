package service

import (
	"context"
	"log/slog"

	"github.com/mergequest/mergequest/internal/apperror"
	"github.com/mergequest/mergequest/internal/model"
	"github.com/mergequest/mergequest/internal/repository"
)

// Leaderboard pagination limits.
const (
	DefaultLeaderboardLimit = 20
	MaxLeaderboardLimit     = 100
)

// LeaderboardEntry is one row of the ranked leaderboard.
type LeaderboardEntry struct {
	Rank        int      `json:"rank"`
	GitHubID    string   `json:"github_id"`
	Name        string   `json:"name"`
	AvatarURL   string   `json:"avatar_url"`
	TotalPoints int      `json:"total_points"`
	Badges      []string `json:"badges"`
}

// LeaderboardPage is a page of the leaderboard plus paging metadata.
type LeaderboardPage struct {
	Entries []LeaderboardEntry `json:"entries"`
	Total   int                `json:"total"`
	Limit   int                `json:"limit"`
	Offset  int                `json:"offset"`
}

// Profile bundles everything the profile page shows for one user.
type Profile struct {
	User         *model.User         `json:"user"`
	Badges       []model.Badge       `json:"badges"`
	PullRequests []model.PullRequest `json:"pull_requests"`
}

// StatPoint is one month of contribution history.
type StatPoint struct {
	Month      string `json:"month"` // "2026-01"
	Points     int    `json:"points"`
	Cumulative int    `json:"cumulative"`
}

// UserService handles profile, leaderboard and stats queries.
type UserService struct {
	users  repository.UserRepository
	prs    repository.PullRequestRepository
	badges repository.BadgeRepository
	logger *slog.Logger
}

func NewUserService(
	users repository.UserRepository,
	prs repository.PullRequestRepository,
	badges repository.BadgeRepository,
	logger *slog.Logger,
) *UserService {
	return &UserService{users: users, prs: prs, badges: badges, logger: logger}
}

// Leaderboard returns users ranked by total points, with the badge names
// each holds. Ranks are absolute positions, so page two at limit 20 starts
// at rank 21.
func (s *UserService) Leaderboard(ctx context.Context, limit, offset int) (*LeaderboardPage, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	if limit > MaxLeaderboardLimit {
		limit = MaxLeaderboardLimit
	}
	if offset < 0 {
		offset = 0
	}

	users, err := s.users.List(ctx, repository.ListOptions{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	total, err := s.users.Count(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(users))
	for i, u := range users {
		badges, err := s.badges.ListByUser(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, len(badges))
		for _, b := range badges {
			names = append(names, b.Name)
		}
		entries = append(entries, LeaderboardEntry{
			Rank:        offset + i + 1,
			GitHubID:    u.GitHubID,
			Name:        u.Name,
			AvatarURL:   u.AvatarURL,
			TotalPoints: u.TotalPoints,
			Badges:      names,
		})
	}

	return &LeaderboardPage{Entries: entries, Total: total, Limit: limit, Offset: offset}, nil
}

// GetProfile returns the user identified by GitHub login, with their badges
// and mirrored pull requests.
func (s *UserService) GetProfile(ctx context.Context, githubID string) (*Profile, error) {
	if githubID == "" {
		return nil, apperror.ValidationFailed("github_id", "must not be empty")
	}

	user, err := s.users.GetByGitHubID(ctx, githubID)
	if err != nil {
		return nil, err
	}
	badges, err := s.badges.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	prs, err := s.prs.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &Profile{User: user, Badges: badges, PullRequests: prs}, nil
}

// PointsHistory aggregates the user's scored pull requests into monthly
// buckets with a running cumulative total. Buckets are keyed on the month
// the PR was created in, which keeps the series stable as PRs change state.
func (s *UserService) PointsHistory(ctx context.Context, githubID string) ([]StatPoint, error) {
	user, err := s.users.GetByGitHubID(ctx, githubID)
	if err != nil {
		return nil, err
	}

	prs, err := s.prs.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	// ListByUser returns PRs ordered by creation time, so one pass builds
	// the months in order.
	var history []StatPoint
	cumulative := 0
	for _, pr := range prs {
		month := pr.PRCreatedAt.UTC().Format("2006-01")
		cumulative += pr.TotalPoints()
		if n := len(history); n > 0 && history[n-1].Month == month {
			history[n-1].Points += pr.TotalPoints()
			history[n-1].Cumulative = cumulative
			continue
		}
		history = append(history, StatPoint{Month: month, Points: pr.TotalPoints(), Cumulative: cumulative})
	}
	return history, nil
}

// Delete removes a user by internal ID. Their pull requests and badges go
// with them via the schema's cascade rules.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperror.ValidationFailed("id", "must not be empty")
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("user deleted", "user_id", id)
	return nil
}
