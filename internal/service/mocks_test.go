package service

// =========================================================================
// MOCK REPOSITORIES
// =========================================================================
//
// Hand-written in-memory fakes for the repository interfaces. The services
// only see the interfaces, so these swap in transparently. Each mock keeps
// an injectable error field so tests can simulate specific store failures
// (duplicate key on insert, storage down) that are awkward to trigger with
// a real database.

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/mergequest/mergequest/internal/apperror"
	"github.com/mergequest/mergequest/internal/github"
	"github.com/mergequest/mergequest/internal/model"
	"github.com/mergequest/mergequest/internal/repository"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// ---- users ----

type mockUserRepo struct {
	users  map[string]*model.User // keyed by internal ID
	nextID int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) addUser(githubID string, points int) *model.User {
	m.nextID++
	u := &model.User{
		ID:          fmt.Sprintf("user-%d", m.nextID),
		GitHubID:    githubID,
		Name:        githubID,
		AccessToken: "gho_" + githubID,
		TotalPoints: points,
	}
	m.users[u.ID] = u
	return u
}

func (m *mockUserRepo) Upsert(_ context.Context, user *model.User) error {
	for _, u := range m.users {
		if u.GitHubID == user.GitHubID {
			u.Name = user.Name
			u.AvatarURL = user.AvatarURL
			u.AccessToken = user.AccessToken
			user.ID = u.ID
			user.TotalPoints = u.TotalPoints
			return nil
		}
	}
	m.nextID++
	user.ID = fmt.Sprintf("user-%d", m.nextID)
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	result := *u
	return &result, nil
}

func (m *mockUserRepo) GetByGitHubID(_ context.Context, githubID string) (*model.User, error) {
	for _, u := range m.users {
		if u.GitHubID == githubID {
			result := *u
			return &result, nil
		}
	}
	return nil, apperror.NotFound("user", githubID)
}

func (m *mockUserRepo) List(_ context.Context, opts repository.ListOptions) ([]model.User, error) {
	result := make([]model.User, 0, len(m.users))
	for _, u := range m.users {
		result = append(result, *u)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].TotalPoints > result[j].TotalPoints })
	if opts.Offset >= len(result) {
		return []model.User{}, nil
	}
	result = result[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(result) {
		result = result[:opts.Limit]
	}
	return result, nil
}

func (m *mockUserRepo) Count(_ context.Context) (int, error) {
	return len(m.users), nil
}

func (m *mockUserRepo) AddPoints(_ context.Context, id string, delta int) error {
	u, ok := m.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	u.TotalPoints += delta
	return nil
}

func (m *mockUserRepo) TouchSyncedAt(_ context.Context, id string, at time.Time) error {
	u, ok := m.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	u.LastSyncedAt = &at
	return nil
}

func (m *mockUserRepo) ListSyncedBefore(_ context.Context, cutoff time.Time, limit int) ([]model.User, error) {
	var result []model.User
	for _, u := range m.users {
		if u.LastSyncedAt == nil || u.LastSyncedAt.Before(cutoff) {
			result = append(result, *u)
		}
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

func (m *mockUserRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.users[id]; !ok {
		return apperror.NotFound("user", id)
	}
	delete(m.users, id)
	return nil
}

// ---- pull requests ----

type mockPRRepo struct {
	prs       map[string]*model.PullRequest // keyed by "repo#number"
	nextID    int
	createErr error // injected: returned by Create when set
	updateErr error // injected: returned by Update when set
}

func newMockPRRepo() *mockPRRepo {
	return &mockPRRepo{prs: make(map[string]*model.PullRequest)}
}

func prKey(repo string, number int) string {
	return fmt.Sprintf("%s#%d", repo, number)
}

func (m *mockPRRepo) GetByRepoNumber(_ context.Context, repo string, number int) (*model.PullRequest, error) {
	pr, ok := m.prs[prKey(repo, number)]
	if !ok {
		return nil, apperror.NotFound("pull request", prKey(repo, number))
	}
	result := *pr
	return &result, nil
}

func (m *mockPRRepo) Create(_ context.Context, pr *model.PullRequest) error {
	if m.createErr != nil {
		return m.createErr
	}
	key := prKey(pr.RepoFullName, pr.Number)
	if _, ok := m.prs[key]; ok {
		return apperror.DuplicateKey("pull request", key)
	}
	m.nextID++
	pr.ID = fmt.Sprintf("pr-%d", m.nextID)
	stored := *pr
	m.prs[key] = &stored
	return nil
}

func (m *mockPRRepo) Update(_ context.Context, pr *model.PullRequest) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	key := prKey(pr.RepoFullName, pr.Number)
	if _, ok := m.prs[key]; !ok {
		return apperror.NotFound("pull request", pr.ID)
	}
	stored := *pr
	m.prs[key] = &stored
	return nil
}

func (m *mockPRRepo) ListByUser(_ context.Context, userID string) ([]model.PullRequest, error) {
	var result []model.PullRequest
	for _, pr := range m.prs {
		if pr.UserID == userID {
			result = append(result, *pr)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].PRCreatedAt.Before(result[j].PRCreatedAt) })
	return result, nil
}

func (m *mockPRRepo) SumPointsByUser(_ context.Context, userID string) (int, error) {
	sum := 0
	for _, pr := range m.prs {
		if pr.UserID == userID {
			sum += pr.TotalPoints()
		}
	}
	return sum, nil
}

// ---- badges ----

type mockBadgeRepo struct {
	badges    map[string]*model.Badge // keyed by "userID|name"
	nextID    int
	createErr error
}

func newMockBadgeRepo() *mockBadgeRepo {
	return &mockBadgeRepo{badges: make(map[string]*model.Badge)}
}

func (m *mockBadgeRepo) Create(_ context.Context, badge *model.Badge) error {
	if m.createErr != nil {
		return m.createErr
	}
	key := badge.UserID + "|" + badge.Name
	if _, ok := m.badges[key]; ok {
		return apperror.DuplicateKey("badge", badge.Name)
	}
	m.nextID++
	badge.ID = fmt.Sprintf("badge-%d", m.nextID)
	badge.AwardedAt = time.Now().UTC()
	stored := *badge
	m.badges[key] = &stored
	return nil
}

func (m *mockBadgeRepo) ListByUser(_ context.Context, userID string) ([]model.Badge, error) {
	var result []model.Badge
	for _, b := range m.badges {
		if b.UserID == userID {
			result = append(result, *b)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].AwardedAt.After(result[j].AwardedAt) })
	return result, nil
}

func (m *mockBadgeRepo) DeleteByID(_ context.Context, id string) (*model.Badge, error) {
	for key, b := range m.badges {
		if b.ID == id {
			result := *b
			delete(m.badges, key)
			return &result, nil
		}
	}
	return nil, apperror.NotFound("badge", id)
}

// ---- remote source ----

// stubSource returns a canned pull-request list or a canned error.
type stubSource struct {
	prs   []github.RemotePullRequest
	err   error
	calls int
}

func (s *stubSource) FetchPullRequests(_ context.Context, _, _ string) ([]github.RemotePullRequest, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.prs, nil
}

func (s *stubSource) FetchTimeout() time.Duration { return time.Second }
