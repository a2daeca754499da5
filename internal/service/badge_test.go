package service

import (
	"context"
	"errors"
	"testing"

	"github.com/mergequest/mergequest/internal/apperror"
)

func newBadgeFixture() (*BadgeService, *mockUserRepo, *mockBadgeRepo) {
	users := newMockUserRepo()
	badges := newMockBadgeRepo()
	return NewBadgeService(badges, users, testLogger()), users, badges
}

func TestIssueEarned_Boundary(t *testing.T) {
	svc, users, _ := newBadgeFixture()
	user := users.addUser("octocat", 0)
	ctx := context.Background()

	// One point short of the first threshold: nothing.
	if got := svc.IssueEarned(ctx, user.ID, 9); len(got) != 0 {
		t.Errorf("IssueEarned(9) = %v, want none", got)
	}
	// Exactly at the threshold: the boundary is inclusive.
	got := svc.IssueEarned(ctx, user.ID, 10)
	if len(got) != 1 || got[0] != "Newbie Committer" {
		t.Errorf("IssueEarned(10) = %v, want [Newbie Committer]", got)
	}
}

func TestIssueEarned_MultipleThresholdsInOnePass(t *testing.T) {
	svc, users, _ := newBadgeFixture()
	user := users.addUser("octocat", 0)

	got := svc.IssueEarned(context.Background(), user.ID, 300)
	want := []string{"Newbie Committer", "Rising Contributor", "Issue Solver"}
	if len(got) != len(want) {
		t.Fatalf("IssueEarned(300) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("IssueEarned(300)[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestIssueEarned_NeverReissues(t *testing.T) {
	svc, users, _ := newBadgeFixture()
	user := users.addUser("octocat", 0)
	ctx := context.Background()

	first := svc.IssueEarned(ctx, user.ID, 150)
	if len(first) != 2 {
		t.Fatalf("first pass = %v, want 2 badges", first)
	}

	// Same total again: already-held badges are silently passed over.
	second := svc.IssueEarned(ctx, user.ID, 150)
	if len(second) != 0 {
		t.Errorf("second pass re-awarded %v", second)
	}

	// Higher total only awards what's new.
	third := svc.IssueEarned(ctx, user.ID, 260)
	if len(third) != 1 || third[0] != "Issue Solver" {
		t.Errorf("third pass = %v, want [Issue Solver]", third)
	}
}

func TestIssueEarned_AbsorbsStoreFailure(t *testing.T) {
	svc, users, badges := newBadgeFixture()
	user := users.addUser("octocat", 0)
	badges.createErr = apperror.Internal("storage unavailable")

	// Must not panic or propagate — the badge is re-attempted next sync.
	if got := svc.IssueEarned(context.Background(), user.ID, 100); len(got) != 0 {
		t.Errorf("IssueEarned() = %v with failing store, want none", got)
	}
}

func TestUserBadges_IncludesTotalPoints(t *testing.T) {
	svc, users, _ := newBadgeFixture()
	user := users.addUser("octocat", 42)
	ctx := context.Background()

	// No badges yet: the set is empty but present, and the total still comes
	// through.
	set, err := svc.UserBadges(ctx, user.ID)
	if err != nil {
		t.Fatalf("UserBadges() error = %v", err)
	}
	if set.Badges == nil {
		t.Error("Badges is nil, want empty slice")
	}
	if len(set.Badges) != 0 {
		t.Errorf("Badges = %v, want empty", set.Badges)
	}
	if set.TotalPoints != 42 {
		t.Errorf("TotalPoints = %d, want 42", set.TotalPoints)
	}

	if _, err := svc.Award(ctx, user.ID, "PR Ninja"); err != nil {
		t.Fatal(err)
	}

	set, err = svc.UserBadges(ctx, user.ID)
	if err != nil {
		t.Fatalf("UserBadges() error = %v", err)
	}
	if len(set.Badges) != 1 || set.Badges[0].Name != "PR Ninja" {
		t.Errorf("Badges = %v, want [PR Ninja]", set.Badges)
	}
	if set.TotalPoints != 42 {
		t.Errorf("TotalPoints = %d, want 42", set.TotalPoints)
	}
}

func TestUserBadges_UnknownUser(t *testing.T) {
	svc, _, _ := newBadgeFixture()

	_, err := svc.UserBadges(context.Background(), "missing")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("UserBadges() error = %v, want ErrNotFound", err)
	}
}

func TestAward_UnknownBadgeName(t *testing.T) {
	svc, users, _ := newBadgeFixture()
	user := users.addUser("octocat", 0)

	_, err := svc.Award(context.Background(), user.ID, "Cowboy Coder")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("Award() error = %v, want ErrValidation", err)
	}
}

func TestAward_DuplicateIsConflict(t *testing.T) {
	svc, users, _ := newBadgeFixture()
	user := users.addUser("octocat", 0)
	ctx := context.Background()

	if _, err := svc.Award(ctx, user.ID, "PR Ninja"); err != nil {
		t.Fatalf("first Award() error = %v", err)
	}

	_, err := svc.Award(ctx, user.ID, "PR Ninja")
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("second Award() error = %v, want ErrConflict", err)
	}
}

func TestAward_UnknownUser(t *testing.T) {
	svc, _, _ := newBadgeFixture()

	_, err := svc.Award(context.Background(), "missing", "PR Ninja")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Award() error = %v, want ErrNotFound", err)
	}
}

func TestRevoke(t *testing.T) {
	svc, users, _ := newBadgeFixture()
	user := users.addUser("octocat", 0)
	ctx := context.Background()

	badge, err := svc.Award(ctx, user.ID, "Open Source Guru")
	if err != nil {
		t.Fatal(err)
	}

	revoked, err := svc.Revoke(ctx, badge.ID)
	if err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}
	if revoked.Name != "Open Source Guru" {
		t.Errorf("revoked %q, want Open Source Guru", revoked.Name)
	}

	if _, err := svc.Revoke(ctx, badge.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second Revoke() error = %v, want ErrNotFound", err)
	}
}

func TestCatalog(t *testing.T) {
	svc, _, _ := newBadgeFixture()

	catalog := svc.Catalog()
	if len(catalog) != 8 {
		t.Fatalf("Catalog() returned %d badges, want 8", len(catalog))
	}
	if catalog[0].Name != "Newbie Committer" || catalog[0].Threshold != 10 {
		t.Errorf("catalog[0] = %+v, want Newbie Committer at 10", catalog[0])
	}
	if catalog[7].Name != "Open Source Samurai" || catalog[7].Threshold != 1500 {
		t.Errorf("catalog[7] = %+v, want Open Source Samurai at 1500", catalog[7])
	}
}
