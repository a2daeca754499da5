package worker

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/mergequest/mergequest/internal/apperror"
	"github.com/mergequest/mergequest/internal/github"
	"github.com/mergequest/mergequest/internal/model"
	"github.com/mergequest/mergequest/internal/repository/sqlite"
	"github.com/mergequest/mergequest/internal/service"
)

type stubSource struct {
	prs []github.RemotePullRequest
	err error
}

func (s *stubSource) FetchPullRequests(_ context.Context, _, _ string) ([]github.RemotePullRequest, error) {
	return s.prs, s.err
}

func (s *stubSource) FetchTimeout() time.Duration { return time.Second }

func newTestWorker(t *testing.T) (*SyncWorker, *sqlite.DB, *stubSource) {
	t.Helper()
	db, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("sqlite.New() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	source := &stubSource{}
	badgeSvc := service.NewBadgeService(db.Badges(), db.Users(), logger)
	syncSvc := service.NewSyncService(db.Users(), db.PullRequests(), badgeSvc, source, logger)
	return NewSyncWorker(db.Users(), syncSvc, time.Hour, 20, logger), db, source
}

func seedUser(t *testing.T, db *sqlite.DB, githubID string) *model.User {
	t.Helper()
	user := &model.User{GitHubID: githubID, Name: githubID, AccessToken: "gho_" + githubID}
	if err := db.Users().Upsert(context.Background(), user); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	return user
}

func TestRunBatch_SyncsStaleUsers(t *testing.T) {
	w, db, source := newTestWorker(t)
	user := seedUser(t, db, "octocat")

	mergedAt := time.Now().UTC()
	source.prs = []github.RemotePullRequest{{
		Title:     "Fix the thing",
		URL:       "https://github.com/acme/widgets/pull/1",
		State:     "MERGED",
		Merged:    true,
		CreatedAt: mergedAt.Add(-time.Hour),
		MergedAt:  &mergedAt,
	}}

	w.runBatch()

	got, err := db.Users().GetByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.TotalPoints != 15 {
		t.Errorf("TotalPoints = %d after batch, want 15", got.TotalPoints)
	}
	if got.LastSyncedAt == nil {
		t.Error("LastSyncedAt not recorded after successful batch")
	}
}

func TestRunBatch_FailedUserRotatesToBack(t *testing.T) {
	w, db, source := newTestWorker(t)
	user := seedUser(t, db, "octocat")
	source.err = apperror.Unauthenticated("token revoked")

	w.runBatch()

	ctx := context.Background()
	got, err := db.Users().GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	// The attempt is recorded even though the sync failed. Without it the
	// user would stay at the front of the oldest-first queue forever.
	if got.LastSyncedAt == nil {
		t.Fatal("LastSyncedAt not recorded for failed attempt")
	}

	stale, err := db.Users().ListSyncedBefore(ctx, time.Now().Add(-w.interval), w.batchSize)
	if err != nil {
		t.Fatalf("ListSyncedBefore() error = %v", err)
	}
	if len(stale) != 0 {
		t.Errorf("failed user still listed as stale: %d users", len(stale))
	}
}
