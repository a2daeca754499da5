// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
// Code is organised into three layers:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// The services in this package never import the sqlite package — they depend
// on the interfaces in internal/repository, so tests can substitute mocks and
// main.go decides which concrete store to wire in.
//
// THE DEPENDENCY CHAIN:
//
//	main.go creates:  DB → Repository → Service → Handler
//	At runtime:       Handler calls Service calls Repository calls DB
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mergequest/mergequest/internal/apperror"
	"github.com/mergequest/mergequest/internal/model"
	"github.com/mergequest/mergequest/internal/repository"
	"github.com/mergequest/mergequest/internal/scoring"
)

// BadgeService issues and revokes achievement badges.
//
// Badges are issued exactly once per (user, name). That guarantee does NOT
// live here — it lives in the database's unique constraint. This service's
// job is to treat the resulting duplicate-key error as "already issued" and
// move on, which is what makes issuance safe to re-run on every sync.
type BadgeService struct {
	badges repository.BadgeRepository
	users  repository.UserRepository
	logger *slog.Logger
}

func NewBadgeService(badges repository.BadgeRepository, users repository.UserRepository, logger *slog.Logger) *BadgeService {
	return &BadgeService{badges: badges, users: users, logger: logger}
}

// IssueEarned awards every badge whose threshold the given point total has
// reached and which the user does not already hold. It returns the names of
// badges newly awarded in this pass.
//
// Evaluation is independent per badge: a user jumping from 0 to 300 points
// earns Newbie Committer, Rising Contributor and Issue Solver in one call.
//
// Per-badge failures are logged and absorbed — a badge that fails to persist
// now will be re-attempted on the next sync, because issuance is driven by
// the point total, not by a "pending badges" queue.
func (s *BadgeService) IssueEarned(ctx context.Context, userID string, totalPoints int) []string {
	var awarded []string
	for _, name := range scoring.EarnedBadges(totalPoints) {
		badge := &model.Badge{UserID: userID, Name: name}
		err := s.badges.Create(ctx, badge)
		switch {
		case err == nil:
			s.logger.Info("badge awarded", "user_id", userID, "badge", name, "total_points", totalPoints)
			awarded = append(awarded, name)
		case errors.Is(err, apperror.ErrDuplicateKey):
			// Already held. The normal case for every badge below a
			// long-standing user's total.
		default:
			s.logger.Error("failed to persist badge", "user_id", userID, "badge", name, "error", err)
		}
	}
	return awarded
}

// UserBadgeSet is the badge query's payload: the badges a user holds plus
// the point total driving them. Clients render the ladder from the catalog
// and need the total to show progress toward the next threshold.
type UserBadgeSet struct {
	Badges      []model.Badge `json:"badges"`
	TotalPoints int           `json:"total_points"`
}

// UserBadges returns the badges held by the user, most recent first,
// together with the user's current point total.
func (s *BadgeService) UserBadges(ctx context.Context, userID string) (*UserBadgeSet, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	badges, err := s.badges.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if badges == nil {
		// A user with no badges gets an empty list, not null.
		badges = []model.Badge{}
	}
	return &UserBadgeSet{Badges: badges, TotalPoints: user.TotalPoints}, nil
}

// Award grants a badge manually, outside the threshold ladder. Unknown badge
// names are rejected; a badge the user already holds is a conflict, not a
// silent no-op — the caller asked for a state change that cannot happen.
func (s *BadgeService) Award(ctx context.Context, userID, name string) (*model.Badge, error) {
	if !scoring.ValidBadgeName(name) {
		return nil, apperror.ValidationFailed("badge", "unknown badge name: "+name)
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	badge := &model.Badge{UserID: userID, Name: name}
	if err := s.badges.Create(ctx, badge); err != nil {
		if errors.Is(err, apperror.ErrDuplicateKey) {
			return nil, apperror.Conflict("badge", name)
		}
		return nil, err
	}

	s.logger.Info("badge awarded manually", "user_id", userID, "badge", name)
	return badge, nil
}

// Revoke removes a badge by its ID and returns the removed record.
func (s *BadgeService) Revoke(ctx context.Context, badgeID string) (*model.Badge, error) {
	badge, err := s.badges.DeleteByID(ctx, badgeID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("badge revoked", "badge_id", badgeID, "user_id", badge.UserID, "badge", badge.Name)
	return badge, nil
}

// Catalog returns the full badge ladder — every badge that can be earned,
// with its threshold, description and level.
func (s *BadgeService) Catalog() []scoring.BadgeThreshold {
	return scoring.Thresholds
}
