package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mergequest/mergequest/internal/auth"
	"github.com/mergequest/mergequest/internal/model"
	"github.com/mergequest/mergequest/internal/repository"
)

// AuthResult is what the auth handler needs after a successful login:
// the user record and the JWT to put in the access cookie.
type AuthResult struct {
	User  *model.User
	Token string
}

// AuthService handles authentication business logic: turning a GitHub
// profile into a local user and issuing session tokens.
type AuthService struct {
	users  repository.UserRepository
	tokens *auth.TokenService
	logger *slog.Logger
}

func NewAuthService(users repository.UserRepository, tokens *auth.TokenService, logger *slog.Logger) *AuthService {
	return &AuthService{users: users, tokens: tokens, logger: logger}
}

// LoginOrRegisterGitHub upserts the user from their GitHub profile and
// issues a JWT. The OAuth access token is stored with the user — the sync
// engine needs it to query GitHub's GraphQL API as the user later, long
// after this login completes.
//
// Upsert on (github_id): first login inserts; subsequent logins refresh the
// name, avatar and access token without touching accumulated points.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser, accessToken string) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	name := ghUser.Name
	if name == "" {
		name = ghUser.Login
	}

	user := &model.User{
		GitHubID:    ghUser.Login,
		Name:        name,
		AvatarURL:   ghUser.AvatarURL,
		AccessToken: accessToken,
	}
	if err := s.users.Upsert(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: upserting user %s: %w", ghUser.Login, err)
	}

	s.logger.Info("user authenticated via GitHub",
		slog.String("userID", user.ID),
		slog.String("login", user.GitHubID),
	)

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	return &AuthResult{User: user, Token: token}, nil
}

// GetUserByID returns the user for the given internal ID. Used by the /api/me
// handler after the middleware validates the JWT.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, fmt.Errorf("service/auth: user ID must not be empty")
	}
	return s.users.GetByID(ctx, id)
}

// ValidateToken validates a JWT string and returns the userID it encodes.
func (s *AuthService) ValidateToken(tokenStr string) (string, error) {
	userID, err := s.tokens.Validate(tokenStr)
	if err != nil {
		return "", fmt.Errorf("service/auth: %w", err)
	}
	return userID, nil
}
