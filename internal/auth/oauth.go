package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// GitHubUser is the portion of the GitHub /user API response we care about.
// GitHub returns a much larger object — we only unmarshal the fields we need.
//
// GitHub API docs: https://docs.github.com/en/rest/users/users#get-the-authenticated-user
type GitHubUser struct {
	ID        int64  `json:"id"`         // GitHub's numeric user ID — stable, never changes
	Login     string `json:"login"`      // GitHub username, e.g. "octocat"
	Name      string `json:"name"`       // Display name (may be empty)
	AvatarURL string `json:"avatar_url"` // Profile picture URL
}

// GitHubProvider wraps golang.org/x/oauth2 for the GitHub Authorization Code flow.
//
// OAUTH 2.0 AUTHORIZATION CODE FLOW:
//  1. Your server redirects the user to GitHub's authorization endpoint,
//     with your ClientID and the requested scopes.
//  2. The user approves (or denies) the authorization request on GitHub.
//  3. GitHub redirects back to your CallbackURL with a short-lived "code".
//  4. Your server exchanges the code for an access token (server-to-server call).
//  5. Your server uses the access token to call the GitHub API for user info.
//
// WHY WE KEEP THE ACCESS TOKEN:
// Most OAuth integrations throw the token away after fetching the profile.
// We cannot: pull-request syncing calls GitHub's GraphQL API *as the user*,
// hours or days after login. Exchange therefore returns the raw token so the
// auth service can persist it alongside the user record.
type GitHubProvider struct {
	config *oauth2.Config
}

// NewGitHubProvider creates a GitHubProvider with the given credentials.
//
// You get ClientID and ClientSecret by registering an OAuth App at:
// https://github.com/settings/developers → "OAuth Apps" → "New OAuth App"
//
// callbackURL must match the "Authorization callback URL" you configured exactly.
//
// Scopes we request:
//   - "read:user" — the user's public profile (ID, login, avatar)
//   - "repo"      — read access to pull requests for syncing
func NewGitHubProvider(clientID, clientSecret, callbackURL string) *GitHubProvider {
	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"read:user", "repo"},
			Endpoint:     github.Endpoint, // pre-defined GitHub OAuth endpoints
		},
	}
}

// AuthURL returns the URL to redirect the user to for authorization.
//
// STATE PARAMETER:
// The state is a random string we generate and store in a cookie before
// redirecting. When GitHub calls back, we verify the returned state matches
// our cookie. This prevents CSRF attacks where an attacker tricks your
// browser into completing an OAuth flow for their account.
func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange completes the OAuth flow: trades the authorization code for the
// GitHub user profile and the OAuth access token.
//
// Steps:
//  1. Exchange the code for an OAuth access token (server-to-server)
//  2. Use the token to call GitHub's /user API endpoint
//  3. Unmarshal the response into a GitHubUser struct
//
// The caller persists the returned token on the user record — the sync
// engine replays it against the GraphQL API later.
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*GitHubUser, string, error) {
	oauthToken, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, "", fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	// oauth2.Config.Client returns an *http.Client that automatically adds
	// the "Authorization: Bearer <token>" header to every request.
	client := p.config.Client(ctx, oauthToken)

	resp, err := client.Get("https://api.github.com/user")
	if err != nil {
		return nil, "", fmt.Errorf("auth: calling GitHub /user API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("auth: GitHub /user API returned status %d", resp.StatusCode)
	}

	var ghUser GitHubUser
	if err := json.NewDecoder(resp.Body).Decode(&ghUser); err != nil {
		return nil, "", fmt.Errorf("auth: decoding GitHub /user response: %w", err)
	}

	if ghUser.ID == 0 || ghUser.Login == "" {
		return nil, "", fmt.Errorf("auth: GitHub returned an invalid user")
	}

	return &ghUser, oauthToken.AccessToken, nil
}
