package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// googleUserInfoURL is Google's OIDC userinfo endpoint. Overridable in
// tests so Exchange can run against an httptest server.
var googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// GoogleUser is the verified identity payload returned by a completed
// OAuth callback, plus the provider tokens granted alongside it.
//
// SubjectID is Google's stable account identifier from the "sub" claim.
// Unlike emails it never changes, so it is the field we store to detect
// "this Google account is already linked".
type GoogleUser struct {
	SubjectID string `json:"sub"`
	Email     string `json:"email"`
	Picture   string `json:"picture"`

	// AccessToken/RefreshToken authorize Calendar API calls on the user's
	// behalf. RefreshToken is only present the first time the user
	// consents (Google omits it on repeat grants unless re-consent is
	// forced).
	AccessToken  string `json:"-"`
	RefreshToken string `json:"-"`
}

// GoogleProvider wraps golang.org/x/oauth2 for the Google Authorization
// Code flow.
//
// OAUTH 2.0 AUTHORIZATION CODE FLOW:
//  1. The server redirects the user to Google's consent screen with the
//     ClientID and requested scopes.
//  2. The user approves (or denies) on Google.
//  3. Google redirects back to the RedirectURI with a short-lived "code".
//  4. The server exchanges the code for tokens (server-to-server call,
//     using the ClientSecret; the tokens never touch the browser).
//  5. The server calls the userinfo endpoint for the verified profile.
type GoogleProvider struct {
	config *oauth2.Config
}

// NewGoogleProvider creates a GoogleProvider with the given credentials.
//
// redirectURI must exactly match an authorized redirect URI registered in
// the Google Cloud console for this OAuth client.
//
// Scopes:
//   - openid, email, profile: the identity payload (sub, email, picture)
//   - calendar.events: lets the chat assistant create events on the
//     user's primary calendar
func NewGoogleProvider(clientID, clientSecret, redirectURI string) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes: []string{
				"openid",
				"email",
				"profile",
				"https://www.googleapis.com/auth/calendar.events",
			},
			Endpoint: google.Endpoint,
		},
	}
}

// NewGoogleProviderWithBaseURL creates a GoogleProvider whose OAuth
// endpoints live under baseURL, for tests that stand in for Google with
// an httptest server.
func NewGoogleProviderWithBaseURL(clientID, clientSecret, redirectURI, baseURL string) *GoogleProvider {
	p := NewGoogleProvider(clientID, clientSecret, redirectURI)
	p.config.Endpoint = oauth2.Endpoint{
		AuthURL:  baseURL + "/auth",
		TokenURL: baseURL + "/token",
	}
	return p
}

// AuthURL returns the URL to redirect the user to for authorization.
//
// STATE PARAMETER:
// The state is a random string generated per login attempt and stored in
// a cookie before redirecting. The callback handler verifies the returned
// state matches the cookie, which blocks CSRF attacks where an attacker
// completes an OAuth flow for their own account in the victim's browser.
//
// AccessTypeOffline asks Google for a refresh token so calendar access
// survives the short-lived access token.
func (p *GoogleProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange completes the OAuth flow: trades the authorization code for a
// verified Google profile plus the granted provider tokens.
//
// Steps:
//  1. Exchange the code for OAuth tokens (server-to-server)
//  2. Call the userinfo endpoint with the access token
//  3. Unmarshal the response into a GoogleUser
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*GoogleUser, error) {
	oauthToken, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	// oauth2.Config.Client returns an *http.Client that adds the
	// "Authorization: Bearer <token>" header to every request.
	client := p.config.Client(ctx, oauthToken)

	resp, err := client.Get(googleUserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("auth: calling Google userinfo endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: Google userinfo endpoint returned status %d", resp.StatusCode)
	}

	var gu GoogleUser
	if err := json.NewDecoder(resp.Body).Decode(&gu); err != nil {
		return nil, fmt.Errorf("auth: decoding Google userinfo response: %w", err)
	}

	if gu.SubjectID == "" || gu.Email == "" {
		return nil, fmt.Errorf("auth: Google returned an incomplete profile (sub=%q)", gu.SubjectID)
	}

	gu.AccessToken = oauthToken.AccessToken
	gu.RefreshToken = oauthToken.RefreshToken

	return &gu, nil
}
