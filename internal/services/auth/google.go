package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"notesync/internal/config"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const defaultUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// GoogleProfile is the subset of Google's userinfo response we care about.
type GoogleProfile struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// GoogleVerifier exchanges an authorization code for a verified Google
// identity.
type GoogleVerifier interface {
	Exchange(ctx context.Context, code string) (*GoogleProfile, error)
}

// googleVerifier is the production implementation backed by x/oauth2.
type googleVerifier struct {
	conf        *oauth2.Config
	userInfoURL string
}

// NewGoogleVerifier builds a verifier from config, or returns nil when the
// Google flow is not configured.
func NewGoogleVerifier(cfg config.Config) GoogleVerifier {
	if !cfg.GoogleSignInEnabled() {
		return nil
	}
	return &googleVerifier{
		conf: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		userInfoURL: defaultUserInfoURL,
	}
}

// Exchange trades the authorization code for an access token and fetches the
// user's profile with it.
func (v *googleVerifier) Exchange(ctx context.Context, code string) (*GoogleProfile, error) {
	token, err := v.conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("code exchange failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	token.SetAuthHeader(req)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("userinfo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo returned status %d", resp.StatusCode)
	}

	var profile GoogleProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("failed to decode userinfo: %w", err)
	}
	if profile.Sub == "" || profile.Email == "" {
		return nil, errors.New("userinfo response missing sub or email")
	}

	return &profile, nil
}
