package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

var (
	ErrNoToken       = errors.New("no auth token available")
	ErrRefreshFailed = errors.New("token refresh failed")
)

// refreshSkew is how long before expiry a token is refreshed proactively,
// so requests don't race the expiry boundary
const refreshSkew = 30 * time.Second

// TokenManager holds the backend-issued bearer token and refreshes it before
// it expires. Token issuance itself is the identity provider's business; this
// only does the client-side attach/refresh plumbing.
type TokenManager struct {
	mu         sync.Mutex
	token      oauth2.Token
	endpoint   string
	httpClient *http.Client

	now func() time.Time
}

// NewTokenManager creates a manager that refreshes against the given token
// endpoint. endpoint may be empty when only static tokens are used.
func NewTokenManager(endpoint string, httpClient *http.Client) *TokenManager {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &TokenManager{
		endpoint:   endpoint,
		httpClient: httpClient,
		now:        time.Now,
	}
}

// SetToken installs an access token (and optional refresh token). The expiry
// is read from the access token's exp claim when the token is a JWT; the
// signature is the backend's concern and is not verified here.
func (m *TokenManager) SetToken(accessToken, refreshToken string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.token = oauth2.Token{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Expiry:       parseExpiry(accessToken),
	}
}

// Token returns a valid bearer token, refreshing first when the cached one
// is expired or about to expire.
func (m *TokenManager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token.AccessToken == "" && m.token.RefreshToken == "" {
		return "", ErrNoToken
	}

	if m.fresh() {
		return m.token.AccessToken, nil
	}

	if m.token.RefreshToken == "" || m.endpoint == "" {
		// No way to refresh: hand out what we have and let the backend
		// reject it if it is truly expired
		return m.token.AccessToken, nil
	}

	if err := m.refresh(ctx); err != nil {
		return "", err
	}
	return m.token.AccessToken, nil
}

// fresh reports whether the cached token is still usable. oauth2's Valid
// already handles missing tokens and unknown (zero) expiries; the expiry is
// pulled in by refreshSkew so refreshes never race the boundary.
func (m *TokenManager) fresh() bool {
	tok := m.token
	if !tok.Expiry.IsZero() {
		tok.Expiry = tok.Expiry.Add(-refreshSkew)
	}
	return tok.Valid()
}

// refresh exchanges the refresh token at the token endpoint. Called with the
// mutex held so concurrent requests trigger one refresh, not a stampede.
func (m *TokenManager) refresh(ctx context.Context) error {
	body, err := json.Marshal(map[string]string{
		"grant_type":    "refresh_token",
		"refresh_token": m.token.RefreshToken,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: token endpoint returned %d", ErrRefreshFailed, resp.StatusCode)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}

	var issued struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(payload, &issued); err != nil {
		return fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}
	if issued.AccessToken == "" {
		return fmt.Errorf("%w: no access token in response", ErrRefreshFailed)
	}

	refreshToken := m.token.RefreshToken
	if issued.RefreshToken != "" {
		refreshToken = issued.RefreshToken
	}

	expiry := parseExpiry(issued.AccessToken)
	if expiry.IsZero() && issued.ExpiresIn > 0 {
		expiry = m.now().Add(time.Duration(issued.ExpiresIn) * time.Second)
	}

	m.token = oauth2.Token{
		AccessToken:  issued.AccessToken,
		RefreshToken: refreshToken,
		Expiry:       expiry,
	}
	return nil
}

// parseExpiry reads the exp claim from a JWT access token without verifying
// the signature. Returns the zero time for opaque tokens.
func parseExpiry(accessToken string) time.Time {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(accessToken, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
