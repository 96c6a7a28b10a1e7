package github

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// appJWTDuration is the validity of the App JWT used to mint an installation
// token. GitHub rejects JWTs valid for longer than 10 minutes; a single
// reminder pass needs far less.
const appJWTDuration = 5 * time.Minute

// AppAuth mints GitHub App installation access tokens. The reminder runs
// once and exits, so there is no caching or refresh: one token per run.
type AppAuth struct {
	appID          string
	installationID int64
	privateKey     *rsa.PrivateKey

	httpClient HTTPClient
	baseURL    string
	nowFunc    func() time.Time
}

// AppAuthOption configures an AppAuth.
type AppAuthOption func(*AppAuth)

// WithAuthHTTPClient sets a custom HTTP client for the token exchange.
func WithAuthHTTPClient(client HTTPClient) AppAuthOption {
	return func(a *AppAuth) {
		a.httpClient = client
	}
}

// WithAuthBaseURL sets a custom base URL for the GitHub API.
func WithAuthBaseURL(url string) AppAuthOption {
	return func(a *AppAuth) {
		a.baseURL = url
	}
}

// WithNowFunc sets a custom time function for testing.
func WithNowFunc(fn func() time.Time) AppAuthOption {
	return func(a *AppAuth) {
		a.nowFunc = fn
	}
}

// NewAppAuth creates an AppAuth from the App ID, installation ID and the
// PEM-encoded RSA private key. The key is parsed eagerly so misconfiguration
// surfaces at startup, not mid-run.
func NewAppAuth(appID string, installationID int64, privateKeyPEM []byte, opts ...AppAuthOption) (*AppAuth, error) {
	if appID == "" {
		return nil, fmt.Errorf("app ID cannot be empty")
	}
	if installationID <= 0 {
		return nil, fmt.Errorf("installation ID must be positive")
	}

	key, err := parsePrivateKey(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	a := &AppAuth{
		appID:          appID,
		installationID: installationID,
		privateKey:     key,
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		baseURL:        "https://api.github.com",
		nowFunc:        time.Now,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a, nil
}

// InstallationToken signs an App JWT and exchanges it for an installation
// access token usable against the issues endpoint.
func (a *AppAuth) InstallationToken(ctx context.Context) (string, error) {
	signed, err := a.signJWT()
	if err != nil {
		return "", fmt.Errorf("failed to sign App JWT: %w", err)
	}

	url := fmt.Sprintf("%s/app/installations/%d/access_tokens", a.baseURL, a.installationID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+signed)
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusCreated {
		return "", parseAPIError(resp.StatusCode, body)
	}

	var token struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &token); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}
	if token.Token == "" {
		return "", fmt.Errorf("token response contained no token")
	}

	return token.Token, nil
}

func (a *AppAuth) signJWT() (string, error) {
	now := a.nowFunc()

	claims := jwt.RegisteredClaims{
		Issuer:    a.appID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(appJWTDuration)),
	}

	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(a.privateKey)
}

// parsePrivateKey parses a PEM-encoded RSA private key in PKCS#1 or PKCS#8
// format (GitHub issues PKCS#1 keys; converted keys are commonly PKCS#8).
func parsePrivateKey(pemData []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}

	if block.Type == "RSA PRIVATE KEY" {
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	}

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is not RSA")
	}

	return rsaKey, nil
}

// apiError represents an error response from the GitHub API.
type apiError struct {
	Message          string `json:"message"`
	DocumentationURL string `json:"documentation_url"`
}

// parseAPIError parses a GitHub API error response.
func parseAPIError(statusCode int, body []byte) error {
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err != nil {
		return fmt.Errorf("API error (status %d): %s", statusCode, string(body))
	}

	switch statusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("unauthorized: %s (check JWT validity and expiration)", apiErr.Message)
	case http.StatusForbidden:
		return fmt.Errorf("forbidden: %s (check App permissions)", apiErr.Message)
	case http.StatusNotFound:
		return fmt.Errorf("not found: %s (check installation ID)", apiErr.Message)
	default:
		return fmt.Errorf("API error (status %d): %s", statusCode, apiErr.Message)
	}
}
