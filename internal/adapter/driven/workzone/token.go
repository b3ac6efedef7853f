package workzone

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/docflow/pipectl/internal/domain/model"
	"github.com/docflow/pipectl/internal/domain/port/driven"
)

// authorizeSuffix and tokenSuffix are the well-known OAuth2 endpoint paths;
// the token endpoint is derived from the authorization endpoint when it is
// not configured explicitly.
const (
	authorizeSuffix = "/oauth/authorize"
	tokenSuffix     = "/oauth/token"
)

// Compile-time interface satisfaction check.
var _ driven.TokenSource = (*TokenSource)(nil)

// TokenSource performs the OAuth2 client-credentials grant over mutual TLS.
type TokenSource struct {
	httpClient *http.Client
	tokenURL   string
	clientID   string
}

// NewTokenSource builds a TokenSource that presents the stored certificate
// and key to the token endpoint.
func NewTokenSource(tokenURL, clientID string, cred model.Credential, timeout time.Duration) (*TokenSource, error) {
	httpClient, err := newMTLSClient(cred, timeout)
	if err != nil {
		return nil, err
	}
	return &TokenSource{httpClient: httpClient, tokenURL: tokenURL, clientID: clientID}, nil
}

// NewTokenSourceWithHTTPClient injects a custom http.Client. Intended for
// tests against an httptest server.
func NewTokenSourceWithHTTPClient(httpClient *http.Client, tokenURL, clientID string) *TokenSource {
	return &TokenSource{httpClient: httpClient, tokenURL: tokenURL, clientID: clientID}
}

// DeriveTokenURL turns an authorization endpoint into the matching token
// endpoint by swapping the well-known path suffix. Endpoints without the
// authorize suffix get the token suffix appended.
func DeriveTokenURL(authURL string) string {
	trimmed := strings.TrimSuffix(authURL, "/")
	if strings.HasSuffix(trimmed, authorizeSuffix) {
		return strings.TrimSuffix(trimmed, authorizeSuffix) + tokenSuffix
	}
	return trimmed + tokenSuffix
}

// Acquire posts the client-credentials grant and extracts the access_token
// field from the JSON response.
func (s *TokenSource) Acquire(ctx context.Context) (model.AccessToken, error) {
	form := url.Values{
		"client_id":  {s.clientID},
		"grant_type": {"client_credentials"},
	}
	encoded := form.Encode()

	build := func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPost, s.tokenURL, strings.NewReader(encoded))
		if err != nil {
			return nil, fmt.Errorf("build token request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Accept", "application/json")
		return req, nil
	}

	status, body, err := doWithRetry(ctx, s.httpClient, build)
	if err != nil {
		return model.AccessToken{}, fmt.Errorf("token endpoint: %w", err)
	}

	var parsed struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return model.AccessToken{}, fmt.Errorf("%w: token response not parseable (status %d)", model.ErrAuth, status)
	}
	if parsed.AccessToken == "" {
		return model.AccessToken{}, fmt.Errorf("%w: no access_token in response (status %d)", model.ErrAuth, status)
	}

	slog.Debug("access token acquired", "endpoint", s.tokenURL, "status", status)

	return model.AccessToken{Value: parsed.AccessToken, IssuedAt: time.Now()}, nil
}
