package httpclient

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/erp/syncengine/internal/domain/reconciliation"
)

// tokenExpiryMargin renews a token shortly before the remote system expires it
const tokenExpiryMargin = 30 * time.Second

var ErrMissingCredentials = errors.New("httpclient: client id and secret are required")

// TokenSource fetches and caches OAuth client-credentials access tokens
type TokenSource struct {
	client       *resty.Client
	service      reconciliation.Service
	tokenPath    string
	clientID     string
	clientSecret string
	now          func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// NewTokenSource creates a token source posting to tokenPath on client
func NewTokenSource(client *resty.Client, service reconciliation.Service, tokenPath, clientID, clientSecret string) (*TokenSource, error) {
	if clientID == "" || clientSecret == "" {
		return nil, ErrMissingCredentials
	}
	return &TokenSource{
		client:       client,
		service:      service,
		tokenPath:    tokenPath,
		clientID:     clientID,
		clientSecret: clientSecret,
		now:          time.Now,
	}, nil
}

// Token returns a valid access token, requesting a new one when needed
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && s.now().Before(s.expires) {
		return s.token, nil
	}

	var body tokenResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"grant_type":    "client_credentials",
			"client_id":     s.clientID,
			"client_secret": s.clientSecret,
		}).
		SetResult(&body).
		Post(s.tokenPath)
	if err := CheckResponse(s.service, resp, err); err != nil {
		return "", err
	}
	if body.AccessToken == "" {
		return "", reconciliation.NewRemoteAPIError(s.service, resp.StatusCode(), "token response without access_token")
	}

	s.token = body.AccessToken
	lifetime := time.Duration(body.ExpiresIn) * time.Second
	if lifetime <= tokenExpiryMargin {
		lifetime = 2 * tokenExpiryMargin
	}
	s.expires = s.now().Add(lifetime - tokenExpiryMargin)
	return s.token, nil
}

// Invalidate drops the cached token, e.g. after a 401
func (s *TokenSource) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.expires = time.Time{}
}

// Authenticate installs a request middleware that sets the bearer token on
// every request except the token request itself
func (s *TokenSource) Authenticate(client *resty.Client) {
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		if req.URL == s.tokenPath {
			return nil
		}
		token, err := s.Token(req.Context())
		if err != nil {
			return err
		}
		req.SetAuthToken(token)
		return nil
	})
	client.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		if resp.StatusCode() == 401 {
			s.Invalidate()
		}
		return nil
	})
}
