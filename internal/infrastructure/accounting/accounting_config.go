package accounting

import (
	"errors"
	"time"

	"github.com/erp/syncengine/internal/infrastructure/httpclient"
)

const defaultTokenPath = "/oauth/token"

var (
	ErrMissingClientID     = errors.New("accounting: client id is required")
	ErrMissingClientSecret = errors.New("accounting: client secret is required")
)

// Config holds configuration for the accounting API
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	// TokenURL defaults to BaseURL; TokenPath to /oauth/token
	TokenURL   string
	TokenPath  string
	Timeout    time.Duration
	RetryCount int
}

// Validate validates the configuration and fills defaults
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return ErrMissingClientID
	}
	if c.ClientSecret == "" {
		return ErrMissingClientSecret
	}
	if c.TokenURL == "" {
		c.TokenURL = c.BaseURL
	}
	if c.TokenPath == "" {
		c.TokenPath = defaultTokenPath
	}
	return c.clientConfig().Validate()
}

func (c *Config) clientConfig() *httpclient.Config {
	return &httpclient.Config{
		BaseURL:    c.BaseURL,
		Timeout:    c.Timeout,
		RetryCount: c.RetryCount,
	}
}

func (c *Config) tokenClientConfig() *httpclient.Config {
	return &httpclient.Config{
		BaseURL: c.TokenURL,
		Timeout: c.Timeout,
	}
}
