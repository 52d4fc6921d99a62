package shipping

import (
	"errors"
	"time"

	"github.com/erp/syncengine/internal/infrastructure/httpclient"
)

var (
	ErrMissingPublicKey = errors.New("shipping: public key is required")
	ErrMissingSecretKey = errors.New("shipping: secret key is required")
)

// Config holds configuration for the shipping platform API
type Config struct {
	BaseURL    string
	PublicKey  string
	SecretKey  string
	Timeout    time.Duration
	RetryCount int
}

// Validate validates the configuration and fills defaults
func (c *Config) Validate() error {
	if c.PublicKey == "" {
		return ErrMissingPublicKey
	}
	if c.SecretKey == "" {
		return ErrMissingSecretKey
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
