package ordermgmt

import (
	"errors"
	"time"

	"github.com/erp/syncengine/internal/infrastructure/httpclient"
)

const (
	defaultPageSize = 50
	maxPageSize     = 250
)

var ErrMissingAPIKey = errors.New("ordermgmt: api key is required")

// Config holds configuration for the order-management API
type Config struct {
	BaseURL string
	APIKey  string
	// PageSize is the number of records requested per listing page
	PageSize   int
	Timeout    time.Duration
	RetryCount int
}

// Validate validates the configuration and fills defaults
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.PageSize <= 0 {
		c.PageSize = defaultPageSize
	}
	if c.PageSize > maxPageSize {
		c.PageSize = maxPageSize
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
