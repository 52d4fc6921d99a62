// Package httpclient builds the resty clients shared by the remote gateways and
// maps their responses onto the reconciliation error taxonomy.
package httpclient

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/erp/syncengine/internal/domain/reconciliation"
)

const (
	defaultTimeout       = 30 * time.Second
	defaultRetryWaitTime = 500 * time.Millisecond
	defaultRetryMaxWait  = 5 * time.Second
	userAgent            = "syncengine/1.0"
)

// ErrMissingBaseURL is returned by Config.Validate when no base URL is set
var ErrMissingBaseURL = errors.New("httpclient: base url is required")

// Config holds the connection settings of one remote system
type Config struct {
	BaseURL string
	Timeout time.Duration
	// RetryCount applies to GET requests only; writes are never repeated
	RetryCount int
}

// Validate validates the configuration and fills defaults
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return ErrMissingBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.RetryCount < 0 {
		c.RetryCount = 0
	}
	return nil
}

// New creates a resty client that speaks JSON through goccy/go-json
func New(cfg Config, logger *zap.Logger) (*resty.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", userAgent).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(defaultRetryWaitTime).
		SetRetryMaxWaitTime(defaultRetryMaxWait).
		AddRetryCondition(retryReads)

	if logger != nil {
		client.SetLogger(logger.Sugar())
	}
	return client, nil
}

// retryReads repeats failed GET requests. Creates are left alone: a timeout
// after the remote system accepted a write must not produce a duplicate.
func retryReads(resp *resty.Response, err error) bool {
	if resp == nil || resp.Request == nil || resp.Request.Method != http.MethodGet {
		return false
	}
	if err != nil {
		return true
	}
	code := resp.StatusCode()
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// CheckResponse turns a transport error or a non-2xx response into a
// RemoteAPIError of the given service
func CheckResponse(service reconciliation.Service, resp *resty.Response, err error) error {
	if err != nil {
		return reconciliation.NewRemoteAPIError(service, 0, err.Error())
	}
	if resp == nil {
		return reconciliation.NewRemoteAPIError(service, 0, "empty response")
	}
	if resp.IsError() || resp.StatusCode() >= http.StatusMultipleChoices {
		return reconciliation.NewRemoteAPIError(service, resp.StatusCode(), ErrorBody(resp.Body()))
	}
	return nil
}

// errorEnvelope covers the error shapes returned by the remote systems
type errorEnvelope struct {
	Error        json.RawMessage `json:"error"`
	ErrorMessage string          `json:"error_message"`
	Message      string          `json:"message"`
	Errors       []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"errors"`
}

// ErrorBody extracts a readable message from an error response body
func ErrorBody(body []byte) string {
	raw := strings.TrimSpace(string(body))
	if raw == "" {
		return "no response body"
	}

	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return raw
	}

	var parts []string
	switch {
	case env.ErrorMessage != "":
		parts = append(parts, env.ErrorMessage)
	case env.Message != "":
		parts = append(parts, env.Message)
	case len(env.Error) > 0:
		var s string
		if json.Unmarshal(env.Error, &s) == nil {
			parts = append(parts, s)
		} else {
			var nested struct {
				Message string `json:"message"`
			}
			if json.Unmarshal(env.Error, &nested) == nil && nested.Message != "" {
				parts = append(parts, nested.Message)
			}
		}
	}
	for _, e := range env.Errors {
		if e.Field != "" {
			parts = append(parts, e.Field+": "+e.Message)
		} else if e.Message != "" {
			parts = append(parts, e.Message)
		}
	}
	if len(parts) == 0 {
		return raw
	}
	return strings.Join(parts, "; ")
}
