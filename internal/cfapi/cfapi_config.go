package cfapi

import (
	"net/url"
	"time"
)

const (
	DefaultBaseURL = "https://api.cloudflare.com/client/v4"
	DefaultTimeout = 60 * time.Second
)

// Config is the configuration for the control-plane client
type Config struct {
	BaseURL   string        // BaseURL defaults to DefaultBaseURL
	AccountID string        // AccountID is required
	APIToken  string        // APIToken is required
	Timeout   time.Duration // Timeout applies to every request
}

func (c *Config) Validate() error {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if _, err := url.ParseRequestURI(c.BaseURL); err != nil {
		return ErrInvalidBaseURL
	}

	if c.AccountID == "" {
		return ErrNoAccountID
	}

	if c.APIToken == "" {
		return ErrNoAPIToken
	}

	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}

	return nil
}
