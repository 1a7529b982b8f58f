package cfapi

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/imroc/req/v3"
)

// Client is the main client for the control-plane API
type Client struct {
	client  *req.Client
	config  *Config
	KV      *KVAPI
	Assets  *AssetsAPI
	Scripts *ScriptsAPI
}

// New creates a new control-plane client
func New(config *Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client := newHTTPClient(config)

	return &Client{
		client:  client,
		config:  config,
		KV:      newKVAPI(client),
		Assets:  newAssetsAPI(client),
		Scripts: newScriptsAPI(client),
	}, nil
}

// AccountID returns the account every request is scoped to
func (c *Client) AccountID() string {
	return c.config.AccountID
}

// EnableDebug dumps requests and responses to the client log
func (c *Client) EnableDebug() {
	c.client.EnableDumpAllWithoutRequestBody()
}

// send runs r and unwraps the response envelope
func send[T any](r *req.Request, method, path, operation string) (*Envelope[T], error) {
	var env Envelope[T]
	resp, err := r.
		SetHeader(HeaderRequestID, uuid.NewString()).
		SetSuccessResult(&env).
		SetErrorResult(&APIError{}).
		Send(method, path)

	if err := handleAPIError(resp, err, operation); err != nil {
		return nil, err
	}

	if !env.Success {
		return nil, fmt.Errorf("%s %w", operation, &APIError{Status: resp.StatusCode, Errors: env.Errors})
	}

	return &env, nil
}
