package cfapi

import (
	"errors"
	"fmt"
	"strings"

	"github.com/imroc/req/v3"
)

var (
	// sdk common
	ErrNoAccountID    = errors.New("cfapi: account id missing")
	ErrNoAPIToken     = errors.New("cfapi: api token missing")
	ErrInvalidBaseURL = errors.New("cfapi: invalid base url")

	// kv
	ErrNamespaceNotFound = errors.New("cfapi: namespace not found")

	// assets
	ErrNoUploadToken = errors.New("cfapi: upload token missing")
)

const (
	// Generic request/server errors
	CodeAuthentication = 10000 // missing or invalid credentials
	CodeInvalidRequest = 10001 // malformed request body or parameters
	CodeNotFound       = 10007 // resource does not exist
	CodeRateLimited    = 10013 // too many requests
	CodeInternalError  = 10500 // internal server error

	// KV errors
	CodeNamespaceNotFound = 10009 // namespace id unknown
	CodeBulkTooLarge      = 10046 // bulk request exceeds the key or byte limit

	// Assets errors
	CodeUploadTokenInvalid = 10201 // upload session token invalid or expired
	CodeManifestInvalid    = 10202 // manifest could not be parsed
)

// APIError is the error envelope returned by the control plane
type APIError struct {
	Status int            `json:"-"`
	Errors []ResponseInfo `json:"errors"`
}

// NewAPIError builds an error with a single entry
func NewAPIError(status, code int, message string) *APIError {
	return &APIError{Status: status, Errors: []ResponseInfo{{Code: code, Message: message}}}
}

func (e *APIError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	parts := make([]string, len(e.Errors))
	for i, info := range e.Errors {
		parts[i] = fmt.Sprintf("%s [code: %d]", info.Message, info.Code)
	}
	return fmt.Sprintf("api error: %s", strings.Join(parts, "; "))
}

// HasCode reports whether any entry carries code
func (e *APIError) HasCode(code int) bool {
	for _, info := range e.Errors {
		if info.Code == code {
			return true
		}
	}
	return false
}

// IsGatewayError reports a transient proxy failure
func (e *APIError) IsGatewayError() bool {
	return e.Status == 502 || e.Status == 503 || e.Status == 504
}

// handleAPIError is a helper function that handles the common error pattern
func handleAPIError(resp *req.Response, requestErr error, operation string) error {
	if requestErr != nil {
		return fmt.Errorf("http request error: %s %w", operation, requestErr)
	}

	// got a response, but api returned an error
	if resp.IsErrorState() {
		if err, ok := resp.ErrorResult().(*APIError); ok && len(err.Errors) > 0 {
			err.Status = resp.StatusCode
			return fmt.Errorf("%s %w", operation, err)
		}

		return fmt.Errorf("%s %w", operation, &APIError{Status: resp.StatusCode})
	}

	return nil
}
