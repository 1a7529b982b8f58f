package cfapi

import (
	"time"

	"github.com/cloudflare/workers-sdk-sub005/internal/version"
	"github.com/imroc/req/v3"
)

const (
	HeaderUserAgent = "User-Agent"
	HeaderRequestID = "X-Request-Id"
	HeaderVersion   = "X-Deploy-Version"
)

var UserAgent = version.UserAgent()

// newHTTPClient returns a client with the common values set. Reads are retried,
// writes opt out per request
func newHTTPClient(cfg *Config) *req.Client {
	return req.C().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetCommonRetryCount(3).
		SetCommonRetryFixedInterval(1*time.Second).
		SetUserAgent(UserAgent).
		SetCommonHeader(HeaderVersion, version.Version).
		SetCommonBearerAuthToken(cfg.APIToken).
		SetCommonPathParam("account_id", cfg.AccountID).
		SetJsonMarshal(encodeJSON).
		SetJsonUnmarshal(decodeJSON)
}

// ResponseInfo is one entry of the errors or messages list of an envelope
type ResponseInfo struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ResultInfo carries pagination state
type ResultInfo struct {
	Page       int    `json:"page,omitempty"`
	PerPage    int    `json:"per_page,omitempty"`
	Count      int    `json:"count,omitempty"`
	TotalCount int    `json:"total_count,omitempty"`
	Cursor     string `json:"cursor,omitempty"`
}

// Envelope wraps every API response
type Envelope[T any] struct {
	Success    bool           `json:"success"`
	Errors     []ResponseInfo `json:"errors"`
	Messages   []ResponseInfo `json:"messages"`
	Result     T              `json:"result"`
	ResultInfo *ResultInfo    `json:"result_info,omitempty"`
}
