package devserver

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultAddr        = "127.0.0.1:8787"
	DefaultRateLimit   = "1200-M"
	DefaultBucketSize  = 50
	DefaultTokenExpiry = time.Hour
	DefaultMaxBulkKeys = 10000
	DefaultAssetCache  = 512
)

var ErrInvalidBucketSize = errors.New("devserver: bucket size must be positive")

type Config struct {
	Addr        string
	DBPath      string        // empty keeps state in memory
	AccountID   string        // empty accepts any account
	APIToken    string        // empty disables bearer auth on the account routes
	TokenSecret string        // HS256 key for upload tokens, random when empty
	TokenExpiry time.Duration // lifetime of session and completion tokens
	BucketSize  int           // hashes per upload bucket
	MaxBulkKeys int
	RateLimit   string // ulule formatted rate, e.g. "1200-M"
	AssetCache  int    // served assets kept in memory, by hash
}

func (c *Config) Validate() error {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.TokenSecret == "" {
		c.TokenSecret = uuid.NewString()
	}
	if c.TokenExpiry == 0 {
		c.TokenExpiry = DefaultTokenExpiry
	}
	if c.BucketSize == 0 {
		c.BucketSize = DefaultBucketSize
	}
	if c.BucketSize < 0 {
		return ErrInvalidBucketSize
	}
	if c.MaxBulkKeys == 0 {
		c.MaxBulkKeys = DefaultMaxBulkKeys
	}
	if c.RateLimit == "" {
		c.RateLimit = DefaultRateLimit
	}
	if c.AssetCache <= 0 {
		c.AssetCache = DefaultAssetCache
	}
	return nil
}
