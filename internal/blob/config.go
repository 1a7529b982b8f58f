package blob

import (
	"errors"
	"strings"
)

var ErrNoBucket = errors.New("blob: bucket name missing")

type S3Config struct {
	BucketName string
	Region     string
	AccessKey  string
	SecretKey  string
	Endpoint   string // S3-compatible endpoint, switches to path-style addressing
	Prefix     string // key prefix every asset is stored under
}

func (c *S3Config) Validate() error {
	if c.BucketName == "" {
		return ErrNoBucket
	}
	if c.Region == "" {
		c.Region = "auto"
	}
	c.Prefix = normPrefix(c.Prefix)
	return nil
}

// normPrefix makes a prefix name a directory, so "site" never matches "site-archive/"
func normPrefix(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}

// WithEndpointConfig creates a configuration for an S3-compatible bucket (R2, Minio)
func WithEndpointConfig(url, bucketName, accessKey, secretKey string) *S3Config {
	return &S3Config{
		BucketName: bucketName,
		Endpoint:   url,
		Region:     "auto",
		AccessKey:  accessKey,
		SecretKey:  secretKey,
	}
}
