package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudflare/workers-sdk-sub005/internal/assets"
	"github.com/cloudflare/workers-sdk-sub005/internal/utils"
)

var (
	DefaultAPIBaseURL = "https://api.cloudflare.com/client/v4"
	DefaultTimeout    = 60 * time.Second
	DefaultConfigName = "deploy"
)

var (
	ErrNoAccountID       = errors.New("account id missing, set CLOUDFLARE_ACCOUNT_ID or account_id")
	ErrNoAPIToken        = errors.New("api token missing, set CLOUDFLARE_API_TOKEN")
	ErrNoScriptName      = errors.New("worker name missing, set name in the config file")
	ErrAssetsAndSite     = errors.New("cannot use assets and sites in the same worker")
	ErrNoAssetsDirectory = errors.New("no assets directory configured")
	ErrNoSiteBucket      = errors.New("no site bucket configured")
	ErrInvalidAPIBaseURL = errors.New("invalid api base url")
)

// SiteConfig configures the legacy site upload
type SiteConfig struct {
	Bucket  string   `mapstructure:"bucket"`
	Include []string `mapstructure:"include"`
	Exclude []string `mapstructure:"exclude"`
}

// S3Config points site uploads at an S3-compatible bucket instead of KV
type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	Prefix    string `mapstructure:"prefix"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

type Config struct {
	Path string `mapstructure:"-"`

	AccountID  string `mapstructure:"account_id"`
	APIToken   string `mapstructure:"api_token"`
	APIBaseURL string `mapstructure:"api_base_url"`

	Name               string   `mapstructure:"name"`
	Main               string   `mapstructure:"main"`
	CompatibilityDate  string   `mapstructure:"compatibility_date"`
	CompatibilityFlags []string `mapstructure:"compatibility_flags"`

	Assets     string      `mapstructure:"assets"`
	IgnoreFile string      `mapstructure:"ignore_file"`
	Site       *SiteConfig `mapstructure:"site"`
	S3         *S3Config   `mapstructure:"s3"`
	Hash       string      `mapstructure:"hash"`

	Timeout time.Duration `mapstructure:"timeout"`
	Verbose bool          `mapstructure:"verbose"`
	DryRun  bool          `mapstructure:"dry_run"`
}

// Validate fills defaults and checks the settings every command needs
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		c.APIBaseURL = DefaultAPIBaseURL
	}
	if u, err := url.Parse(c.APIBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidAPIBaseURL, c.APIBaseURL)
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Assets != "" && c.Site != nil && c.Site.Bucket != "" {
		return ErrAssetsAndSite
	}
	if c.Hash != "" {
		if _, err := assets.ParseHashAlgorithm(c.Hash); err != nil {
			return err
		}
	}

	// relative paths are relative to the config file
	base := "."
	if c.Path != "" {
		base = filepath.Dir(c.Path)
	}
	c.Assets = c.resolve(base, c.Assets)
	c.Main = c.resolve(base, c.Main)
	c.IgnoreFile = c.resolve(base, c.IgnoreFile)
	if c.Site != nil {
		c.Site.Bucket = c.resolve(base, c.Site.Bucket)
	}
	return nil
}

// ValidateRemote checks the settings commands talking to the API need
func (c *Config) ValidateRemote() error {
	if c.AccountID == "" {
		return ErrNoAccountID
	}
	if c.APIToken == "" {
		return ErrNoAPIToken
	}
	if c.Name == "" {
		return ErrNoScriptName
	}
	return nil
}

// AssetsRoot returns the directory the session upload reads from
func (c *Config) AssetsRoot() (string, error) {
	if c.Assets == "" {
		return "", ErrNoAssetsDirectory
	}
	return c.Assets, nil
}

// SiteRoot returns the directory the legacy site upload reads from
func (c *Config) SiteRoot() (string, error) {
	if c.Site == nil || c.Site.Bucket == "" {
		return "", ErrNoSiteBucket
	}
	return c.Site.Bucket, nil
}

// HashAlgorithm returns the fingerprint algorithm, xxh64 for sites by default
func (c *Config) HashAlgorithm(site bool) assets.HashAlgorithm {
	if c.Hash != "" {
		if alg, err := assets.ParseHashAlgorithm(c.Hash); err == nil {
			return alg
		}
	}
	if site {
		return assets.HashXXH64
	}
	return assets.HashBLAKE3
}

func (c *Config) resolve(base, p string) string {
	if p == "" {
		return ""
	}
	if !filepath.IsAbs(p) && !strings.HasPrefix(p, "~") {
		p = filepath.Join(base, p)
	}
	if abs, err := utils.ResolvePath(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
