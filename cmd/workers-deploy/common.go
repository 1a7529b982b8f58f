package main

import (
	"context"
	"fmt"
	"io"

	"github.com/cloudflare/workers-sdk-sub005/internal/assets"
	"github.com/cloudflare/workers-sdk-sub005/internal/blob"
	"github.com/cloudflare/workers-sdk-sub005/internal/cfapi"
	"github.com/cloudflare/workers-sdk-sub005/internal/config"
	"github.com/cloudflare/workers-sdk-sub005/internal/deploy"
)

func newClient(cfg *config.Config) (*cfapi.Client, error) {
	if err := cfg.ValidateRemote(); err != nil {
		return nil, err
	}
	client, err := cfapi.New(&cfapi.Config{
		BaseURL:   cfg.APIBaseURL,
		AccountID: cfg.AccountID,
		APIToken:  cfg.APIToken,
		Timeout:   cfg.Timeout,
	})
	if err != nil {
		return nil, err
	}
	if cfg.Verbose {
		client.EnableDebug()
	}
	return client, nil
}

func engineFor(cfg *config.Config, reporter assets.Reporter, site bool) *assets.Engine {
	limits := assets.DefaultLimits()
	limits.RequestTimeout = cfg.Timeout

	engine := assets.NewEngine(limits, reporter)
	engine.Hash = cfg.HashAlgorithm(site)
	return engine
}

// sessionSyncer uploads the assets directory through an upload session
func sessionSyncer(cfg *config.Config, client *cfapi.Client, reporter assets.Reporter) (*deploy.EngineSyncer, error) {
	root, err := cfg.AssetsRoot()
	if err != nil {
		return nil, err
	}
	engine := engineFor(cfg, reporter, false)
	return &deploy.EngineSyncer{
		Engine:   engine,
		Protocol: cfapi.NewSessionProtocol(client.Assets, cfg.Name, engine.Limits),
		Options:  assets.SyncOptions{Root: root, IgnoreFile: cfg.IgnoreFile, DryRun: cfg.DryRun},
	}, nil
}

// siteSyncer uploads the site directory to KV, or to S3 when a bucket is configured
func siteSyncer(ctx context.Context, cfg *config.Config, client *cfapi.Client, reporter assets.Reporter, preview bool) (*deploy.EngineSyncer, error) {
	root, err := cfg.SiteRoot()
	if err != nil {
		return nil, err
	}

	var store assets.ObjectStore
	if cfg.S3 != nil && cfg.S3.Bucket != "" {
		s3Store, err := blob.NewS3StoreWithConfig(ctx, &blob.S3Config{
			BucketName: cfg.S3.Bucket,
			Region:     cfg.S3.Region,
			AccessKey:  cfg.S3.AccessKey,
			SecretKey:  cfg.S3.SecretKey,
			Endpoint:   cfg.S3.Endpoint,
			Prefix:     cfg.S3.Prefix,
		})
		if err != nil {
			return nil, err
		}
		store = s3Store
	} else {
		if client == nil {
			return nil, fmt.Errorf("site sync to kv: %w", cfg.ValidateRemote())
		}
		// resolved on first listing, after the tree is validated; a dry run never creates it
		store = cfapi.NewSiteKVStore(client.KV, cfapi.SiteNamespaceTitle(cfg.Name, preview), !cfg.DryRun)
	}

	engine := engineFor(cfg, reporter, true)
	opts := assets.SyncOptions{Root: root, IgnoreFile: cfg.IgnoreFile, DryRun: cfg.DryRun}
	if cfg.Site != nil {
		opts.Include = cfg.Site.Include
		opts.Exclude = cfg.Site.Exclude
	}
	return &deploy.EngineSyncer{
		Engine:   engine,
		Protocol: assets.NewIndexProtocol(store, engine.Limits),
		Options:  opts,
	}, nil
}

func usesS3(cfg *config.Config) bool {
	return cfg.S3 != nil && cfg.S3.Bucket != ""
}

func printReference(w io.Writer, result *assets.Result) {
	if result.DryRun {
		return
	}
	if result.Credential != "" {
		fmt.Fprintln(w, result.Credential)
		return
	}
	if result.Binding != nil {
		fmt.Fprintln(w, result.Binding.String())
	}
}
