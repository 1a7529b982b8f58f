package deploy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cloudflare/workers-sdk-sub005/internal/assets"
)

type Bundler interface {
	Bundle(ctx context.Context, entry string) (*Bundle, error)
}

// AssetSyncer brings the remote asset store in line with the local tree
type AssetSyncer interface {
	SyncAssets(ctx context.Context) (*assets.Result, error)
}

type Publisher interface {
	Publish(ctx context.Context, req *PublishRequest) (*Version, error)
}

type Request struct {
	Script             string
	Entry              string
	CompatibilityDate  string
	CompatibilityFlags []string
}

// Deployer runs bundle, asset sync and publish in order. Any asset error stops the
// deploy before publishing
type Deployer struct {
	Bundler   Bundler
	Assets    AssetSyncer // nil when the worker has no assets
	Publisher Publisher
}

func (d *Deployer) Deploy(ctx context.Context, req Request) (*Version, error) {
	if req.Script == "" {
		return nil, ErrNoScript
	}
	if req.Entry == "" {
		return nil, ErrNoEntry
	}

	bundle, err := d.Bundler.Bundle(ctx, req.Entry)
	if err != nil {
		return nil, fmt.Errorf("bundle: %w", err)
	}

	var ref *AssetReference
	if d.Assets != nil {
		result, err := d.Assets.SyncAssets(ctx)
		if err != nil {
			return nil, fmt.Errorf("sync assets: %w", err)
		}
		if ref, err = ReferenceFromResult(result); err != nil {
			return nil, fmt.Errorf("sync assets: %w", err)
		}
		slog.Debug("deploy assets", "reference", result.Reference(), "uploaded", result.Uploaded, "skipped", result.Skipped)
	}

	version, err := d.Publisher.Publish(ctx, &PublishRequest{
		Script:             req.Script,
		Bundle:             bundle,
		Assets:             ref,
		CompatibilityDate:  req.CompatibilityDate,
		CompatibilityFlags: req.CompatibilityFlags,
	})
	if err != nil {
		return nil, fmt.Errorf("publish: %w", err)
	}
	return version, nil
}
