package deploy

import (
	"context"

	"github.com/cloudflare/workers-sdk-sub005/internal/assets"
)

// EngineSyncer runs the sync engine against one protocol
type EngineSyncer struct {
	Engine   *assets.Engine
	Protocol assets.Protocol
	Options  assets.SyncOptions
}

func (s *EngineSyncer) SyncAssets(ctx context.Context) (*assets.Result, error) {
	return s.Engine.Sync(ctx, s.Options, s.Protocol)
}
