package deploy

import (
	"context"
	"fmt"

	"github.com/cloudflare/workers-sdk-sub005/internal/cfapi"
	"github.com/goccy/go-json"
)

const (
	// StaticContentBinding names the store holding legacy site assets
	StaticContentBinding = "__STATIC_CONTENT"
	// StaticManifestBinding carries the path to key map of legacy site assets
	StaticManifestBinding = "__STATIC_CONTENT_MANIFEST"
)

// APIPublisher uploads a version through the scripts API
type APIPublisher struct {
	Scripts *cfapi.ScriptsAPI
}

func (p *APIPublisher) Publish(ctx context.Context, req *PublishRequest) (*Version, error) {
	meta, err := scriptMetadata(req)
	if err != nil {
		return nil, err
	}

	modules := make([]cfapi.Module, len(req.Bundle.Modules))
	for i, m := range req.Bundle.Modules {
		modules[i] = cfapi.Module{Name: m.Name, Content: m.Content, ContentType: m.ContentType}
	}

	v, err := p.Scripts.UploadVersion(ctx, req.Script, meta, modules)
	if err != nil {
		return nil, err
	}
	return &Version{ID: v.ID, HasAssets: v.HasAssets}, nil
}

func scriptMetadata(req *PublishRequest) (*cfapi.ScriptMetadata, error) {
	meta := &cfapi.ScriptMetadata{
		MainModule:         req.Bundle.MainModule,
		CompatibilityDate:  req.CompatibilityDate,
		CompatibilityFlags: req.CompatibilityFlags,
	}
	if req.Assets == nil {
		return meta, nil
	}

	if req.Assets.Credential != "" {
		meta.Assets = &cfapi.AssetsMetadata{JWT: req.Assets.Credential}
		return meta, nil
	}

	b := req.Assets.Binding
	manifest, err := json.Marshal(b.Manifest)
	if err != nil {
		return nil, fmt.Errorf("marshal site manifest: %w", err)
	}
	meta.Bindings = append(meta.Bindings,
		cfapi.Binding{Type: b.Kind, Name: StaticContentBinding, NamespaceID: b.Namespace},
		cfapi.Binding{Type: "plain_text", Name: StaticManifestBinding, Text: string(manifest)},
	)
	return meta, nil
}
