package deploy

import (
	"errors"

	"github.com/cloudflare/workers-sdk-sub005/internal/assets"
)

var (
	ErrNoEntry          = errors.New("no entry module")
	ErrNoScript         = errors.New("no script name")
	ErrAmbiguousAssets  = errors.New("asset reference carries both a credential and a binding")
	ErrEmptyAssetResult = errors.New("asset sync returned neither a credential nor a binding")
)

// Module is one code unit of a bundle
type Module struct {
	Name        string
	Content     []byte
	ContentType string
}

// Bundle is the output of a Bundler
type Bundle struct {
	MainModule string
	Modules    []Module
}

// AssetReference is what the publish step embeds for the static assets. Exactly one
// of Credential and Binding is set
type AssetReference struct {
	Credential string
	Binding    *assets.BindingDescriptor
}

// ReferenceFromResult extracts the reference from a sync result
func ReferenceFromResult(r *assets.Result) (*AssetReference, error) {
	ref := &AssetReference{Credential: r.Credential, Binding: r.Binding}
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	return ref, nil
}

func (r *AssetReference) Validate() error {
	switch {
	case r.Credential != "" && r.Binding != nil:
		return ErrAmbiguousAssets
	case r.Credential == "" && r.Binding == nil:
		return ErrEmptyAssetResult
	}
	return nil
}

// PublishRequest is handed to the Publisher
type PublishRequest struct {
	Script             string
	Bundle             *Bundle
	Assets             *AssetReference
	CompatibilityDate  string
	CompatibilityFlags []string
}

// Version is a published script version
type Version struct {
	ID        string
	HasAssets bool
}
