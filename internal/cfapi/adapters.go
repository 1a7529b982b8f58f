package cfapi

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudflare/workers-sdk-sub005/internal/assets"
)

const BindingKindKV = "kv_namespace"

var errNamespaceUnresolved = errors.New("kv namespace not resolved, list keys first")

// SiteNamespaceTitle is the namespace holding the legacy site assets of a script
func SiteNamespaceTitle(scriptName string, preview bool) string {
	title := "__" + scriptName + "-workers_sites_assets"
	if preview {
		title += "_preview"
	}
	return title
}

// KVStore serves a KV namespace as an asset object store
type KVStore struct {
	kv          *KVAPI
	namespaceID string
	title       string
	create      bool
}

var _ assets.ObjectStore = (*KVStore)(nil)

func NewKVStore(kv *KVAPI, ns *Namespace) *KVStore {
	return &KVStore{kv: kv, namespaceID: ns.ID, title: ns.Title}
}

// NewSiteKVStore looks the namespace up by title on the first listing, so no
// request is made before the local tree has been validated. With create unset
// a missing namespace lists as empty and is never created
func NewSiteKVStore(kv *KVAPI, title string, create bool) *KVStore {
	return &KVStore{kv: kv, title: title, create: create}
}

func (s *KVStore) resolve(ctx context.Context) (bool, error) {
	if s.namespaceID != "" {
		return true, nil
	}

	var (
		ns  *Namespace
		err error
	)
	if s.create {
		ns, err = s.kv.EnsureNamespace(ctx, s.title)
	} else {
		ns, err = s.kv.FindNamespace(ctx, s.title)
	}
	if err != nil || ns == nil {
		return false, err
	}
	s.namespaceID = ns.ID
	return true, nil
}

func (s *KVStore) ListKeys(ctx context.Context) ([]string, error) {
	found, err := s.resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("kv namespace %q: %w", s.title, err)
	}
	if !found {
		return nil, nil
	}

	infos, err := s.kv.ListKeys(ctx, s.namespaceID, "")
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(infos))
	for i, info := range infos {
		keys[i] = info.Name
	}
	return keys, nil
}

func (s *KVStore) BulkPut(ctx context.Context, entries []assets.Entry) error {
	if s.namespaceID == "" {
		return errNamespaceUnresolved
	}
	items := make([]KeyValue, len(entries))
	for i, e := range entries {
		items[i] = KeyValue{Key: e.Key, Value: assets.EncodeContent(e.Content), Base64: true}
	}
	return s.kv.BulkPut(ctx, s.namespaceID, items)
}

func (s *KVStore) BulkDelete(ctx context.Context, keys []string) error {
	if s.namespaceID == "" {
		return errNamespaceUnresolved
	}
	return s.kv.BulkDelete(ctx, s.namespaceID, keys)
}

func (s *KVStore) Descriptor() assets.BindingDescriptor {
	return assets.BindingDescriptor{Kind: BindingKindKV, Namespace: s.namespaceID}
}

// AssetsRemote serves the upload-session API of a script
type AssetsRemote struct {
	api        *AssetsAPI
	scriptName string
}

var _ assets.SessionRemote = (*AssetsRemote)(nil)

func NewAssetsRemote(api *AssetsAPI, scriptName string) *AssetsRemote {
	return &AssetsRemote{api: api, scriptName: scriptName}
}

func (r *AssetsRemote) CreateSession(ctx context.Context, manifest *assets.Manifest) (*assets.Session, error) {
	raw, err := manifest.MarshalJSON()
	if err != nil {
		return nil, err
	}
	session, err := r.api.CreateUploadSession(ctx, r.scriptName, raw)
	if err != nil {
		return nil, err
	}
	return &assets.Session{Token: session.JWT, Buckets: session.Buckets}, nil
}

func (r *AssetsRemote) UploadBucket(ctx context.Context, token string, files []assets.UploadFile) (string, error) {
	parts := make([]AssetFile, len(files))
	for i, f := range files {
		parts[i] = AssetFile{Hash: string(f.Hash), Content: f.Content, ContentType: f.ContentType}
	}
	resp, err := r.api.Upload(ctx, token, parts)
	if err != nil {
		return "", err
	}
	return resp.JWT, nil
}

// NewSessionProtocol wires the upload-session API into the sync engine
func NewSessionProtocol(api *AssetsAPI, scriptName string, limits assets.Limits) *assets.SessionProtocol {
	proto := assets.NewSessionProtocol(NewAssetsRemote(api, scriptName), limits)
	proto.TokenExpired = TokenExpired
	return proto
}
