package assets

import (
	"context"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
)

// ObjectStore is a key/value store holding assets under their upload keys
type ObjectStore interface {
	ListKeys(ctx context.Context) ([]string, error)
	BulkPut(ctx context.Context, entries []Entry) error
	BulkDelete(ctx context.Context, keys []string) error
	Descriptor() BindingDescriptor
}

// IndexProtocol diffs the manifest against the full key listing of an object store.
// Unchanged content keeps its key, new content gets a new key, and keys no longer
// referenced are deleted once every upload succeeded
type IndexProtocol struct {
	store  ObjectStore
	limits Limits
}

func NewIndexProtocol(store ObjectStore, limits Limits) *IndexProtocol {
	return &IndexProtocol{store: store, limits: limits.withDefaults()}
}

func (p *IndexProtocol) KeyMode() KeyMode { return KeyByUploadKey }

func (p *IndexProtocol) Negotiate(ctx context.Context, manifest *Manifest) (*Plan, error) {
	keys, err := p.store.ListKeys(ctx)
	if err != nil {
		return nil, &NegotiationError{Op: "list remote keys", Err: err}
	}

	remote := mapset.NewThreadUnsafeSet(keys...)
	desired := mapset.NewThreadUnsafeSetWithSize[string](manifest.Len())

	plan := &Plan{Manifest: manifest}
	for _, entry := range manifest.Entries() {
		desired.Add(entry.Key)
		if remote.Contains(entry.Key) {
			plan.Unchanged = append(plan.Unchanged, entry)
		} else {
			plan.Pending = append(plan.Pending, entry)
		}
	}

	plan.Stale = remote.Difference(desired).ToSlice()
	slices.Sort(plan.Stale)
	plan.Buckets = Pack(plan.Pending, p.limits)
	return plan, nil
}

func (p *IndexProtocol) UploadBucket(ctx context.Context, plan *Plan, bucket *Bucket) error {
	contents, err := readBucket(bucket)
	if err != nil {
		return err
	}

	entries := make([]Entry, len(bucket.Items))
	for i, item := range bucket.Items {
		entries[i] = Entry{Key: item.Key, Content: contents[i], ContentType: item.ContentType}
	}
	return p.store.BulkPut(ctx, entries)
}

// Finalize removes stale keys. A failed delete is a warning: the new content is
// already in place and the next sync retries the cleanup
func (p *IndexProtocol) Finalize(ctx context.Context, plan *Plan) (*Result, error) {
	desc := p.store.Descriptor()
	desc.Manifest = plan.Manifest.KeyMap()
	result := &Result{Binding: &desc}

	if len(plan.Stale) == 0 {
		return result, nil
	}
	if err := p.store.BulkDelete(ctx, plan.Stale); err != nil {
		result.Warnings = append(result.Warnings, &DeleteError{Keys: len(plan.Stale), Err: err})
		return result, nil
	}
	result.Deleted = len(plan.Stale)
	return result, nil
}
