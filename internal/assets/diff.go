package assets

import (
	"context"
	"fmt"
)

// Protocol is one remote diff variant. Both variants produce a Plan of buckets to
// upload; the driver runs the plan without knowing which variant produced it
type Protocol interface {
	// KeyMode tells the manifest builder how entries are keyed for this remote
	KeyMode() KeyMode
	// Negotiate determines which manifest entries the remote side is missing
	Negotiate(ctx context.Context, manifest *Manifest) (*Plan, error)
	// UploadBucket sends one bucket in a single request
	UploadBucket(ctx context.Context, plan *Plan, bucket *Bucket) error
	// Finalize runs once every bucket succeeded and yields the reference handed to publish
	Finalize(ctx context.Context, plan *Plan) (*Result, error)
}

// Plan is the outcome of negotiation
type Plan struct {
	Manifest  *Manifest
	Buckets   []*Bucket
	Pending   []*ManifestEntry // entries the remote side is missing, in manifest order
	Unchanged []*ManifestEntry // entries already stored
	Stale     []string         // remote keys to remove after a successful upload (index variant)

	// Token is the session upload token (session variant)
	Token string
	// Completion is the latest completion token returned by an upload (session variant)
	Completion string
}

// PendingItems counts the items carried by the buckets
func (p *Plan) PendingItems() int {
	n := 0
	for _, b := range p.Buckets {
		n += len(b.Items)
	}
	return n
}

// Result is what a successful sync hands to the publish step: exactly one of
// Credential or Binding is set
type Result struct {
	Credential string
	Binding    *BindingDescriptor

	Uploaded int
	Skipped  int
	Deleted  int
	Buckets  int
	DryRun   bool
	Warnings []error
}

// Reference returns a printable form of the publish reference
func (r *Result) Reference() string {
	switch {
	case r.Credential != "":
		return r.Credential
	case r.Binding != nil:
		return r.Binding.String()
	}
	return ""
}

// BindingDescriptor names the object store that holds the assets (index variant)
type BindingDescriptor struct {
	Kind      string            `json:"kind"`
	Namespace string            `json:"namespace"`
	Manifest  map[string]string `json:"manifest,omitempty"` // relative path -> upload key
}

func (b *BindingDescriptor) String() string {
	return fmt.Sprintf("%s:%s", b.Kind, b.Namespace)
}

// Entry is one object written by ObjectStore.BulkPut
type Entry struct {
	Key         string
	Content     []byte
	ContentType string
}

// UploadFile is one part of a session bucket upload
type UploadFile struct {
	Hash        Fingerprint
	Content     []byte
	ContentType string
}

// readBucket loads the content of every item in b. Memory use is bounded by one bucket
func readBucket(b *Bucket) ([][]byte, error) {
	out := make([][]byte, len(b.Items))
	for i, item := range b.Items {
		asset := Asset{RelPath: item.Path, AbsPath: item.Source, Size: item.Size}
		content, err := asset.Read()
		if err != nil {
			return nil, fmt.Errorf("read '%s': %w", item.Path, err)
		}
		out[i] = content
	}
	return out, nil
}
