package assets

import (
	"context"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
)

// Session is the server reply to a manifest submission. Buckets hold the full hashes
// the server is missing, already grouped by the server
type Session struct {
	Token   string     `json:"jwt"`
	Buckets [][]string `json:"buckets"`
}

// SessionRemote is the upload-session API
type SessionRemote interface {
	CreateSession(ctx context.Context, manifest *Manifest) (*Session, error)
	// UploadBucket sends one bucket and returns the completion token when the server
	// issued one with this response
	UploadBucket(ctx context.Context, token string, files []UploadFile) (string, error)
}

// SessionProtocol lets the server decide what to upload and how to group it
type SessionProtocol struct {
	remote SessionRemote
	limits Limits

	// TokenExpired, when set, is consulted after a failed upload to tell a slow sync
	// apart from other failures
	TokenExpired func(token string) bool
}

func NewSessionProtocol(remote SessionRemote, limits Limits) *SessionProtocol {
	return &SessionProtocol{remote: remote, limits: limits.withDefaults()}
}

func (p *SessionProtocol) KeyMode() KeyMode { return KeyByHash }

func (p *SessionProtocol) Negotiate(ctx context.Context, manifest *Manifest) (*Plan, error) {
	session, err := p.remote.CreateSession(ctx, manifest)
	if err != nil {
		return nil, &NegotiationError{Op: "create upload session", Err: err}
	}

	plan := &Plan{Manifest: manifest, Token: session.Token}
	requested := mapset.NewThreadUnsafeSet[Fingerprint]()

	for _, hashes := range session.Buckets {
		if len(hashes) == 0 {
			continue
		}
		items := make([]*ManifestEntry, 0, len(hashes))
		for _, h := range hashes {
			entry, ok := manifest.ByHash(Fingerprint(h))
			if !ok {
				return nil, &NegotiationError{
					Op:  "resolve upload buckets",
					Err: fmt.Errorf("%w: %s", ErrUnknownHash, h),
				}
			}
			requested.Add(entry.Hash)
			items = append(items, entry)
		}
		plan.Buckets = append(plan.Buckets, newBucket(len(plan.Buckets), items, p.limits.EncodingInflation))
	}

	for _, entry := range manifest.Entries() {
		if requested.Contains(entry.Hash) {
			plan.Pending = append(plan.Pending, entry)
		} else {
			plan.Unchanged = append(plan.Unchanged, entry)
		}
	}
	return plan, nil
}

func (p *SessionProtocol) UploadBucket(ctx context.Context, plan *Plan, bucket *Bucket) error {
	contents, err := readBucket(bucket)
	if err != nil {
		return err
	}

	files := make([]UploadFile, len(bucket.Items))
	for i, item := range bucket.Items {
		files[i] = UploadFile{Hash: item.Hash, Content: contents[i], ContentType: item.ContentType}
	}

	completion, err := p.remote.UploadBucket(ctx, plan.Token, files)
	if err != nil {
		if p.TokenExpired != nil && p.TokenExpired(plan.Token) {
			return fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		return err
	}
	if completion != "" {
		plan.Completion = completion
	}
	return nil
}

// Finalize returns the completion credential. With nothing to upload the session
// token itself is the credential
func (p *SessionProtocol) Finalize(_ context.Context, plan *Plan) (*Result, error) {
	credential := plan.Completion
	if len(plan.Buckets) == 0 {
		credential = plan.Token
	}
	if credential == "" {
		return nil, &CredentialError{Err: ErrMissingToken}
	}
	return &Result{Credential: credential}, nil
}
