package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/cloudflare/workers-sdk-sub005/internal/utils"
	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"
)

// KeyMode selects how manifest entries are addressed on the remote side
type KeyMode int

const (
	// KeyByHash addresses content by its full fingerprint (session protocol)
	KeyByHash KeyMode = iota
	// KeyByUploadKey addresses content by path with the short fingerprint embedded (index protocol)
	KeyByUploadKey
)

// ManifestEntry is one asset of the desired state
type ManifestEntry struct {
	Path        string
	Hash        Fingerprint
	Size        int64
	Key         string // remote key: the upload key or the full hash
	Source      string // absolute path the content is read from at upload time
	ContentType string
}

// Manifest is the ordered desired state of an asset tree. Order follows the walk
type Manifest struct {
	Root    string
	Mode    KeyMode
	entries []*ManifestEntry
	byPath  map[string]*ManifestEntry
	byHash  map[Fingerprint]*ManifestEntry
	byKey   map[string]*ManifestEntry
}

func newManifest(root string, mode KeyMode, capacity int) *Manifest {
	return &Manifest{
		Root:    root,
		Mode:    mode,
		entries: make([]*ManifestEntry, 0, capacity),
		byPath:  make(map[string]*ManifestEntry, capacity),
		byHash:  make(map[Fingerprint]*ManifestEntry, capacity),
		byKey:   make(map[string]*ManifestEntry, capacity),
	}
}

func (m *Manifest) add(e *ManifestEntry) {
	m.entries = append(m.entries, e)
	m.byPath[e.Path] = e
	m.byKey[e.Key] = e
	// identical content at several paths is uploaded once
	if _, ok := m.byHash[e.Hash]; !ok {
		m.byHash[e.Hash] = e
	}
}

// Entries returns the entries in walk order
func (m *Manifest) Entries() []*ManifestEntry { return m.entries }

// Len returns the number of assets
func (m *Manifest) Len() int { return len(m.entries) }

// Lookup finds an entry by relative path
func (m *Manifest) Lookup(relPath string) (*ManifestEntry, bool) {
	e, ok := m.byPath[relPath]
	return e, ok
}

// ByHash finds the first entry with the given content hash
func (m *Manifest) ByHash(hash Fingerprint) (*ManifestEntry, bool) {
	e, ok := m.byHash[hash]
	return e, ok
}

// ByKey finds an entry by remote key
func (m *Manifest) ByKey(key string) (*ManifestEntry, bool) {
	e, ok := m.byKey[key]
	return e, ok
}

// TotalSize sums the raw sizes
func (m *Manifest) TotalSize() int64 {
	var total int64
	for _, e := range m.entries {
		total += e.Size
	}
	return total
}

// KeyMap maps relative paths to remote keys
func (m *Manifest) KeyMap() map[string]string {
	out := make(map[string]string, len(m.entries))
	for _, e := range m.entries {
		out[e.Path] = e.Key
	}
	return out
}

// Sources maps remote keys to the files holding their content
func (m *Manifest) Sources() map[string]string {
	out := make(map[string]string, len(m.entries))
	for _, e := range m.entries {
		out[e.Key] = e.Source
	}
	return out
}

// ManifestRecord is the wire form of one manifest entry
type ManifestRecord struct {
	Hash string `json:"hash" yaml:"hash"`
	Size int64  `json:"size" yaml:"size"`
}

// MarshalJSON renders {"/path": {"hash": ..., "size": ...}} in walk order. Paths are
// rooted with a leading slash as the upload service expects
func (m *Manifest) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range m.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal("/" + e.Path)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(ManifestRecord{Hash: string(e.Hash), Size: e.Size})
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ManifestOptions configures BuildManifest
type ManifestOptions struct {
	IgnoreFile  string
	Include     []string
	Exclude     []string
	Hash        HashAlgorithm
	Keys        KeyMode
	Limits      Limits
	Concurrency int
}

// BuildManifest walks root, validates every asset and fingerprints the admitted ones.
// Validation failures are collected for the whole tree and returned together; no
// partial manifest is ever returned
func BuildManifest(ctx context.Context, root string, opts ManifestOptions) (*Manifest, error) {
	if root == "" {
		return nil, ErrNoRoot
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoRoot, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrRootNotDir, root)
	}

	limits := opts.Limits.withDefaults()
	ignore := LoadIgnoreMatcher(root, opts.IgnoreFile)
	include, err := NewPatternFilter(opts.Include, opts.Exclude)
	if err != nil {
		return nil, err
	}
	// only an ignore file at the tree root acknowledges a reserved output; a custom
	// --ignore-file elsewhere still filters but does not lift the guard
	validator := &Validator{Limits: limits, HasIgnoreFile: utils.FileExists(filepath.Join(root, IgnoreFileName))}

	var (
		admitted []*Asset
		errs     []error
	)
	for asset, err := range Walk(root, WalkOptions{Ignore: ignore, Include: include}) {
		if err != nil {
			return nil, err
		}
		if err := validator.CheckReserved(asset.RelPath); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := validator.CheckSize(asset); err != nil {
			errs = append(errs, err)
			continue
		}
		if opts.Keys == KeyByHash {
			if err := validator.CheckKey(asset.RelPath, asset.RelPath); err != nil {
				errs = append(errs, err)
				continue
			}
		}
		admitted = append(admitted, asset)
	}
	if err := validator.CheckCount(root, len(admitted)+len(errs)); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	hashes, err := fingerprintAll(ctx, admitted, opts.Hash, opts.Concurrency)
	if err != nil {
		return nil, err
	}

	manifest := newManifest(root, opts.Keys, len(admitted))
	for i, asset := range admitted {
		entry := &ManifestEntry{
			Path:        utils.NormPath(asset.RelPath),
			Hash:        hashes[i],
			Size:        asset.Size,
			Source:      asset.AbsPath,
			ContentType: utils.DetectContentType(asset.RelPath),
		}
		if opts.Keys == KeyByUploadKey {
			entry.Key = UploadKey(entry.Path, entry.Hash)
			if err := validator.CheckKey(entry.Path, entry.Key); err != nil {
				errs = append(errs, err)
				continue
			}
		} else {
			entry.Key = string(entry.Hash)
		}
		manifest.add(entry)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return manifest, nil
}

// fingerprintAll hashes the assets with bounded parallelism, keeping input order
func fingerprintAll(ctx context.Context, assets []*Asset, alg HashAlgorithm, concurrency int) ([]Fingerprint, error) {
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}

	hashes := make([]Fingerprint, len(assets))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(concurrency)

	for i, asset := range assets {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			fp, _, err := FingerprintFile(alg, asset.AbsPath)
			if err != nil {
				return err
			}
			hashes[i] = fp
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return hashes, nil
}
