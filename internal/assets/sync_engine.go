package assets

import (
	"context"
	"log/slog"
	"time"
)

// SyncOptions selects the local tree
type SyncOptions struct {
	Root       string
	IgnoreFile string
	Include    []string
	Exclude    []string
	// DryRun stops after negotiation. The diff is reported, nothing is uploaded or deleted
	DryRun bool
}

// Engine makes a remote store hold exactly the files of a local tree
type Engine struct {
	Limits      Limits
	Hash        HashAlgorithm
	Reporter    Reporter
	Concurrency int
}

func NewEngine(limits Limits, reporter Reporter) *Engine {
	if reporter == nil {
		reporter = NopReporter{}
	}
	return &Engine{
		Limits:   limits.withDefaults(),
		Hash:     HashBLAKE3,
		Reporter: reporter,
	}
}

// Sync builds the manifest, negotiates with the remote side, uploads what is missing
// and finalizes. It returns either a completion credential or a binding descriptor
func (e *Engine) Sync(ctx context.Context, opts SyncOptions, proto Protocol) (*Result, error) {
	start := time.Now()
	limits := e.Limits.withDefaults()
	reporter := e.Reporter
	if reporter == nil {
		reporter = NopReporter{}
	}

	manifest, err := BuildManifest(ctx, opts.Root, ManifestOptions{
		IgnoreFile:  opts.IgnoreFile,
		Include:     opts.Include,
		Exclude:     opts.Exclude,
		Hash:        e.Hash,
		Keys:        proto.KeyMode(),
		Limits:      limits,
		Concurrency: e.Concurrency,
	})
	if err != nil {
		return nil, err
	}
	slog.Debug("asset manifest built", "root", opts.Root, "files", manifest.Len(), "bytes", manifest.TotalSize())

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	negCtx, cancel := context.WithTimeout(ctx, limits.RequestTimeout)
	plan, err := proto.Negotiate(negCtx, manifest)
	cancel()
	if err != nil {
		return nil, err
	}

	reportPlan(reporter, plan)
	slog.Debug("asset plan", "pending", len(plan.Pending), "unchanged", len(plan.Unchanged),
		"stale", len(plan.Stale), "buckets", len(plan.Buckets))

	if opts.DryRun {
		return &Result{
			Uploaded: len(plan.Pending),
			Skipped:  len(plan.Unchanged),
			Deleted:  len(plan.Stale),
			Buckets:  len(plan.Buckets),
			DryRun:   true,
		}, nil
	}

	driver := NewDriver(reporter, limits.RequestTimeout)
	result, err := driver.Run(ctx, proto, plan)
	if err != nil {
		return nil, err
	}

	slog.Debug("asset sync done", "uploaded", result.Uploaded, "skipped", result.Skipped,
		"deleted", result.Deleted, "elapsed", time.Since(start))
	return result, nil
}

func reportPlan(r Reporter, plan *Plan) {
	pending := make(map[*ManifestEntry]struct{}, len(plan.Pending))
	for _, e := range plan.Pending {
		pending[e] = struct{}{}
	}
	for _, e := range plan.Manifest.Entries() {
		op := DiffUnchanged
		if _, ok := pending[e]; ok {
			op = DiffUpload
		}
		r.Diff(DiffLine{Op: op, Key: e.Key, Path: e.Path})
	}
	for _, key := range plan.Stale {
		r.Diff(DiffLine{Op: DiffStale, Key: key})
	}
}
