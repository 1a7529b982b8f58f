package main

import (
	"fmt"
	"io"
	"time"

	"github.com/cloudflare/workers-sdk-sub005/internal/assets"
	"github.com/dustin/go-humanize"
)

// consoleReporter prints the asset diff and upload progress for humans
type consoleReporter struct {
	out     io.Writer
	limiter *assets.DiffLimiter
	start   time.Time
}

var _ assets.Reporter = (*consoleReporter)(nil)

func newConsoleReporter(out io.Writer, maxLines int, verbose bool) *consoleReporter {
	return &consoleReporter{
		out:     out,
		limiter: &assets.DiffLimiter{Max: maxLines, Verbose: verbose},
		start:   time.Now(),
	}
}

func (r *consoleReporter) Diff(line assets.DiffLine) {
	show, truncated := r.limiter.Admit()
	if truncated {
		fmt.Fprintln(r.out, gray.Render(assets.TruncationNotice))
	}
	if !show {
		return
	}

	text := line.String()
	switch line.Op {
	case assets.DiffUpload:
		text = green.Render(text)
	case assets.DiffUnchanged:
		text = gray.Render(text)
	case assets.DiffStale:
		text = red.Render(text)
	}
	fmt.Fprintln(r.out, text)
}

func (r *consoleReporter) BucketUploaded(done, total int, bucket *assets.Bucket) {
	fmt.Fprintf(r.out, "Uploaded %d of %d batches (%s files, %s)\n",
		done, total, humanize.Comma(int64(len(bucket.Items))), humanize.IBytes(uint64(bucket.RawSize())))
}

func (r *consoleReporter) Warn(msg string, err error) {
	fmt.Fprintln(r.out, yellow.Render(fmt.Sprintf("▲ %s: %v", msg, err)))
}

// Summary prints the closing line of a sync
func (r *consoleReporter) Summary(result *assets.Result) {
	elapsed := time.Since(r.start).Seconds()
	if result.DryRun {
		fmt.Fprintf(r.out, "Dry run: would upload %s files, delete %s (%s already uploaded)\n",
			humanize.Comma(int64(result.Uploaded)), humanize.Comma(int64(result.Deleted)), humanize.Comma(int64(result.Skipped)))
		return
	}

	fmt.Fprintf(r.out, "%s Uploaded %s files (%s already uploaded) %s\n",
		bold.Render("✨ Success!"),
		humanize.Comma(int64(result.Uploaded)),
		humanize.Comma(int64(result.Skipped)),
		gray.Render(fmt.Sprintf("(%.2f sec)", elapsed)))
	if result.Deleted > 0 {
		fmt.Fprintf(r.out, "Removed %s stale files\n", humanize.Comma(int64(result.Deleted)))
	}
}
