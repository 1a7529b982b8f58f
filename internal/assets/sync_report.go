package assets

import (
	"fmt"
	"log/slog"
)

// DiffOp classifies one asset decision
type DiffOp byte

const (
	DiffUpload    DiffOp = '+'
	DiffUnchanged DiffOp = '='
	DiffStale     DiffOp = '-'
)

func (o DiffOp) String() string { return string(o) }

// DiffLine is one entry of the per-asset decision log
type DiffLine struct {
	Op   DiffOp
	Key  string
	Path string // empty for stale keys
}

func (l DiffLine) String() string {
	switch l.Op {
	case DiffUpload:
		return fmt.Sprintf(" + %s (uploading new version of %s)", l.Key, l.Path)
	case DiffUnchanged:
		return fmt.Sprintf(" = %s (already uploaded %s)", l.Key, l.Path)
	default:
		return fmt.Sprintf(" - %s (removing as stale)", l.Key)
	}
}

// Reporter receives progress from a sync. Calls come from a single goroutine
type Reporter interface {
	Diff(line DiffLine)
	BucketUploaded(done, total int, bucket *Bucket)
	Warn(msg string, err error)
}

// NopReporter discards everything
type NopReporter struct{}

func (NopReporter) Diff(DiffLine)                    {}
func (NopReporter) BucketUploaded(int, int, *Bucket) {}
func (NopReporter) Warn(string, error)               {}

// DiffLimiter caps the number of diff lines shown
type DiffLimiter struct {
	Max     int
	Verbose bool

	shown  int
	hidden int
}

// Admit records a line and reports whether it should be shown. truncated is true
// exactly once, for the first line that is dropped
func (l *DiffLimiter) Admit() (show bool, truncated bool) {
	if l.Verbose || l.Max <= 0 || l.shown < l.Max {
		l.shown++
		return true, false
	}
	l.hidden++
	return false, l.hidden == 1
}

// Hidden returns the number of dropped lines
func (l *DiffLimiter) Hidden() int { return l.hidden }

// TruncationNotice is shown once when the diff log is cut short
const TruncationNotice = "(truncating changed assets log, run with --verbose to see the full diff)"

// LogReporter writes progress through slog
type LogReporter struct {
	logger  *slog.Logger
	limiter *DiffLimiter
}

func NewLogReporter(logger *slog.Logger, maxLines int, verbose bool) *LogReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogReporter{
		logger:  logger,
		limiter: &DiffLimiter{Max: maxLines, Verbose: verbose},
	}
}

func (r *LogReporter) Diff(line DiffLine) {
	show, truncated := r.limiter.Admit()
	if truncated {
		r.logger.Info(TruncationNotice)
	}
	if !show {
		return
	}
	r.logger.Info("assets", "op", line.Op.String(), "key", line.Key, "path", line.Path)
}

func (r *LogReporter) BucketUploaded(done, total int, bucket *Bucket) {
	r.logger.Info("assets", "op", "UPLOAD", "bucket", fmt.Sprintf("%d/%d", done, total), "files", len(bucket.Items))
}

func (r *LogReporter) Warn(msg string, err error) {
	r.logger.Warn(msg, "error", err)
}
