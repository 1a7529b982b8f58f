package assets

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// State is the upload driver state
type State int

const (
	StateIdle State = iota
	StateUploading
	StateAllUploaded
	StateFinalizing
	StateCompleted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateUploading:
		return "uploading"
	case StateAllUploaded:
		return "all-uploaded"
	case StateFinalizing:
		return "finalizing"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	}
	return "unknown"
}

// Driver uploads the buckets of a plan one request at a time and stops at the first
// failure. Finalize only runs after every bucket succeeded
type Driver struct {
	reporter Reporter
	timeout  time.Duration

	state     State
	completed int
}

func NewDriver(reporter Reporter, timeout time.Duration) *Driver {
	if reporter == nil {
		reporter = NopReporter{}
	}
	return &Driver{reporter: reporter, timeout: timeout}
}

// State returns the current state
func (d *Driver) State() State { return d.state }

// Completed returns the number of buckets uploaded so far
func (d *Driver) Completed() int { return d.completed }

// Run executes the plan. Cancellation is honored between requests; a request that was
// sent runs until it returns or hits the per-request timeout
func (d *Driver) Run(ctx context.Context, proto Protocol, plan *Plan) (*Result, error) {
	total := len(plan.Buckets)
	uploaded := 0

	for _, bucket := range plan.Buckets {
		d.state = StateUploading
		if err := ctx.Err(); err != nil {
			return nil, d.abort(bucket, total, errors.Join(ErrUploadIncomplete, err))
		}

		if err := d.call(ctx, func(ctx context.Context) error {
			return proto.UploadBucket(ctx, plan, bucket)
		}); err != nil {
			return nil, d.abort(bucket, total, err)
		}

		d.completed++
		uploaded += len(bucket.Items)
		d.reporter.BucketUploaded(d.completed, total, bucket)
	}
	d.state = StateAllUploaded

	if err := ctx.Err(); err != nil {
		d.state = StateAborted
		return nil, err
	}

	d.state = StateFinalizing
	var result *Result
	if err := d.call(ctx, func(ctx context.Context) error {
		var err error
		result, err = proto.Finalize(ctx, plan)
		return err
	}); err != nil {
		d.state = StateAborted
		return nil, err
	}

	for _, w := range result.Warnings {
		d.reporter.Warn("asset cleanup incomplete", w)
	}

	result.Uploaded = uploaded
	result.Skipped = len(plan.Unchanged)
	result.Buckets = total
	d.state = StateCompleted
	return result, nil
}

func (d *Driver) call(ctx context.Context, fn func(context.Context) error) error {
	if d.timeout <= 0 {
		return fn(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	return fn(callCtx)
}

func (d *Driver) abort(bucket *Bucket, total int, err error) error {
	d.state = StateAborted
	slog.Debug("asset upload aborted", "bucket", bucket.Index+1, "total", total, "completed", d.completed, "error", err)
	return &UploadError{
		Bucket:    bucket.Index + 1,
		Completed: d.completed,
		Total:     total,
		Expired:   errors.Is(err, ErrTokenExpired),
		Err:       err,
	}
}
