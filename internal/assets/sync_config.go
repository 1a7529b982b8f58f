package assets

import "time"

const (
	KiB = 1024
	MiB = 1024 * KiB

	// IgnoreFileName is looked up at the root of the asset tree when no ignore file is given
	IgnoreFileName = ".assetsignore"

	// ReservedOutputName is the bundler's server-side output. Uploading it as a public
	// asset would leak server code
	ReservedOutputName = "_worker.js"
)

// Limits holds the fixed platform limits and the packing tunables
type Limits struct {
	MaxAssetBytes     int64         // raw size ceiling per asset
	MaxKeyLength      int           // ceiling for upload keys and manifest paths
	MaxAssetCount     int           // ceiling for assets in one tree
	BucketByteCeiling int64         // encoded size ceiling per upload request
	BucketHeadroom    int64         // part of the ceiling reserved for request framing
	EncodingInflation float64       // raw -> encoded size factor used by the packer
	MaxBucketKeys     int           // ceiling for items in one upload request
	MaxDiffLines      int           // diff lines shown before truncation
	RequestTimeout    time.Duration // independent timeout for every network call
}

// DefaultLimits returns the platform limits
func DefaultLimits() Limits {
	return Limits{
		MaxAssetBytes:     25 * MiB,
		MaxKeyLength:      512,
		MaxAssetCount:     20_000,
		BucketByteCeiling: 100 * MiB,
		BucketHeadroom:    2 * MiB,
		EncodingInflation: 4.0 / 3.0,
		MaxBucketKeys:     1000,
		MaxDiffLines:      100,
		RequestTimeout:    60 * time.Second,
	}
}

// bucketBudget is the encoded size a single bucket may carry
func (l Limits) bucketBudget() int64 {
	budget := l.BucketByteCeiling - l.BucketHeadroom
	if budget <= 0 {
		return l.BucketByteCeiling
	}
	return budget
}

func (l Limits) withDefaults() Limits {
	def := DefaultLimits()
	if l.MaxAssetBytes <= 0 {
		l.MaxAssetBytes = def.MaxAssetBytes
	}
	if l.MaxKeyLength <= 0 {
		l.MaxKeyLength = def.MaxKeyLength
	}
	if l.MaxAssetCount <= 0 {
		l.MaxAssetCount = def.MaxAssetCount
	}
	if l.BucketByteCeiling <= 0 {
		l.BucketByteCeiling = def.BucketByteCeiling
	}
	if l.BucketHeadroom < 0 {
		l.BucketHeadroom = 0
	}
	if l.EncodingInflation < 1 {
		l.EncodingInflation = def.EncodingInflation
	}
	if l.MaxBucketKeys <= 0 {
		l.MaxBucketKeys = def.MaxBucketKeys
	}
	if l.MaxDiffLines <= 0 {
		l.MaxDiffLines = def.MaxDiffLines
	}
	if l.RequestTimeout <= 0 {
		l.RequestTimeout = def.RequestTimeout
	}
	return l
}
