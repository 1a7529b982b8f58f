package assets

// Bucket is the content of one upload request
type Bucket struct {
	Index       int // 0-based position in the upload sequence
	Items       []*ManifestEntry
	EncodedSize int64 // estimated size on the wire
}

// RawSize sums the raw item sizes
func (b *Bucket) RawSize() int64 {
	var n int64
	for _, item := range b.Items {
		n += item.Size
	}
	return n
}

// Pack groups items into buckets greedily, in order. A bucket is closed when the next
// item would push its encoded size past the bucket budget or its item count past
// MaxBucketKeys. Items are never split and no bucket is empty
func Pack(items []*ManifestEntry, limits Limits) []*Bucket {
	limits = limits.withDefaults()
	budget := limits.bucketBudget()

	var (
		buckets []*Bucket
		current *Bucket
	)
	for _, item := range items {
		size := EncodedLen(item.Size, limits.EncodingInflation)
		if current != nil && (current.EncodedSize+size > budget || len(current.Items) >= limits.MaxBucketKeys) {
			buckets = append(buckets, current)
			current = nil
		}
		if current == nil {
			current = &Bucket{Index: len(buckets)}
		}
		current.Items = append(current.Items, item)
		current.EncodedSize += size
	}
	if current != nil {
		buckets = append(buckets, current)
	}
	return buckets
}

// newBucket builds a bucket from a fixed item list, as assigned by the remote side
func newBucket(index int, items []*ManifestEntry, inflation float64) *Bucket {
	b := &Bucket{Index: index, Items: items}
	for _, item := range items {
		b.EncodedSize += EncodedLen(item.Size, inflation)
	}
	return b
}
