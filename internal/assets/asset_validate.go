package assets

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// Validator enforces the per-asset platform limits before anything is uploaded
type Validator struct {
	Limits Limits
	// HasIgnoreFile suppresses the reserved-output guard. The file's existence is the
	// acknowledgement; its contents are not inspected
	HasIgnoreFile bool
}

// CheckSize rejects assets above the raw size ceiling
func (v *Validator) CheckSize(asset *Asset) error {
	if asset.Size <= v.Limits.MaxAssetBytes {
		return nil
	}
	return &ValidationError{
		Path: asset.RelPath,
		Reason: fmt.Sprintf("size %s exceeds the limit of %s",
			humanize.IBytes(uint64(asset.Size)), humanize.IBytes(uint64(v.Limits.MaxAssetBytes))),
		Err: ErrAssetTooLarge,
	}
}

// CheckKey rejects keys longer than the platform allows
func (v *Validator) CheckKey(relPath, key string) error {
	if len(key) <= v.Limits.MaxKeyLength {
		return nil
	}
	return &ValidationError{
		Path:   relPath,
		Reason: fmt.Sprintf("key %q is %d characters, the limit is %d", key, len(key), v.Limits.MaxKeyLength),
		Err:    ErrKeyTooLong,
	}
}

// CheckReserved fails for the bundler's server-side output at the root of the tree,
// as a file or as a directory, unless an ignore file is present
func (v *Validator) CheckReserved(relPath string) error {
	if v.HasIgnoreFile {
		return nil
	}

	kind := ""
	switch {
	case relPath == ReservedOutputName:
		kind = "file"
	case strings.HasPrefix(relPath, ReservedOutputName+"/"):
		kind = "directory"
	default:
		return nil
	}

	return &ValidationError{
		Path: relPath,
		Reason: fmt.Sprintf("uploading a %s %s as an asset could expose private server-side code. "+
			"Remove it, or add an %q file to the root of the asset directory "+
			"(list %q in it to skip the upload, or leave it empty to upload anyway)",
			ReservedOutputName, kind, IgnoreFileName, ReservedOutputName),
		Err: ErrReservedOutput,
	}
}

// CheckCount rejects trees with more assets than the platform stores per version
func (v *Validator) CheckCount(root string, n int) error {
	if n <= v.Limits.MaxAssetCount {
		return nil
	}
	return &ValidationError{
		Reason: fmt.Sprintf("found %s files in %q, the limit is %s",
			humanize.Comma(int64(n)), root, humanize.Comma(int64(v.Limits.MaxAssetCount))),
		Err: ErrTooManyAssets,
	}
}
