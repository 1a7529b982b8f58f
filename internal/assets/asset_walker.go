package assets

import (
	"fmt"
	"iter"
	"log/slog"
	"os"
	"path"
	"path/filepath"
)

// Asset is a regular file found under the asset root. Content is read on demand so
// that large trees are never held in memory
type Asset struct {
	RelPath string // forward slashes, relative to the root
	AbsPath string
	Size    int64
}

// Read loads the asset content
func (a *Asset) Read() ([]byte, error) {
	return os.ReadFile(a.AbsPath)
}

// WalkOptions gates which files the walker yields
type WalkOptions struct {
	Ignore  *IgnoreMatcher
	Include *IncludeFilter
}

// Walk enumerates the regular files under root depth-first, directory entries in
// lexical order. Built-in exclusions are applied before descending, then the ignore
// rules, then the include filter. Symlinks are skipped. A read error is yielded once
// and ends the walk
func Walk(root string, opts WalkOptions) iter.Seq2[*Asset, error] {
	return func(yield func(*Asset, error) bool) {
		walkDir(root, "", opts, yield)
	}
}

func walkDir(root, rel string, opts WalkOptions, yield func(*Asset, error) bool) bool {
	dir := filepath.Join(root, filepath.FromSlash(rel))
	entries, err := os.ReadDir(dir)
	if err != nil {
		yield(nil, fmt.Errorf("read dir '%s': %w", dir, err))
		return false
	}

	for _, entry := range entries {
		name := entry.Name()
		if IsBuiltinExcluded(name) {
			continue
		}
		childRel := path.Join(rel, name)

		if entry.IsDir() {
			if opts.Ignore.IgnoredDir(childRel) {
				slog.Debug("Ignoring asset directory", "path", childRel)
				continue
			}
			if !walkDir(root, childRel, opts, yield) {
				return false
			}
			continue
		}

		if !entry.Type().IsRegular() {
			continue
		}
		if opts.Ignore.Ignored(childRel) {
			slog.Debug("Ignoring asset", "path", childRel)
			continue
		}
		if !opts.Include.Included(childRel) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			yield(nil, fmt.Errorf("stat '%s': %w", childRel, err))
			return false
		}

		asset := &Asset{
			RelPath: childRel,
			AbsPath: filepath.Join(dir, name),
			Size:    info.Size(),
		}
		if !yield(asset, nil) {
			return false
		}
	}
	return true
}
