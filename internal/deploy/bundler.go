package deploy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileBundler uploads the entry module as it is on disk
type FileBundler struct{}

func (FileBundler) Bundle(_ context.Context, entry string) (*Bundle, error) {
	content, err := os.ReadFile(entry)
	if err != nil {
		return nil, fmt.Errorf("read entry: %w", err)
	}

	name := filepath.Base(entry)
	return &Bundle{
		MainModule: name,
		Modules:    []Module{{Name: name, Content: content}},
	}, nil
}
