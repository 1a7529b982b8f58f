package blob

import (
	"os"
	"path/filepath"
)

func writeFile(root, name, body string) error {
	return os.WriteFile(filepath.Join(root, name), []byte(body), 0o644)
}
