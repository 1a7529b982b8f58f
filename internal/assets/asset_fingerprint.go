package assets

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"math"
	"os"
	"path"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/zeebo/blake3"
)

// shortLen is the fingerprint prefix embedded in legacy upload keys
const shortLen = 10

// fullBytes is the digest length kept for the full (128-bit) rendering
const fullBytes = 16

// Fingerprint is a content hash rendered as lowercase hex
type Fingerprint string

// Short returns the fixed-length prefix used in upload keys
func (f Fingerprint) Short() string {
	if len(f) <= shortLen {
		return string(f)
	}
	return string(f[:shortLen])
}

func (f Fingerprint) String() string { return string(f) }

// HashAlgorithm selects the content digest
type HashAlgorithm string

const (
	HashBLAKE3 HashAlgorithm = "blake3"
	HashXXH64  HashAlgorithm = "xxh64"
)

// ParseHashAlgorithm maps a config value to an algorithm. Empty means BLAKE3
func ParseHashAlgorithm(s string) (HashAlgorithm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(HashBLAKE3):
		return HashBLAKE3, nil
	case string(HashXXH64), "xxhash":
		return HashXXH64, nil
	}
	return "", fmt.Errorf("unknown hash algorithm %q", s)
}

func (a HashAlgorithm) newHash() hash.Hash {
	if a == HashXXH64 {
		return xxhash.New()
	}
	return blake3.New()
}

func (a HashAlgorithm) render(sum []byte) Fingerprint {
	if a == HashXXH64 {
		return Fingerprint(hex.EncodeToString(sum))
	}
	return Fingerprint(hex.EncodeToString(sum[:fullBytes]))
}

// FingerprintBytes hashes content in memory
func FingerprintBytes(alg HashAlgorithm, content []byte) Fingerprint {
	if alg == HashXXH64 {
		return Fingerprint(fmt.Sprintf("%016x", xxhash.Sum64(content)))
	}
	sum := blake3.Sum256(content)
	return alg.render(sum[:])
}

// FingerprintReader streams r through the digest
func FingerprintReader(alg HashAlgorithm, r io.Reader) (Fingerprint, int64, error) {
	h := alg.newHash()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", n, err
	}
	return alg.render(h.Sum(nil)), n, nil
}

// FingerprintFile hashes the file at filePath and returns its size
func FingerprintFile(alg HashAlgorithm, filePath string) (Fingerprint, int64, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", 0, fmt.Errorf("open '%s': %w", filePath, err)
	}
	defer file.Close()

	fp, n, err := FingerprintReader(alg, file)
	if err != nil {
		return "", n, fmt.Errorf("hash '%s': %w", filePath, err)
	}
	return fp, n, nil
}

// UploadKey embeds the short fingerprint before the final extension of relPath,
// e.g. "css/site.css" -> "css/site.0a1b2c3d4e.css"
func UploadKey(relPath string, fp Fingerprint) string {
	dir, base := path.Split(relPath)
	ext := path.Ext(base)
	if ext == base {
		// dot-files have no extension
		ext = ""
	}
	name := strings.TrimSuffix(base, ext)
	return dir + name + "." + fp.Short() + ext
}

// EncodeContent is the payload encoding used by the upload wire formats
func EncodeContent(content []byte) string {
	return base64.StdEncoding.EncodeToString(content)
}

// DecodeContent reverses EncodeContent
func DecodeContent(encoded string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(encoded)
}

// EncodedLen estimates the wire size of n raw bytes
func EncodedLen(n int64, inflation float64) int64 {
	if inflation < 1 {
		inflation = 1
	}
	return int64(math.Ceil(float64(n) * inflation))
}
