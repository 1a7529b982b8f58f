package cfapi

import (
	"github.com/goccy/go-json"
)

// UploadSessionRequest submits the asset manifest
type UploadSessionRequest struct {
	Manifest json.RawMessage `json:"manifest"`
}

// UploadSession lists the hashes the service is missing, grouped into buckets
type UploadSession struct {
	JWT     string     `json:"jwt"`
	Buckets [][]string `json:"buckets"`
}

// UploadResponse carries the completion token with the last bucket
type UploadResponse struct {
	JWT string `json:"jwt,omitempty"`
}

// AssetFile is one part of a bucket upload
type AssetFile struct {
	Hash        string
	Content     []byte
	ContentType string
}
