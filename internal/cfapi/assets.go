package cfapi

import (
	"context"
	"net/http"

	"github.com/cloudflare/workers-sdk-sub005/internal/assets"
	"github.com/imroc/req/v3"
)

const (
	v4AssetsUploadSession = "/accounts/{account_id}/workers/scripts/{script_name}/assets-upload-session"
	v4AssetsUpload        = "/accounts/{account_id}/workers/assets/upload"
)

type AssetsAPI struct {
	client *req.Client
}

func newAssetsAPI(client *req.Client) *AssetsAPI {
	return &AssetsAPI{
		client: client,
	}
}

// CreateUploadSession submits the manifest and returns the buckets to upload
func (a *AssetsAPI) CreateUploadSession(ctx context.Context, scriptName string, manifest []byte) (*UploadSession, error) {
	env, err := send[UploadSession](a.client.R().
		SetContext(ctx).
		SetPathParam("script_name", scriptName).
		SetBody(&UploadSessionRequest{Manifest: manifest}),
		http.MethodPost, v4AssetsUploadSession, "assets upload session")
	if err != nil {
		return nil, err
	}
	return &env.Result, nil
}

// Upload sends one bucket as a multipart form. Each part is named by its hash and
// carries the base64 content. The session token replaces the account token
func (a *AssetsAPI) Upload(ctx context.Context, token string, files []AssetFile) (*UploadResponse, error) {
	if token == "" {
		return nil, ErrNoUploadToken
	}

	uploads := make([]req.FileUpload, len(files))
	for i, f := range files {
		encoded := []byte(assets.EncodeContent(f.Content))
		uploads[i] = bytesPart(f.Hash, f.Hash, encoded, f.ContentType)
	}

	env, err := send[UploadResponse](a.client.R().
		SetContext(ctx).
		SetRetryCount(0).
		SetBearerAuthToken(token).
		SetQueryParam("base64", "true").
		SetFileUpload(uploads...),
		http.MethodPost, v4AssetsUpload, "assets upload")
	if err != nil {
		return nil, err
	}
	return &env.Result, nil
}
