package cfapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/imroc/req/v3"
)

const (
	v4Script = "/accounts/{account_id}/workers/scripts/{script_name}"

	ContentTypeESModule = "application/javascript+module"
)

type ScriptsAPI struct {
	client *req.Client
}

func newScriptsAPI(client *req.Client) *ScriptsAPI {
	return &ScriptsAPI{
		client: client,
	}
}

// UploadVersion publishes a new version of the script
func (s *ScriptsAPI) UploadVersion(ctx context.Context, scriptName string, metadata *ScriptMetadata, modules []Module) (*ScriptVersion, error) {
	meta, err := encodeJSON(metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}

	uploads := []req.FileUpload{bytesPart("metadata", "blob", meta, "application/json")}
	for _, m := range modules {
		contentType := m.ContentType
		if contentType == "" {
			contentType = ContentTypeESModule
		}
		uploads = append(uploads, bytesPart(m.Name, m.Name, m.Content, contentType))
	}

	env, err := send[ScriptVersion](s.client.R().
		SetContext(ctx).
		SetRetryCount(0).
		SetPathParam("script_name", scriptName).
		SetFileUpload(uploads...),
		http.MethodPut, v4Script, "script upload")
	if err != nil {
		return nil, err
	}
	return &env.Result, nil
}

func bytesPart(param, filename string, content []byte, contentType string) req.FileUpload {
	return req.FileUpload{
		ParamName: param,
		FileName:  filename,
		GetFileContent: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(content)), nil
		},
		FileSize:    int64(len(content)),
		ContentType: contentType,
	}
}
