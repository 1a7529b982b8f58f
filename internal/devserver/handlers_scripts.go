package devserver

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"time"

	"github.com/cloudflare/workers-sdk-sub005/internal/assets"
	"github.com/cloudflare/workers-sdk-sub005/internal/cfapi"
	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

type scriptsHandler struct {
	store  *Store
	tokens *tokenIssuerSvc
	// assets are content addressed, a cached hash never goes stale
	cache *lru.Cache[string, *assetRow]
}

func newScriptsHandler(store *Store, tokens *tokenIssuerSvc, cacheSize int) (*scriptsHandler, error) {
	cache, err := lru.New[string, *assetRow](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("asset cache: %w", err)
	}
	return &scriptsHandler{store: store, tokens: tokens, cache: cache}, nil
}

func (h *scriptsHandler) asset(ctx *gin.Context, hash string) (*assetRow, error) {
	if row, ok := h.cache.Get(hash); ok {
		return row, nil
	}
	row, err := h.store.GetAsset(ctx, hash)
	if err != nil || row == nil {
		return nil, err
	}
	h.cache.Add(hash, row)
	return row, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (h *scriptsHandler) UploadVersion(ctx *gin.Context) {
	script := ctx.Param("script_name")

	form, err := ctx.MultipartForm()
	if err != nil {
		abortWithError(ctx, http.StatusBadRequest, cfapi.CodeInvalidRequest, err)
		return
	}

	metaParts := form.File["metadata"]
	if len(metaParts) == 0 {
		abortWithError(ctx, http.StatusBadRequest, cfapi.CodeInvalidRequest, errors.New("metadata part missing"))
		return
	}
	raw, err := readPart(metaParts[0])
	if err != nil {
		abortWithError(ctx, http.StatusBadRequest, cfapi.CodeInvalidRequest, err)
		return
	}

	var meta cfapi.ScriptMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		abortWithError(ctx, http.StatusBadRequest, cfapi.CodeInvalidRequest, fmt.Errorf("metadata: %w", err))
		return
	}
	if _, ok := form.File[meta.MainModule]; !ok {
		abortWithError(ctx, http.StatusBadRequest, cfapi.CodeInvalidRequest, fmt.Errorf("main module %q not uploaded", meta.MainModule))
		return
	}

	row := &scriptRow{Name: script, VersionID: uuid.NewString(), Metadata: string(raw)}

	if meta.Assets != nil {
		claims, err := h.tokens.Verify(meta.Assets.JWT, CompletionToken)
		if err != nil {
			abortWithError(ctx, http.StatusBadRequest, cfapi.CodeUploadTokenInvalid, err)
			return
		}
		if claims.Script != script {
			abortWithError(ctx, http.StatusBadRequest, cfapi.CodeUploadTokenInvalid, fmt.Errorf("token was issued for %s", claims.Script))
			return
		}
		_, manifest, err := h.store.SessionManifest(ctx, claims.Subject)
		if err != nil {
			abortWithError(ctx, http.StatusBadRequest, cfapi.CodeUploadTokenInvalid, err)
			return
		}
		row.Manifest = manifest
	} else if meta.KeepAssets {
		prev, err := h.store.GetScript(ctx, script)
		if err != nil {
			abortWithError(ctx, http.StatusInternalServerError, cfapi.CodeInternalError, err)
			return
		}
		if prev != nil {
			row.Manifest = prev.Manifest
		}
	}

	if err := h.store.PutScript(ctx, row); err != nil {
		abortWithError(ctx, http.StatusInternalServerError, cfapi.CodeInternalError, err)
		return
	}

	now := time.Now().UTC().Format(time.RFC3339)
	respond(ctx, &cfapi.ScriptVersion{
		ID:         row.VersionID,
		HasAssets:  row.Manifest != "",
		CreatedOn:  now,
		ModifiedOn: now,
	})
}

// ServeAsset serves a file of a deployed script the way the edge would
func (h *scriptsHandler) ServeAsset(ctx *gin.Context) {
	row, err := h.store.GetScript(ctx, ctx.Param("script_name"))
	if err != nil {
		ctx.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	if row == nil || row.Manifest == "" {
		ctx.AbortWithStatus(http.StatusNotFound)
		return
	}

	var manifest map[string]assets.ManifestRecord
	if err := json.Unmarshal([]byte(row.Manifest), &manifest); err != nil {
		ctx.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	p := path.Clean("/" + ctx.Param("filepath"))
	record, ok := manifest[p]
	if !ok {
		record, ok = manifest[path.Join(p, "index.html")]
	}
	if !ok {
		ctx.AbortWithStatus(http.StatusNotFound)
		return
	}

	asset, err := h.asset(ctx, record.Hash)
	if err != nil || asset == nil {
		ctx.AbortWithStatus(http.StatusNotFound)
		return
	}
	ctx.Data(http.StatusOK, asset.ContentType, asset.Content)
}
