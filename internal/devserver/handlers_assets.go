package devserver

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/cloudflare/workers-sdk-sub005/internal/assets"
	"github.com/cloudflare/workers-sdk-sub005/internal/cfapi"
	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
)

type assetsHandler struct {
	store      *Store
	tokens     *tokenIssuerSvc
	bucketSize int
}

type sessionRequest struct {
	Manifest map[string]assets.ManifestRecord `json:"manifest" binding:"required"`
}

// uniqueHashes returns the manifest hashes in path order without repeats, and the
// size recorded for each
func uniqueHashes(manifest map[string]assets.ManifestRecord) ([]string, map[string]int64, error) {
	paths := make([]string, 0, len(manifest))
	for p := range manifest {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	sizes := make(map[string]int64, len(paths))
	hashes := make([]string, 0, len(paths))
	for _, p := range paths {
		if !strings.HasPrefix(p, "/") {
			return nil, nil, fmt.Errorf("manifest path %q must start with /", p)
		}
		record := manifest[p]
		if record.Hash == "" {
			return nil, nil, fmt.Errorf("manifest path %q has no hash", p)
		}
		if record.Size < 0 {
			return nil, nil, fmt.Errorf("manifest path %q has a negative size", p)
		}
		if _, ok := sizes[record.Hash]; ok {
			continue
		}
		sizes[record.Hash] = record.Size
		hashes = append(hashes, record.Hash)
	}
	return hashes, sizes, nil
}

// bucketHashes groups missing hashes so every bucket fits one upload request,
// at most maxItems hashes each
func bucketHashes(missing []string, sizes map[string]int64, maxItems int) [][]string {
	items := make([]*assets.ManifestEntry, len(missing))
	for i, hash := range missing {
		items[i] = &assets.ManifestEntry{Hash: assets.Fingerprint(hash), Size: sizes[hash]}
	}

	limits := assets.DefaultLimits()
	limits.MaxBucketKeys = maxItems

	buckets := [][]string{}
	for _, b := range assets.Pack(items, limits) {
		hashes := make([]string, len(b.Items))
		for i, item := range b.Items {
			hashes[i] = item.Hash.String()
		}
		buckets = append(buckets, hashes)
	}
	return buckets
}

func (h *assetsHandler) CreateSession(ctx *gin.Context) {
	var req sessionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		abortWithError(ctx, http.StatusBadRequest, cfapi.CodeManifestInvalid, err)
		return
	}

	hashes, sizes, err := uniqueHashes(req.Manifest)
	if err != nil {
		abortWithError(ctx, http.StatusBadRequest, cfapi.CodeManifestInvalid, err)
		return
	}

	missing, err := h.store.MissingHashes(ctx, hashes)
	if err != nil {
		abortWithError(ctx, http.StatusInternalServerError, cfapi.CodeInternalError, err)
		return
	}

	manifest, err := json.Marshal(req.Manifest)
	if err != nil {
		abortWithError(ctx, http.StatusInternalServerError, cfapi.CodeInternalError, err)
		return
	}

	script := ctx.Param("script_name")
	sessionID, err := h.store.CreateSession(ctx, script, string(manifest), missing)
	if err != nil {
		abortWithError(ctx, http.StatusInternalServerError, cfapi.CodeInternalError, err)
		return
	}

	// nothing to upload: the session token already completes the upload
	tokenType := SessionToken
	if len(missing) == 0 {
		tokenType = CompletionToken
	}
	token, err := h.tokens.Issue(tokenType, sessionID, script)
	if err != nil {
		abortWithError(ctx, http.StatusInternalServerError, cfapi.CodeInternalError, err)
		return
	}

	buckets := bucketHashes(missing, sizes, h.bucketSize)

	slog.Debug("assets upload session", "script", script, "session", sessionID, "assets", len(req.Manifest), "missing", len(missing), "buckets", len(buckets))
	respond(ctx, &cfapi.UploadSession{JWT: token, Buckets: buckets})
}

func (h *assetsHandler) Upload(ctx *gin.Context) {
	claims := ctx.MustGet(claimsKey).(*Claims)
	base64Encoded := ctx.Query("base64") == "true"

	form, err := ctx.MultipartForm()
	if err != nil {
		abortWithError(ctx, http.StatusBadRequest, cfapi.CodeInvalidRequest, err)
		return
	}
	if len(form.File) == 0 {
		abortWithError(ctx, http.StatusBadRequest, cfapi.CodeInvalidRequest, errors.New("no files in upload"))
		return
	}

	rows := make([]assetRow, 0, len(form.File))
	for hash, headers := range form.File {
		pending, err := h.store.IsPending(ctx, claims.Subject, hash)
		if err != nil {
			abortWithError(ctx, http.StatusInternalServerError, cfapi.CodeInternalError, err)
			return
		}
		if !pending {
			abortWithError(ctx, http.StatusBadRequest, cfapi.CodeInvalidRequest, fmt.Errorf("hash %s was not requested by this session", hash))
			return
		}

		fh := headers[0]
		f, err := fh.Open()
		if err != nil {
			abortWithError(ctx, http.StatusBadRequest, cfapi.CodeInvalidRequest, err)
			return
		}
		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			abortWithError(ctx, http.StatusBadRequest, cfapi.CodeInvalidRequest, err)
			return
		}

		if base64Encoded {
			content, err = assets.DecodeContent(string(content))
			if err != nil {
				abortWithError(ctx, http.StatusBadRequest, cfapi.CodeInvalidRequest, fmt.Errorf("hash %s: %w", hash, err))
				return
			}
		}

		rows = append(rows, assetRow{Hash: hash, Content: content, ContentType: fh.Header.Get("Content-Type")})
	}

	remaining, err := h.store.StoreAssets(ctx, claims.Subject, rows)
	if err != nil {
		abortWithError(ctx, http.StatusInternalServerError, cfapi.CodeInternalError, err)
		return
	}

	if remaining > 0 {
		respond(ctx, &cfapi.UploadResponse{})
		return
	}

	token, err := h.tokens.Issue(CompletionToken, claims.Subject, claims.Script)
	if err != nil {
		abortWithError(ctx, http.StatusInternalServerError, cfapi.CodeInternalError, err)
		return
	}
	respond(ctx, &cfapi.UploadResponse{JWT: token})
}
