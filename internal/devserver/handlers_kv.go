package devserver

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/cloudflare/workers-sdk-sub005/internal/assets"
	"github.com/cloudflare/workers-sdk-sub005/internal/cfapi"
	"github.com/gin-gonic/gin"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
	maxKeysLimit   = 1000
)

type kvHandler struct {
	store       *Store
	maxBulkKeys int
}

func queryInt(ctx *gin.Context, name string, def, max int) int {
	v, err := strconv.Atoi(ctx.Query(name))
	if err != nil || v <= 0 {
		return def
	}
	return min(v, max)
}

func (h *kvHandler) storeError(ctx *gin.Context, err error) {
	if errors.Is(err, ErrNamespaceNotFound) {
		abortWithError(ctx, http.StatusNotFound, cfapi.CodeNamespaceNotFound, err)
		return
	}
	abortWithError(ctx, http.StatusInternalServerError, cfapi.CodeInternalError, err)
}

func (h *kvHandler) ListNamespaces(ctx *gin.Context) {
	page := queryInt(ctx, "page", 1, 1<<20)
	perPage := queryInt(ctx, "per_page", defaultPerPage, maxPerPage)

	namespaces, err := h.store.ListNamespaces(ctx, (page-1)*perPage, perPage)
	if err != nil {
		h.storeError(ctx, err)
		return
	}
	if namespaces == nil {
		namespaces = []cfapi.Namespace{}
	}

	respondPage(ctx, namespaces, &cfapi.ResultInfo{Page: page, PerPage: perPage, Count: len(namespaces)})
}

func (h *kvHandler) CreateNamespace(ctx *gin.Context) {
	var req struct {
		Title string `json:"title" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		abortWithError(ctx, http.StatusBadRequest, cfapi.CodeInvalidRequest, err)
		return
	}

	ns, err := h.store.CreateNamespace(ctx, req.Title)
	if errors.Is(err, ErrNamespaceExists) {
		abortWithError(ctx, http.StatusConflict, cfapi.CodeInvalidRequest, err)
		return
	} else if err != nil {
		h.storeError(ctx, err)
		return
	}

	respond(ctx, ns)
}

func (h *kvHandler) ListKeys(ctx *gin.Context) {
	limit := queryInt(ctx, "limit", maxKeysLimit, maxKeysLimit)

	keys, cursor, err := h.store.ListKeys(ctx, ctx.Param("namespace_id"), ctx.Query("prefix"), ctx.Query("cursor"), limit)
	if err != nil {
		h.storeError(ctx, err)
		return
	}

	infos := make([]cfapi.KeyInfo, len(keys))
	for i, k := range keys {
		infos[i] = cfapi.KeyInfo{Name: k}
	}
	respondPage(ctx, infos, &cfapi.ResultInfo{Count: len(infos), Cursor: cursor})
}

func (h *kvHandler) GetValue(ctx *gin.Context) {
	value, err := h.store.GetValue(ctx, ctx.Param("namespace_id"), ctx.Param("key_name"))
	if err != nil {
		h.storeError(ctx, err)
		return
	}
	if value == nil {
		abortWithError(ctx, http.StatusNotFound, cfapi.CodeNotFound, errors.New("key not found"))
		return
	}
	ctx.Data(http.StatusOK, "application/octet-stream", value)
}

func (h *kvHandler) BulkPut(ctx *gin.Context) {
	var items []cfapi.KeyValue
	if err := ctx.ShouldBindJSON(&items); err != nil {
		abortWithError(ctx, http.StatusBadRequest, cfapi.CodeInvalidRequest, err)
		return
	}
	if len(items) > h.maxBulkKeys {
		abortWithError(ctx, http.StatusRequestEntityTooLarge, cfapi.CodeBulkTooLarge,
			fmt.Errorf("bulk request has %d keys, limit is %d", len(items), h.maxBulkKeys))
		return
	}

	pairs := make([]kvPair, len(items))
	for i, item := range items {
		value := []byte(item.Value)
		if item.Base64 {
			decoded, err := assets.DecodeContent(item.Value)
			if err != nil {
				abortWithError(ctx, http.StatusBadRequest, cfapi.CodeInvalidRequest, fmt.Errorf("key %s: %w", item.Key, err))
				return
			}
			value = decoded
		}
		pairs[i] = kvPair{Key: item.Key, Value: value}
	}

	if err := h.store.PutValues(ctx, ctx.Param("namespace_id"), pairs); err != nil {
		h.storeError(ctx, err)
		return
	}
	respond(ctx, nil)
}

func (h *kvHandler) BulkDelete(ctx *gin.Context) {
	var keys []string
	if err := ctx.ShouldBindJSON(&keys); err != nil {
		abortWithError(ctx, http.StatusBadRequest, cfapi.CodeInvalidRequest, err)
		return
	}
	if len(keys) > h.maxBulkKeys {
		abortWithError(ctx, http.StatusRequestEntityTooLarge, cfapi.CodeBulkTooLarge,
			fmt.Errorf("bulk request has %d keys, limit is %d", len(keys), h.maxBulkKeys))
		return
	}

	if err := h.store.DeleteKeys(ctx, ctx.Param("namespace_id"), keys); err != nil {
		h.storeError(ctx, err)
		return
	}
	respond(ctx, nil)
}
