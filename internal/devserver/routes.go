package devserver

import (
	"errors"
	"net/http"

	"github.com/cloudflare/workers-sdk-sub005/internal/cfapi"
	"github.com/cloudflare/workers-sdk-sub005/internal/version"
	"github.com/gin-gonic/gin"
)

// APIPrefix is the path the client base url points at
const APIPrefix = "/client/v4"

func setupRoutes(cfg *Config, store *Store, tokens *tokenIssuerSvc) (http.Handler, error) {
	r := gin.New()
	r.MaxMultipartMemory = 32 << 20 // 32 MiB

	limit, err := rateLimiter(cfg.RateLimit)
	if err != nil {
		return nil, err
	}

	kvH := &kvHandler{store: store, maxBulkKeys: cfg.MaxBulkKeys}
	assetsH := &assetsHandler{store: store, tokens: tokens, bucketSize: cfg.BucketSize}
	scriptsH, err := newScriptsHandler(store, tokens, cfg.AssetCache)
	if err != nil {
		return nil, err
	}

	r.Use(httpLogger())
	r.Use(gin.Recovery())
	r.Use(compression())
	r.Use(corsPolicy())

	r.GET("/", IndexHandler)
	r.GET("/healthz", HealthHandler)
	r.GET("/serve/:script_name/*filepath", assetHeaders(), scriptsH.ServeAsset)

	v4 := r.Group(APIPrefix)
	v4.Use(limit)

	// upload tokens replace the api token here
	v4.POST("/accounts/:account_id/workers/assets/upload", uploadTokenAuth(tokens), assetsH.Upload)

	account := v4.Group("/accounts/:account_id")
	account.Use(apiTokenAuth(cfg.APIToken, cfg.AccountID))
	{
		// kv
		account.GET("/storage/kv/namespaces", kvH.ListNamespaces)
		account.POST("/storage/kv/namespaces", kvH.CreateNamespace)
		account.GET("/storage/kv/namespaces/:namespace_id/keys", kvH.ListKeys)
		account.GET("/storage/kv/namespaces/:namespace_id/values/:key_name", kvH.GetValue)
		account.PUT("/storage/kv/namespaces/:namespace_id/bulk", kvH.BulkPut)
		account.DELETE("/storage/kv/namespaces/:namespace_id/bulk", kvH.BulkDelete)

		// scripts
		account.PUT("/workers/scripts/:script_name", scriptsH.UploadVersion)
		account.POST("/workers/scripts/:script_name/assets-upload-session", assetsH.CreateSession)
	}

	r.NoRoute(func(c *gin.Context) {
		abortWithError(c, http.StatusNotFound, cfapi.CodeNotFound, errors.New("not found"))
	})

	r.NoMethod(func(c *gin.Context) {
		abortWithError(c, http.StatusMethodNotAllowed, cfapi.CodeInvalidRequest, errors.New("method not allowed"))
	})

	return r.Handler(), nil
}

func IndexHandler(ctx *gin.Context) {
	ctx.String(http.StatusOK, version.DetailedWithApp())
}

func HealthHandler(ctx *gin.Context) {
	ctx.PureJSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

func init() {
	gin.SetMode(gin.ReleaseMode)
}
