package devserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/cloudflare/workers-sdk-sub005/internal/cfapi"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
	slogGin "github.com/samber/slog-gin"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

const (
	bearerPrefix = "Bearer "
	authHeader   = "Authorization"
	claimsKey    = "claims"
)

var (
	errMissingAuth  = errors.New("authorization header is missing")
	errBadAuth      = errors.New("authorization header format must be Bearer {token}")
	errBadAPIToken  = errors.New("invalid api token")
	errWrongAccount = errors.New("unknown account")
)

func httpLogger() gin.HandlerFunc {
	logger := slog.Default().WithGroup("http")

	return slogGin.NewWithConfig(logger, slogGin.Config{
		DefaultLevel:     slog.LevelDebug,
		ClientErrorLevel: slog.LevelWarn,
		ServerErrorLevel: slog.LevelError,
		WithRequestID:    true,
	})
}

func compression() gin.HandlerFunc {
	return gzip.Gzip(gzip.BestSpeed, gzip.WithExcludedPaths([]string{"/healthz"}))
}

// corsPolicy lets browser tooling on other local ports call the api
func corsPolicy() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowHeaders:    []string{"Authorization", "Content-Type", "Content-Encoding"},
		AllowMethods:    []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		ExposeHeaders:   []string{"X-Request-Id"},
	})
}

// assetHeaders mirrors the headers served assets get at the edge. No https
// redirect or HSTS, the devserver only listens on plain http
func assetHeaders() gin.HandlerFunc {
	return secure.New(secure.Config{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	})
}

func rateLimiter(formattedRate string) (gin.HandlerFunc, error) {
	rate, err := limiter.NewRateFromFormatted(formattedRate)
	if err != nil {
		return nil, err
	}

	lim := limiter.New(memory.NewStore(), rate)
	return mgin.NewMiddleware(
		lim,
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			abortWithError(c, http.StatusTooManyRequests, cfapi.CodeRateLimited, errors.New("rate limit exceeded"))
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			abortWithError(c, http.StatusInternalServerError, cfapi.CodeInternalError, err)
		}),
	), nil
}

func bearerToken(ctx *gin.Context) (string, error) {
	value := ctx.GetHeader(authHeader)
	if value == "" {
		return "", errMissingAuth
	}
	if !strings.HasPrefix(value, bearerPrefix) {
		return "", errBadAuth
	}
	token := strings.TrimPrefix(value, bearerPrefix)
	if token == "" {
		return "", errMissingAuth
	}
	return token, nil
}

// apiTokenAuth guards the account routes. An empty token disables the check
func apiTokenAuth(apiToken, accountID string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if accountID != "" && ctx.Param("account_id") != accountID {
			abortWithError(ctx, http.StatusNotFound, cfapi.CodeNotFound, errWrongAccount)
			return
		}
		if apiToken == "" {
			ctx.Next()
			return
		}

		token, err := bearerToken(ctx)
		if err != nil {
			abortWithError(ctx, http.StatusUnauthorized, cfapi.CodeAuthentication, err)
			return
		}
		if token != apiToken {
			abortWithError(ctx, http.StatusUnauthorized, cfapi.CodeAuthentication, errBadAPIToken)
			return
		}
		ctx.Next()
	}
}

// uploadTokenAuth accepts a session token in place of the api token
func uploadTokenAuth(tokens *tokenIssuerSvc) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token, err := bearerToken(ctx)
		if err != nil {
			abortWithError(ctx, http.StatusUnauthorized, cfapi.CodeAuthentication, err)
			return
		}

		claims, err := tokens.Verify(token, SessionToken)
		if err != nil {
			abortWithError(ctx, http.StatusUnauthorized, cfapi.CodeUploadTokenInvalid, err)
			return
		}

		ctx.Set(claimsKey, claims)
		ctx.Next()
	}
}
