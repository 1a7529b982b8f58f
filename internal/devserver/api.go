package devserver

import (
	"net/http"

	"github.com/cloudflare/workers-sdk-sub005/internal/cfapi"
	"github.com/gin-gonic/gin"
)

var emptyInfo = []cfapi.ResponseInfo{}

func respond(ctx *gin.Context, result any) {
	ctx.PureJSON(http.StatusOK, cfapi.Envelope[any]{
		Success:  true,
		Errors:   emptyInfo,
		Messages: emptyInfo,
		Result:   result,
	})
}

func respondPage(ctx *gin.Context, result any, info *cfapi.ResultInfo) {
	ctx.PureJSON(http.StatusOK, cfapi.Envelope[any]{
		Success:    true,
		Errors:     emptyInfo,
		Messages:   emptyInfo,
		Result:     result,
		ResultInfo: info,
	})
}

func abortWithError(ctx *gin.Context, status, code int, err error) {
	ctx.Abort()
	ctx.Error(err)
	ctx.PureJSON(status, cfapi.Envelope[any]{
		Success:  false,
		Errors:   []cfapi.ResponseInfo{{Code: code, Message: err.Error()}},
		Messages: emptyInfo,
	})
}
