package controller

import (
	"net/http"
	"time"

	"github.com/SeakMengs/OceanSeal/internal/util"
	"github.com/gin-gonic/gin"
)

type IndexController struct {
	*baseController
}

func (ic IndexController) Index(ctx *gin.Context) {
	util.ResponseSuccess(ctx, gin.H{
		"message": "Welcome to the " + util.GetAppName() + " api",
	})
}

func (ic IndexController) Health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"service":        util.GetAppName(),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"ledger":         ic.app.Ledger.IsConfigured(ctx.Request.Context()),
		"events":         ic.app.Queue != nil,
		"object_storage": ic.app.S3 != nil,
	})
}
