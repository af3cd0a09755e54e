package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/SeakMengs/OceanSeal/internal/util"
	"github.com/gin-gonic/gin"
)

// Recovery turns a panic into a 500 envelope carrying the panic message. The stack stays in the log.
func (m Middleware) Recovery(ctx *gin.Context) {
	defer func() {
		if r := recover(); r != nil {
			m.app.Logger.Errorw("Recovered from panic", "error", r, "method", ctx.Request.Method, "path", ctx.Request.URL.Path, "stack", string(debug.Stack()))
			util.ResponseFailed(ctx, http.StatusInternalServerError, "Internal server error", util.GenerateErrorMessages(fmt.Errorf("%v", r), "internal"), nil)
		}
	}()

	ctx.Next()
}
