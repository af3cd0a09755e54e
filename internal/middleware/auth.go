package middleware

import (
	"errors"
	"net/http"

	"github.com/SeakMengs/OceanSeal/internal/auth"
	"github.com/SeakMengs/OceanSeal/internal/constant"
	"github.com/SeakMengs/OceanSeal/internal/util"
	"github.com/gin-gonic/gin"
)

func (m Middleware) AuthMiddleware(ctx *gin.Context) {
	// Development bypass, handlers fall back to client supplied user ids.
	if m.app.Config.SkipAuth() {
		ctx.Next()
		return
	}

	token, err := util.ReadBearerToken(ctx)
	if err != nil {
		m.app.Logger.Debugf("Failed to read token: %v", err)
		util.ResponseFailed(ctx, http.StatusUnauthorized, "Authorization header required", util.GenerateErrorMessages(err, "unauthorized"), nil)
		return
	}

	identity, err := m.app.IdentityVerifier.VerifyIdentityToken(token)
	if err != nil {
		m.app.Logger.Debugf("Failed to verify token: %v", err)
		message := "Invalid token"
		if errors.Is(err, auth.ErrTokenExpired) {
			message = "Token expired"
		}
		util.ResponseFailed(ctx, http.StatusUnauthorized, message, util.GenerateErrorMessages(err, "unauthorized"), nil)
		return
	}

	ctx.Set(constant.CTX_IDENTITY_KEY, identity)
	ctx.Next()
}
