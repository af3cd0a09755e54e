package controller

import (
	appcontext "github.com/SeakMengs/OceanSeal/internal/app_context"
	"github.com/SeakMengs/OceanSeal/internal/auth"
	"github.com/SeakMengs/OceanSeal/internal/constant"
	"github.com/gin-gonic/gin"
)

type baseController struct {
	app *appcontext.Application
}

type Controller struct {
	Index       *IndexController
	Certificate *CertificateController
}

func newBaseController(app *appcontext.Application) *baseController {
	return &baseController{app: app}
}

func NewController(app *appcontext.Application) *Controller {
	bc := newBaseController(app)

	return &Controller{
		Index:       &IndexController{baseController: bc},
		Certificate: &CertificateController{baseController: bc},
	}
}

// getIdentity returns the caller set by the auth middleware. It is absent only when
// authentication is skipped in development.
func (b *baseController) getIdentity(ctx *gin.Context) (*auth.Identity, bool) {
	value, exists := ctx.Get(constant.CTX_IDENTITY_KEY)
	if !exists {
		return nil, false
	}

	identity, ok := value.(*auth.Identity)
	if !ok || identity == nil {
		return nil, false
	}

	return identity, true
}
