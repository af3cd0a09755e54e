package route

import (
	"github.com/SeakMengs/OceanSeal/internal/controller"
	"github.com/SeakMengs/OceanSeal/internal/middleware"
	"github.com/gin-gonic/gin"
)

func V1_Certificates(r *gin.RouterGroup, cc *controller.CertificateController, middleware *middleware.Middleware) {
	public := r.Group("/certificate")
	{
		public.GET("/verify/:cert_id", cc.Verify)
		public.POST("/verify-image", cc.VerifyImage)
		public.GET("/:cert_id", cc.GetCertificate)
		public.GET("/:cert_id/qrcode", cc.GetQRCode)
	}

	// Limited before authentication so rejected callers count against the window too
	public.POST("/issue", middleware.IssueRateLimiterMiddleware, middleware.AuthMiddleware, cc.Issue)

	protected := r.Group("/certificate")
	protected.Use(middleware.AuthMiddleware)
	{
		protected.GET("/user/:user_id", cc.GetUserCertificates)
		protected.DELETE("/:cert_id", cc.Revoke)
	}
}
