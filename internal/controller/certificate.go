package controller

import (
	"errors"
	"net/http"

	"github.com/SeakMengs/OceanSeal/internal/service"
	"github.com/SeakMengs/OceanSeal/internal/util"
	"github.com/SeakMengs/OceanSeal/pkg/oceanseal"
	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
)

const (
	ErrUserIdRequired       = "user id is required"
	ErrCertificateForbidden = "you can only access your own certificates"
	QRCodeSize              = 256
)

type CertificateController struct {
	*baseController
}

func (cc CertificateController) Issue(ctx *gin.Context) {
	type Request struct {
		ImageBase64 string `json:"image_base64" binding:"required,strNotEmpty"`
		CertType    string `json:"cert_type" binding:"required,certType"`
		UserID      string `json:"user_id"`
		ImageURL    string `json:"image_url" binding:"omitempty,url"`
	}
	var body Request

	if err := ctx.ShouldBindJSON(&body); err != nil {
		cc.app.Logger.Debugf("Invalid issue request: %v", err)
		util.ResponseFailed(ctx, http.StatusBadRequest, "Invalid request", util.GenerateErrorMessages(err), nil)
		return
	}

	// The verified identity always wins over the body
	userID, email := body.UserID, ""
	if identity, ok := cc.getIdentity(ctx); ok {
		userID, email = identity.ID, identity.Email
	}

	if userID == "" {
		util.ResponseFailed(ctx, http.StatusBadRequest, "Invalid request", util.GenerateErrorMessages(errors.New(ErrUserIdRequired), "user_id"), nil)
		return
	}

	result, err := cc.app.CertificateService.Issue(ctx.Request.Context(), service.IssueRequest{
		ImageBase64: body.ImageBase64,
		CertType:    oceanseal.CertType(body.CertType),
		UserID:      userID,
		ImageURL:    body.ImageURL,
		Email:       email,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidImage) || errors.Is(err, service.ErrInvalidCertType) {
			util.ResponseFailed(ctx, http.StatusBadRequest, "Invalid request", util.GenerateErrorMessages(err, "image_base64"), nil)
			return
		}
		cc.app.Logger.Errorf("Failed to issue certificate: %v", err)
		util.ResponseFailed(ctx, http.StatusInternalServerError, "Failed to issue certificate", util.GenerateErrorMessages(err), nil)
		return
	}

	util.ResponseSuccess(ctx, result)
}

func (cc CertificateController) GetCertificate(ctx *gin.Context) {
	view, err := cc.app.CertificateService.GetView(ctx.Request.Context(), ctx.Param("cert_id"))
	if err != nil {
		cc.responseLookupFailed(ctx, err)
		return
	}

	util.ResponseSuccess(ctx, view)
}

// GetQRCode renders the public verify link of the certificate as a PNG.
func (cc CertificateController) GetQRCode(ctx *gin.Context) {
	view, err := cc.app.CertificateService.GetView(ctx.Request.Context(), ctx.Param("cert_id"))
	if err != nil {
		cc.responseLookupFailed(ctx, err)
		return
	}

	png, err := qrcode.Encode(view.VerifyURL, qrcode.Medium, QRCodeSize)
	if err != nil {
		cc.app.Logger.Errorf("Failed to encode qr code for %s: %v", view.CertID, err)
		util.ResponseFailed(ctx, http.StatusInternalServerError, "Failed to generate qr code", util.GenerateErrorMessages(err), nil)
		return
	}

	ctx.Header("Cache-Control", "public, max-age=86400")
	ctx.Data(http.StatusOK, "image/png", png)
}

// Verify is public and always answers 200, the outcome is in the payload.
func (cc CertificateController) Verify(ctx *gin.Context) {
	util.ResponseSuccess(ctx, cc.app.CertificateService.Verify(ctx.Request.Context(), ctx.Param("cert_id")))
}

func (cc CertificateController) VerifyImage(ctx *gin.Context) {
	type Request struct {
		ImageBase64 string `json:"image_base64" binding:"required,strNotEmpty"`
	}
	var body Request

	if err := ctx.ShouldBindJSON(&body); err != nil {
		util.ResponseFailed(ctx, http.StatusBadRequest, "Invalid request", util.GenerateErrorMessages(err), nil)
		return
	}

	result, err := cc.app.CertificateService.VerifyImage(ctx.Request.Context(), body.ImageBase64)
	if err != nil {
		util.ResponseFailed(ctx, http.StatusBadRequest, "Invalid image", util.GenerateErrorMessages(err, "image_base64"), nil)
		return
	}

	util.ResponseSuccess(ctx, result)
}

func (cc CertificateController) GetUserCertificates(ctx *gin.Context) {
	userID := ctx.Param("user_id")

	if identity, ok := cc.getIdentity(ctx); ok && identity.ID != userID {
		util.ResponseFailed(ctx, http.StatusForbidden, "Access denied", util.GenerateErrorMessages(errors.New(ErrCertificateForbidden), "forbidden"), nil)
		return
	}

	certificates, err := cc.app.CertificateService.ListByUser(ctx.Request.Context(), userID)
	if err != nil {
		cc.app.Logger.Errorf("Failed to list certificates of user %s: %v", userID, err)
		util.ResponseFailed(ctx, http.StatusServiceUnavailable, "Certificate store unavailable", util.GenerateErrorMessages(err), nil)
		return
	}

	util.ResponseSuccess(ctx, certificates)
}

func (cc CertificateController) Revoke(ctx *gin.Context) {
	ownerID := ""
	if identity, ok := cc.getIdentity(ctx); ok {
		ownerID = identity.ID
	}

	certificate, err := cc.app.CertificateService.Revoke(ctx.Request.Context(), ctx.Param("cert_id"), ownerID)
	if err != nil {
		if errors.Is(err, service.ErrForbidden) {
			util.ResponseFailed(ctx, http.StatusForbidden, "Access denied", util.GenerateErrorMessages(errors.New(ErrCertificateForbidden), "forbidden"), nil)
			return
		}
		cc.responseLookupFailed(ctx, err)
		return
	}

	util.ResponseSuccess(ctx, gin.H{
		"success": true,
		"message": "Certificate revoked",
		"cert_id": certificate.CertID,
		"status":  certificate.Status,
	})
}

func (cc CertificateController) responseLookupFailed(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCertificateNotFound):
		util.ResponseFailed(ctx, http.StatusNotFound, "Certificate not found", util.GenerateErrorMessages(err, "cert_id"), nil)
	case errors.Is(err, service.ErrStoreUnavailable):
		cc.app.Logger.Errorf("Certificate store unavailable: %v", err)
		util.ResponseFailed(ctx, http.StatusServiceUnavailable, "Certificate store unavailable", util.GenerateErrorMessages(err), nil)
	default:
		cc.app.Logger.Errorf("Unexpected certificate error: %v", err)
		util.ResponseFailed(ctx, http.StatusInternalServerError, "Internal server error", util.GenerateErrorMessages(err), nil)
	}
}
