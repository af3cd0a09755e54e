package service

import (
	"time"

	"github.com/SeakMengs/OceanSeal/internal/model"
	"github.com/SeakMengs/OceanSeal/pkg/oceanseal"
)

// CertificateView is the public representation of a certificate.
type CertificateView struct {
	CertID       string               `json:"cert_id"`
	ShortID      string               `json:"short_id"`
	ImageHash    string               `json:"image_hash"`
	ImageURL     string               `json:"image_url,omitempty"`
	ThumbnailURL string               `json:"thumbnail_url,omitempty"`
	CertType     oceanseal.CertType   `json:"cert_type"`
	UserID       string               `json:"user_id"`
	TxHash       string               `json:"tx_hash"`
	BlockNumber  uint64               `json:"block_number"`
	OnChain      bool                 `json:"on_chain"`
	ExplorerURL  string               `json:"explorer_url,omitempty"`
	Status       oceanseal.CertStatus `json:"status"`
	CreatedAt    time.Time            `json:"created_at"`
	VerifyURL    string               `json:"verify_url"`
}

func (s *CertificateService) toView(c *model.Certificate) *CertificateView {
	view := &CertificateView{
		CertID:       c.CertID,
		ShortID:      oceanseal.ShortID(c.CertID),
		ImageHash:    c.ImageHash,
		ImageURL:     c.ImageURL,
		ThumbnailURL: c.ThumbnailURL,
		CertType:     c.CertType,
		UserID:       c.UserID,
		TxHash:       c.TxHash,
		BlockNumber:  c.BlockNumber,
		Status:       c.Status,
		CreatedAt:    c.CreatedTime(),
		VerifyURL:    s.VerifyURL(c.CertID),
	}

	if anchor, ok := c.Anchor().(oceanseal.OnChain); ok {
		view.OnChain = true
		view.ExplorerURL = s.ledger.ExplorerURL(anchor.TxHash)
	}

	return view
}

func (s *CertificateService) VerifyURL(certID string) string {
	return oceanseal.VerifyURL(s.verifyBaseURL, certID)
}
