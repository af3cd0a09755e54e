package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SeakMengs/OceanSeal/internal/ledger"
	"github.com/SeakMengs/OceanSeal/internal/model"
	"github.com/SeakMengs/OceanSeal/pkg/oceanseal"
	"gorm.io/gorm"
)

type VerifyStatus string

const (
	VerifyStatusValid            VerifyStatus = "valid"
	VerifyStatusNotFound         VerifyStatus = "not_found"
	VerifyStatusRevoked          VerifyStatus = "revoked"
	VerifyStatusStoreUnavailable VerifyStatus = "store_unavailable"
)

type VerifyResult struct {
	IsValid     bool             `json:"is_valid"`
	Status      VerifyStatus     `json:"status"`
	Certificate *CertificateView `json:"certificate,omitempty"`
	// Advisory only, the store record decides IsValid.
	BlockchainVerified bool       `json:"blockchain_verified"`
	LedgerIssuedAt     *time.Time `json:"ledger_issued_at,omitempty"`
	LedgerError        string     `json:"ledger_error,omitempty"`
	Message            string     `json:"message"`
}

// Verify never fails: every outcome, including an unreachable store, is reported in the result.
func (s *CertificateService) Verify(ctx context.Context, certID string) *VerifyResult {
	certificate, err := s.Get(ctx, certID)
	if err != nil {
		return s.lookupFailure(err, "Certificate not found.")
	}

	return s.verifyCertificate(ctx, certificate)
}

// VerifyImage looks the certificate up by the image content hash. Only undecodable input is an error.
func (s *CertificateService) VerifyImage(ctx context.Context, imageBase64 string) (*VerifyResult, error) {
	imageHash, err := oceanseal.ComputeImageHashFromBase64(imageBase64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	certificate, err := s.store.GetByImageHash(ctx, nil, imageHash)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = ErrCertificateNotFound
		} else {
			err = fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return s.lookupFailure(err, "No certificate was issued for this image."), nil
	}

	return s.verifyCertificate(ctx, certificate), nil
}

func (s *CertificateService) lookupFailure(err error, notFoundMessage string) *VerifyResult {
	if errors.Is(err, ErrCertificateNotFound) {
		return &VerifyResult{Status: VerifyStatusNotFound, Message: notFoundMessage}
	}

	s.logger.Warnw("certificate store unavailable during verification", "error", err)
	return &VerifyResult{
		Status:  VerifyStatusStoreUnavailable,
		Message: "Certificate store is temporarily unavailable, please retry.",
	}
}

func (s *CertificateService) verifyCertificate(ctx context.Context, certificate *model.Certificate) *VerifyResult {
	view := s.toView(certificate)

	if certificate.IsRevoked() {
		return &VerifyResult{
			Status:      VerifyStatusRevoked,
			Certificate: view,
			Message:     "This certificate has been revoked.",
		}
	}

	result := &VerifyResult{
		IsValid:     true,
		Status:      VerifyStatusValid,
		Certificate: view,
		Message:     "Valid certificate (off-chain).",
	}

	switch certificate.Anchor().(type) {
	case oceanseal.OnChain:
		verified, err := s.ledger.Verify(ctx, certificate.CertID)
		if err != nil {
			result.LedgerError = err.Error()
			if !errors.Is(err, ledger.ErrNotFound) {
				s.logger.Warnw("ledger verification unavailable", "certId", certificate.CertID, "error", err)
			}
			result.Message = "Valid certificate, ledger record could not be confirmed."
			break
		}
		result.BlockchainVerified = true
		result.LedgerIssuedAt = &verified.IssuedAt
		result.Message = "Valid certificate."
	case oceanseal.OffChain:
	}

	return result
}
