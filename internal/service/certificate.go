package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	filestorage "github.com/SeakMengs/OceanSeal/internal/file_storage"
	"github.com/SeakMengs/OceanSeal/internal/ledger"
	"github.com/SeakMengs/OceanSeal/internal/model"
	"github.com/SeakMengs/OceanSeal/internal/queue"
	"github.com/SeakMengs/OceanSeal/pkg/oceanseal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrCertificateNotFound = errors.New("certificate not found")
	ErrStoreUnavailable    = errors.New("certificate store unavailable")
	ErrInvalidImage        = errors.New("invalid image")
	ErrInvalidCertType     = errors.New("invalid certificate type")
	ErrForbidden           = errors.New("certificate belongs to another user")
)

// CertificateStore is satisfied by repository.CertificateRepository.
type CertificateStore interface {
	InsertIfAbsent(ctx context.Context, tx *gorm.DB, c *model.Certificate) (*model.Certificate, bool, error)
	GetByImageHash(ctx context.Context, tx *gorm.DB, imageHash string) (*model.Certificate, error)
	GetByCertId(ctx context.Context, tx *gorm.DB, certId string) (*model.Certificate, error)
	ListByUserId(ctx context.Context, tx *gorm.DB, userId string) ([]model.Certificate, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, certId string, status oceanseal.CertStatus) (int64, error)
}

// Ledger is satisfied by *ledger.Client.
type Ledger interface {
	Issue(ctx context.Context, imageHash string, certType oceanseal.CertType, hashedUserID string) (*ledger.IssueResult, error)
	Verify(ctx context.Context, ledgerID string) (*ledger.VerifyResult, error)
	ExplorerURL(txHash string) string
}

// ImageStore is satisfied by *filestorage.ImageStore.
type ImageStore interface {
	PutImage(ctx context.Context, imageHash string, data []byte) (*filestorage.StoredImage, error)
}

// EventPublisher is satisfied by *queue.RabbitMQ.
type EventPublisher interface {
	PublishCertificateEvent(event queue.CertificateEvent) error
}

type CertificateServiceOptions struct {
	Store  CertificateStore
	Ledger Ledger
	// Optional, uploads are skipped when nil.
	Images ImageStore
	// Optional, events are skipped when nil.
	Events        EventPublisher
	Logger        *zap.SugaredLogger
	VerifyBaseURL string
	Now           func() time.Time
}

type CertificateService struct {
	store         CertificateStore
	ledger        Ledger
	images        ImageStore
	events        EventPublisher
	logger        *zap.SugaredLogger
	verifyBaseURL string
	now           func() time.Time
}

func NewCertificateService(opts CertificateServiceOptions) *CertificateService {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &CertificateService{
		store:         opts.Store,
		ledger:        opts.Ledger,
		images:        opts.Images,
		events:        opts.Events,
		logger:        opts.Logger,
		verifyBaseURL: opts.VerifyBaseURL,
		now:           opts.Now,
	}
}

type IssueRequest struct {
	ImageBase64 string
	CertType    oceanseal.CertType
	UserID      string
	ImageURL    string
	// Owner email from the identity token, used for the issuance notification.
	Email string
}

type IssueResult struct {
	Success     bool             `json:"success"`
	Certificate *CertificateView `json:"certificate,omitempty"`
	// False when the certificate could not be written to the store and only exists in this response.
	Persisted bool   `json:"persisted"`
	Error     string `json:"error,omitempty"`
}

// Issue returns the existing certificate for an already seen image, otherwise anchors a new
// one on the ledger, falling back to an off-chain id when the ledger fails, and persists it.
// Only invalid input is returned as an error, ledger and store failures degrade the result.
func (s *CertificateService) Issue(ctx context.Context, req IssueRequest) (*IssueResult, error) {
	if !req.CertType.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCertType, req.CertType)
	}

	image, err := oceanseal.DecodeBase64Image(req.ImageBase64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	imageHash := oceanseal.ComputeImageHash(image)

	existing, err := s.store.GetByImageHash(ctx, nil, imageHash)
	switch {
	case err == nil:
		s.logger.Infow("certificate already issued for image", "certId", existing.CertID, "imageHash", imageHash)
		return &IssueResult{Success: true, Certificate: s.toView(existing), Persisted: true}, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		// Without the store we cannot dedupe, issuance continues and the insert below decides
		s.logger.Warnw("certificate store lookup failed during issuance", "imageHash", imageHash, "error", err)
	}

	certificate := &model.Certificate{
		ImageHash: imageHash,
		ImageURL:  req.ImageURL,
		UserID:    req.UserID,
		CertType:  req.CertType,
		Status:    oceanseal.CertStatusActive,
	}

	anchored, err := s.ledger.Issue(ctx, imageHash, req.CertType, oceanseal.HashUserID(req.UserID))
	if err != nil {
		s.logger.Warnw("ledger issuance failed, issuing off-chain", "imageHash", imageHash, "error", err)
		certificate.CertID = oceanseal.OffChainCertID(imageHash, req.UserID, s.now())
		certificate.TxHash = oceanseal.TxHashOffChain
		certificate.BlockNumber = 0
	} else {
		certificate.CertID = anchored.LedgerID
		certificate.TxHash = anchored.TxHash
		certificate.BlockNumber = anchored.BlockNumber
	}

	if certificate.ImageURL == "" && s.images != nil {
		stored, err := s.images.PutImage(ctx, imageHash, image)
		if err != nil {
			s.logger.Warnw("image upload failed, certificate issued without image url", "imageHash", imageHash, "error", err)
		} else {
			certificate.ImageURL = stored.ImageURL
			certificate.ThumbnailURL = stored.ThumbnailURL
		}
	}

	stored, created, err := s.store.InsertIfAbsent(ctx, nil, certificate)
	if err != nil {
		s.logger.Errorw("certificate not persisted, returning ephemeral certificate", "certId", certificate.CertID, "error", err)
		now := s.now().UTC()
		certificate.CreatedAt = &now
		return &IssueResult{Success: true, Certificate: s.toView(certificate), Persisted: false}, nil
	}

	if created {
		s.publish(queue.NewCertificateIssuedEvent(stored, req.Email))
		s.logger.Infow("certificate issued", "certId", stored.CertID, "onChain", stored.TxHash != oceanseal.TxHashOffChain)
	} else {
		s.logger.Infow("concurrent issuance for image resolved to existing certificate", "certId", stored.CertID, "discardedCertId", certificate.CertID)
	}

	return &IssueResult{Success: true, Certificate: s.toView(stored), Persisted: true}, nil
}

// Get resolves a full or shortened certificate id.
func (s *CertificateService) Get(ctx context.Context, certID string) (*model.Certificate, error) {
	if _, kind := oceanseal.NormalizeCertID(certID); kind == oceanseal.LookupInvalid {
		return nil, ErrCertificateNotFound
	}

	certificate, err := s.store.GetByCertId(ctx, nil, certID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCertificateNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return certificate, nil
}

func (s *CertificateService) GetView(ctx context.Context, certID string) (*CertificateView, error) {
	certificate, err := s.Get(ctx, certID)
	if err != nil {
		return nil, err
	}
	return s.toView(certificate), nil
}

type UserCertificates struct {
	UserID       string            `json:"user_id"`
	TotalCount   int               `json:"total_count"`
	Certificates []CertificateView `json:"certificates"`
}

func (s *CertificateService) ListByUser(ctx context.Context, userID string) (*UserCertificates, error) {
	certificates, err := s.store.ListByUserId(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	views := make([]CertificateView, len(certificates))
	for i := range certificates {
		views[i] = *s.toView(&certificates[i])
	}

	return &UserCertificates{UserID: userID, TotalCount: len(views), Certificates: views}, nil
}

// Revoke marks the certificate revoked in the store. The ledger record is left as is.
// ownerID is checked against the certificate owner unless it is empty.
// Revoking an already revoked certificate is a no-op.
func (s *CertificateService) Revoke(ctx context.Context, certID string, ownerID string) (*model.Certificate, error) {
	certificate, err := s.Get(ctx, certID)
	if err != nil {
		return nil, err
	}

	if ownerID != "" && certificate.UserID != ownerID {
		return nil, ErrForbidden
	}

	if certificate.IsRevoked() {
		return certificate, nil
	}

	rows, err := s.store.UpdateStatus(ctx, nil, certificate.CertID, oceanseal.CertStatusRevoked)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCertificateNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	certificate.Status = oceanseal.CertStatusRevoked
	if rows > 0 {
		s.publish(queue.NewCertificateRevokedEvent(certificate, ownerID))
		s.logger.Infow("certificate revoked", "certId", certificate.CertID)
	}

	return certificate, nil
}

func (s *CertificateService) publish(event queue.CertificateEvent) {
	if s.events == nil {
		return
	}

	if err := s.events.PublishCertificateEvent(event); err != nil {
		s.logger.Warnw("failed to publish certificate event", "type", event.Type, "certId", event.CertID, "error", err)
	}
}
