package appcontext

import (
	"github.com/SeakMengs/OceanSeal/internal/auth"
	"github.com/SeakMengs/OceanSeal/internal/config"
	"github.com/SeakMengs/OceanSeal/internal/ledger"
	"github.com/SeakMengs/OceanSeal/internal/queue"
	"github.com/SeakMengs/OceanSeal/internal/repository"
	"github.com/SeakMengs/OceanSeal/internal/service"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// Application contains core dependencies for the app.
type Application struct {
	// Config holds application settings provided from .env file.
	Config *config.Config

	Logger *zap.SugaredLogger

	// Repository provides access to data storage operations.
	Repository *repository.Repository

	// CertificateService runs issuance, verification and revocation.
	CertificateService *service.CertificateService

	// IdentityVerifier checks bearer tokens on protected routes.
	IdentityVerifier auth.IdentityVerifier

	// Ledger is never nil, it reports IsConfigured false when the chain is unavailable.
	Ledger *ledger.Client

	// Optional.
	S3 *minio.Client

	// Optional, events are not published without it.
	Queue *queue.RabbitMQ
}
