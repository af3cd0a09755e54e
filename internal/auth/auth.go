package auth

import (
	"errors"
	"fmt"

	"github.com/SeakMengs/OceanSeal/internal/config"
	"go.uber.org/zap"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrInvalidToken = errors.New("invalid token")
)

const (
	PROVIDER_JWT    = "jwt"
	PROVIDER_GOOGLE = "google"
)

// Identity is the authenticated caller. ID is the owner id stored on certificates.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type IdentityVerifier interface {
	VerifyIdentityToken(token string) (*Identity, error)
}

func NewIdentityVerifier(cfg config.AuthConfig, logger *zap.SugaredLogger) (IdentityVerifier, error) {
	switch cfg.PROVIDER {
	case PROVIDER_JWT, "":
		if cfg.JWT_SECRET == "" {
			return nil, errors.New("AUTH_JWT_SECRET is required for the jwt auth provider")
		}
		return NewJwt(cfg, logger), nil
	case PROVIDER_GOOGLE:
		if cfg.GOOGLE_CLIENT_ID == "" {
			return nil, errors.New("AUTH_GOOGLE_CLIENT_ID is required for the google auth provider")
		}
		return NewGoogleVerifier(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown auth provider %q", cfg.PROVIDER)
	}
}
