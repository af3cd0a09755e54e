package auth

import (
	"errors"
	"fmt"

	"github.com/SeakMengs/OceanSeal/internal/config"
	"github.com/SeakMengs/OceanSeal/internal/util"
	googleAuthIDTokenVerifier "github.com/futurenda/google-auth-id-token-verifier"
	"go.uber.org/zap"
)

// GoogleVerifier accepts Google ID tokens issued for the configured client id.
type GoogleVerifier struct {
	clientID string
	logger   *zap.SugaredLogger
}

func NewGoogleVerifier(cfg config.AuthConfig, logger *zap.SugaredLogger) *GoogleVerifier {
	// For unit test
	if logger == nil {
		logger = util.NewLogger("")
	}

	return &GoogleVerifier{clientID: cfg.GOOGLE_CLIENT_ID, logger: logger}
}

func (g GoogleVerifier) VerifyIdentityToken(token string) (*Identity, error) {
	v := googleAuthIDTokenVerifier.Verifier{}
	if err := v.VerifyIDToken(token, []string{g.clientID}); err != nil {
		g.logger.Debugf("Failed to verify google id token. Error: %v", err)
		if errors.Is(err, googleAuthIDTokenVerifier.ErrTokenUsedTooLate) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claimSet, err := googleAuthIDTokenVerifier.Decode(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claimSet.Sub == "" {
		return nil, fmt.Errorf("%w: subject is missing", ErrInvalidToken)
	}

	return &Identity{ID: claimSet.Sub, Email: claimSet.Email}, nil
}
