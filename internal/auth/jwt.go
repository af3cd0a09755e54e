package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/SeakMengs/OceanSeal/internal/config"
	"github.com/SeakMengs/OceanSeal/internal/util"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type JWT struct {
	logger    *zap.SugaredLogger
	jwtSecret string
}

func NewJwt(cfg config.AuthConfig, logger *zap.SugaredLogger) *JWT {
	// For unit test
	if logger == nil {
		logger = util.NewLogger("")
	}

	return &JWT{
		jwtSecret: cfg.JWT_SECRET,
		logger:    logger,
	}
}

type JWTClaims struct {
	User Identity `json:"user"`
	jwt.RegisteredClaims
}

// GenerateAccessToken signs an HS256 token for identity. Tokens are normally minted by the
// account service, this is used by tooling and tests.
func (j JWT) GenerateAccessToken(identity Identity, ttl time.Duration) (string, error) {
	j.logger.Debugf("Generate access token for user: %s", identity.ID)

	now := time.Now()
	claims := JWTClaims{
		User: identity,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(j.jwtSecret))
}

func (j JWT) VerifyIdentityToken(token string) (*Identity, error) {
	claims := &JWTClaims{}
	parsedToken, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(j.jwtSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		j.logger.Debugf("Failed to verify jwt token. Error: %v", err)
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !parsedToken.Valid {
		return nil, ErrInvalidToken
	}

	identity := claims.User
	if identity.ID == "" {
		identity.ID = claims.Subject
	}
	if identity.ID == "" {
		return nil, fmt.Errorf("%w: user id is missing", ErrInvalidToken)
	}

	return &identity, nil
}
