package oceanseal

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

const HashPrefix = "0x"

var ErrInvalidBase64Image = errors.New("image is not valid base64")

// ComputeImageHash returns the SHA-256 digest of data as 0x-prefixed lowercase hex.
func ComputeImageHash(data []byte) string {
	sum := sha256.Sum256(data)
	return HashPrefix + hex.EncodeToString(sum[:])
}

// DecodeBase64Image strips an optional "data:<mime>;base64," header and decodes the rest.
func DecodeBase64Image(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if i := strings.Index(encoded, ","); i >= 0 {
		encoded = encoded[i+1:]
	}

	if encoded == "" {
		return nil, ErrInvalidBase64Image
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		// Some clients drop the padding
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(encoded, "="))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidBase64Image, err)
		}
	}

	return data, nil
}

func ComputeImageHashFromBase64(encoded string) (string, error) {
	data, err := DecodeBase64Image(encoded)
	if err != nil {
		return "", err
	}

	return ComputeImageHash(data), nil
}

// HashUserID returns a truncated digest of userID that is safe to publish on a public ledger.
func HashUserID(userID string) string {
	sum := sha256.Sum256([]byte(userID))
	return hex.EncodeToString(sum[:])[:16]
}

// LedgerCertID derives the identifier recorded on the ledger. It is computed client side
// so it can be reproduced without querying the chain.
func LedgerCertID(imageHash string, certType CertType, hashedUserID string) [32]byte {
	return sha256.Sum256([]byte(imageHash + string(certType) + hashedUserID))
}

// OffChainCertID derives an identifier for a certificate that could not be anchored on the ledger.
func OffChainCertID(imageHash, userID string, at time.Time) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s%s%d", imageHash, userID, at.UnixNano())))
	return HashPrefix + hex.EncodeToString(sum[:])
}

func Bytes32ToHex(b [32]byte) string {
	return HashPrefix + hex.EncodeToString(b[:])
}
