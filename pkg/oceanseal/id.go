package oceanseal

import (
	"regexp"
	"strings"
)

const (
	// 0x + 64 hex digits
	MaxCertIDLength = 66
	// Shortest prefix accepted for public short links.
	MinShortIDLength = 8
	fullHexLength    = 64
)

var certIDPattern = regexp.MustCompile(`^(0x)?[a-fA-F0-9]+$`)

type LookupKind int

const (
	LookupInvalid LookupKind = iota
	LookupExact
	LookupPrefix
)

// ValidCertID reports whether id is safe to use in a store lookup.
func ValidCertID(id string) bool {
	if len(id) == 0 || len(id) > MaxCertIDLength {
		return false
	}
	return certIDPattern.MatchString(id)
}

// NormalizeCertID validates id and returns the lowercase 0x-prefixed form together with
// the kind of lookup it supports. Invalid ids return LookupInvalid.
func NormalizeCertID(id string) (string, LookupKind) {
	id = strings.TrimSpace(id)
	if !ValidCertID(id) {
		return "", LookupInvalid
	}

	digits := strings.ToLower(strings.TrimPrefix(id, HashPrefix))
	switch {
	case len(digits) == fullHexLength:
		return HashPrefix + digits, LookupExact
	case len(digits) >= MinShortIDLength && len(digits) < fullHexLength:
		return HashPrefix + digits, LookupPrefix
	default:
		return "", LookupInvalid
	}
}

// ShortID returns the first eight hex digits of certID, used in public links.
func ShortID(certID string) string {
	digits := strings.TrimPrefix(certID, HashPrefix)
	if len(digits) > MinShortIDLength {
		return digits[:MinShortIDLength]
	}
	return digits
}

func VerifyURL(baseURL, certID string) string {
	return strings.TrimRight(baseURL, "/") + "/" + ShortID(certID)
}

// ExplorerTxURL links a transaction on the Polygon block explorer matching the RPC network.
func ExplorerTxURL(rpcURL, txHash string) string {
	if strings.Contains(strings.ToLower(rpcURL), "amoy") {
		return "https://amoy.polygonscan.com/tx/" + txHash
	}
	return "https://polygonscan.com/tx/" + txHash
}
