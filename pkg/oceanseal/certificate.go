package oceanseal

import "fmt"

type CertType string

const (
	CertTypePoster CertType = "poster"
	CertTypeSerial CertType = "serial"
	CertTypeDefect CertType = "defect"
)

func (t CertType) IsValid() bool {
	switch t {
	case CertTypePoster, CertTypeSerial, CertTypeDefect:
		return true
	}
	return false
}

func ParseCertType(s string) (CertType, error) {
	t := CertType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("unknown certificate type %q", s)
	}
	return t, nil
}

type CertStatus string

const (
	CertStatusActive  CertStatus = "active"
	CertStatusRevoked CertStatus = "revoked"
	CertStatusPending CertStatus = "pending"
)

// TxHashOffChain marks a certificate that was not recorded on the ledger.
const TxHashOffChain = "offchain"

// Anchor tells where a certificate's tamper evidence lives. It is either OnChain or OffChain.
type Anchor interface {
	isAnchor()
}

type OnChain struct {
	TxHash      string
	BlockNumber uint64
}

type OffChain struct{}

func (OnChain) isAnchor()  {}
func (OffChain) isAnchor() {}

func NewAnchor(txHash string, blockNumber uint64) Anchor {
	if txHash == "" || txHash == TxHashOffChain {
		return OffChain{}
	}
	return OnChain{TxHash: txHash, BlockNumber: blockNumber}
}
