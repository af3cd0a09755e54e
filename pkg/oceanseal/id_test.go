package oceanseal

import (
	"strings"
	"testing"
)

func TestNormalizeCertID(t *testing.T) {
	full := "0x" + strings.Repeat("ab", 32)

	tests := []struct {
		name     string
		input    string
		wantID   string
		wantKind LookupKind
	}{
		{"full id", full, full, LookupExact},
		{"full id upper case", "0x" + strings.ToUpper(strings.Repeat("ab", 32)), full, LookupExact},
		{"full id without prefix", strings.Repeat("ab", 32), full, LookupExact},
		{"short id", "abababab", "0xabababab", LookupPrefix},
		{"short id with prefix", "0xabababab", "0xabababab", LookupPrefix},
		{"too short", "abab", "", LookupInvalid},
		{"too long", full + "ab", "", LookupInvalid},
		{"sql injection", "'; DROP TABLE certificates; --", "", LookupInvalid},
		{"like wildcard", "abab%abab", "", LookupInvalid},
		{"empty", "", "", LookupInvalid},
		{"prefix only", "0x", "", LookupInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotID, gotKind := NormalizeCertID(tt.input)
			if gotID != tt.wantID || gotKind != tt.wantKind {
				t.Errorf("NormalizeCertID(%q) = (%q, %v), want (%q, %v)", tt.input, gotID, gotKind, tt.wantID, tt.wantKind)
			}
		})
	}
}

func TestShortIDAndVerifyURL(t *testing.T) {
	id := "0xabcdef0123456789"
	if got := ShortID(id); got != "abcdef01" {
		t.Errorf("ShortID() = %s, want abcdef01", got)
	}
	if got := VerifyURL("https://ocean-seal.shop/verify/", id); got != "https://ocean-seal.shop/verify/abcdef01" {
		t.Errorf("VerifyURL() = %s", got)
	}
}

func TestExplorerTxURL(t *testing.T) {
	if got := ExplorerTxURL("https://rpc-amoy.polygon.technology", "0x1"); got != "https://amoy.polygonscan.com/tx/0x1" {
		t.Errorf("ExplorerTxURL(amoy) = %s", got)
	}
	if got := ExplorerTxURL("https://polygon-rpc.com", "0x1"); got != "https://polygonscan.com/tx/0x1" {
		t.Errorf("ExplorerTxURL(mainnet) = %s", got)
	}
}

func TestNewAnchor(t *testing.T) {
	if _, ok := NewAnchor(TxHashOffChain, 0).(OffChain); !ok {
		t.Errorf("NewAnchor(offchain) is not OffChain")
	}
	a, ok := NewAnchor("0xdead", 12).(OnChain)
	if !ok || a.BlockNumber != 12 || a.TxHash != "0xdead" {
		t.Errorf("NewAnchor(0xdead, 12) = %+v", a)
	}
}

func TestParseCertType(t *testing.T) {
	for _, s := range []string{"poster", "serial", "defect"} {
		if _, err := ParseCertType(s); err != nil {
			t.Errorf("ParseCertType(%s) error = %v", s, err)
		}
	}
	if _, err := ParseCertType("sticker"); err == nil {
		t.Errorf("ParseCertType(sticker) should fail")
	}
}
