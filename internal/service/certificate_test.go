package service

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/SeakMengs/OceanSeal/internal/ledger"
	"github.com/SeakMengs/OceanSeal/internal/model"
	"github.com/SeakMengs/OceanSeal/internal/queue"
	"github.com/SeakMengs/OceanSeal/internal/service/servicetest"
	"github.com/SeakMengs/OceanSeal/pkg/oceanseal"
)

var (
	pngBytes  = []byte("\x89PNG\r\n\x1a\nfake image body")
	pngBase64 = base64.StdEncoding.EncodeToString(pngBytes)
	fixedNow  = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
)

type harness struct {
	store     *servicetest.Store
	ledger    *servicetest.Ledger
	images    *servicetest.ImageStore
	publisher *servicetest.Publisher
	service   *CertificateService
}

func newHarness(rows ...*model.Certificate) *harness {
	h := &harness{
		store:     servicetest.NewStore(rows...),
		ledger:    &servicetest.Ledger{IssuedAt: fixedNow},
		images:    &servicetest.ImageStore{},
		publisher: &servicetest.Publisher{},
	}
	h.service = NewCertificateService(CertificateServiceOptions{
		Store:         h.store,
		Ledger:        h.ledger,
		Images:        h.images,
		Events:        h.publisher,
		VerifyBaseURL: "https://ocean-seal.shop/verify",
		Now:           func() time.Time { return fixedNow },
	})
	return h
}

func certID(digit string) string {
	return "0x" + strings.Repeat(digit, 64)
}

func TestIssueOnChain(t *testing.T) {
	h := newHarness()

	result, err := h.service.Issue(context.Background(), IssueRequest{
		ImageBase64: "data:image/png;base64," + pngBase64,
		CertType:    oceanseal.CertTypePoster,
		UserID:      "u1",
		Email:       "u1@example.com",
	})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	cert := result.Certificate
	if !result.Success || !result.Persisted {
		t.Errorf("Issue() success = %v, persisted = %v", result.Success, result.Persisted)
	}
	if cert.CertType != oceanseal.CertTypePoster {
		t.Errorf("cert_type = %s, want poster", cert.CertType)
	}
	if cert.ImageHash != oceanseal.ComputeImageHash(pngBytes) {
		t.Errorf("image_hash = %s, want sha256 of the image", cert.ImageHash)
	}
	if cert.Status != oceanseal.CertStatusActive {
		t.Errorf("status = %s, want active", cert.Status)
	}
	if !cert.OnChain || cert.BlockNumber != 4242 || cert.ExplorerURL == "" {
		t.Errorf("expected on-chain certificate, got %+v", cert)
	}

	wantID := oceanseal.Bytes32ToHex(oceanseal.LedgerCertID(cert.ImageHash, oceanseal.CertTypePoster, oceanseal.HashUserID("u1")))
	if cert.CertID != wantID {
		t.Errorf("cert_id = %s, want %s", cert.CertID, wantID)
	}
	if cert.VerifyURL != "https://ocean-seal.shop/verify/"+cert.CertID[2:10] {
		t.Errorf("verify_url = %s", cert.VerifyURL)
	}

	if len(h.ledger.IssueCalls) != 1 {
		t.Fatalf("ledger issue calls = %d, want 1", len(h.ledger.IssueCalls))
	}
	if got := h.ledger.IssueCalls[0].HashedUserID; got == "u1" || got != oceanseal.HashUserID("u1") {
		t.Errorf("ledger received user id %q, want the hashed id", got)
	}

	if len(h.store.Rows()) != 1 || h.store.Rows()[0].UserID != "u1" {
		t.Errorf("store should keep the original user id")
	}

	if len(h.publisher.Events) != 1 || h.publisher.Events[0].Type != queue.CertificateIssued || h.publisher.Events[0].Email != "u1@example.com" {
		t.Errorf("unexpected events %+v", h.publisher.Events)
	}

	if cert.ImageURL == "" || cert.ThumbnailURL == "" {
		t.Errorf("expected uploaded image urls, got %+v", cert)
	}
}

func TestIssueReturnsExistingCertificate(t *testing.T) {
	existing := &model.Certificate{
		CertID:    certID("1"),
		ImageHash: oceanseal.ComputeImageHash(pngBytes),
		UserID:    "someone-else",
		CertType:  oceanseal.CertTypeSerial,
		TxHash:    oceanseal.TxHashOffChain,
	}
	h := newHarness(existing)

	result, err := h.service.Issue(context.Background(), IssueRequest{ImageBase64: pngBase64, CertType: oceanseal.CertTypePoster, UserID: "u1"})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if result.Certificate.CertID != existing.CertID {
		t.Errorf("cert_id = %s, want existing %s", result.Certificate.CertID, existing.CertID)
	}
	if len(h.ledger.IssueCalls) != 0 {
		t.Errorf("ledger was called for an already certified image")
	}
	if len(h.publisher.Events) != 0 {
		t.Errorf("events published for an existing certificate")
	}
	if len(h.images.Uploads) != 0 {
		t.Errorf("image uploaded for an existing certificate")
	}
}

func TestIssueFallsBackOffChain(t *testing.T) {
	for _, ledgerErr := range []error{ledger.ErrNotConfigured, ledger.ErrReceiptTimeout, ledger.ErrReverted, ledger.ErrUnreachable} {
		t.Run(ledgerErr.Error(), func(t *testing.T) {
			h := newHarness()
			h.ledger.IssueErr = ledgerErr

			result, err := h.service.Issue(context.Background(), IssueRequest{ImageBase64: pngBase64, CertType: oceanseal.CertTypeDefect, UserID: "u1"})
			if err != nil {
				t.Fatalf("Issue() error = %v", err)
			}

			cert := result.Certificate
			if cert.TxHash != oceanseal.TxHashOffChain || cert.BlockNumber != 0 || cert.OnChain || cert.ExplorerURL != "" {
				t.Errorf("expected off-chain certificate, got %+v", cert)
			}
			want := oceanseal.OffChainCertID(oceanseal.ComputeImageHash(pngBytes), "u1", fixedNow)
			if cert.CertID != want {
				t.Errorf("cert_id = %s, want %s", cert.CertID, want)
			}
			if !result.Persisted {
				t.Errorf("off-chain certificate was not persisted")
			}
		})
	}
}

func TestIssueStoreFailureReturnsEphemeralCertificate(t *testing.T) {
	h := newHarness()
	h.store.InsertErr = servicetest.ErrUnavailable

	result, err := h.service.Issue(context.Background(), IssueRequest{ImageBase64: pngBase64, CertType: oceanseal.CertTypePoster, UserID: "u1"})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if !result.Success || result.Persisted {
		t.Errorf("success = %v, persisted = %v, want true, false", result.Success, result.Persisted)
	}
	if result.Certificate == nil || result.Certificate.CertID == "" {
		t.Fatalf("expected an ephemeral certificate")
	}
	if !result.Certificate.CreatedAt.Equal(fixedNow) {
		t.Errorf("created_at = %s, want %s", result.Certificate.CreatedAt, fixedNow)
	}
	if len(h.publisher.Events) != 0 {
		t.Errorf("events published for an unpersisted certificate")
	}
}

func TestIssueLookupFailureStillIssues(t *testing.T) {
	h := newHarness()
	h.store.LookupErr = servicetest.ErrUnavailable

	result, err := h.service.Issue(context.Background(), IssueRequest{ImageBase64: pngBase64, CertType: oceanseal.CertTypePoster, UserID: "u1"})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if !result.Persisted || len(h.ledger.IssueCalls) != 1 {
		t.Errorf("persisted = %v, ledger calls = %d", result.Persisted, len(h.ledger.IssueCalls))
	}
}

func TestIssueConcurrentWriterWins(t *testing.T) {
	h := newHarness()
	winner := &model.Certificate{
		CertID:    certID("2"),
		ImageHash: oceanseal.ComputeImageHash(pngBytes),
		UserID:    "u2",
		CertType:  oceanseal.CertTypePoster,
		TxHash:    oceanseal.TxHashOffChain,
	}
	h.store.RaceWith = winner

	result, err := h.service.Issue(context.Background(), IssueRequest{ImageBase64: pngBase64, CertType: oceanseal.CertTypePoster, UserID: "u1"})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if result.Certificate.CertID != winner.CertID {
		t.Errorf("cert_id = %s, want the first writer %s", result.Certificate.CertID, winner.CertID)
	}
	if len(h.store.Rows()) != 1 {
		t.Errorf("rows = %d, want 1 per image", len(h.store.Rows()))
	}
	if len(h.publisher.Events) != 0 {
		t.Errorf("losing writer published an event")
	}
}

func TestIssueRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		req     IssueRequest
		wantErr error
	}{
		{"unknown type", IssueRequest{ImageBase64: pngBase64, CertType: "sticker", UserID: "u1"}, ErrInvalidCertType},
		{"not base64", IssueRequest{ImageBase64: "%%%", CertType: oceanseal.CertTypePoster, UserID: "u1"}, ErrInvalidImage},
		{"empty image", IssueRequest{ImageBase64: "data:image/png;base64,", CertType: oceanseal.CertTypePoster, UserID: "u1"}, ErrInvalidImage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			_, err := h.service.Issue(context.Background(), tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Issue() error = %v, want %v", err, tt.wantErr)
			}
			if h.store.Lookups != 0 || len(h.ledger.IssueCalls) != 0 {
				t.Errorf("invalid input reached the store or the ledger")
			}
		})
	}
}

func TestIssueImageUpload(t *testing.T) {
	t.Run("client url is kept", func(t *testing.T) {
		h := newHarness()
		result, _ := h.service.Issue(context.Background(), IssueRequest{ImageBase64: pngBase64, CertType: oceanseal.CertTypePoster, UserID: "u1", ImageURL: "https://cdn.example.com/a.png"})
		if result.Certificate.ImageURL != "https://cdn.example.com/a.png" || len(h.images.Uploads) != 0 {
			t.Errorf("image_url = %s, uploads = %d", result.Certificate.ImageURL, len(h.images.Uploads))
		}
	})

	t.Run("upload failure does not fail issuance", func(t *testing.T) {
		h := newHarness()
		h.images.Err = errors.New("bucket missing")
		result, err := h.service.Issue(context.Background(), IssueRequest{ImageBase64: pngBase64, CertType: oceanseal.CertTypePoster, UserID: "u1"})
		if err != nil || !result.Persisted || result.Certificate.ImageURL != "" {
			t.Errorf("err = %v, result = %+v", err, result)
		}
	})
}

func TestGetByShortID(t *testing.T) {
	cert := &model.Certificate{CertID: "0xabcdef12" + strings.Repeat("0", 56), ImageHash: certID("3"), UserID: "u1", CertType: oceanseal.CertTypeSerial, TxHash: oceanseal.TxHashOffChain}
	h := newHarness(cert)

	tests := []struct {
		id      string
		wantErr error
	}{
		{cert.CertID, nil},
		{"abcdef12", nil},
		{"0xABCDEF12", nil},
		{"abcdef1", ErrCertificateNotFound},
		{"0xffffffff", ErrCertificateNotFound},
		{"'; DROP TABLE certificates; --", ErrCertificateNotFound},
	}

	for _, tt := range tests {
		got, err := h.service.Get(context.Background(), tt.id)
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("Get(%q) error = %v, want %v", tt.id, err, tt.wantErr)
			continue
		}
		if tt.wantErr == nil && got.CertID != cert.CertID {
			t.Errorf("Get(%q) = %s, want %s", tt.id, got.CertID, cert.CertID)
		}
	}

	h.store.Err = servicetest.ErrUnavailable
	if _, err := h.service.Get(context.Background(), "abcdef12"); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("Get() error = %v, want ErrStoreUnavailable", err)
	}
}

func TestListByUser(t *testing.T) {
	h := newHarness(
		&model.Certificate{CertID: certID("a"), ImageHash: certID("1"), UserID: "u1", CertType: oceanseal.CertTypePoster, TxHash: oceanseal.TxHashOffChain},
		&model.Certificate{CertID: certID("b"), ImageHash: certID("2"), UserID: "u2", CertType: oceanseal.CertTypePoster, TxHash: oceanseal.TxHashOffChain},
		&model.Certificate{CertID: certID("c"), ImageHash: certID("3"), UserID: "u1", CertType: oceanseal.CertTypeDefect, TxHash: oceanseal.TxHashOffChain},
	)

	list, err := h.service.ListByUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if list.TotalCount != 2 || list.UserID != "u1" {
		t.Fatalf("ListByUser() = %+v", list)
	}
	if list.Certificates[0].CertID != certID("c") {
		t.Errorf("newest certificate should come first, got %s", list.Certificates[0].CertID)
	}

	empty, err := h.service.ListByUser(context.Background(), "nobody")
	if err != nil || empty.TotalCount != 0 || empty.Certificates == nil {
		t.Errorf("ListByUser(nobody) = %+v, %v", empty, err)
	}

	h.store.Err = servicetest.ErrUnavailable
	if _, err := h.service.ListByUser(context.Background(), "u1"); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("ListByUser() error = %v, want ErrStoreUnavailable", err)
	}
}

func TestRevoke(t *testing.T) {
	newCert := func() *model.Certificate {
		return &model.Certificate{CertID: certID("d"), ImageHash: certID("4"), UserID: "owner", CertType: oceanseal.CertTypePoster, TxHash: certID("9"), BlockNumber: 7}
	}

	t.Run("owner revokes", func(t *testing.T) {
		h := newHarness(newCert())
		cert, err := h.service.Revoke(context.Background(), certID("d"), "owner")
		if err != nil || cert.Status != oceanseal.CertStatusRevoked {
			t.Fatalf("Revoke() = %+v, %v", cert, err)
		}
		if h.store.Rows()[0].Status != oceanseal.CertStatusRevoked {
			t.Errorf("store status = %s", h.store.Rows()[0].Status)
		}
		if len(h.publisher.Events) != 1 || h.publisher.Events[0].Type != queue.CertificateRevoked {
			t.Errorf("events = %+v", h.publisher.Events)
		}
		if len(h.ledger.IssueCalls)+len(h.ledger.VerifyCalls) != 0 {
			t.Errorf("revocation touched the ledger")
		}
	})

	t.Run("second revoke is a no-op", func(t *testing.T) {
		h := newHarness(newCert())
		h.service.Revoke(context.Background(), certID("d"), "owner")
		cert, err := h.service.Revoke(context.Background(), certID("d"), "owner")
		if err != nil || cert.Status != oceanseal.CertStatusRevoked {
			t.Fatalf("Revoke() = %+v, %v", cert, err)
		}
		if len(h.publisher.Events) != 1 {
			t.Errorf("events = %d, want 1", len(h.publisher.Events))
		}
	})

	t.Run("other user is forbidden", func(t *testing.T) {
		h := newHarness(newCert())
		if _, err := h.service.Revoke(context.Background(), certID("d"), "intruder"); !errors.Is(err, ErrForbidden) {
			t.Errorf("Revoke() error = %v, want ErrForbidden", err)
		}
		if h.store.Rows()[0].Status != oceanseal.CertStatusActive {
			t.Errorf("forbidden revoke changed the status")
		}
	})

	t.Run("ownership check skipped without owner", func(t *testing.T) {
		h := newHarness(newCert())
		if _, err := h.service.Revoke(context.Background(), "dddddddd", ""); err != nil {
			t.Errorf("Revoke() error = %v", err)
		}
	})

	t.Run("unknown certificate", func(t *testing.T) {
		h := newHarness()
		if _, err := h.service.Revoke(context.Background(), certID("d"), "owner"); !errors.Is(err, ErrCertificateNotFound) {
			t.Errorf("Revoke() error = %v, want ErrCertificateNotFound", err)
		}
	})
}

func TestIssueThenVerify(t *testing.T) {
	for _, ledgerErr := range []error{nil, ledger.ErrNotConfigured} {
		h := newHarness()
		h.ledger.IssueErr = ledgerErr

		issued, err := h.service.Issue(context.Background(), IssueRequest{ImageBase64: pngBase64, CertType: oceanseal.CertTypePoster, UserID: "u1"})
		if err != nil {
			t.Fatalf("Issue() error = %v", err)
		}

		for _, id := range []string{issued.Certificate.CertID, issued.Certificate.ShortID} {
			result := h.service.Verify(context.Background(), id)
			if !result.IsValid {
				t.Errorf("Verify(%s) with ledger error %v = %+v", id, ledgerErr, result)
			}
			if result.BlockchainVerified != (ledgerErr == nil) {
				t.Errorf("Verify(%s) BlockchainVerified = %v", id, result.BlockchainVerified)
			}
		}
	}
}
