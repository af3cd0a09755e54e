// Package servicetest provides in-memory collaborators for exercising the certificate
// service without a database, a chain or a broker.
package servicetest

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	filestorage "github.com/SeakMengs/OceanSeal/internal/file_storage"
	"github.com/SeakMengs/OceanSeal/internal/ledger"
	"github.com/SeakMengs/OceanSeal/internal/model"
	"github.com/SeakMengs/OceanSeal/internal/queue"
	"github.com/SeakMengs/OceanSeal/pkg/oceanseal"
	"gorm.io/gorm"
)

var ErrUnavailable = errors.New("connection refused")

// Store mimics the postgres repository, including the unique image hash index.
type Store struct {
	mu    sync.Mutex
	rows  []*model.Certificate
	clock time.Time

	// Returned by every method when set.
	Err error
	// Returned by InsertIfAbsent only.
	InsertErr error
	// Returned by GetByImageHash only, the insert still sees the real rows.
	LookupErr error
	// Inserted right before the next InsertIfAbsent, simulating a concurrent writer.
	RaceWith *model.Certificate

	Lookups int
}

func NewStore(rows ...*model.Certificate) *Store {
	s := &Store{clock: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	for _, row := range rows {
		s.add(row)
	}
	return s
}

func (s *Store) add(c *model.Certificate) {
	if c.CreatedAt == nil {
		s.clock = s.clock.Add(time.Minute)
		created := s.clock
		c.CreatedAt = &created
	}
	if c.Status == "" {
		c.Status = oceanseal.CertStatusActive
	}
	s.rows = append(s.rows, c)
}

func (s *Store) Rows() []*model.Certificate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*model.Certificate(nil), s.rows...)
}

func (s *Store) InsertIfAbsent(ctx context.Context, tx *gorm.DB, c *model.Certificate) (*model.Certificate, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return c, false, s.Err
	}
	if s.InsertErr != nil {
		return c, false, s.InsertErr
	}

	if s.RaceWith != nil {
		s.add(s.RaceWith)
		s.RaceWith = nil
	}

	for _, row := range s.rows {
		if row.ImageHash == c.ImageHash {
			return row, false, nil
		}
	}

	s.add(c)
	return c, true, nil
}

func (s *Store) GetByImageHash(ctx context.Context, tx *gorm.DB, imageHash string) (*model.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Lookups++
	if s.Err != nil {
		return nil, s.Err
	}
	if s.LookupErr != nil {
		return nil, s.LookupErr
	}

	for _, row := range s.rows {
		if row.ImageHash == imageHash {
			return row, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *Store) GetByCertId(ctx context.Context, tx *gorm.DB, certId string) (*model.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Lookups++
	if s.Err != nil {
		return nil, s.Err
	}

	id, kind := oceanseal.NormalizeCertID(certId)
	if kind == oceanseal.LookupInvalid {
		return nil, gorm.ErrRecordNotFound
	}

	var match *model.Certificate
	for _, row := range s.rows {
		if kind == oceanseal.LookupExact && row.CertID == id {
			return row, nil
		}
		if kind == oceanseal.LookupPrefix && strings.HasPrefix(row.CertID, id) {
			if match == nil || row.CreatedTime().Before(match.CreatedTime()) {
				match = row
			}
		}
	}

	if match == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return match, nil
}

func (s *Store) ListByUserId(ctx context.Context, tx *gorm.DB, userId string) ([]model.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return nil, s.Err
	}

	var out []model.Certificate
	for _, row := range s.rows {
		if row.UserID == userId {
			out = append(out, *row)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedTime().After(out[j].CreatedTime())
	})
	return out, nil
}

func (s *Store) UpdateStatus(ctx context.Context, tx *gorm.DB, certId string, status oceanseal.CertStatus) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return 0, s.Err
	}

	for _, row := range s.rows {
		if row.CertID == certId && row.Status != oceanseal.CertStatusRevoked {
			row.Status = status
			return 1, nil
		}
	}
	return 0, nil
}

// Ledger records calls and answers with the configured results.
type Ledger struct {
	mu sync.Mutex

	IssueErr  error
	VerifyErr error
	IssuedAt  time.Time

	IssueCalls  []IssueCall
	VerifyCalls []string
}

type IssueCall struct {
	ImageHash    string
	CertType     oceanseal.CertType
	HashedUserID string
}

func (l *Ledger) Issue(ctx context.Context, imageHash string, certType oceanseal.CertType, hashedUserID string) (*ledger.IssueResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.IssueCalls = append(l.IssueCalls, IssueCall{imageHash, certType, hashedUserID})
	if l.IssueErr != nil {
		return nil, l.IssueErr
	}

	return &ledger.IssueResult{
		LedgerID:    oceanseal.Bytes32ToHex(oceanseal.LedgerCertID(imageHash, certType, hashedUserID)),
		TxHash:      "0x" + strings.Repeat("7", 64),
		BlockNumber: 4242,
		GasUsed:     45000,
	}, nil
}

func (l *Ledger) Verify(ctx context.Context, ledgerID string) (*ledger.VerifyResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.VerifyCalls = append(l.VerifyCalls, ledgerID)
	if l.VerifyErr != nil {
		return nil, l.VerifyErr
	}
	return &ledger.VerifyResult{IssuedAt: l.IssuedAt}, nil
}

func (l *Ledger) ExplorerURL(txHash string) string {
	return oceanseal.ExplorerTxURL("https://rpc-amoy.polygon.technology", txHash)
}

type ImageStore struct {
	Err     error
	Uploads map[string][]byte
}

func (i *ImageStore) PutImage(ctx context.Context, imageHash string, data []byte) (*filestorage.StoredImage, error) {
	if i.Err != nil {
		return nil, i.Err
	}
	if i.Uploads == nil {
		i.Uploads = make(map[string][]byte)
	}
	i.Uploads[imageHash] = data

	key := strings.TrimPrefix(imageHash, oceanseal.HashPrefix)[:16]
	return &filestorage.StoredImage{
		ImageURL:     "http://minio.local/oceanseal/" + key + "/original.png",
		ThumbnailURL: "http://minio.local/oceanseal/" + key + "/thumbnail.jpg",
	}, nil
}

type Publisher struct {
	mu     sync.Mutex
	Err    error
	Events []queue.CertificateEvent
}

func (p *Publisher) PublishCertificateEvent(event queue.CertificateEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Err != nil {
		return p.Err
	}
	p.Events = append(p.Events, event)
	return nil
}
